// Package testutil contains helpers used across tests to reduce boilerplate
// when building conversations and standing up fake wrap services (a library
// directory and an invocation gateway on one httptest server). They are not
// intended for production usage.
package testutil

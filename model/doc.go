// Package model defines the provider-agnostic Completion Client contract.
//
// A Model submits an ordered list of chat messages, optionally together with
// a function catalog, and returns the assistant reply: text, zero or more
// selected function calls with their serialized arguments (uninterpreted),
// the finish reason and token usage.
//
// Providers live in sub packages (model/openai, model/anthropic) so higher
// layers stay decoupled from vendor SDKs. MockModel scripts replies for tests.
package model

// Package bridge is the function-calling bridge between a chat model and
// wrap modules.
//
// It exposes two operations, InvokeModule and LoadModuleSchema, and publishes
// them to the model as the functions InvokeWrap and LoadWrap. Every outcome,
// including panics and transport failures, is normalized into a
// core.Envelope whose error is always a plain string, so the conversation
// loop can append it verbatim as a function-result message.
package bridge

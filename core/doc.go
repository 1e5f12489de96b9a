// Package core provides the foundational domain types shared by every
// wrapmesh package:
//
//   - Message and FunctionCall (the chat transcript a conversation loop owns)
//   - Envelope (the uniform {ok, result|error} shape returned by the bridge)
//
// The package has no dependencies on providers, transports or storage so
// that model adapters, the bridge and the agent loop can all share it.
package core

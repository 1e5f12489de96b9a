package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/wrapmesh/core"
)

// ConversationBuilder provides a fluent helper for constructing chat
// histories in tests.
// Example:
//
//	msgs := NewConversationBuilder().
//		User("balance?").
//		Call("InvokeWrap", map[string]any{"options": opts}).
//		Result(core.Success(100)).
//		Assistant("100").
//		Build()
//
// Call IDs are assigned sequentially (call-1, call-2, ...).
type ConversationBuilder struct {
	msgs    []core.Message
	pending []core.FunctionCall
	nextID  int
}

// NewConversationBuilder creates an empty builder.
func NewConversationBuilder() *ConversationBuilder { return &ConversationBuilder{} }

// System appends a system message (chainable).
func (b *ConversationBuilder) System(t string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.SystemMessage(t))
	return b
}

// User appends a user message (chainable).
func (b *ConversationBuilder) User(t string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.UserMessage(t))
	return b
}

// Assistant appends an assistant text message (chainable).
func (b *ConversationBuilder) Assistant(t string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.AssistantMessage(t))
	return b
}

// Call attaches a function call to the trailing assistant message, appending
// an empty assistant message first when needed. args is marshaled to JSON
// unless it already is a string (chainable).
func (b *ConversationBuilder) Call(name string, args any) *ConversationBuilder {
	b.nextID++
	fc := core.FunctionCall{
		ID:        fmt.Sprintf("call-%d", b.nextID),
		Name:      name,
		Arguments: marshalArgs(args),
	}

	if n := len(b.msgs); n == 0 || b.msgs[n-1].Role != core.RoleAssistant {
		b.msgs = append(b.msgs, core.AssistantMessage(""))
	}
	last := &b.msgs[len(b.msgs)-1]
	last.FunctionCalls = append(last.FunctionCalls, fc)
	b.pending = append(b.pending, fc)
	return b
}

// Result answers the oldest unanswered call with env (chainable). It panics
// when no call is pending, which is a broken test.
func (b *ConversationBuilder) Result(env core.Envelope) *ConversationBuilder {
	if len(b.pending) == 0 {
		panic("testutil: Result without pending Call")
	}
	fc := b.pending[0]
	b.pending = b.pending[1:]
	b.msgs = append(b.msgs, core.FunctionMessage(fc.Name, fc.ID, env.String()))
	return b
}

// LastCall returns the most recently added call.
func (b *ConversationBuilder) LastCall() core.FunctionCall {
	for i := len(b.msgs) - 1; i >= 0; i-- {
		if calls := b.msgs[i].FunctionCalls; len(calls) > 0 {
			return calls[len(calls)-1]
		}
	}
	return core.FunctionCall{}
}

// Build returns a copy of the accumulated messages.
func (b *ConversationBuilder) Build() []core.Message {
	out := make([]core.Message, len(b.msgs))
	copy(out, b.msgs)
	return out
}

func marshalArgs(args any) string {
	switch v := args.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Sprintf("testutil: marshal args: %v", err))
		}
		return string(data)
	}
}

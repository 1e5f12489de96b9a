package core

// Conversation roles understood by the completion providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// FunctionCall describes a function invocation selected by the model.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`        // Provider call id, generated when absent
	Name      string `json:"name"`                // Function name from the catalog
	Arguments string `json:"arguments,omitempty"` // Serialized JSON payload, uninterpreted
}

// Message is one entry of a chat transcript.
//
// Assistant messages may carry FunctionCalls; function messages carry the
// originating call's Name and CallID so providers can correlate results.
type Message struct {
	Role          string         `json:"role"`
	Content       string         `json:"content"`
	Name          string         `json:"name,omitempty"`
	FunctionCalls []FunctionCall `json:"function_calls,omitempty"`
	CallID        string         `json:"call_id,omitempty"`
}

// SystemMessage builds a system role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant message with optional function calls.
func AssistantMessage(content string, calls ...FunctionCall) Message {
	return Message{Role: RoleAssistant, Content: content, FunctionCalls: calls}
}

// FunctionMessage builds a function-result message for the call identified by callID.
func FunctionMessage(name, callID, content string) Message {
	return Message{Role: RoleFunction, Name: name, CallID: callID, Content: content}
}

// HasFunctionCalls reports whether the message selects at least one function.
func (m Message) HasFunctionCalls() bool { return len(m.FunctionCalls) > 0 }

package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/wrapmesh/core"
)

// ErrNoChoices is returned when a provider answers without any completion.
var ErrNoChoices = errors.New("model returned no choices")

// FunctionDefinition describes a function exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the normalized completion input.
type Request struct {
	Messages  []core.Message       `json:"messages"`
	Model     string               `json:"model,omitempty"`     // overrides the client default when set
	Functions []FunctionDefinition `json:"functions,omitempty"` // empty disables function calling
	// Temperature defaults to 0 when nil.
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int64    `json:"max_tokens,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Response is the assistant reply to a Request.
type Response struct {
	ID           string       `json:"id"`
	Message      core.Message `json:"message"`       // always RoleAssistant
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", ...
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock"
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the Completion Client used by the conversation loop.
type Model interface {
	// Complete submits req and returns the assistant reply. Provider failures
	// are returned wrapped, without retries.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 { return &v }

// TemperatureOrDefault returns the request temperature or 0.
func (r Request) TemperatureOrDefault() float64 {
	if r.Temperature == nil {
		return 0
	}
	return *r.Temperature
}

// MockModel is a scripted in-memory Model for tests and examples. Replies are
// served in order; once the script is exhausted it echoes the last user
// message. Every request is recorded.
type MockModel struct {
	info Info

	mu       sync.Mutex
	script   []mockStep
	requests []Request
}

type mockStep struct {
	resp *Response
	err  error
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: "mock", SupportsTools: true}}
}

// AddText scripts a plain text reply.
func (m *MockModel) AddText(content string) *MockModel {
	return m.AddResponse(&Response{Message: core.AssistantMessage(content), FinishReason: "stop"})
}

// AddFunctionCalls scripts a reply selecting the given calls.
func (m *MockModel) AddFunctionCalls(calls ...core.FunctionCall) *MockModel {
	return m.AddResponse(&Response{Message: core.AssistantMessage("", calls...), FinishReason: "tool_calls"})
}

// AddResponse scripts an arbitrary reply.
func (m *MockModel) AddResponse(resp *Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockStep{resp: resp})
	return m
}

// AddError scripts a failing completion.
func (m *MockModel) AddError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockStep{err: err})
	return m
}

// Requests returns a copy of the recorded requests.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Complete implements Model.
func (m *MockModel) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if len(m.script) > 0 {
		step := m.script[0]
		m.script = m.script[1:]
		if step.err != nil {
			return nil, step.err
		}
		resp := *step.resp
		return &resp, nil
	}

	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	var last string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == core.RoleUser {
			last = req.Messages[i].Content
			break
		}
	}
	return &Response{
		Message:      core.AssistantMessage(fmt.Sprintf("Mock response to: %s", last)),
		FinishReason: "stop",
	}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

var _ Model = (*MockModel)(nil)

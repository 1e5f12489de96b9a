package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hupe1980/wrapmesh/core"
	"github.com/hupe1980/wrapmesh/model"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolCallResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "logprobs": null,
    "message": {
      "role": "assistant",
      "content": null,
      "refusal": null,
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "LoadWrap", "arguments": "{\"name\":\"ethereum\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

const textResponse = `{
  "id": "chatcmpl-2",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "logprobs": null,
    "message": {"role": "assistant", "content": "The balance is 100.", "refusal": null}
  }],
  "usage": {"prompt_tokens": 20, "completion_tokens": 6, "total_tokens": 26}
}`

type recorder struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func (r *recorder) last(t *testing.T) map[string]any {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.bodies)
	return r.bodies[len(r.bodies)-1]
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		var m map[string]any
		_ = json.Unmarshal(data, &m)
		rec.mu.Lock()
		rec.bodies = append(rec.bodies, m)
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newTestModel(srv *httptest.Server, optFns ...func(o *Options)) *Model {
	return NewModel(append([]func(o *Options){func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL + "/"
		o.RequestOptions = []option.RequestOption{option.WithMaxRetries(0)}
	}}, optFns...)...)
}

var catalog = []model.FunctionDefinition{{
	Name:        "LoadWrap",
	Description: "Load a wrap schema",
	Parameters: map[string]any{
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
		"required":   []string{"name"},
	},
}}

func TestComplete_FunctionCall(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, toolCallResponse)
	m := newTestModel(srv)

	resp, err := m.Complete(context.Background(), model.Request{
		Messages:  []core.Message{core.SystemMessage("sys"), core.UserMessage("load ethereum")},
		Functions: catalog,
	})
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "tool_calls", resp.FinishReason)
	assert.Equal(t, core.RoleAssistant, resp.Message.Role)
	require.Len(t, resp.Message.FunctionCalls, 1)
	assert.Equal(t, core.FunctionCall{ID: "call_1", Name: "LoadWrap", Arguments: `{"name":"ethereum"}`}, resp.Message.FunctionCalls[0])
	assert.Equal(t, &model.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, resp.Usage)

	body := rec.last(t)
	assert.Equal(t, string(DefaultModel), body["model"])
	assert.Equal(t, "auto", body["tool_choice"])
	tools := body["tools"].([]any)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "LoadWrap", fn["name"])
	assert.Equal(t, "Load a wrap schema", fn["description"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestComplete_TextAndHistory(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, textResponse)
	m := newTestModel(srv, func(o *Options) { o.MaxTokens = 256 })

	resp, err := m.Complete(context.Background(), model.Request{
		Model: "gpt-4o",
		Messages: []core.Message{
			core.UserMessage("balance?"),
			core.AssistantMessage("", core.FunctionCall{ID: "call_1", Name: "InvokeWrap", Arguments: `{"options":{}}`}),
			core.FunctionMessage("InvokeWrap", "call_1", `{"ok":true,"result":100}`),
		},
		Temperature: model.Float(0.3),
	})
	require.NoError(t, err)
	assert.Equal(t, "The balance is 100.", resp.Message.Content)
	assert.False(t, resp.Message.HasFunctionCalls())
	assert.Equal(t, "stop", resp.FinishReason)

	body := rec.last(t)
	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, 0.3, body["temperature"])
	assert.Equal(t, 256.0, body["max_completion_tokens"])
	assert.NotContains(t, body, "tools")
	assert.NotContains(t, body, "tool_choice")

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 3)
	assistant := msgs[1].(map[string]any)
	assert.Equal(t, "assistant", assistant["role"])
	calls := assistant["tool_calls"].([]any)
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].(map[string]any)["id"])

	toolMsg := msgs[2].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_1", toolMsg["tool_call_id"])
	assert.Equal(t, `{"ok":true,"result":100}`, toolMsg["content"])
}

func TestComplete_Errors(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadRequest, `{"error":{"message":"bad request","type":"invalid_request_error"}}`)
	_, err := newTestModel(srv).Complete(context.Background(), model.Request{Messages: []core.Message{core.UserMessage("x")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai api error")

	srv, _ = newServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	_, err = newTestModel(srv).Complete(context.Background(), model.Request{Messages: []core.Message{core.UserMessage("x")}})
	assert.True(t, errors.Is(err, model.ErrNoChoices))
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "k"; o.Model = "gpt-4o" })
	assert.Equal(t, model.Info{Name: "gpt-4o", Provider: "openai", SupportsTools: true}, m.Info())
}

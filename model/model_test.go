package model

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/wrapmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_Script(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockModel("mock-1").
		AddFunctionCalls(core.FunctionCall{ID: "c1", Name: "LoadWrap", Arguments: `{"name":"ethereum"}`}).
		AddError(boom).
		AddText("done")
	ctx := context.Background()
	req := Request{Messages: []core.Message{core.UserMessage("hi")}}

	resp, err := m.Complete(ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.Message.HasFunctionCalls())
	assert.Equal(t, "tool_calls", resp.FinishReason)

	_, err = m.Complete(ctx, req)
	assert.ErrorIs(t, err, boom)

	resp, err = m.Complete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Message.Content)
	assert.Equal(t, core.RoleAssistant, resp.Message.Role)

	resp, err = m.Complete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: hi", resp.Message.Content)

	assert.Len(t, m.Requests(), 4)
	assert.Equal(t, Info{Name: "mock-1", Provider: "mock", SupportsTools: true}, m.Info())
}

func TestMockModel_Errors(t *testing.T) {
	m := NewMockModel("mock")
	_, err := m.Complete(context.Background(), Request{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Complete(ctx, Request{Messages: []core.Message{core.UserMessage("x")}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequest_TemperatureOrDefault(t *testing.T) {
	assert.Equal(t, 0.0, Request{}.TemperatureOrDefault())
	assert.Equal(t, 0.4, Request{Temperature: Float(0.4)}.TemperatureOrDefault())
}

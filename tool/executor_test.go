package tool

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/wrapmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type teMockTool struct {
	name     string
	delay    time.Duration
	result   any
	err      error
	panicMsg any
	running  *atomic.Int32
	peak     *atomic.Int32
}

func (mt *teMockTool) Name() string               { return mt.name }
func (mt *teMockTool) Description() string        { return "mock tool" }
func (mt *teMockTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (mt *teMockTool) Call(tc *Context, _ json.RawMessage) (any, error) {
	if mt.running != nil {
		cur := mt.running.Add(1)
		defer mt.running.Add(-1)
		for {
			old := mt.peak.Load()
			if cur <= old || mt.peak.CompareAndSwap(old, cur) {
				break
			}
		}
	}
	if mt.delay > 0 {
		select {
		case <-time.After(mt.delay):
		case <-tc.Context().Done():
			return nil, tc.Context().Err()
		}
	}
	if mt.panicMsg != nil {
		panic(mt.panicMsg)
	}
	return mt.result, mt.err
}

func newTestExecutor(t *testing.T, maxParallel int, tools ...Tool) *Executor {
	t.Helper()
	r, err := NewRegistry(tools...)
	require.NoError(t, err)
	return NewExecutor(r, func(o *ExecutorOptions) { o.MaxParallel = maxParallel })
}

func TestExecutor_Single(t *testing.T) {
	e := newTestExecutor(t, 4, &teMockTool{name: "one", result: 42})
	results := e.Execute(context.Background(), []core.FunctionCall{{ID: "1", Name: "one", Arguments: "{}"}})
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 42, results[0].Output)
	assert.Equal(t, "1", results[0].Call.ID)
}

func TestExecutor_Empty(t *testing.T) {
	e := newTestExecutor(t, 0)
	assert.Nil(t, e.Execute(context.Background(), nil))
}

func TestExecutor_PreservesOrderAndRunsInParallel(t *testing.T) {
	e := newTestExecutor(t, 2,
		&teMockTool{name: "slow", delay: 60 * time.Millisecond, result: "s"},
		&teMockTool{name: "fast", delay: 5 * time.Millisecond, result: "f"},
	)
	start := time.Now()
	results := e.Execute(context.Background(), []core.FunctionCall{
		{ID: "1", Name: "slow"},
		{ID: "2", Name: "fast"},
	})
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	assert.Equal(t, "s", results[0].Output)
	assert.Equal(t, "f", results[1].Output)
	assert.Less(t, elapsed, 110*time.Millisecond, "expected parallel speedup")
}

func TestExecutor_BoundedParallelism(t *testing.T) {
	var running, peak atomic.Int32
	e := newTestExecutor(t, 2, &teMockTool{name: "w", delay: 10 * time.Millisecond, running: &running, peak: &peak})
	calls := make([]core.FunctionCall, 6)
	for i := range calls {
		calls[i] = core.FunctionCall{Name: "w"}
	}
	results := e.Execute(context.Background(), calls)
	assert.Len(t, results, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestExecutor_ErrorIsolation(t *testing.T) {
	e := newTestExecutor(t, 0,
		&teMockTool{name: "ok", result: "fine"},
		&teMockTool{name: "bad", err: errors.New("boom")},
	)
	results := e.Execute(context.Background(), []core.FunctionCall{
		{ID: "1", Name: "ok"},
		{ID: "2", Name: "bad"},
		{ID: "3", Name: "missing"},
	})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.EqualError(t, results[1].Err, "boom")

	var toolErr *ToolError
	require.True(t, errors.As(results[2].Err, &toolErr))
	assert.Equal(t, CodeUnknownFunction, toolErr.Code)
}

func TestExecutor_PanicRecovery(t *testing.T) {
	e := newTestExecutor(t, 0, &teMockTool{name: "panic", panicMsg: "kaboom"})
	results := e.Execute(context.Background(), []core.FunctionCall{{ID: "1", Name: "panic"}})
	require.Len(t, results, 1)

	var toolErr *ToolError
	require.True(t, errors.As(results[0].Err, &toolErr))
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Contains(t, toolErr.Message, "kaboom")
	assert.Nil(t, results[0].Output)
}

func TestExecutor_Cancelled(t *testing.T) {
	e := newTestExecutor(t, 0, &teMockTool{name: "one", result: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := e.Execute(ctx, []core.FunctionCall{{Name: "one"}, {Name: "one"}})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

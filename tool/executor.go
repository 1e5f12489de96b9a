package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/wrapmesh/core"
	"github.com/hupe1980/wrapmesh/logging"
	"github.com/sourcegraph/conc/pool"
)

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	MaxParallel int // 0 or <1 => one goroutine per call
	Logger      logging.Logger
}

// Result is the outcome of one function call.
type Result struct {
	Call     core.FunctionCall
	Output   any
	Err      error
	Duration time.Duration
}

// Executor runs the function calls of one model turn against a Registry.
// Calls may run in parallel; results are always returned in call order.
// Panics inside tools are recovered and reported as EXECUTION_ERROR.
type Executor struct {
	registry *Registry
	opts     ExecutorOptions
	logger   logging.Logger
}

// NewExecutor creates an Executor for registry.
func NewExecutor(registry *Registry, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{registry: registry, opts: opts, logger: logging.OrNoOp(opts.Logger)}
}

// Execute runs calls and returns one Result per call, in the same order.
func (e *Executor) Execute(ctx context.Context, calls []core.FunctionCall) []Result {
	n := len(calls)
	if n == 0 {
		return nil
	}

	results := make([]Result, n)

	// Fast path: single call, execute inline.
	if n == 1 {
		results[0] = e.ExecuteOne(ctx, calls[0])
		return results
	}

	maxPar := e.opts.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	batchStart := time.Now()
	p := pool.New().WithMaxGoroutines(maxPar)
	for i := range calls {
		idx := i
		p.Go(func() {
			results[idx] = e.ExecuteOne(ctx, calls[idx])
		})
	}
	p.Wait()

	e.logger.Debug(
		"tool.batch.complete",
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results
}

// ExecuteOne runs a single call.
func (e *Executor) ExecuteOne(ctx context.Context, fc core.FunctionCall) (res Result) {
	res.Call = fc
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool.call.panic", "function", fc.Name, "recover", fmt.Sprint(r), "stack", string(debug.Stack()))
			res.Output = nil
			res.Err = &ToolError{Tool: fc.Name, Message: fmt.Sprintf("panic: %v", r), Code: CodeExecution}
		}
		res.Duration = time.Since(start)
		e.logger.Info(
			"tool.call.executed",
			"function", fc.Name,
			"fc_id", fc.ID,
			"duration_ms", res.Duration.Milliseconds(),
			"error", res.Err != nil,
		)
	}()

	impl, ok := e.registry.Get(fc.Name)
	if !ok {
		res.Err = &ToolError{Tool: fc.Name, Message: fmt.Sprintf("unknown function %q", fc.Name), Code: CodeUnknownFunction}
		return res
	}

	tc := NewContext(ctx, fc.ID, e.logger)
	res.Output, res.Err = impl.Call(tc, json.RawMessage(fc.Arguments))
	return res
}

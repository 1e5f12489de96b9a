package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/wrapmesh/internal/util"
)

// TypedTool exposes a Go function taking a typed payload as a Tool.
//
// Arguments are validated against the JSON schema first and decoded into T
// afterwards, so fn only ever sees well-formed payloads. Failures are
// normalized into *ToolError:
//
//	schema or decode failure         -> VALIDATION_ERROR
//	fn returned a plain error        -> EXECUTION_ERROR
//	fn returned a *ToolError         -> forwarded unchanged
//
// A TypedTool holds no mutable state and is safe for concurrent use.
type TypedTool[T any] struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(tc *Context, args T) (any, error)
}

// NewTypedTool constructs a TypedTool. A nil parameters schema is derived from
// T with util.CreateSchema.
//
// Example:
//
//	type SumArgs struct {
//	  A float64 `json:"a" description:"First addend"`
//	  B float64 `json:"b" description:"Second addend"`
//	}
//
//	sum := NewTypedTool("calculate_sum", "Calculate the sum of two numbers", nil,
//	  func(_ *Context, args SumArgs) (any, error) { return args.A + args.B, nil })
func NewTypedTool[T any](
	name, description string,
	parameters map[string]any,
	fn func(tc *Context, args T) (any, error),
) *TypedTool[T] {
	if parameters == nil {
		var zero T
		parameters = util.CreateSchema(zero)
	}
	return &TypedTool[T]{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// Name returns the catalog name.
func (t *TypedTool[T]) Name() string { return t.name }

// Description returns the description exposed to models.
func (t *TypedTool[T]) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *TypedTool[T]) Parameters() map[string]any { return t.parameters }

// Call validates and decodes args, then invokes the wrapped function.
//
// Logging Fields:
//
//	tool: tool name
//	fc_id: function call identifier
//	duration_ms: execution time in milliseconds
func (t *TypedTool[T]) Call(tc *Context, args json.RawMessage) (any, error) {
	logger := tc.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "fc_id", tc.FunctionCallID())

	if err := util.ValidateJSON(args, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	var payload T
	if len(args) > 0 {
		if err := json.Unmarshal(args, &payload); err != nil {
			logger.Warn("tool.call.decode_failed", "tool", t.name, "error", err.Error())

			return nil, &ToolError{
				Tool:    t.name,
				Message: fmt.Sprintf("decode arguments: %v", err),
				Code:    CodeValidation,
				Details: err,
			}
		}
	}

	result, err := t.fn(tc, payload)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			logger.Error("tool.call.error", "tool", t.name, "error", toolErr.Message)

			return nil, toolErr
		}

		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    CodeExecution,
			Details: err,
		}
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

var _ Tool = (*TypedTool[struct{}])(nil)

// Package tool implements the function calling layer: tools with JSON schema
// validated arguments, an ordered Registry forming the function catalog shown
// to the model, and an Executor running the calls of one model turn.
package tool

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/wrapmesh/internal/util"
)

// Error codes carried by ToolError.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeExecution       = "EXECUTION_ERROR"
	CodeUnknownFunction = "UNKNOWN_FUNCTION"
)

// Tool is a function the model may select.
//
// Implementations must be safe for concurrent use; the Executor may call the
// same tool from several goroutines within one turn.
type Tool interface {
	// Name returns the catalog name the model uses to select the tool.
	Name() string

	// Description is shown to the model to explain when to use the tool.
	Description() string

	// Parameters returns the JSON schema of the accepted arguments.
	Parameters() map[string]any

	// Call executes the tool with the serialized arguments chosen by the model.
	Call(tc *Context, args json.RawMessage) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap exposes a wrapped error stored in Details.
func (e *ToolError) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

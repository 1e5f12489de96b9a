package tool

import (
	"context"

	"github.com/hupe1980/wrapmesh/logging"
)

// Context is handed to a tool for a single call.
type Context struct {
	ctx    context.Context
	callID string
	logger logging.Logger
}

// NewContext binds ctx, the provider call id and a logger (nil means no-op).
func NewContext(ctx context.Context, callID string, logger logging.Logger) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{ctx: ctx, callID: callID, logger: logging.OrNoOp(logger)}
}

// Context returns the context of the call.
func (tc *Context) Context() context.Context { return tc.ctx }

// FunctionCallID returns the id of the function call being served.
func (tc *Context) FunctionCallID() string { return tc.callID }

// Logger returns the logger associated with the call.
func (tc *Context) Logger() logging.Logger { return tc.logger }

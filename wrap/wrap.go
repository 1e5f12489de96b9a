package wrap

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a library does not know the requested wrap.
	ErrNotFound = errors.New("wrap not found")

	// ErrInvalidURI is returned for strings that are not wrap URIs.
	ErrInvalidURI = errors.New("invalid wrap uri")
)

// Info describes a wrap known to a library.
type Info struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	URI         string `json:"uri,omitempty" yaml:"uri,omitempty"`
	ABI         string `json:"abi" yaml:"abi"` // URL of the schema document
	Repo        string `json:"repo,omitempty" yaml:"repo,omitempty"`
}

// Library resolves wrap names to descriptors.
type Library interface {
	// GetWrap returns the descriptor for name or an error wrapping ErrNotFound.
	GetWrap(ctx context.Context, name string) (*Info, error)
}

// InvokeOptions identifies a method call on a wrap.
type InvokeOptions struct {
	URI    string `json:"uri"`
	Method string `json:"method"`
	Args   any    `json:"args,omitempty"`
}

// InvokeResult is the outcome reported by the wrap itself. A returned Go
// error from Client.Invoke means the call never produced such a result.
type InvokeResult struct {
	OK    bool
	Value any
	Error error // set when OK is false; may be nil
}

// Client invokes wrap methods.
type Client interface {
	Invoke(ctx context.Context, opts InvokeOptions) (InvokeResult, error)
}

// HTTPError reports a non-successful HTTP status from a remote endpoint.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

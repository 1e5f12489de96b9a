package wrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultGatewayURL is the invocation endpoint used when none is configured.
const DefaultGatewayURL = "http://127.0.0.1:8787/invoke"

// HTTPClientOptions configures an HTTPClient.
type HTTPClientOptions struct {
	Timeout    time.Duration
	Headers    map[string]string
	HTTPClient *http.Client // overrides Timeout when set
}

// HTTPClient invokes wraps through an HTTP invocation gateway. The gateway
// accepts {"uri","method","args"} and answers {"ok","value","error"}.
type HTTPClient struct {
	endpoint   string
	headers    map[string]string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the gateway at endpoint.
func NewHTTPClient(endpoint string, optFns ...func(o *HTTPClientOptions)) *HTTPClient {
	opts := HTTPClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if endpoint == "" {
		endpoint = DefaultGatewayURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(opts.Timeout)
	}
	return &HTTPClient{endpoint: endpoint, headers: opts.Headers, httpClient: client}
}

// Endpoint returns the gateway URL.
func (c *HTTPClient) Endpoint() string { return c.endpoint }

type invokeResponse struct {
	OK    bool            `json:"ok"`
	Value json.RawMessage `json:"value"`
	Error json.RawMessage `json:"error"`
}

// Invoke sends the call to the gateway. A wrap-reported failure comes back as
// InvokeResult{OK: false}; transport failures and malformed URIs as errors.
func (c *HTTPClient) Invoke(ctx context.Context, opts InvokeOptions) (InvokeResult, error) {
	uri, err := NormalizeURI(opts.URI)
	if err != nil {
		return InvokeResult{}, err
	}
	if strings.TrimSpace(opts.Method) == "" {
		return InvokeResult{}, errors.New("method is required")
	}

	body, err := postJSON(ctx, c.httpClient, c.endpoint, c.headers, InvokeOptions{
		URI:    uri,
		Method: opts.Method,
		Args:   opts.Args,
	})
	if err != nil {
		return InvokeResult{}, fmt.Errorf("invoke %s.%s: %w", uri, opts.Method, err)
	}

	var resp invokeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return InvokeResult{}, fmt.Errorf("decode invoke response: %w", err)
	}

	if !resp.OK {
		return InvokeResult{OK: false, Error: decodeRemoteError(resp.Error)}, nil
	}

	var value any
	if len(resp.Value) > 0 {
		if err := json.Unmarshal(resp.Value, &value); err != nil {
			return InvokeResult{}, fmt.Errorf("decode invoke value: %w", err)
		}
	}
	return InvokeResult{OK: true, Value: value}, nil
}

// decodeRemoteError turns the gateway's error field into an error. Strings are
// used verbatim, objects with a message field yield that message, anything
// else its JSON text. Absent or null errors yield nil.
func decodeRemoteError(raw json.RawMessage) error {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return errors.New(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return errors.New(obj.Message)
	}
	return errors.New(text)
}

var _ Client = (*HTTPClient)(nil)

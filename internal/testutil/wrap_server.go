package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hupe1980/wrapmesh/wrap"
)

// InvokeHandler answers a gateway invocation. A non-empty errMsg reports a
// wrap-side failure ({"ok":false,"error":errMsg}).
type InvokeHandler func(req wrap.InvokeOptions) (value any, errMsg string)

// WrapServer is a fake wrap ecosystem on a single httptest server:
//
//	GET  /wraps/<name>.json     descriptor
//	GET  /schemas/<name>.graphql schema document
//	POST /invoke                invocation gateway
type WrapServer struct {
	*httptest.Server

	mu      sync.Mutex
	schemas map[string]string
	handler InvokeHandler
	calls   []wrap.InvokeOptions
}

// NewWrapServer starts a WrapServer that is closed when the test ends. The
// gateway rejects every call until OnInvoke sets a handler.
func NewWrapServer(t testing.TB) *WrapServer {
	t.Helper()
	s := &WrapServer{schemas: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/wraps/", s.serveDescriptor)
	mux.HandleFunc("/schemas/", s.serveSchema)
	mux.HandleFunc("/invoke", s.serveInvoke)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// AddWrap publishes a wrap with the given schema (chainable).
func (s *WrapServer) AddWrap(name, schema string) *WrapServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[name] = schema
	return s
}

// OnInvoke sets the gateway handler (chainable).
func (s *WrapServer) OnInvoke(h InvokeHandler) *WrapServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
	return s
}

// LibraryURL is the base URL for wrap.NewRemoteLibrary.
func (s *WrapServer) LibraryURL() string { return s.URL + "/wraps" }

// GatewayURL is the endpoint for wrap.NewHTTPClient.
func (s *WrapServer) GatewayURL() string { return s.URL + "/invoke" }

// Calls returns the invocations received so far.
func (s *WrapServer) Calls() []wrap.InvokeOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wrap.InvokeOptions, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *WrapServer) serveDescriptor(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/wraps/"), ".json")
	s.mu.Lock()
	_, ok := s.schemas[name]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, wrap.Info{
		Name: name,
		URI:  "wrap://ipfs/" + name,
		ABI:  "../schemas/" + name + ".graphql",
	})
}

func (s *WrapServer) serveSchema(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/schemas/"), ".graphql")
	s.mu.Lock()
	schema, ok := s.schemas[name]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write([]byte(schema))
}

func (s *WrapServer) serveInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req wrap.InvokeOptions
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, req)
	h := s.handler
	s.mu.Unlock()

	if h == nil {
		writeJSON(w, map[string]any{"ok": false, "error": "no handler"})
		return
	}
	value, errMsg := h(req)
	if errMsg != "" {
		writeJSON(w, map[string]any{"ok": false, "error": errMsg})
		return
	}
	writeJSON(w, map[string]any{"ok": true, "value": value})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hupe1980/wrapmesh/core"
	"github.com/hupe1980/wrapmesh/wrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct{ mock.Mock }

func (m *mockClient) Invoke(ctx context.Context, opts wrap.InvokeOptions) (wrap.InvokeResult, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(wrap.InvokeResult), args.Error(1)
}

type mockLibrary struct{ mock.Mock }

func (m *mockLibrary) GetWrap(ctx context.Context, name string) (*wrap.Info, error) {
	args := m.Called(ctx, name)
	info, _ := args.Get(0).(*wrap.Info)
	return info, args.Error(1)
}

type panicClient struct{}

func (panicClient) Invoke(context.Context, wrap.InvokeOptions) (wrap.InvokeResult, error) {
	panic("client exploded")
}

const ethereumSchema = "type Module {\n  getBalance(address: String!): BigInt!\n}\n"

func newSchemaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ethereum.graphql", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(ethereumSchema))
	})
	mux.HandleFunc("/broken.graphql", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decodeEnvelope(t *testing.T, env core.Envelope) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(env.String()), &m))
	return m
}

func TestInvokeModule_Success(t *testing.T) {
	client := new(mockClient)
	client.On("Invoke", mock.Anything, wrap.InvokeOptions{
		URI:    "wrap://ipfs/Qm123",
		Method: "getBalance",
		Args:   map[string]any{"address": "0xabc"},
	}).Return(wrap.InvokeResult{OK: true, Value: 100}, nil).Once()

	b := New(new(mockLibrary), client)
	env := b.InvokeModule(context.Background(), InvokeRequest{
		URI:    "wrap://ipfs/Qm123",
		Method: "getBalance",
		Args:   map[string]any{"address": "0xabc"},
	})

	assert.Equal(t, core.Success(100), env)
	assert.JSONEq(t, `{"ok":true,"result":100}`, env.String())
	client.AssertExpectations(t)
}

func TestInvokeModule_ResultPassedThroughUnchanged(t *testing.T) {
	value := map[string]any{"nested": []any{1.0, "two", nil}}
	client := new(mockClient)
	client.On("Invoke", mock.Anything, mock.Anything).Return(wrap.InvokeResult{OK: true, Value: value}, nil)

	env := New(new(mockLibrary), client).InvokeModule(context.Background(), InvokeRequest{URI: "ens/x.eth", Method: "m"})
	assert.True(t, env.OK)
	assert.Equal(t, value, env.Result)
}

func TestInvokeModule_Failures(t *testing.T) {
	tests := []struct {
		name    string
		result  wrap.InvokeResult
		err     error
		wantErr string
	}{
		{"wrap reported error", wrap.InvokeResult{OK: false, Error: errors.New("execution reverted")}, nil, "execution reverted"},
		{"wrap reported nothing", wrap.InvokeResult{OK: false}, nil, ""},
		{"transport error", wrap.InvokeResult{}, errors.New("dial tcp: connection refused"), "dial tcp: connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mockClient)
			client.On("Invoke", mock.Anything, mock.Anything).Return(tt.result, tt.err)

			env := New(new(mockLibrary), client).InvokeModule(context.Background(), InvokeRequest{URI: "wrap://ipfs/Qm1", Method: "m"})
			assert.False(t, env.OK)
			assert.Equal(t, tt.wantErr, env.Error)

			m := decodeEnvelope(t, env)
			assert.Equal(t, false, m["ok"])
			assert.Equal(t, tt.wantErr, m["error"], "error is always a string")
			assert.NotContains(t, m, "result")
		})
	}
}

func TestInvokeModule_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  InvokeRequest
	}{
		{"empty uri", InvokeRequest{Method: "m"}},
		{"malformed uri", InvokeRequest{URI: "https://example.com", Method: "m"}},
		{"empty method", InvokeRequest{URI: "wrap://ipfs/Qm1", Method: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mockClient)
			env := New(new(mockLibrary), client).InvokeModule(context.Background(), tt.req)
			assert.False(t, env.OK)
			assert.Contains(t, env.Error, "invalid arguments")
			client.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
		})
	}
}

func TestInvokeModule_RecoversPanic(t *testing.T) {
	env := New(new(mockLibrary), panicClient{}).InvokeModule(context.Background(), InvokeRequest{URI: "wrap://ipfs/Qm1", Method: "m"})
	assert.False(t, env.OK)
	assert.Equal(t, "panic: client exploded", env.Error)
}

func TestLoadModuleSchema(t *testing.T) {
	srv := newSchemaServer(t)
	library := new(mockLibrary)
	library.On("GetWrap", mock.Anything, "ethereum").Return(&wrap.Info{Name: "ethereum", ABI: srv.URL + "/ethereum.graphql"}, nil)
	library.On("GetWrap", mock.Anything, "broken").Return(&wrap.Info{Name: "broken", ABI: srv.URL + "/broken.graphql"}, nil)
	library.On("GetWrap", mock.Anything, "unknown-module").Return(nil, fmt.Errorf("%w: unknown-module", wrap.ErrNotFound))

	b := New(library, new(mockClient))
	ctx := context.Background()

	env := b.LoadModuleSchema(ctx, LoadRequest{Name: "ethereum"})
	assert.Equal(t, core.Success(ethereumSchema), env, "schema text is returned exactly")

	env = b.LoadModuleSchema(ctx, LoadRequest{Name: "unknown-module"})
	assert.False(t, env.OK)
	assert.NotEmpty(t, env.Error)

	env = b.LoadModuleSchema(ctx, LoadRequest{Name: "broken"})
	assert.False(t, env.OK)
	assert.Contains(t, env.Error, "unexpected status 500")

	env = b.LoadModuleSchema(ctx, LoadRequest{})
	assert.False(t, env.OK)
	assert.Contains(t, env.Error, "name is required")
}

func TestLoadModuleSchema_NoCacheByDefault(t *testing.T) {
	srv := newSchemaServer(t)
	library := new(mockLibrary)
	library.On("GetWrap", mock.Anything, "ethereum").Return(&wrap.Info{ABI: srv.URL + "/ethereum.graphql"}, nil)

	b := New(library, new(mockClient))
	for i := 0; i < 3; i++ {
		assert.True(t, b.LoadModuleSchema(context.Background(), LoadRequest{Name: "ethereum"}).OK)
	}
	library.AssertNumberOfCalls(t, "GetWrap", 3)
}

func TestLoadModuleSchema_Cache(t *testing.T) {
	srv := newSchemaServer(t)
	library := new(mockLibrary)
	library.On("GetWrap", mock.Anything, "ethereum").Return(&wrap.Info{ABI: srv.URL + "/ethereum.graphql"}, nil)

	b := New(library, new(mockClient), func(o *Options) { o.SchemaCacheTTL = time.Hour })
	for i := 0; i < 3; i++ {
		assert.True(t, b.LoadModuleSchema(context.Background(), LoadRequest{Name: "ethereum"}).OK)
	}
	library.AssertNumberOfCalls(t, "GetWrap", 1)

	b.Schemas().Invalidate("ethereum")
	assert.True(t, b.LoadModuleSchema(context.Background(), LoadRequest{Name: "ethereum"}).OK)
	library.AssertNumberOfCalls(t, "GetWrap", 2)
}

func TestCatalog(t *testing.T) {
	b := New(new(mockLibrary), new(mockClient))
	defs := b.Catalog()
	require.Len(t, defs, 2)

	assert.Equal(t, InvokeWrapName, defs[0].Name)
	assert.Equal(t, []string{"options"}, defs[0].Parameters["required"])
	assert.NotEmpty(t, defs[0].Description)

	assert.Equal(t, LoadWrapName, defs[1].Name)
	assert.Equal(t, []string{"name"}, defs[1].Parameters["required"])
	props := defs[1].Parameters["properties"].(map[string]any)
	assert.Contains(t, props, "name")
}

func TestNew_RegistersBuiltinFunctions(t *testing.T) {
	var b *Bridge
	require.NotPanics(t, func() { b = New(new(mockLibrary), new(mockClient)) })
	assert.Equal(t, []string{InvokeWrapName, LoadWrapName}, b.Registry().Names())

	assert.PanicsWithValue(t, "bridge: register functions: register tool: LoadWrap already registered", func() {
		mustRegistry(b.loadWrapTool(), b.loadWrapTool())
	})
}

func TestDispatch(t *testing.T) {
	srv := newSchemaServer(t)
	library := new(mockLibrary)
	library.On("GetWrap", mock.Anything, "ethereum").Return(&wrap.Info{ABI: srv.URL + "/ethereum.graphql"}, nil)
	client := new(mockClient)
	client.On("Invoke", mock.Anything, wrap.InvokeOptions{
		URI:    "wrap://ipfs/Qm123",
		Method: "getBalance",
		Args:   map[string]any{"address": "0xabc"},
	}).Return(wrap.InvokeResult{OK: true, Value: 100.0}, nil)

	b := New(library, client)
	ctx := context.Background()

	env := b.Dispatch(ctx, core.FunctionCall{
		ID:        "call_1",
		Name:      InvokeWrapName,
		Arguments: `{"options":{"uri":"wrap://ipfs/Qm123","method":"getBalance","args":{"address":"0xabc"}}}`,
	})
	assert.JSONEq(t, `{"ok":true,"result":100}`, env.String())

	env = b.Dispatch(ctx, core.FunctionCall{Name: LoadWrapName, Arguments: `{"name":"ethereum"}`})
	assert.Equal(t, core.Success(ethereumSchema), env)
}

func TestDispatch_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		call    core.FunctionCall
		wantErr string
	}{
		{"unknown function", core.FunctionCall{Name: "DeleteEverything", Arguments: `{}`}, "UNKNOWN_FUNCTION"},
		{"missing options", core.FunctionCall{Name: InvokeWrapName, Arguments: `{}`}, "VALIDATION_ERROR"},
		{"missing method", core.FunctionCall{Name: InvokeWrapName, Arguments: `{"options":{"uri":"wrap://ipfs/Qm1"}}`}, "VALIDATION_ERROR"},
		{"empty uri", core.FunctionCall{Name: InvokeWrapName, Arguments: `{"options":{"uri":"","method":"m"}}`}, "VALIDATION_ERROR"},
		{"wrong type", core.FunctionCall{Name: LoadWrapName, Arguments: `{"name":42}`}, "VALIDATION_ERROR"},
		{"not json", core.FunctionCall{Name: LoadWrapName, Arguments: `{"name":`}, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			library := new(mockLibrary)
			client := new(mockClient)
			env := New(library, client).Dispatch(context.Background(), tt.call)
			assert.False(t, env.OK)
			assert.Contains(t, env.Error, tt.wantErr)
			client.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
			library.AssertNotCalled(t, "GetWrap", mock.Anything, mock.Anything)
		})
	}
}

func TestDispatchAll_PreservesOrder(t *testing.T) {
	client := new(mockClient)
	client.On("Invoke", mock.Anything, mock.MatchedBy(func(o wrap.InvokeOptions) bool { return o.Method == "slow" })).
		Return(wrap.InvokeResult{OK: true, Value: "slow"}, nil).
		After(30 * time.Millisecond)
	client.On("Invoke", mock.Anything, mock.MatchedBy(func(o wrap.InvokeOptions) bool { return o.Method == "fast" })).
		Return(wrap.InvokeResult{OK: true, Value: "fast"}, nil)

	b := New(new(mockLibrary), client, func(o *Options) { o.MaxParallel = 2 })
	envs := b.DispatchAll(context.Background(), []core.FunctionCall{
		{ID: "1", Name: InvokeWrapName, Arguments: `{"options":{"uri":"wrap://ipfs/Qm1","method":"slow"}}`},
		{ID: "2", Name: InvokeWrapName, Arguments: `{"options":{"uri":"wrap://ipfs/Qm1","method":"fast"}}`},
		{ID: "3", Name: "nope"},
	})
	require.Len(t, envs, 3)
	assert.Equal(t, core.Success("slow"), envs[0])
	assert.Equal(t, core.Success("fast"), envs[1])
	assert.False(t, envs[2].OK)
}

func TestToEnvelope(t *testing.T) {
	assert.Equal(t, core.Success(1), ToEnvelope(1, nil))
	assert.Equal(t, core.Failuref("x"), ToEnvelope(nil, errors.New("x")))
	env := core.Failuref("inner")
	assert.Equal(t, env, ToEnvelope(env, nil))
	assert.Equal(t, env, ToEnvelope(&env, nil))
}

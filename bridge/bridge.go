package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/wrapmesh/core"
	"github.com/hupe1980/wrapmesh/logging"
	"github.com/hupe1980/wrapmesh/model"
	"github.com/hupe1980/wrapmesh/tool"
	"github.com/hupe1980/wrapmesh/wrap"
)

// InvokeRequest identifies a method call on a wrap.
type InvokeRequest struct {
	URI    string `json:"uri"`
	Method string `json:"method"`
	Args   any    `json:"args,omitempty"`
}

// LoadRequest names the wrap whose schema should be loaded.
type LoadRequest struct {
	Name string `json:"name"`
}

// Options configures a Bridge.
type Options struct {
	Logger logging.Logger

	// MaxParallel bounds concurrent calls in DispatchAll. 0 means unbounded.
	MaxParallel int

	// SchemaLoader overrides the loader built from SchemaCacheTTL and SchemaTimeout.
	SchemaLoader   *wrap.SchemaLoader
	SchemaCacheTTL time.Duration
	SchemaTimeout  time.Duration
}

// Bridge adapts a wrap.Library and a wrap.Client to the function calls of a
// chat model. It is stateless apart from the optional schema cache and safe
// for concurrent use.
type Bridge struct {
	library  wrap.Library
	client   wrap.Client
	schemas  *wrap.SchemaLoader
	registry *tool.Registry
	executor *tool.Executor
	logger   logging.Logger
}

// New creates a Bridge and registers the InvokeWrap and LoadWrap functions.
func New(library wrap.Library, client wrap.Client, optFns ...func(o *Options)) *Bridge {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	b := &Bridge{
		library: library,
		client:  client,
		schemas: opts.SchemaLoader,
		logger:  logging.OrNoOp(opts.Logger),
	}
	if b.schemas == nil {
		b.schemas = wrap.NewSchemaLoader(library, func(o *wrap.SchemaLoaderOptions) {
			o.CacheTTL = opts.SchemaCacheTTL
			o.Timeout = opts.SchemaTimeout
		})
	}

	b.registry = mustRegistry(b.invokeWrapTool(), b.loadWrapTool())
	b.executor = tool.NewExecutor(b.registry, func(o *tool.ExecutorOptions) {
		o.MaxParallel = opts.MaxParallel
		o.Logger = opts.Logger
	})

	return b
}

// mustRegistry panics if the built-in functions collide, which is a programming
// error rather than a runtime condition.
func mustRegistry(tools ...tool.Tool) *tool.Registry {
	registry, err := tool.NewRegistry(tools...)
	if err != nil {
		panic(fmt.Sprintf("bridge: register functions: %v", err))
	}
	return registry
}

// InvokeModule invokes req.Method on the wrap at req.URI.
//
// The wrap's own result is returned unchanged in {ok:true,result}. A failure
// reported by the wrap, a malformed request, a returned error or a panic all
// yield {ok:false,error}. InvokeModule never fails in any other way.
func (b *Bridge) InvokeModule(ctx context.Context, req InvokeRequest) (env core.Envelope) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bridge.invoke.panic", "uri", req.URI, "method", req.Method, "recover", fmt.Sprint(r))
			env = core.Failuref("panic: %v", r)
		}
	}()

	if err := req.validate(); err != nil {
		b.logger.Warn("bridge.invoke.invalid", "uri", req.URI, "method", req.Method, "error", err.Error())
		return core.Failure(err)
	}

	b.logger.Debug("bridge.invoke.start", "uri", req.URI, "method", req.Method)

	res, err := b.client.Invoke(ctx, wrap.InvokeOptions{
		URI:    req.URI,
		Method: req.Method,
		Args:   req.Args,
	})
	if err != nil {
		b.logger.Error("bridge.invoke.error", "uri", req.URI, "method", req.Method, "error", err.Error())
		return core.Failure(err)
	}
	if !res.OK {
		b.logger.Warn("bridge.invoke.failed", "uri", req.URI, "method", req.Method, "duration_ms", time.Since(start).Milliseconds())
		return core.Failure(res.Error)
	}

	b.logger.Info("bridge.invoke.success", "uri", req.URI, "method", req.Method, "duration_ms", time.Since(start).Milliseconds())
	return core.Success(res.Value)
}

// LoadModuleSchema returns the schema document of the named wrap as text.
// Unknown names, transport errors and non-200 responses yield {ok:false,error}.
func (b *Bridge) LoadModuleSchema(ctx context.Context, req LoadRequest) (env core.Envelope) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bridge.load.panic", "name", req.Name, "recover", fmt.Sprint(r))
			env = core.Failuref("panic: %v", r)
		}
	}()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return core.Failuref("invalid arguments: name is required")
	}

	schema, err := b.schemas.Load(ctx, name)
	if err != nil {
		b.logger.Warn("bridge.load.failed", "name", name, "error", err.Error())
		return core.Failure(err)
	}

	b.logger.Info("bridge.load.success", "name", name, "bytes", len(schema), "duration_ms", time.Since(start).Milliseconds())
	return core.Success(schema)
}

// Catalog returns the function descriptors submitted to the model.
func (b *Bridge) Catalog() []model.FunctionDefinition { return b.registry.Definitions() }

// Registry returns the tool registry backing the catalog.
func (b *Bridge) Registry() *tool.Registry { return b.registry }

// Schemas returns the schema loader, e.g. to invalidate cached entries.
func (b *Bridge) Schemas() *wrap.SchemaLoader { return b.schemas }

// Dispatch routes a model-selected function call by name. Arguments are
// validated against the function's schema and decoded into the typed request
// before the operation runs.
func (b *Bridge) Dispatch(ctx context.Context, fc core.FunctionCall) core.Envelope {
	res := b.executor.ExecuteOne(ctx, fc)
	return ToEnvelope(res.Output, res.Err)
}

// DispatchAll dispatches the calls of one model turn, possibly in parallel,
// and returns their envelopes in call order.
func (b *Bridge) DispatchAll(ctx context.Context, calls []core.FunctionCall) []core.Envelope {
	results := b.executor.Execute(ctx, calls)
	envs := make([]core.Envelope, len(results))
	for i, res := range results {
		envs[i] = ToEnvelope(res.Output, res.Err)
	}
	return envs
}

// ToEnvelope normalizes a tool outcome. Envelopes pass through unchanged,
// errors become failures and any other value a success.
func ToEnvelope(out any, err error) core.Envelope {
	if err != nil {
		return core.Failure(err)
	}
	switch v := out.(type) {
	case core.Envelope:
		return v
	case *core.Envelope:
		if v != nil {
			return *v
		}
	}
	return core.Success(out)
}

func (r InvokeRequest) validate() error {
	if strings.TrimSpace(r.URI) == "" {
		return fmt.Errorf("invalid arguments: uri is required")
	}
	if _, err := wrap.ParseURI(r.URI); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(r.Method) == "" {
		return fmt.Errorf("invalid arguments: method is required")
	}
	return nil
}

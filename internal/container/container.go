// Package container wires the wrapmesh services from a config.Config using
// go.uber.org/dig.
package container

import (
	"fmt"
	"io"
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/dig"

	"github.com/hupe1980/wrapmesh/agent"
	"github.com/hupe1980/wrapmesh/bridge"
	"github.com/hupe1980/wrapmesh/config"
	"github.com/hupe1980/wrapmesh/logging"
	"github.com/hupe1980/wrapmesh/model"
	"github.com/hupe1980/wrapmesh/model/anthropic"
	"github.com/hupe1980/wrapmesh/model/openai"
	"github.com/hupe1980/wrapmesh/workspace"
	"github.com/hupe1980/wrapmesh/wrap"
)

// Options overrides parts of the wiring.
type Options struct {
	// LogOutput receives diagnostic logs. Defaults to os.Stderr.
	LogOutput io.Writer
	NoColor   bool

	// Model replaces the provider selected by the config.
	Model model.Model
}

// Container holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg       *config.Config
	logger    logging.Logger
	library   wrap.Library
	file      *wrap.FileLibrary
	bridge    *bridge.Bridge
	llm       model.Model
	workspace *workspace.Workspace
}

func (c *Container) Config() *config.Config          { return c.cfg }
func (c *Container) Logger() logging.Logger          { return c.logger }
func (c *Container) Library() wrap.Library           { return c.library }
func (c *Container) Bridge() *bridge.Bridge          { return c.bridge }
func (c *Container) Model() model.Model              { return c.llm }
func (c *Container) Workspace() *workspace.Workspace { return c.workspace }

// FileLibrary returns the file-backed library, or nil when wraps come from a
// remote library.
func (c *Container) FileLibrary() *wrap.FileLibrary { return c.file }

// libraryResult provides both the Library interface and, when configured,
// the concrete FileLibrary so the CLI can watch it.
type libraryResult struct {
	dig.Out

	Library wrap.Library
	File    *wrap.FileLibrary
}

// New builds and wires all services from cfg.
func New(cfg *config.Config, optFns ...func(o *Options)) (*Container, error) {
	opts := Options{LogOutput: os.Stderr}
	for _, fn := range optFns {
		fn(&opts)
	}

	d := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		func(cfg *config.Config) logging.Logger { return newLogger(cfg, opts.LogOutput, opts.NoColor) },
		newLibrary,
		newClient,
		newBridge,
		newWorkspace,
	}
	if opts.Model != nil {
		providers = append(providers, func() model.Model { return opts.Model })
	} else {
		providers = append(providers, newModel)
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		logger logging.Logger,
		library wrap.Library,
		file *wrap.FileLibrary,
		b *bridge.Bridge,
		llm model.Model,
		ws *workspace.Workspace,
	) {
		result = &Container{
			cfg:       cfg,
			logger:    logger,
			library:   library,
			file:      file,
			bridge:    b,
			llm:       llm,
			workspace: ws,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

// NewAgent creates a conversation loop over the container's model and bridge
// with the agent settings of the config. optFns are applied last.
func (c *Container) NewAgent(optFns ...func(o *agent.Options)) *agent.Agent {
	cfg := c.cfg.Agent
	base := func(o *agent.Options) {
		if cfg.Name != "" {
			o.Name = cfg.Name
		}
		o.MaxSteps = cfg.MaxSteps
		o.Model = c.cfg.Model()
		o.Temperature = model.Float(cfg.Temperature)
		o.MaxTokens = cfg.MaxTokens
		o.Logger = c.logger
	}
	return agent.New(c.llm, c.bridge, append([]func(o *agent.Options){base}, optFns...)...)
}

func newLogger(cfg *config.Config, w io.Writer, noColor bool) logging.Logger {
	level := logging.ParseLevel(cfg.Log.Level)
	switch cfg.Log.Format {
	case "json":
		return logging.NewJSONZerolog(w, level)
	case "text":
		return logging.NewSlogLogger(level, "text", w)
	default:
		return logging.NewConsoleZerolog(w, level, noColor)
	}
}

func newLibrary(cfg *config.Config, logger logging.Logger) (libraryResult, error) {
	if cfg.Library.File != "" {
		file, err := wrap.LoadFileLibrary(cfg.Library.File, func(o *wrap.FileLibraryOptions) {
			o.Logger = logger
		})
		if err != nil {
			return libraryResult{}, err
		}
		return libraryResult{Library: file, File: file}, nil
	}

	remote := wrap.NewRemoteLibrary(func(o *wrap.RemoteLibraryOptions) {
		o.BaseURL = cfg.Library.URL
		o.Timeout = cfg.Schema.Timeout
	})
	return libraryResult{Library: remote}, nil
}

func newClient(cfg *config.Config) wrap.Client {
	return wrap.NewHTTPClient(cfg.Client.Endpoint, func(o *wrap.HTTPClientOptions) {
		o.Timeout = cfg.Client.Timeout
		o.Headers = cfg.Client.Headers
	})
}

func newBridge(cfg *config.Config, library wrap.Library, client wrap.Client, logger logging.Logger) *bridge.Bridge {
	return bridge.New(library, client, func(o *bridge.Options) {
		o.Logger = logger
		o.MaxParallel = cfg.Agent.MaxParallel
		o.SchemaCacheTTL = cfg.Schema.CacheTTL
		o.SchemaTimeout = cfg.Schema.Timeout
	})
}

func newModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = cfg.OpenAI.APIKey
			o.BaseURL = cfg.OpenAI.BaseURL
			o.Model = cfg.OpenAI.Model
			o.MaxTokens = cfg.Agent.MaxTokens
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.Anthropic.APIKey
			o.BaseURL = cfg.Anthropic.BaseURL
			o.Model = anthropicsdk.Model(cfg.Anthropic.Model)
			o.MaxTokens = cfg.Agent.MaxTokens
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func newWorkspace(cfg *config.Config) (*workspace.Workspace, error) {
	return workspace.New(cfg.Workspace.Dir)
}

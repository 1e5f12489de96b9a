// Package wrapmesh provides a high-level façade over the wrap function bridge
// and the conversation loop. Most applications interact with this package by:
//  1. Creating a Mesh via New() with a completion model and, optionally, a
//     wrap library and invocation client (defaults: the public remote
//     library and the local HTTP gateway)
//  2. Calling Chat or Run to let the model use InvokeWrap and LoadWrap, or
//     Invoke and LoadSchema to call the bridge directly
package wrapmesh

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/wrapmesh/agent"
	"github.com/hupe1980/wrapmesh/bridge"
	"github.com/hupe1980/wrapmesh/core"
	"github.com/hupe1980/wrapmesh/logging"
	"github.com/hupe1980/wrapmesh/model"
	"github.com/hupe1980/wrapmesh/wrap"
)

// ErrNoModel is returned by Run and Chat when the Mesh was built without a model.
var ErrNoModel = errors.New("wrapmesh: no completion model configured")

// Options configures the Mesh instance.
type Options struct {
	// Model drives the conversation loop. Only the bridge is usable without it.
	Model model.Model

	// Library and Client default to wrap.NewRemoteLibrary and wrap.NewHTTPClient.
	Library wrap.Library
	Client  wrap.Client

	// MaxParallel bounds concurrent function calls per turn. 0 means unbounded.
	MaxParallel int

	// SchemaCacheTTL enables the schema cache. 0 disables it.
	SchemaCacheTTL time.Duration

	// AgentOptions are applied on top of the defaults of agent.New.
	AgentOptions []func(o *agent.Options)

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Mesh is the high-level façade aggregating the bridge and the agent.
type Mesh struct {
	bridge *bridge.Bridge
	agent  *agent.Agent
}

// New creates a new Mesh. Any unset collaborator is initialized with its default.
func New(optFns ...func(o *Options)) *Mesh {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Library == nil {
		opts.Library = wrap.NewRemoteLibrary()
	}
	if opts.Client == nil {
		opts.Client = wrap.NewHTTPClient(wrap.DefaultGatewayURL)
	}

	b := bridge.New(opts.Library, opts.Client, func(o *bridge.Options) {
		o.Logger = opts.Logger
		o.MaxParallel = opts.MaxParallel
		o.SchemaCacheTTL = opts.SchemaCacheTTL
	})

	m := &Mesh{bridge: b}
	if opts.Model != nil {
		agentOpts := append([]func(o *agent.Options){
			func(o *agent.Options) { o.Logger = opts.Logger },
		}, opts.AgentOptions...)
		m.agent = agent.New(opts.Model, b, agentOpts...)
	}
	return m
}

// Bridge returns the underlying function bridge.
func (m *Mesh) Bridge() *bridge.Bridge { return m.bridge }

// Agent returns the conversation loop, or nil when no model is configured.
func (m *Mesh) Agent() *agent.Agent { return m.agent }

// Invoke calls a wrap method and returns the result envelope.
func (m *Mesh) Invoke(ctx context.Context, uri, method string, args any) core.Envelope {
	return m.bridge.InvokeModule(ctx, bridge.InvokeRequest{URI: uri, Method: method, Args: args})
}

// LoadSchema returns the envelope holding the schema document of the named wrap.
func (m *Mesh) LoadSchema(ctx context.Context, name string) core.Envelope {
	return m.bridge.LoadModuleSchema(ctx, bridge.LoadRequest{Name: name})
}

// Run continues the conversation in history until the model answers without
// selecting a function.
func (m *Mesh) Run(ctx context.Context, history []core.Message) (*agent.Transcript, error) {
	if m.agent == nil {
		return nil, ErrNoModel
	}
	return m.agent.Run(ctx, history)
}

// Chat starts a conversation with a single user message and returns the
// final assistant reply together with the transcript.
func (m *Mesh) Chat(ctx context.Context, prompt string) (string, *agent.Transcript, error) {
	tr, err := m.Run(ctx, []core.Message{core.UserMessage(prompt)})
	if err != nil {
		return "", tr, err
	}
	last, _ := tr.Last()
	return last.Content, tr, nil
}

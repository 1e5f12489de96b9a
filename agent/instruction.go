package agent

import (
	"context"

	"github.com/hupe1980/wrapmesh/internal/util"
)

// DefaultInstruction is the system prompt used when none is configured. It is
// rendered with text/template against the agent state.
const DefaultInstruction = `You are {{default "wrapmesh" .name}}, an agent that accomplishes tasks by executing wraps.
Wraps are self-describing modules addressed by URIs such as wrap://ens/wraps.eth:ethereum@2.0.0.
Before invoking a wrap, call LoadWrap with its name to read its graphql schema and learn its methods and arguments.
Then call InvokeWrap with the wrap's uri, the method name and the method's args.
{{- if .wraps}}
Wraps available in the library: {{join ", " .wraps}}.
{{- end}}
Every function returns {"ok":true,"result":...} on success or {"ok":false,"error":"..."} on failure.`

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(ctx context.Context, state map[string]any) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(ctx context.Context, state map[string]any) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(ctx context.Context, state map[string]any) (string, error) {
	return f(ctx, state)
}

// Instruction represents either a static instruction template or a dynamic provider.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a template string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(ctx context.Context, state map[string]any) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a template string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether the instruction is unset.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text. Templates are rendered against state;
// providers are called with it.
func (i Instruction) Resolve(ctx context.Context, state map[string]any) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ctx, state)
	}
	return util.RenderTemplate(i.text, state)
}

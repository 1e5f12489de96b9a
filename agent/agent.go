package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/wrapmesh/core"
	"github.com/hupe1980/wrapmesh/logging"
	"github.com/hupe1980/wrapmesh/model"
)

// ErrMaxSteps is returned when the model keeps selecting functions after
// Options.MaxSteps completions.
var ErrMaxSteps = errors.New("maximum number of steps reached")

// DefaultMaxSteps bounds the completions of a single Run.
const DefaultMaxSteps = 10

// Dispatcher executes the function calls selected by the model.
type Dispatcher interface {
	// Catalog returns the functions offered to the model.
	Catalog() []model.FunctionDefinition

	// DispatchAll returns one envelope per call, in call order.
	DispatchAll(ctx context.Context, calls []core.FunctionCall) []core.Envelope
}

// Options configures an Agent.
type Options struct {
	Name        string
	Instruction Instruction
	State       map[string]any // template data for the instruction
	MaxSteps    int

	// Completion settings forwarded with every request.
	Model       string
	Temperature *float64
	MaxTokens   int64

	Logger logging.Logger

	// OnMessage observes every message appended by Run (assistant replies and
	// function results), in order.
	OnMessage func(msg core.Message)
}

// Transcript is the conversation produced by Run.
type Transcript struct {
	ID       string           `json:"id"`
	Messages []core.Message   `json:"messages"`
	Steps    int              `json:"steps"`
	Usage    model.TokenUsage `json:"usage"`
}

// Last returns the final message of the transcript.
func (t *Transcript) Last() (core.Message, bool) {
	if t == nil || len(t.Messages) == 0 {
		return core.Message{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}

// Agent runs the conversation loop: complete, dispatch the selected
// functions, append their results and repeat until the model answers
// without selecting a function.
type Agent struct {
	llm        model.Model
	dispatcher Dispatcher
	opts       Options
	logger     logging.Logger
}

// New creates an Agent driving llm and executing calls through dispatcher.
func New(llm model.Model, dispatcher Dispatcher, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Name:        "wrapmesh",
		Instruction: NewInstructionFromText(DefaultInstruction),
		MaxSteps:    DefaultMaxSteps,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}

	return &Agent{
		llm:        llm,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logging.OrNoOp(opts.Logger),
	}
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.opts.Name }

// Run continues the conversation in history. A system prompt is prepended
// when history has none. The returned transcript holds history plus every
// appended message; it is returned together with the error when the loop
// stops early, so partial progress is never lost.
func (a *Agent) Run(ctx context.Context, history []core.Message) (*Transcript, error) {
	tr := &Transcript{
		ID:       uuid.NewString(),
		Messages: make([]core.Message, 0, len(history)+4),
	}

	if !hasSystemMessage(history) {
		prompt, err := a.instructions(ctx)
		if err != nil {
			return tr, fmt.Errorf("resolve instructions: %w", err)
		}
		if prompt != "" {
			tr.Messages = append(tr.Messages, core.SystemMessage(prompt))
		}
	}
	tr.Messages = append(tr.Messages, history...)

	a.logger.Debug("agent.run.start", "agent", a.opts.Name, "run_id", tr.ID, "messages", len(tr.Messages))
	runStart := time.Now()

	for step := 1; step <= a.opts.MaxSteps; step++ {
		tr.Steps = step

		resp, err := a.llm.Complete(ctx, model.Request{
			Messages:    tr.Messages,
			Model:       a.opts.Model,
			Functions:   a.dispatcher.Catalog(),
			Temperature: a.opts.Temperature,
			MaxTokens:   a.opts.MaxTokens,
		})
		if err != nil {
			a.logger.Error("agent.completion.error", "agent", a.opts.Name, "run_id", tr.ID, "step", step, "error", err.Error())
			return tr, err
		}
		addUsage(&tr.Usage, resp.Usage)

		reply := resp.Message
		reply.Role = core.RoleAssistant
		// The response may be shared with the model; fill IDs on a copy.
		reply.FunctionCalls = append([]core.FunctionCall(nil), reply.FunctionCalls...)
		for i := range reply.FunctionCalls {
			if reply.FunctionCalls[i].ID == "" {
				reply.FunctionCalls[i].ID = uuid.NewString()
			}
		}
		a.append(tr, reply)

		if !reply.HasFunctionCalls() {
			a.logger.Info(
				"agent.run.complete",
				"agent", a.opts.Name,
				"run_id", tr.ID,
				"steps", step,
				"total_tokens", tr.Usage.TotalTokens,
				"duration_ms", time.Since(runStart).Milliseconds(),
			)
			return tr, nil
		}

		a.logger.Debug("agent.functions.dispatch", "agent", a.opts.Name, "run_id", tr.ID, "step", step, "count", len(reply.FunctionCalls))

		envs := a.dispatcher.DispatchAll(ctx, reply.FunctionCalls)
		for i, fc := range reply.FunctionCalls {
			env := core.Failuref("no result for function call %s", fc.ID)
			if i < len(envs) {
				env = envs[i]
			}
			a.append(tr, core.FunctionMessage(fc.Name, fc.ID, env.String()))
		}
	}

	a.logger.Warn("agent.run.max_steps", "agent", a.opts.Name, "run_id", tr.ID, "max_steps", a.opts.MaxSteps)
	return tr, ErrMaxSteps
}

func (a *Agent) instructions(ctx context.Context) (string, error) {
	if a.opts.Instruction.IsZero() {
		return "", nil
	}
	state := make(map[string]any, len(a.opts.State)+1)
	for k, v := range a.opts.State {
		state[k] = v
	}
	if _, ok := state["name"]; !ok {
		state["name"] = a.opts.Name
	}
	return a.opts.Instruction.Resolve(ctx, state)
}

func (a *Agent) append(tr *Transcript, msg core.Message) {
	tr.Messages = append(tr.Messages, msg)
	if a.opts.OnMessage != nil {
		a.opts.OnMessage(msg)
	}
}

func hasSystemMessage(msgs []core.Message) bool {
	for _, m := range msgs {
		if m.Role == core.RoleSystem {
			return true
		}
	}
	return false
}

func addUsage(total *model.TokenUsage, u *model.TokenUsage) {
	if u == nil {
		return
	}
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/planner"
	"github.com/hupe1980/meshstream/tool"
)

// DefaultMaxSteps bounds the Acting transitions of a run when no explicit
// limit is configured.
const DefaultMaxSteps = 25

// Options configure a Runtime.
type Options struct {
	// Instruction is passed to the planner on every step.
	Instruction Instruction

	// MaxSteps bounds Acting transitions per run. Negative disables the bound.
	MaxSteps int

	// FanOut lets a single step run every requested call concurrently. Without
	// it only the first call of a step runs; the rest are rejected.
	FanOut bool

	// MaxParallel caps concurrent calls when fanning out (0 = no cap).
	MaxParallel int

	// Order returns the sort key used to reconcile fanned-out results before
	// they are appended. Results with equal keys keep call order. Nil keeps
	// call order.
	Order func(call core.ToolCall) int

	// LogStartEvents logs a line when each call starts.
	LogStartEvents bool

	Logger logging.Logger
}

// Result is the outcome of one Run.
type Result struct {
	State      *core.ConversationState
	Completion core.Completion
}

// Runtime drives a planner in a reasoning/acting loop over a registry of
// operations. A Runtime holds no per-run state and may serve concurrent runs.
type Runtime struct {
	name     string
	planner  planner.Planner
	registry *tool.Registry
	opts     Options
	logger   logging.Logger
}

// New creates a Runtime.
func New(name string, p planner.Planner, registry *tool.Registry, optFns ...func(o *Options)) *Runtime {
	opts := Options{
		MaxSteps: DefaultMaxSteps,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if registry == nil {
		registry = tool.MustRegistry()
	}

	return &Runtime{
		name:     name,
		planner:  p,
		registry: registry,
		opts:     opts,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// Name returns the runtime name; it is the namespace segment of every item
// the runtime emits.
func (r *Runtime) Name() string { return r.name }

// Registry returns the operations available to the planner.
func (r *Runtime) Registry() *tool.Registry { return r.registry }

// Planner returns the configured planner.
func (r *Runtime) Planner() planner.Planner { return r.planner }

// MaxSteps returns the configured step bound.
func (r *Runtime) MaxSteps() int { return r.opts.MaxSteps }

// Run executes one invocation from input to a terminal state. Items are
// published to sink (nil discards them) under this runtime's namespace.
//
// The returned error is nil on normal completion and on handoff; it is a
// *core.StepLimitExceeded when the step bound was hit (the Result is still
// populated), the planner error when planning failed, or ctx.Err() when the
// run was cancelled.
func (r *Runtime) Run(ctx context.Context, input []core.Message, sink core.Sink) (*Result, error) {
	if sink == nil {
		sink = core.DiscardSink
	}
	sink = core.PrefixSink(r.name, sink)

	run := &run{
		Runtime: r,
		state:   core.NewConversationState(),
		sink:    sink,
		limiter: core.NewStepLimiter(r.opts.MaxSteps),
		exec: &executor{
			cfg: ExecutorConfig{
				FanOut:         r.opts.FanOut,
				MaxParallel:    r.opts.MaxParallel,
				LogStartEvents: r.opts.LogStartEvents,
			},
			registry: r.registry,
			caller:   r.name,
			logger:   r.logger,
		},
	}

	start := time.Now()
	r.logger.Info("agent.run.start", "agent", r.name, "planner", r.planner.Info().Name, "max_steps", r.opts.MaxSteps)

	res, err := run.loop(ctx, input)

	r.logger.Info(
		"agent.run.complete",
		"agent", r.name,
		"steps", run.limiter.Count(),
		"messages", run.state.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	return res, err
}

// run holds the state of a single invocation.
type run struct {
	*Runtime
	state   *core.ConversationState
	sink    core.Sink
	limiter *core.StepLimiter
	exec    *executor
}

func (r *run) loop(ctx context.Context, input []core.Message) (*Result, error) {
	if len(input) > 0 {
		r.append(ctx, input...)
	}

	definitions := r.registry.Definitions()

	for {
		if err := ctx.Err(); err != nil {
			return r.result(core.Completion{}), err
		}

		history := r.state.Messages()

		instructions, err := r.opts.Instruction.Resolve(history)
		if err != nil {
			return r.fail(ctx, fmt.Errorf("resolve instruction: %w", err))
		}

		decideStart := time.Now()
		action, err := r.planner.Decide(ctx, planner.Request{
			Agent:        r.name,
			Instructions: instructions,
			Messages:     history,
			Operations:   definitions,
		})
		logging.PlannerCall(r.logger, r.planner.Info().Name, len(action.Calls), time.Since(decideStart), err, "agent", r.name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r.result(core.Completion{}), ctxErr
			}
			return r.fail(ctx, err)
		}

		// Reasoning -> Terminal
		if action.IsFinal() {
			r.append(ctx, core.NewAssistantMessage(r.name, action.Content))
			return r.result(core.Completion{Result: action.Content}), nil
		}

		// Reasoning -> Acting, subject to the step bound.
		if !r.limiter.Allow() {
			limit := &core.StepLimitExceeded{Runtime: r.name, Limit: r.limiter.Max()}
			r.logger.Warn("agent.step_limit.exceeded", "agent", r.name, "limit", limit.Limit)
			r.append(ctx, core.NewMarkerMessage(core.MarkerTruncation, r.name, limit.Error()))
			return r.result(core.Completion{Truncated: true}), limit
		}

		calls, rejected := r.exec.admit(action.Calls)
		r.append(ctx, core.NewAssistantMessage(r.name, action.Content, calls...))

		results := r.exec.execute(ctx, r.state.Messages(), r.sink, calls)

		// Late results of a cancelled step are never folded into the state.
		if err := ctx.Err(); err != nil {
			r.logger.Debug("agent.step.discarded", "agent", r.name, "calls", len(results))
			return r.result(core.Completion{}), err
		}

		handoff := r.reconcile(ctx, results, rejected)
		if handoff != nil {
			if handoff.Result == "" {
				handoff.Result = action.Content
			}
			r.logger.Info("agent.handoff", "agent", r.name, "from", handoff.From, "to", handoff.To)
			return r.result(core.Completion{Result: handoff.Result, Handoff: handoff}), nil
		}
	}
}

// reconcile appends the results of one Acting step as a single delta, ordered
// by Options.Order, and returns the first handoff addressed to another
// runtime, if any. Calls rejected by the step are noted in one marker so the
// step still contributes one tool result per executed call.
func (r *run) reconcile(ctx context.Context, results []callResult, rejected []core.ToolCall) *core.Handoff {
	if r.opts.Order != nil && len(results) > 1 {
		sort.SliceStable(results, func(i, j int) bool {
			return r.opts.Order(results[i].call) < r.opts.Order(results[j].call)
		})
	}

	var (
		msgs     = make([]core.Message, 0, len(results))
		outbound *core.Handoff
	)

	for _, res := range results {
		msgs = append(msgs, core.NewToolResultMessage(res.call.ID, res.call.Name, res.result, res.err))

		h, ok := asHandoff(res.result)
		if !ok || res.err != nil {
			continue
		}

		if h.To == r.name {
			msgs = append(msgs, core.NewMarkerMessage(core.MarkerHandoff, h.From, h.String()))
			continue
		}

		if outbound == nil {
			outbound = h
		}
	}

	if len(rejected) > 0 {
		names := make([]string, len(rejected))
		for i, c := range rejected {
			names[i] = c.Name
		}
		r.logger.Debug("agent.calls.rejected", "agent", r.name, "operations", names)
		msgs = append(msgs, core.NewMarkerMessage(core.MarkerRejected, r.name,
			fmt.Sprintf("%s: only one operation may run per step; not run: %s", core.CodeRejected, strings.Join(names, ", "))))
	}

	if outbound != nil {
		msgs = append(msgs, core.NewMarkerMessage(core.MarkerHandoff, r.name, outbound.String()))
	}

	r.append(ctx, msgs...)

	return outbound
}

func (r *run) fail(ctx context.Context, err error) (*Result, error) {
	r.logger.Error("agent.planner.failed", "agent", r.name, "error", err)
	r.append(ctx, core.NewMarkerMessage(core.MarkerFailure, r.name, err.Error()))
	return r.result(core.Completion{Failed: true, Result: err.Error()}), err
}

// append grows the state and publishes the resulting delta. Publishing only
// fails when the consumer is gone, which the loop notices through ctx.
func (r *run) append(ctx context.Context, msgs ...core.Message) {
	d := r.state.Append(msgs...)
	if err := r.sink.Send(ctx, core.DeltaItem(nil, d)); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Debug("agent.delta.dropped", "agent", r.name, "error", err)
	}
}

func (r *run) result(c core.Completion) *Result {
	return &Result{State: r.state, Completion: c}
}

func asHandoff(v any) (*core.Handoff, bool) {
	switch h := v.(type) {
	case *core.Handoff:
		return h, h != nil
	case core.Handoff:
		return &h, true
	default:
		return nil, false
	}
}

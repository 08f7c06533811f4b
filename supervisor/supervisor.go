package supervisor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/meshstream/agent"
	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/planner"
	"github.com/hupe1980/meshstream/tool"
	"github.com/hupe1980/meshstream/worker"
)

// DelegatePrefix prefixes the synthetic operation created for each worker.
const DelegatePrefix = "delegate_to_"

// DelegateName returns the synthetic operation name for a worker.
func DelegateName(workerName string) string { return DelegatePrefix + workerName }

// Options configure a Supervisor.
type Options struct {
	Instruction agent.Instruction

	// MaxSteps bounds the supervisor's own Acting transitions.
	MaxSteps int

	// FanOut lets one step delegate to several workers concurrently. Results
	// are reconciled in worker registration order.
	FanOut bool

	// MaxParallel caps concurrent delegations (0 = no cap).
	MaxParallel int

	// HandoffBackMessages makes every completed delegation come back as an
	// explicit handoff, leaving a handoff marker in the supervisor's
	// conversation even when the worker simply answered.
	HandoffBackMessages bool

	// ForwardHistory sends the supervisor's conversation along with the task.
	// Without it a worker only sees the task text.
	ForwardHistory bool

	// Operations are additional supervisor-level operations.
	Operations []tool.Operation

	Logger logging.Logger
}

// Supervisor delegates to registered workers through a planner.
type Supervisor struct {
	name    string
	planner planner.Planner
	opts    Options
	logger  logging.Logger

	mu       sync.RWMutex
	workers  []worker.Handle
	index    map[string]int
	registry *tool.Registry
	runtime  *agent.Runtime
}

// New creates a Supervisor without workers.
func New(name string, p planner.Planner, optFns ...func(o *Options)) (*Supervisor, error) {
	opts := Options{
		MaxSteps: agent.DefaultMaxSteps,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry, err := tool.NewRegistry(opts.Operations...)
	if err != nil {
		return nil, err
	}

	s := &Supervisor{
		name:     name,
		planner:  p,
		opts:     opts,
		logger:   logging.OrNoOp(opts.Logger),
		index:    map[string]int{},
		registry: registry,
	}

	s.runtime = agent.New(name, p, registry, func(o *agent.Options) {
		o.Instruction = opts.Instruction
		o.MaxSteps = opts.MaxSteps
		o.FanOut = opts.FanOut
		o.MaxParallel = opts.MaxParallel
		o.Order = s.rank
		o.Logger = opts.Logger
	})

	return s, nil
}

// Name returns the supervisor's name, the root segment of its stream.
func (s *Supervisor) Name() string { return s.name }

// Runtime returns the supervisor's underlying runtime.
func (s *Supervisor) Runtime() *agent.Runtime { return s.runtime }

// Register adds a worker and its synthetic delegation operation. A name that
// is already registered, or that equals the supervisor's own name, is a
// ConfigurationError and leaves the supervisor unchanged.
func (s *Supervisor) Register(adapters ...worker.Adapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]bool{}
	for _, a := range adapters {
		name := a.Name()
		if name == "" || strings.ContainsRune(name, '/') {
			return &core.ConfigurationError{Component: "supervisor", Name: name, Reason: "invalid worker name"}
		}
		if _, dup := s.index[name]; dup || seen[name] || name == s.name {
			return &core.ConfigurationError{
				Component: "supervisor",
				Name:      name,
				Reason:    "worker already registered",
				Err:       core.ErrDuplicateName,
			}
		}
		seen[name] = true
	}

	ops := make([]tool.Operation, len(adapters))
	for i, a := range adapters {
		ops[i] = s.delegation(a)
	}
	if err := s.registry.Register(ops...); err != nil {
		return err
	}

	for _, a := range adapters {
		s.index[a.Name()] = len(s.workers)
		s.workers = append(s.workers, worker.HandleOf(a))
		s.logger.Info("supervisor.worker.registered", "supervisor", s.name, "worker", a.Name(), "kind", a.Kind())
	}

	return nil
}

// MustRegister is like Register but panics on error.
func (s *Supervisor) MustRegister(adapters ...worker.Adapter) *Supervisor {
	if err := s.Register(adapters...); err != nil {
		panic(err)
	}
	return s
}

// Workers returns the registered workers in registration order.
func (s *Supervisor) Workers() []worker.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]worker.Handle(nil), s.workers...)
}

// Worker looks up a registered worker by name.
func (s *Supervisor) Worker(name string) (worker.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[name]
	if !ok {
		return worker.Handle{}, false
	}
	return s.workers[i], true
}

// Run executes one supervisor invocation. See agent.Runtime.Run.
func (s *Supervisor) Run(ctx context.Context, input []core.Message, sink core.Sink) (*agent.Result, error) {
	if len(s.Workers()) == 0 {
		return nil, &core.ConfigurationError{Component: "supervisor", Name: s.name, Reason: "no workers registered"}
	}
	return s.runtime.Run(ctx, input, sink)
}

// AsWorker exposes the supervisor as a local worker so it can be nested
// under another supervisor or served remotely.
func (s *Supervisor) AsWorker(optFns ...func(o *worker.LocalOptions)) worker.Adapter {
	return worker.NewLocal(s.runtime, optFns...)
}

// rank orders fanned-out results: delegations by worker registration order,
// other operations after all delegations.
func (s *Supervisor) rank(call core.ToolCall) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if name, ok := strings.CutPrefix(call.Name, DelegatePrefix); ok {
		if i, ok := s.index[name]; ok {
			return i
		}
	}
	return len(s.workers)
}

func (s *Supervisor) String() string {
	names := make([]string, 0, len(s.workers))
	for _, w := range s.Workers() {
		names = append(names, w.Name)
	}
	return fmt.Sprintf("supervisor %s [%s]", s.name, strings.Join(names, ", "))
}

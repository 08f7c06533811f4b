package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/meshstream/agent"
	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/stream"
)

// ErrTooManyRuns is returned when MaxConcurrentRuns runs are active.
var ErrTooManyRuns = errors.New("too many concurrent runs")

// Root is the top of a worker hierarchy. *agent.Runtime and
// *supervisor.Supervisor satisfy it.
type Root interface {
	Name() string
	Run(ctx context.Context, input []core.Message, sink core.Sink) (*agent.Result, error)
}

// Options holds configuration overrides passed to New().
type Options struct {
	// MaxConcurrentRuns limits concurrently active runs (0 = unlimited).
	MaxConcurrentRuns int
	// BufferSize sets the multiplexer's output buffer.
	BufferSize int
	// Logging services.
	Logger logging.Logger
}

// Outcome is a completed run folded into its final state.
type Outcome struct {
	RunID      string
	State      *core.ConversationState
	Events     []core.StreamItem
	Errors     []core.StreamItem
	Completion core.Completion
}

// Runner coordinates runs of a root runtime. Public methods are safe for
// concurrent use.
type Runner struct {
	root   Root
	opts   Options
	logger logging.Logger

	slots chan struct{}

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides.
func New(root Root, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentRuns: 10,
		BufferSize:        100,
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Runner{
		root:       root,
		opts:       opts,
		logger:     logging.OrNoOp(opts.Logger),
		activeRuns: make(map[string]context.CancelFunc),
	}
	if opts.MaxConcurrentRuns > 0 {
		r.slots = make(chan struct{}, opts.MaxConcurrentRuns)
	}
	return r
}

// Root returns the root runtime.
func (r *Runner) Root() Root { return r.root }

// Run starts an asynchronous run. Items are delivered on the first channel
// according to mode; it closes once every item of the run has been read, or
// early when ctx is done or the run is cancelled. The consumer must keep
// reading until then. A run failure (planner error, step limit) is delivered
// on the error channel, which closes after the item channel.
func (r *Runner) Run(ctx context.Context, input []core.Message, mode stream.Mode) (string, <-chan core.StreamItem, <-chan error, error) {
	release, err := r.acquire()
	if err != nil {
		return "", nil, nil, err
	}

	runID := core.NewID()

	// ctx is cancelled by the caller or by Cancel(runID). Finishing normally
	// does not cancel it until every buffered item has been delivered.
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	mux := stream.NewMultiplexer(r.opts.BufferSize)
	items := stream.Filter(ctx, mux.Items(), mode)
	errorsCh := make(chan error, 1)
	logger := logging.With(r.logger, "run_id", runID, "root", r.root.Name())

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer mux.Close()

		start := time.Now()
		logger.Info("runner.run.start", "mode", mode.String(), "messages", len(input))

		_, err := r.root.Run(ctx, input, mux.Sink())

		logger.Info("runner.run.complete", "duration_ms", time.Since(start).Milliseconds(), "error", err != nil)

		if err != nil && ctx.Err() == nil {
			errorsCh <- fmt.Errorf("run %s: %w", runID, err)
		}
	}()

	out := make(chan core.StreamItem)
	go func() {
		defer func() {
			<-done
			cancel()
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
			release()
			close(out)
			close(errorsCh)
		}()
		for it := range items {
			select {
			case out <- it:
			case <-ctx.Done():
			}
		}
	}()

	return runID, out, errorsCh, nil
}

// RunSync runs to completion and returns the outcome. Errors from the root
// are returned alongside a populated Outcome where one exists (for example
// a *core.StepLimitExceeded with the truncated state).
func (r *Runner) RunSync(ctx context.Context, input []core.Message) (*Outcome, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	runID := core.NewID()
	collector := &collector{}

	res, err := r.root.Run(ctx, input, collector)
	if res == nil {
		return nil, err
	}

	return &Outcome{
		RunID:      runID,
		State:      res.State,
		Events:     collector.events,
		Errors:     collector.errors,
		Completion: res.Completion,
	}, err
}

// Cancel cancels a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()
	r.logger.Info("runner.run.cancelled", "run_id", runID)

	return nil
}

// Active returns the number of running runs.
func (r *Runner) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activeRuns)
}

func (r *Runner) acquire() (func(), error) {
	if r.slots == nil {
		return func() {}, nil
	}
	select {
	case r.slots <- struct{}{}:
		return func() { <-r.slots }, nil
	default:
		return nil, ErrTooManyRuns
	}
}

type collector struct {
	mu     sync.Mutex
	events []core.StreamItem
	errors []core.StreamItem
}

func (c *collector) Send(_ context.Context, it core.StreamItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch it.Kind {
	case core.KindEvent:
		c.events = append(c.events, it)
	case core.KindError:
		c.errors = append(c.errors, it)
	}
	return nil
}

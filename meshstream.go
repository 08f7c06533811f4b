// Package meshstream provides a high-level façade over a supervisor, its
// workers and the runner. Most applications interact with this package by:
//  1. Creating a Mesh via New() with the supervisor's planner
//  2. Registering local runtimes and remote endpoints as workers
//  3. Invoking asynchronously (Invoke) with a stream mode, or synchronously
//     (InvokeSync)
//
// Every item of a run carries the namespace path of its producer, starting
// with the supervisor name, whether the producing worker ran in process or
// behind a websocket or gRPC endpoint.
package meshstream

import (
	"context"

	"github.com/hupe1980/meshstream/agent"
	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/planner"
	"github.com/hupe1980/meshstream/runner"
	"github.com/hupe1980/meshstream/stream"
	"github.com/hupe1980/meshstream/supervisor"
	"github.com/hupe1980/meshstream/worker"
)

// Options configures the Mesh instance.
type Options struct {
	// Supervisor configures the supervisor's loop (fan-out, step bound,
	// handoff-back messages).
	Supervisor func(o *supervisor.Options)

	// MaxConcurrentRuns limits runs executing simultaneously (0 = unlimited).
	MaxConcurrentRuns int

	// BufferSize sets the multiplexer buffer of each run.
	BufferSize int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Mesh is the high-level façade aggregating a supervisor and its runner.
type Mesh struct {
	supervisor *supervisor.Supervisor
	runner     *runner.Runner
	logger     logging.Logger
}

// New creates a Mesh whose supervisor is named name and driven by p.
func New(name string, p planner.Planner, optFns ...func(o *Options)) (*Mesh, error) {
	opts := Options{
		MaxConcurrentRuns: 10,
		BufferSize:        100,
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	s, err := supervisor.New(name, p, func(o *supervisor.Options) {
		o.Logger = opts.Logger
		if opts.Supervisor != nil {
			opts.Supervisor(o)
		}
	})
	if err != nil {
		return nil, err
	}

	r := runner.New(s, func(o *runner.Options) {
		o.MaxConcurrentRuns = opts.MaxConcurrentRuns
		o.BufferSize = opts.BufferSize
		o.Logger = opts.Logger
	})

	return &Mesh{supervisor: s, runner: r, logger: logging.OrNoOp(opts.Logger)}, nil
}

// Supervisor returns the underlying supervisor.
func (m *Mesh) Supervisor() *supervisor.Supervisor { return m.supervisor }

// RegisterWorker adds workers. A duplicate name is a *core.ConfigurationError.
func (m *Mesh) RegisterWorker(adapters ...worker.Adapter) error {
	return m.supervisor.Register(adapters...)
}

// RegisterRuntime adds an in-process runtime as a worker.
func (m *Mesh) RegisterRuntime(rt *agent.Runtime) error {
	return m.supervisor.Register(worker.NewLocal(rt, func(o *worker.LocalOptions) { o.Logger = m.logger }))
}

// RegisterRemote adds the worker served at address (ws://, http:// or grpc://).
func (m *Mesh) RegisterRemote(name, address string, optFns ...func(o *worker.RemoteOptions)) error {
	r, err := worker.NewRemote(name, address, append([]func(o *worker.RemoteOptions){
		func(o *worker.RemoteOptions) { o.Logger = m.logger },
	}, optFns...)...)
	if err != nil {
		return err
	}
	return m.supervisor.Register(r)
}

// Invoke starts an asynchronous run on one user message. Items matching mode
// arrive on the item channel; a run failure arrives on the error channel.
func (m *Mesh) Invoke(ctx context.Context, message string, mode stream.Mode) (string, <-chan core.StreamItem, <-chan error, error) {
	return m.runner.Run(ctx, []core.Message{core.NewUserMessage(message)}, mode)
}

// InvokeSync runs to completion and returns the collected outcome.
func (m *Mesh) InvokeSync(ctx context.Context, message string) (*runner.Outcome, error) {
	return m.runner.RunSync(ctx, []core.Message{core.NewUserMessage(message)})
}

// Cancel cancels a run started with Invoke.
func (m *Mesh) Cancel(runID string) error { return m.runner.Cancel(runID) }

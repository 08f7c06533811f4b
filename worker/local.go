package worker

import (
	"context"
	"errors"

	"github.com/hupe1980/meshstream/agent"
	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/logging"
)

// LocalOptions configure a Local adapter.
type LocalOptions struct {
	// Buffer is the capacity of the returned item channel.
	Buffer int
	Logger logging.Logger
}

// Local runs an agent.Runtime in-process.
type Local struct {
	runtime *agent.Runtime
	opts    LocalOptions
	logger  logging.Logger
}

// NewLocal wraps rt.
func NewLocal(rt *agent.Runtime, optFns ...func(o *LocalOptions)) *Local {
	opts := LocalOptions{Buffer: 16}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Local{runtime: rt, opts: opts, logger: logging.OrNoOp(opts.Logger)}
}

// Name implements Adapter.
func (l *Local) Name() string { return l.runtime.Name() }

// Kind implements Adapter.
func (l *Local) Kind() Kind { return KindLocal }

// Runtime returns the wrapped runtime.
func (l *Local) Runtime() *agent.Runtime { return l.runtime }

// Invoke implements Adapter. Hitting the step limit is a normal, truncated
// completion; planner failures complete with Failed set.
func (l *Local) Invoke(ctx context.Context, req core.Request) <-chan core.StreamItem {
	out := make(chan core.StreamItem, l.opts.Buffer)

	go func() {
		defer close(out)

		res, err := l.runtime.Run(ctx, req.Messages, core.ChanSink(out))
		if ctx.Err() != nil {
			return
		}

		completion := res.Completion
		var limit *core.StepLimitExceeded
		if err != nil && !errors.As(err, &limit) {
			l.logger.Warn("worker.local.failed", "worker", l.Name(), "error", err)
			completion.Failed = true
		}

		send(ctx, out, core.CompletionItem(core.NamespacePath{l.Name()}, completion))
	}()

	return out
}

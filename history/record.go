package history

import (
	"context"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/logging"
	"github.com/hupe1980/meshstream/worker"
)

type recorded struct {
	worker.Adapter
	store  Store
	logger logging.Logger
}

// Record wraps a so that the messages of every invocation are appended to
// store under the request's thread ID. Only the worker's own deltas (path of
// length one) are recorded; nested workers keep their own transcripts.
// Recording failures are logged and never interrupt the stream.
func Record(a worker.Adapter, store Store, logger logging.Logger) worker.Adapter {
	return &recorded{Adapter: a, store: store, logger: logging.OrNoOp(logger)}
}

func (r *recorded) Invoke(ctx context.Context, req core.Request) <-chan core.StreamItem {
	if req.ThreadID == "" {
		req.ThreadID = core.NewID()
	}

	in := r.Adapter.Invoke(ctx, req)
	out := make(chan core.StreamItem)

	go func() {
		defer close(out)
		for it := range in {
			if it.Kind == core.KindDelta && len(it.Path) == 1 && len(it.Delta.Messages) > 0 {
				if err := r.store.Append(context.WithoutCancel(ctx), req.ThreadID, r.Name(), it.Delta.Messages...); err != nil {
					r.logger.Warn("history.append.failed", "worker", r.Name(), "thread_id", req.ThreadID, "error", err)
				}
			}
			select {
			case out <- it:
			case <-ctx.Done():
				for range in {
				}
				return
			}
		}
	}()

	return out
}

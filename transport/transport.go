package transport

import (
	"context"
	"errors"

	"github.com/hupe1980/meshstream/core"
)

// ErrIncompleteStream is reported when an invocation stream ends without a
// completion.
var ErrIncompleteStream = errors.New("stream ended without completion")

// Invoker is the server-side target of a remote invocation. worker.Adapter
// implementations satisfy it.
type Invoker interface {
	Name() string
	Invoke(ctx context.Context, req core.Request) <-chan core.StreamItem
}

// Stream is the client side of one invocation.
type Stream interface {
	// Recv returns the next frame. It returns io.EOF after the server closed
	// the stream cleanly.
	Recv() (Frame, error)
	Close() error
}

// Client opens invocation streams against a remote endpoint.
type Client interface {
	Open(ctx context.Context, req core.Request) (Stream, error)
	Address() string
}

// Pump runs req on inv and writes every resulting item as a frame through
// send. It guarantees exactly one terminal frame unless ctx is done first.
func Pump(ctx context.Context, inv Invoker, req core.Request, send func(Frame) error) error {
	items := inv.Invoke(ctx, req)

	terminal := false
	for it := range items {
		if terminal {
			continue
		}
		if err := send(FrameFromItem(it)); err != nil {
			go func() {
				for range items {
				}
			}()
			return err
		}
		terminal = it.EndsStream()
	}

	if terminal {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	te := core.NewTransportError(inv.Name(), "", "invoke", ErrIncompleteStream)
	return send(FrameFromItem(core.ErrorItem(core.NamespacePath{inv.Name()}, te)))
}

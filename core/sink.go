package core

import (
	"context"
	"errors"
)

// ErrSinkClosed is returned by sinks that no longer accept items.
var ErrSinkClosed = errors.New("sink closed")

// Sink receives stream items. Send may block to apply backpressure and must
// return when ctx is done.
type Sink interface {
	Send(ctx context.Context, item StreamItem) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, item StreamItem) error

// Send implements Sink.
func (f SinkFunc) Send(ctx context.Context, item StreamItem) error { return f(ctx, item) }

// DiscardSink drops every item.
var DiscardSink Sink = SinkFunc(func(context.Context, StreamItem) error { return nil })

type sinkKey struct{}

// ContextWithSink returns a child context carrying sink. Each concurrent
// operation call receives its own derived context, so sinks never leak
// between siblings; the parent binding is untouched when the child goes out
// of scope.
func ContextWithSink(ctx context.Context, sink Sink) context.Context {
	return context.WithValue(ctx, sinkKey{}, sink)
}

// SinkFromContext returns the sink bound to ctx, or nil when none is bound.
func SinkFromContext(ctx context.Context) Sink {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sinkKey{}).(Sink)
	return s
}

// Emit sends a custom event through the sink bound to ctx. It is a no-op
// without a sink and never fails an operation: send errors are dropped.
func Emit(ctx context.Context, e Event) {
	s := SinkFromContext(ctx)
	if s == nil {
		return
	}
	_ = s.Send(ctx, EventItem(nil, e))
}

// EmitEvent is shorthand for Emit(ctx, NewEvent(kind, data)).
func EmitEvent(ctx context.Context, kind string, data map[string]any) {
	Emit(ctx, NewEvent(kind, data))
}

// PrefixSink returns a sink that prefixes every item's path with segment
// before forwarding it to next.
func PrefixSink(segment string, next Sink) Sink {
	return SinkFunc(func(ctx context.Context, item StreamItem) error {
		item.Path = item.Path.Prepend(segment)
		return next.Send(ctx, item)
	})
}

// ChanSink returns a sink writing into ch. It honours ctx cancellation while
// blocked on a full channel.
func ChanSink(ch chan<- StreamItem) Sink {
	return SinkFunc(func(ctx context.Context, item StreamItem) error {
		select {
		case ch <- item:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

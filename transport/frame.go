package transport

import (
	"fmt"

	"github.com/hupe1980/meshstream/core"
)

// Channel names the payload carried by a Frame.
type Channel string

const (
	ChannelRequest        Channel = "request"
	ChannelDelta          Channel = "delta"
	ChannelEvent          Channel = "event"
	ChannelCompletion     Channel = "completion"
	ChannelTransportError Channel = "transport_error"
)

// Frame is one message on the wire. Exactly one payload field matches Channel.
type Frame struct {
	Channel    Channel              `json:"channel" msgpack:"channel"`
	Path       core.NamespacePath   `json:"path,omitempty" msgpack:"path,omitempty"`
	Request    *core.Request        `json:"request,omitempty" msgpack:"request,omitempty"`
	Delta      *core.Delta          `json:"delta,omitempty" msgpack:"delta,omitempty"`
	Event      *core.Event          `json:"event,omitempty" msgpack:"event,omitempty"`
	Completion *core.Completion     `json:"completion,omitempty" msgpack:"completion,omitempty"`
	Error      *core.TransportError `json:"error,omitempty" msgpack:"error,omitempty"`
}

// RequestFrame wraps an invocation request.
func RequestFrame(req core.Request) Frame {
	return Frame{Channel: ChannelRequest, Request: &req}
}

// FrameFromItem converts a stream item into its wire frame.
func FrameFromItem(it core.StreamItem) Frame {
	f := Frame{Path: it.Path}
	switch it.Kind {
	case core.KindDelta:
		f.Channel, f.Delta = ChannelDelta, it.Delta
	case core.KindEvent:
		f.Channel, f.Event = ChannelEvent, it.Event
	case core.KindCompletion:
		f.Channel, f.Completion = ChannelCompletion, it.Completion
	case core.KindError:
		f.Channel, f.Error = ChannelTransportError, it.Error
	}
	return f
}

// Item converts a received frame back into a stream item.
func (f Frame) Item() (core.StreamItem, error) {
	switch f.Channel {
	case ChannelDelta:
		if f.Delta == nil {
			return core.StreamItem{}, fmt.Errorf("delta frame without payload")
		}
		return core.DeltaItem(f.Path, *f.Delta), nil
	case ChannelEvent:
		if f.Event == nil {
			return core.StreamItem{}, fmt.Errorf("event frame without payload")
		}
		return core.EventItem(f.Path, *f.Event), nil
	case ChannelCompletion:
		c := core.Completion{}
		if f.Completion != nil {
			c = *f.Completion
		}
		return core.CompletionItem(f.Path, c), nil
	case ChannelTransportError:
		te := f.Error
		if te == nil {
			te = &core.TransportError{Message: "remote reported an unspecified transport error"}
		}
		return core.ErrorItem(f.Path, te), nil
	default:
		return core.StreamItem{}, fmt.Errorf("unexpected frame channel %q", f.Channel)
	}
}

// IsTerminal reports whether the frame ends a stream. Completions and errors
// of nested runtimes are relayed and do not.
func (f Frame) IsTerminal() bool {
	return (f.Channel == ChannelCompletion || f.Channel == ChannelTransportError) && len(f.Path) <= 1
}

package core

import "fmt"

// ItemKind discriminates the StreamItem union.
type ItemKind string

const (
	// KindDelta carries a ConversationState patch.
	KindDelta ItemKind = "delta"
	// KindEvent carries a custom Event.
	KindEvent ItemKind = "event"
	// KindError carries a terminal TransportError for its source.
	KindError ItemKind = "error"
	// KindCompletion signals that a worker finished and carries its outcome.
	KindCompletion ItemKind = "completion"
)

// Handoff is an explicit transfer of control from one runtime to another.
// Result optionally carries the text the handing-off worker produced.
type Handoff struct {
	From   string `json:"from" msgpack:"from"`
	To     string `json:"to" msgpack:"to"`
	Reason string `json:"reason,omitempty" msgpack:"reason,omitempty"`
	Result string `json:"result,omitempty" msgpack:"result,omitempty"`
}

// String renders the handoff for tool-result and marker content.
func (h *Handoff) String() string {
	s := fmt.Sprintf("handoff %s -> %s", h.From, h.To)
	if h.Reason != "" {
		s += ": " + h.Reason
	}
	return s
}

// Render is the tool-result content of a handoff: the transfer line followed
// by the handed-over result, if any.
func (h *Handoff) Render() string {
	if h.Result == "" {
		return h.String()
	}
	return h.String() + "\n\n" + h.Result
}

// Completion is the outcome of one runtime invocation.
type Completion struct {
	Result    string   `json:"result,omitempty" msgpack:"result,omitempty"`
	Truncated bool     `json:"truncated,omitempty" msgpack:"truncated,omitempty"`
	Failed    bool     `json:"failed,omitempty" msgpack:"failed,omitempty"`
	Handoff   *Handoff `json:"handoff,omitempty" msgpack:"handoff,omitempty"`
}

// StreamItem is the sole unit flowing through the multiplexer: a tagged union
// over Delta, Event, TransportError and Completion, paired with the namespace
// path of its producer. Exactly one payload field matches Kind.
type StreamItem struct {
	Kind       ItemKind        `json:"kind"`
	Path       NamespacePath   `json:"path"`
	Delta      *Delta          `json:"delta,omitempty"`
	Event      *Event          `json:"event,omitempty"`
	Error      *TransportError `json:"error,omitempty"`
	Completion *Completion     `json:"completion,omitempty"`
}

// DeltaItem wraps a delta.
func DeltaItem(path NamespacePath, d Delta) StreamItem {
	return StreamItem{Kind: KindDelta, Path: path, Delta: &d}
}

// EventItem wraps an event.
func EventItem(path NamespacePath, e Event) StreamItem {
	return StreamItem{Kind: KindEvent, Path: path, Event: &e}
}

// ErrorItem wraps a transport failure.
func ErrorItem(path NamespacePath, err *TransportError) StreamItem {
	return StreamItem{Kind: KindError, Path: path, Error: err}
}

// CompletionItem wraps a completion.
func CompletionItem(path NamespacePath, c Completion) StreamItem {
	return StreamItem{Kind: KindCompletion, Path: path, Completion: &c}
}

// WithPrefix returns a copy of the item whose path is prefixed by prefix.
func (it StreamItem) WithPrefix(prefix NamespacePath) StreamItem {
	if len(prefix) == 0 {
		return it
	}
	it.Path = it.Path.Join(prefix)
	return it
}

// IsTerminal reports whether the item ends its source stream.
func (it StreamItem) IsTerminal() bool {
	return it.Kind == KindError || it.Kind == KindCompletion
}

// EndsStream reports whether the item terminates the stream of the runtime it
// is rooted at. Terminal items of nested runtimes (path longer than one
// segment) are relayed output and leave the outer stream open.
func (it StreamItem) EndsStream() bool {
	return it.IsTerminal() && len(it.Path) <= 1
}

// String is a short human readable rendering used in logs and the CLI.
func (it StreamItem) String() string {
	switch it.Kind {
	case KindDelta:
		return fmt.Sprintf("[%s] delta +%d@%d", it.Path, len(it.Delta.Messages), it.Delta.Offset)
	case KindEvent:
		return fmt.Sprintf("[%s] event %s", it.Path, it.Event)
	case KindError:
		return fmt.Sprintf("[%s] error %v", it.Path, it.Error)
	case KindCompletion:
		return fmt.Sprintf("[%s] completion %q", it.Path, it.Completion.Result)
	default:
		return fmt.Sprintf("[%s] %s", it.Path, it.Kind)
	}
}

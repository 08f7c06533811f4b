package worker

import (
	"context"

	"github.com/hupe1980/meshstream/core"
)

// Kind tells local and remote adapters apart.
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// Adapter is the uniform invocation surface of a worker.
type Adapter interface {
	Name() string
	Kind() Kind
	// Invoke starts the worker and returns its item stream. Item paths are
	// rooted at the adapter's name.
	Invoke(ctx context.Context, req core.Request) <-chan core.StreamItem
}

// Handle describes a registered worker.
type Handle struct {
	Name    string  `json:"name"`
	Kind    Kind    `json:"kind"`
	Address string  `json:"address,omitempty"`
	Adapter Adapter `json:"-"`
}

// HandleOf builds a Handle for a.
func HandleOf(a Adapter) Handle {
	h := Handle{Name: a.Name(), Kind: a.Kind(), Adapter: a}
	if r, ok := a.(interface{ Address() string }); ok {
		h.Address = r.Address()
	}
	return h
}

// Collected is an Invoke stream folded into the worker's own conversation
// state, the events it emitted and its terminal item.
type Collected struct {
	State      *core.ConversationState
	Events     []core.StreamItem
	Completion *core.Completion
	Err        *core.TransportError
}

// Collect reads items until the stream closes. Deltas rooted exactly at the
// worker (path length 1) rebuild its conversation state; completions and
// errors of nested runtimes are relayed output, not the worker's own.
func Collect(items <-chan core.StreamItem) *Collected {
	c := &Collected{State: core.NewConversationState()}
	for it := range items {
		switch it.Kind {
		case core.KindDelta:
			if len(it.Path) == 1 {
				c.State.Apply(*it.Delta)
			}
		case core.KindEvent:
			c.Events = append(c.Events, it)
		case core.KindCompletion:
			if len(it.Path) <= 1 {
				c.Completion = it.Completion
			}
		case core.KindError:
			if len(it.Path) <= 1 {
				c.Err = it.Error
			}
		}
	}
	return c
}

func send(ctx context.Context, out chan<- core.StreamItem, it core.StreamItem) bool {
	select {
	case out <- it:
		return true
	case <-ctx.Done():
		return false
	}
}

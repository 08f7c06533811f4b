package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/meshstream/core"
)

// Collector is a core.Sink that records every item it receives.
// Safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	items []core.StreamItem
}

// NewCollector creates an empty collector.
func NewCollector() *Collector { return &Collector{} }

// Send implements core.Sink.
func (c *Collector) Send(_ context.Context, item core.StreamItem) error {
	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()
	return nil
}

// Items returns a snapshot of the recorded items.
func (c *Collector) Items() []core.StreamItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.StreamItem(nil), c.items...)
}

// Kind returns the recorded items of the given kind.
func (c *Collector) Kind(kind core.ItemKind) []core.StreamItem {
	return OfKind(c.Items(), kind)
}

// OfKind filters items by kind.
func OfKind(items []core.StreamItem, kind core.ItemKind) []core.StreamItem {
	var out []core.StreamItem
	for _, it := range items {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}

// Drain reads ch until it is closed, failing the test after timeout.
func Drain(t *testing.T, ch <-chan core.StreamItem, timeout time.Duration) []core.StreamItem {
	t.Helper()

	var out []core.StreamItem
	deadline := time.After(timeout)
	for {
		select {
		case it, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, it)
		case <-deadline:
			t.Fatalf("stream not closed after %s (%d items read)", timeout, len(out))
			return out
		}
	}
}

// EventTypes returns the event type names of the given items, in order.
func EventTypes(items []core.StreamItem) []string {
	var out []string
	for _, it := range items {
		if it.Kind == core.KindEvent {
			out = append(out, it.Event.Type)
		}
	}
	return out
}

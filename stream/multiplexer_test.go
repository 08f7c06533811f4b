package stream

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshstream/core"
	"github.com/hupe1980/meshstream/internal/testutil"
)

func seqEvent(source string, i int) core.StreamItem {
	return core.EventItem(nil, core.NewEvent("tick", map[string]any{"source": source, "seq": i}))
}

func seqOf(t *testing.T, it core.StreamItem) int {
	t.Helper()
	v, ok := it.Event.Get("seq")
	require.True(t, ok)
	return v.(int)
}

func TestMultiplexer_SinkPrefixesPath(t *testing.T) {
	m := NewMultiplexer(4)
	sink := m.Sink("supervisor")

	require.NoError(t, sink.Send(context.Background(), core.EventItem(core.NamespacePath{"research_agent"}, core.NewEvent("x", nil))))
	m.Close()

	items := testutil.Drain(t, m.Items(), 2*time.Second)
	require.Len(t, items, 1)
	assert.Equal(t, core.NamespacePath{"supervisor", "research_agent"}, items[0].Path)
}

func TestMultiplexer_SendAfterClose(t *testing.T) {
	m := NewMultiplexer(0)
	m.Close()

	err := m.Sink().Send(context.Background(), seqEvent("a", 0))
	assert.ErrorIs(t, err, core.ErrSinkClosed)
}

func TestMultiplexer_CancelledSendIsDropped(t *testing.T) {
	m := NewMultiplexer(8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Sink().Send(ctx, seqEvent("a", 0))
	assert.ErrorIs(t, err, context.Canceled)

	m.Close()
	assert.Empty(t, testutil.Drain(t, m.Items(), 2*time.Second))
}

func TestMultiplexer_AttachStopsOnCancel(t *testing.T) {
	m := NewMultiplexer(0)
	ctx, cancel := context.WithCancel(context.Background())

	src := make(chan core.StreamItem)
	m.Attach(ctx, core.NamespacePath{"w"}, src)

	go func() {
		defer close(src)
		for i := 0; i < 100; i++ {
			src <- seqEvent("w", i)
		}
	}()

	first := <-m.Items()
	assert.Equal(t, core.NamespacePath{"w"}, first.Path)
	cancel()

	done := make(chan struct{})
	go func() {
		m.Close()
		close(done)
	}()

	// Close must return even though the consumer stopped reading.
	go func() {
		for range m.Items() {
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("multiplexer did not close after cancellation")
	}
}

func TestMerge(t *testing.T) {
	a := make(chan core.StreamItem, 3)
	b := make(chan core.StreamItem, 3)
	for i := 0; i < 3; i++ {
		a <- seqEvent("a", i)
		b <- seqEvent("b", i)
	}
	close(a)
	close(b)

	items := testutil.Drain(t, Merge(context.Background(), map[string]<-chan core.StreamItem{"a": a, "b": b}, 0), 2*time.Second)
	assert.Len(t, items, 6)
}

// TestMultiplexer_PerSourceOrderProperty checks that for any number of
// concurrent producers and items per producer, every producer's items arrive
// complete and in send order under their own prefix.
func TestMultiplexer_PerSourceOrderProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("per-source order is preserved", prop.ForAll(
		func(sources, perSource, buffer int) bool {
			m := NewMultiplexer(buffer)
			ctx := context.Background()

			var wg sync.WaitGroup
			for s := 0; s < sources; s++ {
				name := fmt.Sprintf("w%d", s)
				sink := m.Sink(name)
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < perSource; i++ {
						_ = sink.Send(ctx, seqEvent(name, i))
					}
				}()
			}
			go func() {
				wg.Wait()
				m.Close()
			}()

			next := map[string]int{}
			total := 0
			for it := range m.Items() {
				name := it.Path.String()
				seq, _ := it.Event.Get("seq")
				if seq.(int) != next[name] {
					return false
				}
				next[name]++
				total++
			}
			if total != sources*perSource {
				return false
			}
			for s := 0; s < sources; s++ {
				if next[fmt.Sprintf("w%d", s)] != perSource {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 6),
		gen.IntRange(0, 40),
		gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}

// TestMultiplexer_NestedPrefixProperty checks that prefixes compose: an item
// emitted at depth d under a chain of sinks arrives with the full chain as
// its path. Each level wraps the sink handed down by its parent, the way
// runtimes nest.
func TestMultiplexer_NestedPrefixProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("nested prefixes compose parent first", prop.ForAll(
		func(segments []string) bool {
			m := NewMultiplexer(1)
			var sink core.Sink = m.Sink()
			for _, seg := range segments {
				sink = core.PrefixSink(seg, sink)
			}
			if err := sink.Send(context.Background(), seqEvent("x", 0)); err != nil {
				return false
			}
			m.Close()
			it := <-m.Items()
			return it.Path.Equal(core.NamespacePath(segments))
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}

func TestMultiplexer_FairnessNoStarvation(t *testing.T) {
	m := NewMultiplexer(0)
	ctx := context.Background()

	start := make(chan struct{})
	var ready, wg sync.WaitGroup
	for name, n := range map[string]int{"chatty": 200, "quiet": 5} {
		sink := m.Sink(name)
		ready.Add(1)
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ready.Done()
			<-start
			for i := 0; i < n; i++ {
				_ = sink.Send(ctx, seqEvent("", i))
			}
		}(n)
	}
	go func() {
		wg.Wait()
		m.Close()
	}()

	ready.Wait()
	close(start)
	time.Sleep(10 * time.Millisecond) // both producers are queued before reading starts

	var quiet []int
	pos := 0
	for it := range m.Items() {
		if it.Path.String() == "quiet" {
			assert.Equal(t, len(quiet), seqOf(t, it))
			quiet = append(quiet, pos)
		}
		pos++
	}

	require.Equal(t, 205, pos)
	require.Len(t, quiet, 5)
	// queues are served in turn, so the quiet source interleaves with the
	// chatty one instead of waiting behind its backlog
	assert.Less(t, quiet[4], 20)
}

func TestMultiplexer_WithdrawsCancelledQueuedSend(t *testing.T) {
	m := NewMultiplexer(0)

	blocked := make(chan error, 1)
	go func() {
		blocked <- m.Sink("a").Send(context.Background(), seqEvent("a", 0))
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	queued := make(chan error, 1)
	go func() {
		queued <- m.Sink("b").Send(ctx, seqEvent("b", 0))
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-queued:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled send did not return")
	}

	first := <-m.Items()
	assert.Equal(t, core.NamespacePath{"a"}, first.Path)
	require.NoError(t, <-blocked)

	m.Close()
	assert.Empty(t, testutil.Drain(t, m.Items(), 2*time.Second))
}

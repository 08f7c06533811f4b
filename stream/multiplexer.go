package stream

import (
	"context"
	"sync"

	"github.com/hupe1980/meshstream/core"
)

// Multiplexer fans many producers into one output channel. Producers either
// write synchronously through a Sink or hand over a channel with Attach.
//
// Items are queued per source, keyed by their prefixed path, and a single
// dispatcher serves the queues round-robin. A busy source therefore cannot
// starve a quiet one, and each source's items keep their send order. Send
// returns once its item has been handed to the output, so anything a producer
// sends afterwards is ordered after it.
type Multiplexer struct {
	out chan core.StreamItem

	mu     sync.Mutex
	lanes  map[string][]*pending
	ready  []string
	wake   chan struct{}
	closed bool

	stopped   chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type pending struct {
	ctx   context.Context
	item  core.StreamItem
	taken bool
	done  chan error
}

// NewMultiplexer creates a multiplexer whose output channel has the given
// buffer size. A buffer of 0 gives strict backpressure: producers block until
// the consumer reads.
func NewMultiplexer(buffer int) *Multiplexer {
	if buffer < 0 {
		buffer = 0
	}
	m := &Multiplexer{
		out:     make(chan core.StreamItem, buffer),
		lanes:   map[string][]*pending{},
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go m.dispatch()
	return m
}

// Items returns the merged output. It is closed by Close.
func (m *Multiplexer) Items() <-chan core.StreamItem { return m.out }

// Sink returns a core.Sink that writes into the multiplexer, prefixing every
// item's path with prefix. Send blocks while the output is full and fails
// with core.ErrSinkClosed after Close.
func (m *Multiplexer) Sink(prefix ...string) core.Sink {
	p := core.NamespacePath(prefix)
	return core.SinkFunc(func(ctx context.Context, item core.StreamItem) error {
		return m.send(ctx, item.WithPrefix(p))
	})
}

// Attach forwards every item of items, prefixed by prefix, until items is
// closed or ctx is done. After ctx is done the remaining items are drained and
// discarded so the producer never blocks on a departed consumer.
func (m *Multiplexer) Attach(ctx context.Context, prefix core.NamespacePath, items <-chan core.StreamItem) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-ctx.Done():
				go drain(items)
				return
			case it, ok := <-items:
				if !ok {
					return
				}
				if err := m.send(ctx, it.WithPrefix(prefix)); err != nil {
					go drain(items)
					return
				}
			}
		}
	}()
}

// Close waits for attached producers to finish, then closes the output.
// Sink producers must have returned before Close is called.
func (m *Multiplexer) Close() {
	m.closeOnce.Do(func() {
		m.wg.Wait()
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		m.signal()
		<-m.stopped
	})
}

func (m *Multiplexer) send(ctx context.Context, item core.StreamItem) error {
	// A cancelled consumer must see nothing more, even when buffer space is left.
	if err := ctx.Err(); err != nil {
		return err
	}

	p := &pending{ctx: ctx, item: item, done: make(chan error, 1)}
	key := item.Path.String()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return core.ErrSinkClosed
	}
	if len(m.lanes[key]) == 0 {
		m.ready = append(m.ready, key)
	}
	m.lanes[key] = append(m.lanes[key], p)
	m.mu.Unlock()
	m.signal()

	select {
	case err := <-p.done:
		return err
	case <-ctx.Done():
	}

	m.mu.Lock()
	if !p.taken {
		m.withdraw(key, p)
		m.mu.Unlock()
		return ctx.Err()
	}
	m.mu.Unlock()

	// The dispatcher holds the item and gives up on it once ctx is done.
	return <-p.done
}

// withdraw removes a queued item. The caller holds m.mu.
func (m *Multiplexer) withdraw(key string, p *pending) {
	lane := m.lanes[key]
	for i, q := range lane {
		if q == p {
			lane = append(lane[:i], lane[i+1:]...)
			break
		}
	}
	if len(lane) > 0 {
		m.lanes[key] = lane
		return
	}
	delete(m.lanes, key)
	for i, k := range m.ready {
		if k == key {
			m.ready = append(m.ready[:i], m.ready[i+1:]...)
			break
		}
	}
}

func (m *Multiplexer) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// next pops the head of the next ready lane and moves that lane to the back
// of the rotation. It returns nil when nothing is queued.
func (m *Multiplexer) next() (*pending, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.ready) == 0 {
		return nil, m.closed
	}

	key := m.ready[0]
	m.ready = m.ready[1:]

	lane := m.lanes[key]
	p := lane[0]
	p.taken = true

	if len(lane) > 1 {
		m.lanes[key] = lane[1:]
		m.ready = append(m.ready, key)
	} else {
		delete(m.lanes, key)
	}
	return p, false
}

func (m *Multiplexer) dispatch() {
	defer close(m.stopped)
	for {
		p, closed := m.next()
		if p == nil {
			if closed {
				close(m.out)
				return
			}
			<-m.wake
			continue
		}

		if err := p.ctx.Err(); err != nil {
			p.done <- err
			continue
		}
		select {
		case m.out <- p.item:
			p.done <- nil
		case <-p.ctx.Done():
			p.done <- p.ctx.Err()
		}
	}
}

func drain(items <-chan core.StreamItem) {
	for range items {
	}
}

// Merge is a convenience over Multiplexer: it attaches every source under its
// key and returns the merged output, closed once all sources are exhausted.
func Merge(ctx context.Context, sources map[string]<-chan core.StreamItem, buffer int) <-chan core.StreamItem {
	m := NewMultiplexer(buffer)
	for name, src := range sources {
		m.Attach(ctx, core.NamespacePath{name}, src)
	}
	go m.Close()
	return m.Items()
}

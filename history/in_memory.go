package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/meshstream/core"
)

// InMemoryStore is a volatile Store keeping threads in a process local map.
// It is safe for concurrent access and best suited for tests or ephemeral
// demo servers. Returned threads are copies.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*Thread
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{threads: make(map[string]*Thread)}
}

// Append adds messages to an existing or newly created thread.
func (s *InMemoryStore) Append(_ context.Context, threadID, worker string, msgs ...core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.threads[threadID]
	if !ok {
		th = &Thread{ID: threadID, Worker: worker}
		s.threads[threadID] = th
	}
	th.Messages = append(th.Messages, msgs...)
	th.UpdatedAt = time.Now()
	return nil
}

// Thread returns a copy of the thread.
func (s *InMemoryStore) Thread(_ context.Context, threadID string) (*Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	th, ok := s.threads[threadID]
	if !ok {
		return nil, ErrThreadNotFound
	}
	clone := *th
	clone.Messages = append([]core.Message(nil), th.Messages...)
	return &clone, nil
}

// List returns all threads, most recently updated first.
func (s *InMemoryStore) List(context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.threads))
	for _, th := range s.threads {
		out = append(out, Summary{ID: th.ID, Worker: th.Worker, Messages: len(th.Messages), UpdatedAt: th.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error { return nil }

package store

import (
	"bytes"
	"context"
	"sync"

	"github.com/sweeney/habit-tracker/internal/stats"
)

// Memory is an in-process Backend for tests and throwaway daemons.
type Memory struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	events map[string][]stats.Event
	puts   int
	putErr error
}

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{
		blobs:  make(map[string][]byte),
		events: make(map[string][]stats.Event),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Swap(_ context.Context, key string, old, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	cur, ok := m.blobs[key]
	if ok != (old != nil) || !bytes.Equal(cur, old) {
		return ErrConflict
	}
	m.blobs[key] = append([]byte(nil), value...)
	m.puts++
	return nil
}

// FailPuts makes every following Swap return err. A nil err clears it.
func (m *Memory) FailPuts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
}

// SetRaw stores value under key without going through the codec.
func (m *Memory) SetRaw(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), value...)
}

// Puts returns the number of successful writes.
func (m *Memory) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func (m *Memory) AppendEvent(_ context.Context, key string, ev stats.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[key] = append(m.events[key], ev)
	return nil
}

func (m *Memory) RecentEvents(_ context.Context, key string, limit int) ([]stats.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.events[key]
	if limit <= 0 {
		return nil, nil
	}
	out := make([]stats.Event, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

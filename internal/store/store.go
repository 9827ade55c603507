// Package store persists the engine state blob and the notification log.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sweeney/habit-tracker/internal/stats"
)

// ErrNotFound is returned when nothing has been stored under the key yet.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when the stored blob no longer matches the one the
// writer last saw, i.e. another process wrote in between.
var ErrConflict = errors.New("stored state changed")

// Backend stores opaque blobs by key and keeps an append-only event log.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Swap writes value only if the stored blob still equals old. A nil old
	// means the key must not exist yet. Otherwise it returns ErrConflict.
	Swap(ctx context.Context, key string, old, value []byte) error
	AppendEvent(ctx context.Context, key string, ev stats.Event) error
	RecentEvents(ctx context.Context, key string, limit int) ([]stats.Event, error)
	Close() error
}

// Store binds a Backend to one storage key and the state codec. Saves only
// succeed over the blob this Store last loaded or wrote, so two processes
// sharing a key cannot silently overwrite each other.
type Store struct {
	backend Backend
	key     string
	cfg     stats.Config

	mu   sync.Mutex
	seen []byte // blob as last loaded or written; nil when absent
}

// New returns a Store that reads and writes the state under key.
func New(backend Backend, key string, cfg stats.Config) *Store {
	return &Store{backend: backend, key: key, cfg: cfg}
}

// Key returns the storage key.
func (s *Store) Key() string {
	return s.key
}

// Load returns the stored state. It returns ErrNotFound when nothing is
// stored, and wraps stats.ErrVersionMismatch or stats.ErrMalformed when the
// stored blob must not be trusted.
func (s *Store) Load(ctx context.Context) (stats.State, error) {
	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		s.setSeen(nil)
		return stats.State{}, err
	}
	if err != nil {
		return stats.State{}, err
	}
	// An untrusted blob may still be replaced by the next Save.
	s.setSeen(data)
	st, err := stats.DecodeBlob(s.cfg, data)
	if err != nil {
		return stats.State{}, fmt.Errorf("load %s: %w", s.key, err)
	}
	return st, nil
}

// Save replaces the stored state. It wraps ErrConflict when another writer
// changed the blob since this Store last loaded or saved it; Load again
// before retrying.
func (s *Store) Save(ctx context.Context, st stats.State) error {
	data, err := stats.EncodeBlob(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Swap(ctx, s.key, s.seen, data); err != nil {
		return fmt.Errorf("save %s: %w", s.key, err)
	}
	s.seen = data
	return nil
}

func (s *Store) setSeen(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = data
}

// AppendEvent records a notification.
func (s *Store) AppendEvent(ctx context.Context, ev stats.Event) error {
	return s.backend.AppendEvent(ctx, s.key, ev)
}

// RecentEvents returns up to limit notifications, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]stats.Event, error) {
	return s.backend.RecentEvents(ctx, s.key, limit)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

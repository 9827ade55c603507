package mqtt

import (
	"sync"
	"time"

	"github.com/sweeney/habit-tracker/internal/stats"
)

// Snapshot is one recorded PublishSnapshot call.
type Snapshot struct {
	UserID string
	State  stats.State
	At     time.Time
}

// FakePublisher records published messages for test assertions.
// Safe for concurrent use; read recorded values through the accessor methods.
type FakePublisher struct {
	mu sync.Mutex

	events         []stats.Event
	snapshots      []Snapshot
	systemEvents   []SystemEvent
	systemPayloads [][]byte

	publishErr  error
	snapshotErr error
	systemErr   error
	closed      bool
	connected   bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{connected: true}
}

// PublishEvent records the notification.
func (f *FakePublisher) PublishEvent(ev stats.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.events = append(f.events, ev)
	return nil
}

// PublishSnapshot records the snapshot.
func (f *FakePublisher) PublishSnapshot(userID string, s stats.State, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshotErr != nil {
		return f.snapshotErr
	}
	f.snapshots = append(f.snapshots, Snapshot{UserID: userID, State: s.Clone(), At: at})
	return nil
}

// PublishSystem records the system event and its payload.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.systemErr != nil {
		return f.systemErr
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.systemEvents = append(f.systemEvents, event)
	f.systemPayloads = append(f.systemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// SetConnected controls the return value of IsConnected.
func (f *FakePublisher) SetConnected(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = v
}

// FailEvents makes PublishEvent return err (nil clears).
func (f *FakePublisher) FailEvents(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishErr = err
}

// FailSnapshots makes PublishSnapshot return err (nil clears).
func (f *FakePublisher) FailSnapshots(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshotErr = err
}

// FailSystem makes PublishSystem return err (nil clears).
func (f *FakePublisher) FailSystem(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systemErr = err
}

// Events returns the recorded notifications.
func (f *FakePublisher) Events() []stats.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stats.Event(nil), f.events...)
}

// Snapshots returns the recorded snapshots.
func (f *FakePublisher) Snapshots() []Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Snapshot(nil), f.snapshots...)
}

// SystemEvents returns the recorded system events.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// SystemPayloads returns the JSON payloads of the recorded system events.
func (f *FakePublisher) SystemPayloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.systemPayloads...)
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset clears recorded messages and injected errors.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
	f.snapshots = nil
	f.systemEvents = nil
	f.systemPayloads = nil
	f.publishErr = nil
	f.snapshotErr = nil
	f.systemErr = nil
	f.closed = false
}

// Package mqtt publishes habit notifications, state snapshots and daemon
// lifecycle messages, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/habit-tracker/internal/stats"
)

// Topics are the MQTT topics under one prefix.
type Topics struct {
	Events   string
	Snapshot string
	System   string
}

// NewTopics derives the topic set for prefix and user.
// Snapshots are per user; events and lifecycle messages are per daemon.
func NewTopics(prefix, userID string) Topics {
	return Topics{
		Events:   prefix + "/events",
		Snapshot: fmt.Sprintf("%s/snapshots/%s", prefix, userID),
		System:   prefix + "/system",
	}
}

// Publisher publishes to MQTT.
type Publisher interface {
	// PublishEvent sends a badge or level-up notification.
	// Returns error if publishing fails (should not crash the process).
	PublishEvent(ev stats.Event) error

	// PublishSnapshot sends the full state for userID. Retained, so a new
	// subscriber immediately sees the latest snapshot.
	PublishSnapshot(userID string, s stats.State, at time.Time) error

	// PublishSystem sends a daemon lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a daemon lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "RECONNECTED"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// EventPayload is the MQTT message for a notification.
type EventPayload struct {
	Event EventPayloadInner `json:"event"`
}

// EventPayloadInner contains the notification details.
type EventPayloadInner struct {
	ID         string   `json:"id"`
	Timestamp  string   `json:"timestamp"`
	Type       string   `json:"type"`
	Message    string   `json:"message"`
	SkillLevel int      `json:"skill_level"`
	Badges     []string `json:"badges,omitempty"`
}

// FormatEventPayload creates the JSON payload for a notification.
func FormatEventPayload(ev stats.Event) ([]byte, error) {
	return json.Marshal(EventPayload{
		Event: EventPayloadInner{
			ID:         ev.ID,
			Timestamp:  ev.At.UTC().Format(time.RFC3339),
			Type:       string(ev.Type),
			Message:    ev.Message(),
			SkillLevel: ev.SkillLevel,
			Badges:     ev.Badges,
		},
	})
}

// SnapshotPayload is the MQTT message for a state snapshot. State carries
// the persisted blob unchanged.
type SnapshotPayload struct {
	Snapshot SnapshotPayloadInner `json:"snapshot"`
}

// SnapshotPayloadInner contains the snapshot details.
type SnapshotPayloadInner struct {
	UserID    string          `json:"user_id"`
	Timestamp string          `json:"timestamp"`
	State     json.RawMessage `json:"state"`
}

// FormatSnapshotPayload creates the JSON payload for a state snapshot.
func FormatSnapshotPayload(userID string, s stats.State, at time.Time) ([]byte, error) {
	blob, err := stats.EncodeBlob(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(SnapshotPayload{
		Snapshot: SnapshotPayloadInner{
			UserID:    userID,
			Timestamp: at.UTC().Format(time.RFC3339),
			State:     blob,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(stats.Event) error                       { return nil }
func (NopPublisher) PublishSnapshot(string, stats.State, time.Time) error { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error                      { return nil }
func (NopPublisher) Close() error                                         { return nil }
func (NopPublisher) IsConnected() bool                                    { return false }

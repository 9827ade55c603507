// Package syncer uploads state snapshots to remote backends. Uploads are
// throttled and skipped when nothing but the evaluation time has changed.
package syncer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sweeney/habit-tracker/internal/logger"
	"github.com/sweeney/habit-tracker/internal/stats"
)

// MinInterval is the shortest allowed gap between two uploads.
const MinInterval = 15 * time.Second

// Uploader sends one snapshot for userID to a backend.
type Uploader interface {
	Upload(ctx context.Context, userID string, s stats.State, at time.Time) error
}

// Syncer decides when a state is worth uploading. Safe for concurrent use.
type Syncer struct {
	userID   string
	up       Uploader
	interval time.Duration
	log      *logger.Logger

	mu         sync.Mutex
	lastUpload time.Time
	lastSent   []byte // fingerprint of the last uploaded state
	pending    *stats.State
}

// New creates a Syncer. Intervals below MinInterval are raised to it.
func New(userID string, up Uploader, interval time.Duration, log *logger.Logger) *Syncer {
	if interval < MinInterval {
		interval = MinInterval
	}
	return &Syncer{
		userID:   userID,
		up:       up,
		interval: interval,
		log:      log.With("component", "syncer", "user_id", userID),
	}
}

// Offer uploads s if it differs from the last upload and the throttle
// window has passed. A throttled state is kept and sent by a later Flush.
// Reports whether an upload succeeded.
func (y *Syncer) Offer(ctx context.Context, s stats.State, now time.Time) bool {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.offerLocked(ctx, s, now)
}

// Flush retries the most recent throttled or failed state, if any.
func (y *Syncer) Flush(ctx context.Context, now time.Time) bool {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.pending == nil {
		return false
	}
	return y.offerLocked(ctx, *y.pending, now)
}

// Pending reports whether a state is waiting to be uploaded.
func (y *Syncer) Pending() bool {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.pending != nil
}

func (y *Syncer) offerLocked(ctx context.Context, s stats.State, now time.Time) bool {
	fp, err := fingerprint(s)
	if err != nil {
		y.log.Error("cannot fingerprint state", "error", err)
		return false
	}
	if y.lastSent != nil && bytes.Equal(fp, y.lastSent) {
		y.pending = nil
		return false
	}
	if !y.lastUpload.IsZero() && now.Sub(y.lastUpload) < y.interval {
		c := s.Clone()
		y.pending = &c
		return false
	}

	y.lastUpload = now
	if err := y.up.Upload(ctx, y.userID, s, now); err != nil {
		y.log.Warn("snapshot upload failed", "error", err)
		c := s.Clone()
		y.pending = &c
		return false
	}
	y.lastSent = fp
	y.pending = nil
	y.log.Debug("snapshot uploaded", "health", s.Health, "level", s.SkillLevel)
	return true
}

// fingerprint encodes s with the evaluation time pinned, so states that
// differ only in when they were last advanced compare equal.
func fingerprint(s stats.State) ([]byte, error) {
	s.LastEvaluatedAt = s.CreatedAt
	return stats.EncodeBlob(s)
}

// Multi fans one upload out to several uploaders. All are attempted;
// the errors are joined.
type Multi []Uploader

// Upload implements Uploader.
func (m Multi) Upload(ctx context.Context, userID string, s stats.State, at time.Time) error {
	var errs []error
	for _, u := range m {
		if err := u.Upload(ctx, userID, s, at); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

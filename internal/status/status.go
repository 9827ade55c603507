// Package status provides a thread-safe status tracker for the habit daemon.
// It is read by HTTP handlers and heartbeat messages.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/habit-tracker/internal/stats"
)

// Config contains daemon configuration for display.
type Config struct {
	UserID       string
	Store        string
	Broker       string
	HTTPAddr     string
	HeartbeatMs  int64
	AdvanceMs    int64
	SyncMs       int64
	LevelTrigger float64
}

// Counts tallies dispatcher activity since startup.
type Counts struct {
	Applied  int
	Ignored  int
	Badges   int
	LevelUps int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         stats.State
	HaveState     bool
	Counts        Counts
	LastEvent     *stats.Event
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Today returns the flags for the day containing Now.
func (s Snapshot) Today() stats.DailyFlags {
	return s.State.Day(stats.DayKeyFor(s.Now))
}

// ThisWeek returns the flags for the week containing Now.
func (s Snapshot) ThisWeek() stats.WeeklyFlags {
	return s.State.Week(stats.WeekKeyFor(s.Now))
}

// Progress is health as a fraction of the level-up trigger.
func (s Snapshot) Progress() float64 {
	if s.Config.LevelTrigger <= 0 {
		return 0
	}
	return s.State.Health / s.Config.LevelTrigger
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update stores the latest engine state.
func (t *Tracker) Update(s stats.State) {
	c := s.Clone()
	t.mu.Lock()
	t.snap.State = c
	t.snap.HaveState = true
	t.mu.Unlock()
}

// RecordAction counts one dispatched action.
func (t *Tracker) RecordAction(applied bool) {
	t.mu.Lock()
	if applied {
		t.snap.Counts.Applied++
	} else {
		t.snap.Counts.Ignored++
	}
	t.mu.Unlock()
}

// RecordEvents counts notifications and remembers the newest.
func (t *Tracker) RecordEvents(events []stats.Event) {
	if len(events) == 0 {
		return
	}
	t.mu.Lock()
	for _, ev := range events {
		switch ev.Type {
		case stats.EventBadgeEarned:
			t.snap.Counts.Badges++
		case stats.EventLevelUp:
			t.snap.Counts.LevelUps++
		}
	}
	last := events[len(events)-1]
	t.snap.LastEvent = &last
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.State = t.snap.State.Clone()
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}

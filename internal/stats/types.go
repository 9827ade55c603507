// Package stats contains the pure progression engine: idle decay, sleep
// resolution, points settlement and the action reducer.
// This package has NO external dependencies (no storage, network, or logging).
// Time is always injectable via time.Time parameters; nothing here reads the clock.
package stats

import "time"

// DayKey identifies a calendar day, formatted YYYY-MM-DD.
type DayKey string

// WeekKey identifies a week, formatted YYYY-W##.
type WeekKey string

// DailyFlags records the once-per-day actions for one day.
type DailyFlags struct {
	MorningPrayer     bool
	EveningPrayer     bool
	Scripture         bool
	KindnessCount     int
	SleepAwardApplied bool
}

// WeeklyFlags records the once-per-week attendance actions for one week.
type WeeklyFlags struct {
	Church bool
	Mutual bool
	Temple bool
}

// WeeklyKind selects one of the weekly attendance flags.
type WeeklyKind string

const (
	WeeklyChurch WeeklyKind = "church"
	WeeklyMutual WeeklyKind = "mutual"
	WeeklyTemple WeeklyKind = "temple"
)

// IsValid reports whether k names a known weekly flag.
func (k WeeklyKind) IsValid() bool {
	switch k {
	case WeeklyChurch, WeeklyMutual, WeeklyTemple:
		return true
	default:
		return false
	}
}

// Get returns the flag selected by kind.
func (w WeeklyFlags) Get(kind WeeklyKind) bool {
	switch kind {
	case WeeklyChurch:
		return w.Church
	case WeeklyMutual:
		return w.Mutual
	case WeeklyTemple:
		return w.Temple
	default:
		return false
	}
}

func (w *WeeklyFlags) set(kind WeeklyKind) {
	switch kind {
	case WeeklyChurch:
		w.Church = true
	case WeeklyMutual:
		w.Mutual = true
	case WeeklyTemple:
		w.Temple = true
	}
}

// SleepState tracks the open sleep session (if any) and the last resolved one.
type SleepState struct {
	// Start of the open session. Zero when no session is open.
	CurrentStart time.Time
	// Duration of the last resolved session. Zero when none has resolved.
	LastSessionDuration time.Duration
	// Day key of the last resolved session's end.
	LastSessionDayKey DayKey
}

// Open reports whether a sleep session is in progress.
func (s SleepState) Open() bool {
	return !s.CurrentStart.IsZero()
}

// Streaks are monotonic counters; only a full reset clears them.
type Streaks struct {
	MorningPrayer int
	EveningPrayer int
	Scripture     int
}

// State is the sole durable entity of the engine.
type State struct {
	Version         int
	CreatedAt       time.Time
	LastEvaluatedAt time.Time

	Health     float64
	SkillLevel int
	Coins      int

	// Badges holds unique badge IDs in grant order.
	Badges []string

	// ByDay and ByWeek are sparse: a missing key means all-false defaults.
	ByDay  map[DayKey]DailyFlags
	ByWeek map[WeekKey]WeeklyFlags

	Sleep   SleepState
	Streaks Streaks
}

// Day returns the flags recorded for key, or zero-value defaults.
func (s State) Day(key DayKey) DailyFlags {
	return s.ByDay[key]
}

// Week returns the flags recorded for key, or zero-value defaults.
func (s State) Week(key WeekKey) WeeklyFlags {
	return s.ByWeek[key]
}

// HasBadge reports whether id has been granted.
func (s State) HasBadge(id string) bool {
	for _, b := range s.Badges {
		if b == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so the reducer never aliases caller-owned maps.
func (s State) Clone() State {
	out := s
	if s.Badges != nil {
		out.Badges = make([]string, len(s.Badges))
		copy(out.Badges, s.Badges)
	}
	out.ByDay = make(map[DayKey]DailyFlags, len(s.ByDay))
	for k, v := range s.ByDay {
		out.ByDay[k] = v
	}
	out.ByWeek = make(map[WeekKey]WeeklyFlags, len(s.ByWeek))
	for k, v := range s.ByWeek {
		out.ByWeek[k] = v
	}
	return out
}

// NewState returns fresh defaults anchored at now.
func NewState(cfg Config, now time.Time) State {
	return State{
		Version:         cfg.EngineVersion,
		CreatedAt:       now,
		LastEvaluatedAt: now,
		Health:          cfg.StartingHealth,
		SkillLevel:      0,
		Coins:           cfg.StartingCoins,
		Badges:          []string{},
		ByDay:           map[DayKey]DailyFlags{},
		ByWeek:          map[WeekKey]WeeklyFlags{},
	}
}

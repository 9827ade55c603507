package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrVersionMismatch is returned when a blob was written by another engine version.
	ErrVersionMismatch = errors.New("state version mismatch")
	// ErrMalformed is returned when a blob cannot be decoded into a valid State.
	ErrMalformed = errors.New("malformed state")
)

// Persisted field names and units (epoch milliseconds) are shared with
// blobs written by the mobile app, so they must not change.
type blobState struct {
	Version    int                       `json:"version"`
	CreatedAt  int64                     `json:"createdAt"`
	LastCalcAt int64                     `json:"lastCalcAt"`
	Health     *float64                  `json:"health"`
	SkillLevel int                       `json:"skillLevel"`
	Coins      int                       `json:"coins"`
	Badges     []string                  `json:"badges"`
	ByDay      map[DayKey]blobDailyFlags `json:"byDay"`
	ByWeek     map[WeekKey]blobWeekFlags `json:"byWeek"`
	Sleep      blobSleep                 `json:"sleep"`
	Streaks    blobStreaks               `json:"streaks"`
}

type blobDailyFlags struct {
	MorningPrayer     bool `json:"morningPrayer"`
	EveningPrayer     bool `json:"eveningPrayer"`
	Scripture         bool `json:"scripture"`
	Services          int  `json:"services"`
	SleepAwardApplied bool `json:"sleepAwardApplied"`
}

type blobWeekFlags struct {
	Church bool `json:"church"`
	Mutual bool `json:"mutual"`
	Temple bool `json:"temple"`
}

type blobSleep struct {
	CurrentStart      int64  `json:"currentStart,omitempty"`
	LastSessionMs     int64  `json:"lastSessionMs,omitempty"`
	LastSessionDayKey DayKey `json:"lastSessionDayKey,omitempty"`
}

type blobStreaks struct {
	MorningPrayer int `json:"morningPrayer"`
	EveningPrayer int `json:"eveningPrayer"`
	Scripture     int `json:"scripture"`
}

// EncodeBlob serializes s into the persisted JSON shape.
func EncodeBlob(s State) ([]byte, error) {
	health := s.Health
	b := blobState{
		Version:    s.Version,
		CreatedAt:  toMillis(s.CreatedAt),
		LastCalcAt: toMillis(s.LastEvaluatedAt),
		Health:     &health,
		SkillLevel: s.SkillLevel,
		Coins:      s.Coins,
		Badges:     s.Badges,
		ByDay:      make(map[DayKey]blobDailyFlags, len(s.ByDay)),
		ByWeek:     make(map[WeekKey]blobWeekFlags, len(s.ByWeek)),
		Sleep: blobSleep{
			CurrentStart:      toMillis(s.Sleep.CurrentStart),
			LastSessionMs:     s.Sleep.LastSessionDuration.Milliseconds(),
			LastSessionDayKey: s.Sleep.LastSessionDayKey,
		},
		Streaks: blobStreaks(s.Streaks),
	}
	if b.Badges == nil {
		b.Badges = []string{}
	}
	for k, v := range s.ByDay {
		b.ByDay[k] = blobDailyFlags{
			MorningPrayer:     v.MorningPrayer,
			EveningPrayer:     v.EveningPrayer,
			Scripture:         v.Scripture,
			Services:          v.KindnessCount,
			SleepAwardApplied: v.SleepAwardApplied,
		}
	}
	for k, v := range s.ByWeek {
		b.ByWeek[k] = blobWeekFlags(v)
	}
	return json.Marshal(b)
}

// DecodeBlob parses a persisted blob and checks it against cfg.
// A blob from another engine version yields ErrVersionMismatch; missing or
// out-of-range fields yield ErrMalformed. Callers rebuild defaults on either.
func DecodeBlob(cfg Config, data []byte) (State, error) {
	var b blobState
	if err := json.Unmarshal(data, &b); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if b.Version != cfg.EngineVersion {
		return State{}, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, b.Version, cfg.EngineVersion)
	}

	switch {
	case b.CreatedAt <= 0:
		return State{}, fmt.Errorf("%w: createdAt missing", ErrMalformed)
	case b.LastCalcAt < b.CreatedAt:
		return State{}, fmt.Errorf("%w: lastCalcAt precedes createdAt", ErrMalformed)
	case b.Health == nil:
		return State{}, fmt.Errorf("%w: health missing", ErrMalformed)
	case math.IsNaN(*b.Health) || *b.Health < 0 || *b.Health >= cfg.LevelTrigger:
		return State{}, fmt.Errorf("%w: health %v out of range", ErrMalformed, *b.Health)
	case b.SkillLevel < 0 || b.Coins < 0:
		return State{}, fmt.Errorf("%w: negative level or coins", ErrMalformed)
	case b.Sleep.LastSessionMs < 0:
		return State{}, fmt.Errorf("%w: negative sleep duration", ErrMalformed)
	}

	s := State{
		Version:         b.Version,
		CreatedAt:       fromMillis(b.CreatedAt),
		LastEvaluatedAt: fromMillis(b.LastCalcAt),
		Health:          *b.Health,
		SkillLevel:      b.SkillLevel,
		Coins:           b.Coins,
		Badges:          dedupe(b.Badges),
		ByDay:           make(map[DayKey]DailyFlags, len(b.ByDay)),
		ByWeek:          make(map[WeekKey]WeeklyFlags, len(b.ByWeek)),
		Sleep: SleepState{
			CurrentStart:        fromMillis(b.Sleep.CurrentStart),
			LastSessionDuration: time.Duration(b.Sleep.LastSessionMs) * time.Millisecond,
			LastSessionDayKey:   b.Sleep.LastSessionDayKey,
		},
		Streaks: Streaks(b.Streaks),
	}
	for k, v := range b.ByDay {
		s.ByDay[k] = DailyFlags{
			MorningPrayer:     v.MorningPrayer,
			EveningPrayer:     v.EveningPrayer,
			Scripture:         v.Scripture,
			KindnessCount:     v.Services,
			SleepAwardApplied: v.SleepAwardApplied,
		}
	}
	for k, v := range b.ByWeek {
		s.ByWeek[k] = WeeklyFlags(v)
	}
	return s, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Ready         bool       `json:"ready"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	Stats         *StatsJSON `json:"stats,omitempty"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"dispatch_counts"`
	LastEvent     *EventJSON `json:"last_event,omitempty"`
	Config        ConfigJSON `json:"config"`
}

// StatsJSON is the user-facing view of the engine state.
type StatsJSON struct {
	Health          float64     `json:"health"`
	Progress        float64     `json:"progress"`
	SkillLevel      int         `json:"skill_level"`
	Coins           int         `json:"coins"`
	Badges          []string    `json:"badges"`
	LastEvaluatedAt string      `json:"last_evaluated_at"`
	Today           TodayJSON   `json:"today"`
	Week            WeekJSON    `json:"week"`
	Sleep           SleepJSON   `json:"sleep"`
	Streaks         StreaksJSON `json:"streaks"`
}

// TodayJSON is the JSON representation of today's flags.
type TodayJSON struct {
	MorningPrayer bool `json:"morning_prayer"`
	EveningPrayer bool `json:"evening_prayer"`
	Scripture     bool `json:"scripture"`
	Kindness      int  `json:"kindness"`
	SleepAward    bool `json:"sleep_award"`
}

// WeekJSON is the JSON representation of this week's flags.
type WeekJSON struct {
	Church bool `json:"church"`
	Mutual bool `json:"mutual"`
	Temple bool `json:"temple"`
}

// SleepJSON reports the open and last sleep sessions.
type SleepJSON struct {
	Open               bool   `json:"open"`
	Since              string `json:"since,omitempty"`
	LastSessionMinutes int64  `json:"last_session_minutes"`
}

// StreaksJSON is the JSON representation of streak counters.
type StreaksJSON struct {
	MorningPrayer int `json:"morning_prayer"`
	EveningPrayer int `json:"evening_prayer"`
	Scripture     int `json:"scripture"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of dispatch counts.
type CountsJSON struct {
	Applied  int `json:"applied"`
	Ignored  int `json:"ignored"`
	Badges   int `json:"badges"`
	LevelUps int `json:"level_ups"`
}

// EventJSON is the JSON representation of the last notification.
type EventJSON struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	UserID      string `json:"user_id"`
	Store       string `json:"store"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	AdvanceMs   int64  `json:"advance_ms"`
	SyncMs      int64  `json:"sync_ms"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready:         snap.HaveState,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Applied:  snap.Counts.Applied,
			Ignored:  snap.Counts.Ignored,
			Badges:   snap.Counts.Badges,
			LevelUps: snap.Counts.LevelUps,
		},
		Config: ConfigJSON{
			UserID:      snap.Config.UserID,
			Store:       snap.Config.Store,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			HeartbeatMs: snap.Config.HeartbeatMs,
			AdvanceMs:   snap.Config.AdvanceMs,
			SyncMs:      snap.Config.SyncMs,
		},
	}
	if snap.HaveState {
		inner.Stats = buildStats(snap)
	}
	if ev := snap.LastEvent; ev != nil {
		inner.LastEvent = &EventJSON{
			ID:        ev.ID,
			Type:      string(ev.Type),
			Message:   ev.Message(),
			Timestamp: ev.At.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

func buildStats(snap Snapshot) *StatsJSON {
	s := snap.State
	today := snap.Today()
	week := snap.ThisWeek()

	badges := s.Badges
	if badges == nil {
		badges = []string{}
	}
	out := &StatsJSON{
		Health:          s.Health,
		Progress:        snap.Progress(),
		SkillLevel:      s.SkillLevel,
		Coins:           s.Coins,
		Badges:          badges,
		LastEvaluatedAt: s.LastEvaluatedAt.UTC().Format(time.RFC3339),
		Today: TodayJSON{
			MorningPrayer: today.MorningPrayer,
			EveningPrayer: today.EveningPrayer,
			Scripture:     today.Scripture,
			Kindness:      today.KindnessCount,
			SleepAward:    today.SleepAwardApplied,
		},
		Week: WeekJSON{Church: week.Church, Mutual: week.Mutual, Temple: week.Temple},
		Sleep: SleepJSON{
			Open:               s.Sleep.Open(),
			LastSessionMinutes: int64(s.Sleep.LastSessionDuration / time.Minute),
		},
		Streaks: StreaksJSON{
			MorningPrayer: s.Streaks.MorningPrayer,
			EveningPrayer: s.Streaks.EveningPrayer,
			Scripture:     s.Streaks.Scripture,
		},
	}
	if s.Sleep.Open() {
		out.Sleep.Since = s.Sleep.CurrentStart.UTC().Format(time.RFC3339)
	}
	return out
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

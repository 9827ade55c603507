package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/habit-tracker/internal/dispatch"
	"github.com/sweeney/habit-tracker/internal/stats"
)

// OutcomeJSON is the response to an action and the live stream message.
// State carries the persisted blob so clients share one decoder.
type OutcomeJSON struct {
	Action    *stats.Action   `json:"action,omitempty"`
	Applied   bool            `json:"applied"`
	Timestamp string          `json:"timestamp"`
	State     json.RawMessage `json:"state"`
	Events    []EventJSON     `json:"events"`
}

// EventJSON is a notification with its display message.
type EventJSON struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Message    string   `json:"message"`
	SkillLevel int      `json:"skill_level"`
	Badges     []string `json:"badges,omitempty"`
	Timestamp  string   `json:"timestamp"`
}

// ErrorJSON is the body of every non-2xx API response.
type ErrorJSON struct {
	Error string `json:"error"`
}

func formatOutcome(out dispatch.Outcome) ([]byte, error) {
	blob, err := stats.EncodeBlob(out.State)
	if err != nil {
		return nil, err
	}
	oj := OutcomeJSON{
		Applied:   out.Applied,
		Timestamp: out.At.UTC().Format(time.RFC3339),
		State:     blob,
		Events:    make([]EventJSON, 0, len(out.Events)),
	}
	if out.Action.Type != "" {
		a := out.Action
		oj.Action = &a
	}
	for _, ev := range out.Events {
		oj.Events = append(oj.Events, EventJSON{
			ID:         ev.ID,
			Type:       string(ev.Type),
			Message:    ev.Message(),
			SkillLevel: ev.SkillLevel,
			Badges:     ev.Badges,
			Timestamp:  ev.At.UTC().Format(time.RFC3339),
		})
	}
	return json.Marshal(oj)
}

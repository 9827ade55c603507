package stats

import "time"

// EventType identifies a notification derived from a state change.
type EventType string

const (
	EventBadgeEarned EventType = "BADGE_EARNED"
	EventLevelUp     EventType = "LEVEL_UP"
)

// Event is a purely observational notification. ID is left empty by the
// engine; the dispatcher stamps one before fan-out.
type Event struct {
	ID         string    `json:"id,omitempty"`
	Type       EventType `json:"type"`
	At         time.Time `json:"at"`
	SkillLevel int       `json:"skillLevel"`
	Badges     []string  `json:"badges,omitempty"`
}

// Message returns the user-facing toast text.
func (e Event) Message() string {
	switch e.Type {
	case EventBadgeEarned:
		return "A rare badge has been bestowed!"
	case EventLevelUp:
		return "Your mastery deepens!"
	default:
		return ""
	}
}

// DiffEvents compares two states and reports what a user should be told.
// A nil prev (first run) yields no events.
func DiffEvents(prev *State, next State, now time.Time) []Event {
	if prev == nil {
		return nil
	}

	var events []Event
	if len(next.Badges) > len(prev.Badges) {
		events = append(events, Event{
			Type:       EventBadgeEarned,
			At:         now,
			SkillLevel: next.SkillLevel,
			Badges:     newBadges(prev.Badges, next.Badges),
		})
	}
	if next.SkillLevel > prev.SkillLevel {
		events = append(events, Event{
			Type:       EventLevelUp,
			At:         now,
			SkillLevel: next.SkillLevel,
		})
	}
	return events
}

func newBadges(prev, next []string) []string {
	seen := make(map[string]bool, len(prev))
	for _, b := range prev {
		seen[b] = true
	}
	var out []string
	for _, b := range next {
		if !seen[b] {
			out = append(out, b)
		}
	}
	return out
}

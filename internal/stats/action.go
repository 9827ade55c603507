package stats

import (
	"errors"
	"fmt"
	"strings"
)

// ActionType is the wire name of a reducer action.
type ActionType string

const (
	ActionLogMorningPrayer ActionType = "LOG_MORNING_PRAYER"
	ActionLogEveningPrayer ActionType = "LOG_EVENING_PRAYER"
	ActionLogScripture     ActionType = "LOG_SCRIPTURE"
	ActionLogService       ActionType = "LOG_SERVICE"
	ActionLogKindness      ActionType = "LOG_KINDNESS"
	ActionLogWeekly        ActionType = "LOG_WEEKLY"
	ActionGrantBadge       ActionType = "GRANT_BADGE"
	ActionSpendCoins       ActionType = "SPEND_COINS"
	ActionStartSleep       ActionType = "START_SLEEP"
	ActionEndSleep         ActionType = "END_SLEEP"
	ActionResetAll         ActionType = "RESET_ALL"
)

// ActionTypes lists every action in wire-contract order.
var ActionTypes = []ActionType{
	ActionLogMorningPrayer,
	ActionLogEveningPrayer,
	ActionLogScripture,
	ActionLogService,
	ActionLogKindness,
	ActionLogWeekly,
	ActionGrantBadge,
	ActionSpendCoins,
	ActionStartSleep,
	ActionEndSleep,
	ActionResetAll,
}

var (
	// ErrUnknownAction is returned for an action type outside the wire contract.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidAction is returned when an action's payload is missing or malformed.
	ErrInvalidAction = errors.New("invalid action")
)

// Action is a tagged variant: Type selects the case, and only the payload
// field belonging to that case is read.
type Action struct {
	Type   ActionType `json:"type"`
	Kind   WeeklyKind `json:"kind,omitempty"`   // LOG_WEEKLY
	Badge  string     `json:"badge,omitempty"`  // GRANT_BADGE
	Amount int        `json:"amount,omitempty"` // SPEND_COINS
}

// Validate checks the action against the wire contract.
func (a Action) Validate() error {
	switch a.Type {
	case ActionLogMorningPrayer, ActionLogEveningPrayer, ActionLogScripture,
		ActionLogService, ActionLogKindness,
		ActionStartSleep, ActionEndSleep, ActionResetAll:
		return nil
	case ActionLogWeekly:
		if !a.Kind.IsValid() {
			return fmt.Errorf("%w: weekly kind %q", ErrInvalidAction, a.Kind)
		}
		return nil
	case ActionGrantBadge:
		if strings.TrimSpace(a.Badge) == "" {
			return fmt.Errorf("%w: badge id is required", ErrInvalidAction)
		}
		return nil
	case ActionSpendCoins:
		if a.Amount <= 0 {
			return fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidAction, a.Amount)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
}

func (a Action) String() string {
	switch a.Type {
	case ActionLogWeekly:
		return fmt.Sprintf("%s(%s)", a.Type, a.Kind)
	case ActionGrantBadge:
		return fmt.Sprintf("%s(%s)", a.Type, a.Badge)
	case ActionSpendCoins:
		return fmt.Sprintf("%s(%d)", a.Type, a.Amount)
	default:
		return string(a.Type)
	}
}

// Constructors for the payload-carrying cases.

func LogWeekly(kind WeeklyKind) Action { return Action{Type: ActionLogWeekly, Kind: kind} }
func GrantBadge(id string) Action      { return Action{Type: ActionGrantBadge, Badge: id} }
func SpendCoins(amount int) Action     { return Action{Type: ActionSpendCoins, Amount: amount} }

// ParseActivity maps an activity name, as logged by the server-side
// activity feed or the app's reward hook, to its action.
func ParseActivity(name string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "morning_prayer":
		return Action{Type: ActionLogMorningPrayer}, true
	case "evening_prayer":
		return Action{Type: ActionLogEveningPrayer}, true
	case "scripture", "scripture_study":
		return Action{Type: ActionLogScripture}, true
	case "service":
		return Action{Type: ActionLogService}, true
	case "kindness":
		return Action{Type: ActionLogKindness}, true
	case "church":
		return LogWeekly(WeeklyChurch), true
	case "mutual":
		return LogWeekly(WeeklyMutual), true
	case "temple":
		return LogWeekly(WeeklyTemple), true
	case "sleep_start":
		return Action{Type: ActionStartSleep}, true
	case "sleep_end":
		return Action{Type: ActionEndSleep}, true
	default:
		return Action{}, false
	}
}

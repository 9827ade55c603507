package stats

import (
	"errors"
	"fmt"
	"time"
)

// EngineVersion is the schema tag written into every State.
// Blobs carrying any other version are not trusted on load.
const EngineVersion = 9

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the instant at this clock time on the calendar day of t in loc.
func (c Clock) On(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
}

func (c Clock) minutes() int {
	return c.Hour*60 + c.Minute
}

// Points holds the reward for each action.
type Points struct {
	MorningPrayer float64
	EveningPrayer float64
	Scripture     float64
	Service       float64
	Kindness      float64
	Church        float64
	Mutual        float64
	Temple        float64
	Badge         float64
	SleepBonus    float64
	SleepPenalty  float64
}

// Weekly returns the reward for a weekly attendance kind.
func (p Points) Weekly(kind WeeklyKind) float64 {
	switch kind {
	case WeeklyChurch:
		return p.Church
	case WeeklyMutual:
		return p.Mutual
	case WeeklyTemple:
		return p.Temple
	default:
		return 0
	}
}

// Config tunes the engine. The zero value is not usable; start from DefaultConfig.
type Config struct {
	EngineVersion int

	// Decay accrues only between ActiveStart and ActiveEnd each day, in Location.
	// ActiveStart is also the sleep cutoff.
	ActiveStart        Clock
	ActiveEnd          Clock
	Location           *time.Location
	DecayPerActiveHour float64

	Points Points

	SleepThreshold   time.Duration
	LevelTrigger     float64
	LevelSpan        float64
	MaxSettledHealth float64
	MaxHealth        float64
	CoinsPerLevel    int
	StartingCoins    int
	StartingHealth   float64
	BurnoutHealth    float64
	MaxDailyKindness int
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		EngineVersion:      EngineVersion,
		ActiveStart:        Clock{Hour: 6, Minute: 30},
		ActiveEnd:          Clock{Hour: 21, Minute: 0},
		Location:           time.Local,
		DecayPerActiveHour: 50.0 / 29.0,
		Points: Points{
			MorningPrayer: 6,
			EveningPrayer: 6,
			Scripture:     8,
			Service:       3,
			Kindness:      3,
			Church:        12,
			Mutual:        10,
			Temple:        15,
			Badge:         5,
			SleepBonus:    8,
			SleepPenalty:  8,
		},
		SleepThreshold:   6 * time.Hour,
		LevelTrigger:     98,
		LevelSpan:        100,
		MaxSettledHealth: 97,
		MaxHealth:        200,
		CoinsPerLevel:    15,
		StartingCoins:    30,
		StartingHealth:   50,
		BurnoutHealth:    50,
		MaxDailyKindness: 5,
	}
}

// Validate reports configuration that would break engine invariants.
func (c Config) Validate() error {
	var errs []error
	if c.Location == nil {
		errs = append(errs, errors.New("location is required"))
	}
	if c.ActiveStart.minutes() >= c.ActiveEnd.minutes() {
		errs = append(errs, fmt.Errorf("active window %s-%s is empty", c.ActiveStart, c.ActiveEnd))
	}
	if c.ActiveStart.Hour < 0 || c.ActiveEnd.Hour > 23 || c.ActiveStart.Minute < 0 || c.ActiveEnd.Minute > 59 {
		errs = append(errs, errors.New("active window out of range"))
	}
	if c.DecayPerActiveHour < 0 {
		errs = append(errs, errors.New("decay per active hour must be >= 0"))
	}
	if c.LevelTrigger <= 0 || c.LevelTrigger > c.MaxHealth {
		errs = append(errs, fmt.Errorf("level trigger %v outside (0, %v]", c.LevelTrigger, c.MaxHealth))
	}
	if c.LevelSpan <= 0 {
		errs = append(errs, errors.New("level span must be > 0"))
	}
	if c.MaxSettledHealth >= c.LevelTrigger {
		errs = append(errs, errors.New("max settled health must be below the level trigger"))
	}
	if c.StartingHealth < 0 || c.StartingHealth >= c.LevelTrigger {
		errs = append(errs, errors.New("starting health must be in [0, level trigger)"))
	}
	if c.BurnoutHealth <= 0 || c.BurnoutHealth >= c.LevelTrigger {
		errs = append(errs, errors.New("burnout health must be in (0, level trigger)"))
	}
	if c.StartingCoins < 0 || c.CoinsPerLevel < 0 {
		errs = append(errs, errors.New("coin amounts must be >= 0"))
	}
	if c.MaxDailyKindness < 0 {
		errs = append(errs, errors.New("max daily kindness must be >= 0"))
	}
	if c.SleepThreshold <= 0 {
		errs = append(errs, errors.New("sleep threshold must be > 0"))
	}
	return errors.Join(errs...)
}

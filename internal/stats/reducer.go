package stats

import (
	"fmt"
	"math"
	"time"
)

// Result is the outcome of one dispatch.
type Result struct {
	State State
	// Applied is false when a guard turned the action into a no-op
	// (already logged this period, insufficient coins, no open session...).
	// Time still advances either way.
	Applied bool
}

// Engine applies actions to states under a fixed Config.
type Engine struct {
	cfg Config
}

// NewEngine returns an Engine for cfg.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// NewState returns fresh defaults anchored at now.
func (e *Engine) NewState(now time.Time) State {
	return NewState(e.cfg, now)
}

// Advance catches s up to now without applying any action.
func (e *Engine) Advance(s State, now time.Time) State {
	next := AdvanceTime(e.cfg, s.Clone(), now)
	mustBeValid(e.cfg, next)
	return next
}

// Dispatch advances s to now and then applies a. The input state is never
// modified. Repeating a once-per-period action is a silent no-op.
func (e *Engine) Dispatch(s State, a Action, now time.Time) Result {
	if a.Type == ActionResetAll {
		return Result{State: NewState(e.cfg, now), Applied: true}
	}

	next := AdvanceTime(e.cfg, s.Clone(), now)
	if err := a.Validate(); err != nil {
		mustBeValid(e.cfg, next)
		return Result{State: next}
	}

	next, applied := e.apply(next, a, now)
	mustBeValid(e.cfg, next)
	return Result{State: next, Applied: applied}
}

func (e *Engine) apply(s State, a Action, now time.Time) (State, bool) {
	cfg := e.cfg
	dk := DayKeyFor(now)
	wk := WeekKeyFor(now)
	day := s.ByDay[dk]
	week := s.ByWeek[wk]

	switch a.Type {
	case ActionLogMorningPrayer:
		if day.MorningPrayer {
			return s, false
		}
		day.MorningPrayer = true
		s.ByDay[dk] = day
		s.Streaks.MorningPrayer++
		return ApplyPoints(cfg, s, cfg.Points.MorningPrayer), true

	case ActionLogEveningPrayer:
		if day.EveningPrayer {
			return s, false
		}
		day.EveningPrayer = true
		s.ByDay[dk] = day
		s.Streaks.EveningPrayer++
		return ApplyPoints(cfg, s, cfg.Points.EveningPrayer), true

	case ActionLogScripture:
		if day.Scripture {
			return s, false
		}
		day.Scripture = true
		s.ByDay[dk] = day
		s.Streaks.Scripture++
		return ApplyPoints(cfg, s, cfg.Points.Scripture), true

	case ActionLogService, ActionLogKindness:
		if day.KindnessCount >= cfg.MaxDailyKindness {
			return s, false
		}
		day.KindnessCount++
		s.ByDay[dk] = day
		pts := cfg.Points.Service
		if a.Type == ActionLogKindness {
			pts = cfg.Points.Kindness
		}
		return ApplyPoints(cfg, s, pts), true

	case ActionLogWeekly:
		if week.Get(a.Kind) {
			return s, false
		}
		week.set(a.Kind)
		s.ByWeek[wk] = week
		return ApplyPoints(cfg, s, cfg.Points.Weekly(a.Kind)), true

	case ActionGrantBadge:
		if s.HasBadge(a.Badge) {
			return s, false
		}
		s.Badges = append(s.Badges, a.Badge)
		return ApplyPoints(cfg, s, cfg.Points.Badge), true

	case ActionSpendCoins:
		if s.Coins < a.Amount {
			return s, false
		}
		s.Coins -= a.Amount
		return s, true

	case ActionStartSleep:
		if s.Sleep.Open() {
			return s, false
		}
		s.Sleep.CurrentStart = now
		return s, true

	case ActionEndSleep:
		if !s.Sleep.Open() {
			return s, false
		}
		return closeSleep(cfg, s, now), true

	default:
		return s, false
	}
}

// mustBeValid panics on states no sequence of actions can legally produce.
func mustBeValid(cfg Config, s State) {
	switch {
	case math.IsNaN(s.Health) || s.Health < 0 || s.Health > cfg.MaxHealth:
		panic(fmt.Sprintf("stats: health %v out of range", s.Health))
	case s.Health >= cfg.LevelTrigger:
		panic(fmt.Sprintf("stats: health %v left unsettled", s.Health))
	case s.SkillLevel < 0:
		panic(fmt.Sprintf("stats: negative skill level %d", s.SkillLevel))
	case s.Coins < 0:
		panic(fmt.Sprintf("stats: negative coins %d", s.Coins))
	case s.LastEvaluatedAt.Before(s.CreatedAt):
		panic("stats: lastEvaluatedAt precedes createdAt")
	}
}

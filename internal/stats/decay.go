package stats

import "time"

// ActiveOverlap returns how much of [start, end) falls inside the daily
// active window, summed across every calendar day the interval touches.
// end <= start yields zero.
func ActiveOverlap(cfg Config, start, end time.Time) time.Duration {
	if !end.After(start) {
		return 0
	}

	loc := cfg.Location
	var total time.Duration
	cursor := start
	for cursor.Before(end) {
		y, m, d := cursor.In(loc).Date()
		windowStart := time.Date(y, m, d, cfg.ActiveStart.Hour, cfg.ActiveStart.Minute, 0, 0, loc)
		windowEnd := time.Date(y, m, d, cfg.ActiveEnd.Hour, cfg.ActiveEnd.Minute, 0, 0, loc)
		dayEnd := time.Date(y, m, d+1, 0, 0, 0, 0, loc)

		segmentEnd := earliest(end, dayEnd)
		overlapStart := latest(cursor, windowStart)
		overlapEnd := earliest(segmentEnd, windowEnd)
		if overlapEnd.After(overlapStart) {
			total += overlapEnd.Sub(overlapStart)
		}
		cursor = segmentEnd
	}
	return total
}

// applyDecay subtracts idle decay for [s.LastEvaluatedAt, now).
// Decay that empties health fires burnout: health resets and one level is lost.
// Burnout grants no coins and the level never drops below zero.
func applyDecay(cfg Config, s State, now time.Time) State {
	active := ActiveOverlap(cfg, s.LastEvaluatedAt, now)
	if active <= 0 {
		return s
	}

	s.Health = clamp(s.Health-active.Hours()*cfg.DecayPerActiveHour, 0, cfg.MaxHealth)
	if s.Health <= 0 {
		s.Health = cfg.BurnoutHealth
		if s.SkillLevel > 0 {
			s.SkillLevel--
		}
	}
	return s
}

// AdvanceTime catches s up to now: first resolving an overdue sleep session,
// then applying decay. LastEvaluatedAt never moves backwards, so a now that
// precedes it (clock skew) is a no-op.
func AdvanceTime(cfg Config, s State, now time.Time) State {
	if !now.After(s.LastEvaluatedAt) {
		return s
	}
	s = ResolveOpenSleep(cfg, s, now)
	s = applyDecay(cfg, s, now)
	s.LastEvaluatedAt = now
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

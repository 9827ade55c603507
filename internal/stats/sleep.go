package stats

import "time"

// SleepCutoff returns the first ActiveStart strictly after start.
// An open session auto-resolves at this instant.
func SleepCutoff(cfg Config, start time.Time) time.Time {
	sameDay := cfg.ActiveStart.On(start, cfg.Location)
	if start.Before(sameDay) {
		return sameDay
	}
	y, m, d := start.In(cfg.Location).Date()
	return time.Date(y, m, d+1, cfg.ActiveStart.Hour, cfg.ActiveStart.Minute, 0, 0, cfg.Location)
}

// ResolveOpenSleep closes an open session in arrears: only once now has
// reached the session's cutoff, and always ending it at the cutoff.
func ResolveOpenSleep(cfg Config, s State, now time.Time) State {
	if !s.Sleep.Open() {
		return s
	}
	cutoff := SleepCutoff(cfg, s.Sleep.CurrentStart)
	if now.Before(cutoff) {
		return s
	}
	return closeSleep(cfg, s, cutoff)
}

// closeSleep ends the open session at end and settles the reward or penalty.
func closeSleep(cfg Config, s State, end time.Time) State {
	duration := end.Sub(s.Sleep.CurrentStart)
	if duration < 0 {
		duration = 0
	}
	endKey := DayKeyFor(end)

	s = s.Clone()
	s.Sleep = SleepState{
		LastSessionDuration: duration,
		LastSessionDayKey:   endKey,
	}

	if duration >= cfg.SleepThreshold {
		day := s.ByDay[endKey]
		day.SleepAwardApplied = true
		s.ByDay[endKey] = day
		return ApplyPoints(cfg, s, cfg.Points.SleepBonus)
	}
	return ApplyPoints(cfg, s, -cfg.Points.SleepPenalty)
}

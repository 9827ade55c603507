package stats

import (
	"testing"
	"time"
)

func TestSleepCutoff(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		name  string
		start time.Time
		want  time.Time
	}{
		{"evening start", at(5, 22, 0), at(6, 6, 30)},
		{"after midnight", at(6, 1, 0), at(6, 6, 30)},
		{"one minute before cutoff", at(6, 6, 29), at(6, 6, 30)},
		{"exactly at cutoff", at(6, 6, 30), at(7, 6, 30)},
		{"afternoon nap", at(6, 14, 0), at(7, 6, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SleepCutoff(cfg, tt.start); !got.Equal(tt.want) {
				t.Errorf("SleepCutoff(%v) = %v, want %v", tt.start, got, tt.want)
			}
		})
	}
}

func TestSleepResolvesOnlyInArrears(t *testing.T) {
	cfg := testConfig()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}

	s := e.NewState(at(5, 22, 0))
	res := e.Dispatch(s, Action{Type: ActionStartSleep}, at(5, 22, 0))
	if !res.Applied {
		t.Fatal("StartSleep not applied")
	}
	s = res.State

	// Before the 06:30 cutoff the session stays open.
	s = e.Advance(s, at(6, 5, 0))
	if !s.Sleep.Open() {
		t.Fatal("session closed before cutoff")
	}
	if s.Health != 50 {
		t.Errorf("health = %v, want 50", s.Health)
	}

	// Past the cutoff it closes at the cutoff, not at now.
	s = e.Advance(s, at(6, 7, 0))
	if s.Sleep.Open() {
		t.Fatal("session still open after cutoff")
	}
	if s.Sleep.LastSessionDuration != 8*time.Hour+30*time.Minute {
		t.Errorf("duration = %v, want 8h30m", s.Sleep.LastSessionDuration)
	}
	if s.Sleep.LastSessionDayKey != "2026-01-06" {
		t.Errorf("day key = %q, want 2026-01-06", s.Sleep.LastSessionDayKey)
	}
	if !s.Day("2026-01-06").SleepAwardApplied {
		t.Error("sleep award not recorded on cutoff day")
	}

	// Bonus of 8, then half an active hour of decay from 06:30 to 07:00.
	want := 50 + cfg.Points.SleepBonus - 0.5*cfg.DecayPerActiveHour
	if !approxEqual(s.Health, want) {
		t.Errorf("health = %v, want %v", s.Health, want)
	}
}

func TestShortAutoResolvedSleepIsPenalized(t *testing.T) {
	cfg := testConfig()
	s := NewState(cfg, at(6, 3, 0))
	s.Sleep.CurrentStart = at(6, 3, 0)

	next := ResolveOpenSleep(cfg, s, at(6, 6, 30))
	if next.Sleep.Open() {
		t.Fatal("session should resolve at cutoff")
	}
	if next.Sleep.LastSessionDuration != 3*time.Hour+30*time.Minute {
		t.Errorf("duration = %v", next.Sleep.LastSessionDuration)
	}
	if next.Health != 50-cfg.Points.SleepPenalty {
		t.Errorf("health = %v, want %v", next.Health, 50-cfg.Points.SleepPenalty)
	}
	if next.Day("2026-01-06").SleepAwardApplied {
		t.Error("penalized session must not record an award")
	}
}

func TestResolveOpenSleepDoesNotMutateInput(t *testing.T) {
	cfg := testConfig()
	s := NewState(cfg, at(5, 22, 0))
	s.Sleep.CurrentStart = at(5, 22, 0)

	_ = ResolveOpenSleep(cfg, s, at(6, 12, 0))
	if !s.Sleep.Open() {
		t.Error("input session was closed")
	}
	if len(s.ByDay) != 0 {
		t.Errorf("input byDay mutated: %v", s.ByDay)
	}
}

func TestEndSleepExplicit(t *testing.T) {
	cfg := testConfig()
	e, _ := NewEngine(cfg)

	tests := []struct {
		name       string
		end        time.Time
		wantHealth float64
		wantAward  bool
	}{
		{"long enough", at(6, 5, 0), 50 + cfg.Points.SleepBonus, true},
		{"exactly threshold", at(6, 4, 0), 50 + cfg.Points.SleepBonus, true},
		{"too short", at(6, 1, 0), 50 - cfg.Points.SleepPenalty, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := e.Dispatch(e.NewState(at(5, 22, 0)), Action{Type: ActionStartSleep}, at(5, 22, 0)).State
			res := e.Dispatch(s, Action{Type: ActionEndSleep}, tt.end)
			if !res.Applied {
				t.Fatal("EndSleep not applied")
			}
			if res.State.Sleep.Open() {
				t.Error("session still open")
			}
			if res.State.Sleep.LastSessionDuration != tt.end.Sub(at(5, 22, 0)) {
				t.Errorf("duration = %v", res.State.Sleep.LastSessionDuration)
			}
			if res.State.Health != tt.wantHealth {
				t.Errorf("health = %v, want %v", res.State.Health, tt.wantHealth)
			}
			if got := res.State.Day(DayKeyFor(tt.end)).SleepAwardApplied; got != tt.wantAward {
				t.Errorf("award = %v, want %v", got, tt.wantAward)
			}
		})
	}
}

func TestSleepGuards(t *testing.T) {
	e, _ := NewEngine(testConfig())
	s := e.NewState(at(5, 22, 0))

	if res := e.Dispatch(s, Action{Type: ActionEndSleep}, at(5, 22, 0)); res.Applied {
		t.Error("EndSleep without open session should be a no-op")
	}

	s = e.Dispatch(s, Action{Type: ActionStartSleep}, at(5, 22, 0)).State
	res := e.Dispatch(s, Action{Type: ActionStartSleep}, at(5, 23, 0))
	if res.Applied {
		t.Error("second StartSleep should be a no-op")
	}
	if !res.State.Sleep.CurrentStart.Equal(at(5, 22, 0)) {
		t.Errorf("currentStart moved to %v", res.State.Sleep.CurrentStart)
	}

	s = e.Dispatch(res.State, Action{Type: ActionEndSleep}, at(6, 5, 0)).State
	res = e.Dispatch(s, Action{Type: ActionEndSleep}, at(6, 5, 1))
	if res.Applied {
		t.Error("re-dispatched EndSleep should be a no-op")
	}
	if res.State.Health != s.Health {
		t.Errorf("health changed on no-op EndSleep: %v -> %v", s.Health, res.State.Health)
	}
}

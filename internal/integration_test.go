package internal

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/habit-tracker/internal/dispatch"
	"github.com/sweeney/habit-tracker/internal/logger"
	"github.com/sweeney/habit-tracker/internal/mqtt"
	"github.com/sweeney/habit-tracker/internal/stats"
	"github.com/sweeney/habit-tracker/internal/status"
	"github.com/sweeney/habit-tracker/internal/store"
	"github.com/sweeney/habit-tracker/internal/syncer"
)

var t0 = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

type rig struct {
	path      string
	cfg       stats.Config
	disp      *dispatch.Dispatcher
	st        *store.Store
	publisher *mqtt.FakePublisher
	tracker   *status.Tracker
	snapshots *syncer.Syncer
	outcomes  <-chan dispatch.Outcome
}

func newRig(t *testing.T, path string) *rig {
	t.Helper()
	cfg := stats.DefaultConfig()
	cfg.Location = time.UTC

	db, err := store.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st := store.New(db, "dt.stats.v9", cfg)
	t.Cleanup(func() { st.Close() })

	engine, err := stats.NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}
	lg := logger.NewNop()
	disp, err := dispatch.New(context.Background(), engine, st, lg, t0)
	if err != nil {
		t.Fatal(err)
	}
	publisher := mqtt.NewFakePublisher()
	outcomes, cancel := disp.Subscribe(64)
	t.Cleanup(cancel)

	return &rig{
		path:      path,
		cfg:       cfg,
		disp:      disp,
		st:        st,
		publisher: publisher,
		tracker:   status.NewTracker(t0, status.Config{UserID: "u1", LevelTrigger: cfg.LevelTrigger}),
		snapshots: syncer.New("u1", syncer.MQTTUploader{Publisher: publisher}, syncer.MinInterval, lg),
		outcomes:  outcomes,
	}
}

// pump forwards queued outcomes the way the daemon loop does.
func (r *rig) pump(t *testing.T) {
	t.Helper()
	for {
		select {
		case out := <-r.outcomes:
			r.tracker.Update(out.State)
			if out.Action.Type != "" {
				r.tracker.RecordAction(out.Applied)
			}
			r.tracker.RecordEvents(out.Events)
			for _, ev := range out.Events {
				if err := r.publisher.PublishEvent(ev); err != nil {
					t.Logf("publish error: %v", err)
				}
			}
			r.snapshots.Offer(context.Background(), out.State, out.At)
		default:
			return
		}
	}
}

// logFullWeek logs enough at t0 to cross the level trigger once:
// 50 +6 +6 +8 +12 +10 +15 = 107, settling to level 1 with 9 health.
func logFullWeek(r *rig) {
	ctx := context.Background()
	for _, a := range []stats.Action{
		{Type: stats.ActionLogMorningPrayer},
		{Type: stats.ActionLogEveningPrayer},
		{Type: stats.ActionLogScripture},
		stats.LogWeekly(stats.WeeklyChurch),
		stats.LogWeekly(stats.WeeklyMutual),
		stats.LogWeekly(stats.WeeklyTemple),
	} {
		r.disp.Dispatch(ctx, a, t0)
	}
}

// TestIntegrationFullFlow runs actions through the dispatcher, SQLite store
// and MQTT fake.
func TestIntegrationFullFlow(t *testing.T) {
	r := newRig(t, filepath.Join(t.TempDir(), "habits.db"))
	logFullWeek(r)
	r.disp.Dispatch(context.Background(), stats.GrantBadge("faithful"), t0)
	r.pump(t)

	events := r.publisher.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != stats.EventLevelUp || events[0].SkillLevel != 1 {
		t.Errorf("event 0 = %+v, want LEVEL_UP at level 1", events[0])
	}
	if events[1].Type != stats.EventBadgeEarned {
		t.Errorf("event 1 = %+v, want BADGE_EARNED", events[1])
	}
	if events[0].ID == "" || events[0].ID == events[1].ID {
		t.Errorf("event ids not unique: %q %q", events[0].ID, events[1].ID)
	}

	s := r.disp.State()
	if s.SkillLevel != 1 || s.Coins != 45 {
		t.Errorf("level/coins = %d/%d, want 1/45", s.SkillLevel, s.Coins)
	}
	if s.Health < 13.999 || s.Health > 14.001 {
		t.Errorf("health = %v, want 14 (9 settled + 5 badge)", s.Health)
	}

	snap := r.tracker.Snapshot()
	if snap.Counts.Applied != 7 || snap.Counts.LevelUps != 1 || snap.Counts.Badges != 1 {
		t.Errorf("counts = %+v", snap.Counts)
	}
}

func TestIntegrationStatePersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "habits.db")
	r := newRig(t, path)
	logFullWeek(r)
	want := r.disp.State()
	if err := r.st.Close(); err != nil {
		t.Fatal(err)
	}

	r2 := newRig(t, path)
	got := r2.disp.State()
	if got.SkillLevel != want.SkillLevel || got.Coins != want.Coins || got.Health != want.Health {
		t.Errorf("reloaded = level %d coins %d health %v, want %d %d %v",
			got.SkillLevel, got.Coins, got.Health, want.SkillLevel, want.Coins, want.Health)
	}
	if !got.Week(stats.WeekKeyFor(t0)).Temple {
		t.Error("weekly flags not persisted")
	}

	// Flags survive, so repeating the week is a no-op.
	out := r2.disp.Dispatch(context.Background(), stats.LogWeekly(stats.WeeklyTemple), t0)
	if out.Applied {
		t.Error("temple logged twice in one week")
	}

	recent, err := r2.st.RecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].Type != stats.EventLevelUp {
		t.Errorf("recent events = %+v", recent)
	}
}

func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	r := newRig(t, filepath.Join(t.TempDir(), "habits.db"))
	r.publisher.FailEvents(errors.New("broker down"))
	logFullWeek(r)
	r.pump(t)

	if len(r.publisher.Events()) != 0 {
		t.Error("no events should be recorded when publishing fails")
	}
	if r.tracker.Snapshot().Counts.LevelUps != 1 {
		t.Error("tracker should still count the level-up")
	}
	if r.disp.State().SkillLevel != 1 {
		t.Error("state should not depend on MQTT")
	}
}

func TestIntegrationEventPayloadFormat(t *testing.T) {
	r := newRig(t, filepath.Join(t.TempDir(), "habits.db"))
	logFullWeek(r)
	r.pump(t)

	events := r.publisher.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	payload, err := mqtt.FormatEventPayload(events[0])
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Event struct {
			Type       string `json:"type"`
			Message    string `json:"message"`
			SkillLevel int    `json:"skill_level"`
		} `json:"event"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("invalid JSON %s: %v", payload, err)
	}
	if decoded.Event.Type != "LEVEL_UP" || decoded.Event.SkillLevel != 1 {
		t.Errorf("payload = %s", payload)
	}
	if decoded.Event.Message != "Your mastery deepens!" {
		t.Errorf("message = %q", decoded.Event.Message)
	}
}

func TestIntegrationSnapshotUpload(t *testing.T) {
	r := newRig(t, filepath.Join(t.TempDir(), "habits.db"))
	logFullWeek(r)
	r.pump(t)

	// Only the first outcome uploads; the rest wait for the throttle.
	snaps := r.publisher.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot inside the throttle window, got %d", len(snaps))
	}
	if !r.snapshots.Pending() {
		t.Fatal("later states should be pending")
	}
	if !r.snapshots.Flush(context.Background(), t0.Add(syncer.MinInterval)) {
		t.Fatal("flush after the interval should upload")
	}
	snaps = r.publisher.Snapshots()
	last := snaps[len(snaps)-1]
	if last.State.SkillLevel != 1 || last.UserID != "u1" {
		t.Errorf("last snapshot = level %d user %q", last.State.SkillLevel, last.UserID)
	}

	payload, err := mqtt.FormatSnapshotPayload(last.UserID, last.State, last.At)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(payload), `"user_id":"u1"`) {
		t.Errorf("snapshot payload = %s", payload)
	}
}

func TestIntegrationStatusAfterActions(t *testing.T) {
	r := newRig(t, filepath.Join(t.TempDir(), "habits.db"))
	logFullWeek(r)
	r.pump(t)

	payload := status.FormatStatusEvent(r.tracker.Snapshot(), "HEARTBEAT", "")
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, want := range []string{`"event":"HEARTBEAT"`, `"skill_level":1`, `"coins":45`} {
		if !strings.Contains(string(payload), want) {
			t.Errorf("status payload missing %s: %s", want, payload)
		}
	}
}

func TestIntegrationSleepAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "habits.db")
	night := time.Date(2026, 1, 5, 22, 30, 0, 0, time.UTC)

	r := newRig(t, path)
	r.disp.Advance(context.Background(), night)
	if out := r.disp.Dispatch(context.Background(), stats.Action{Type: stats.ActionStartSleep}, night); !out.Applied {
		t.Fatal("start sleep not applied")
	}
	r.st.Close()

	// The daemon was down all night; the open session is still there.
	r2 := newRig(t, path)
	if !r2.disp.State().Sleep.Open() {
		t.Fatal("open sleep session lost across restart")
	}
	morning := time.Date(2026, 1, 6, 6, 0, 0, 0, time.UTC)
	out := r2.disp.Dispatch(context.Background(), stats.Action{Type: stats.ActionEndSleep}, morning)
	if !out.Applied {
		t.Fatal("end sleep not applied")
	}
	if got := out.State.Sleep.LastSessionDuration; got != 7*time.Hour+30*time.Minute {
		t.Errorf("session = %v, want 7h30m", got)
	}
}

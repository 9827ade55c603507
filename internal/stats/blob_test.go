package stats

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

// A blob as written by the mobile app.
const appBlob = `{
  "version": 9,
  "createdAt": 1767600000000,
  "lastCalcAt": 1767628800000,
  "health": 61.5,
  "skillLevel": 2,
  "coins": 45,
  "badges": ["first-light", "first-light", "scholar"],
  "byDay": {"2026-01-05": {"morningPrayer": true, "eveningPrayer": false, "scripture": true, "services": 3, "sleepAwardApplied": false}},
  "byWeek": {"2026-W02": {"church": true, "mutual": false, "temple": false}},
  "sleep": {"lastSessionMs": 27000000, "lastSessionDayKey": "2026-01-05"},
  "streaks": {"morningPrayer": 4, "eveningPrayer": 1, "scripture": 9}
}`

func TestDecodeAppBlob(t *testing.T) {
	s, err := DecodeBlob(testConfig(), []byte(appBlob))
	if err != nil {
		t.Fatalf("DecodeBlob: %v", err)
	}
	if !s.CreatedAt.Equal(time.UnixMilli(1767600000000)) {
		t.Errorf("createdAt = %v", s.CreatedAt)
	}
	if !s.LastEvaluatedAt.Equal(time.UnixMilli(1767628800000)) {
		t.Errorf("lastEvaluatedAt = %v", s.LastEvaluatedAt)
	}
	if s.Health != 61.5 || s.SkillLevel != 2 || s.Coins != 45 {
		t.Errorf("h=%v l=%d c=%d", s.Health, s.SkillLevel, s.Coins)
	}
	if !reflect.DeepEqual(s.Badges, []string{"first-light", "scholar"}) {
		t.Errorf("badges = %v", s.Badges)
	}
	day := s.Day("2026-01-05")
	if !day.MorningPrayer || day.EveningPrayer || !day.Scripture || day.KindnessCount != 3 {
		t.Errorf("day = %+v", day)
	}
	if !s.Week("2026-W02").Church {
		t.Errorf("week = %+v", s.Week("2026-W02"))
	}
	if s.Sleep.Open() {
		t.Error("sleep should be closed")
	}
	if s.Sleep.LastSessionDuration != 7*time.Hour+30*time.Minute {
		t.Errorf("last session = %v", s.Sleep.LastSessionDuration)
	}
	if s.Streaks != (Streaks{MorningPrayer: 4, EveningPrayer: 1, Scripture: 9}) {
		t.Errorf("streaks = %+v", s.Streaks)
	}
}

func TestEncodeBlobFieldNames(t *testing.T) {
	e := newTestEngine(t)
	now := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	s := e.Dispatch(e.NewState(now), Action{Type: ActionLogKindness}, now).State
	s = e.Dispatch(s, Action{Type: ActionStartSleep}, now).State

	data, err := EncodeBlob(s)
	if err != nil {
		t.Fatalf("EncodeBlob: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"version", "createdAt", "lastCalcAt", "health", "skillLevel", "coins", "badges", "byDay", "byWeek", "sleep", "streaks"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if raw["lastCalcAt"].(float64) != float64(now.UnixMilli()) {
		t.Errorf("lastCalcAt = %v, want epoch millis", raw["lastCalcAt"])
	}
	if !strings.Contains(string(data), `"services":1`) {
		t.Errorf("kindness count not written as services: %s", data)
	}
	if !strings.Contains(string(data), `"currentStart":`) {
		t.Errorf("open session not written: %s", data)
	}

	back, err := DecodeBlob(e.Config(), data)
	if err != nil {
		t.Fatalf("DecodeBlob: %v", err)
	}
	if !reflect.DeepEqual(back, s) {
		t.Errorf("decoded state differs:\n got=%+v\nwant=%+v", back, s)
	}
}

func TestDecodeBlobRejects(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		name    string
		blob    string
		wantErr error
	}{
		{"not json", `{"version":`, ErrMalformed},
		{"old version", `{"version":7,"createdAt":1,"lastCalcAt":1,"health":50}`, ErrVersionMismatch},
		{"missing version", `{"createdAt":1,"lastCalcAt":1,"health":50}`, ErrVersionMismatch},
		{"missing health", `{"version":9,"createdAt":1,"lastCalcAt":1}`, ErrMalformed},
		{"missing createdAt", `{"version":9,"lastCalcAt":1,"health":50}`, ErrMalformed},
		{"health unsettled", `{"version":9,"createdAt":1,"lastCalcAt":1,"health":120}`, ErrMalformed},
		{"negative health", `{"version":9,"createdAt":1,"lastCalcAt":1,"health":-1}`, ErrMalformed},
		{"negative coins", `{"version":9,"createdAt":1,"lastCalcAt":1,"health":50,"coins":-3}`, ErrMalformed},
		{"time runs backwards", `{"version":9,"createdAt":10,"lastCalcAt":5,"health":50}`, ErrMalformed},
		{"wrong field type", `{"version":9,"createdAt":1,"lastCalcAt":1,"health":"full"}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBlob(cfg, []byte(tt.blob))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeBlobMissingMapsAreEmpty(t *testing.T) {
	s, err := DecodeBlob(testConfig(), []byte(`{"version":9,"createdAt":1,"lastCalcAt":1,"health":50}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.ByDay == nil || s.ByWeek == nil || s.Badges == nil {
		t.Error("decoded state should have non-nil collections")
	}
}

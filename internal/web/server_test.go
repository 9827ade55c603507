package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/habit-tracker/internal/dispatch"
	"github.com/sweeney/habit-tracker/internal/logger"
	"github.com/sweeney/habit-tracker/internal/stats"
	"github.com/sweeney/habit-tracker/internal/status"
	"github.com/sweeney/habit-tracker/internal/store"
)

var t0 = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

type testEnv struct {
	ts      *httptest.Server
	srv     *Server
	tracker *status.Tracker
	disp    *dispatch.Dispatcher
}

func newTestServer(t *testing.T) testEnv {
	t.Helper()
	cfg := stats.DefaultConfig()
	cfg.Location = time.UTC
	e, err := stats.NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}
	st := store.New(store.NewMemory(), "dt.stats.v9", cfg)
	d, err := dispatch.New(context.Background(), e, st, logger.NewNop(), t0)
	if err != nil {
		t.Fatal(err)
	}

	tr := status.NewTracker(t0, status.Config{
		UserID:       "u-1",
		Store:        "memory",
		Broker:       "tcp://192.168.1.200:1883",
		HTTPAddr:     ":8080",
		HeartbeatMs:  900000,
		LevelTrigger: cfg.LevelTrigger,
	})
	tr.Update(d.State())

	srv := New(":0", tr, d, logger.NewNop())
	srv.now = func() time.Time { return t0 }
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return testEnv{ts: ts, srv: srv, tracker: tr, disp: d}
}

func postJSON(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, []byte(buf.String())
}

func TestJSONEndpoint(t *testing.T) {
	env := newTestServer(t)
	env.tracker.SetMQTTConnected(true)

	resp, err := http.Get(env.ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if !sj.Status.Ready || sj.Status.Stats == nil {
		t.Fatal("expected stats block")
	}
	if sj.Status.Stats.Coins != 30 || sj.Status.Stats.Health != 50 {
		t.Errorf("stats = %+v", sj.Status.Stats)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Config.UserID != "u-1" {
		t.Errorf("Config.UserID: got %q", sj.Status.Config.UserID)
	}
}

func TestIndexPage(t *testing.T) {
	env := newTestServer(t)

	for _, path := range []string{"/", "/index.html"} {
		resp, err := http.Get(env.ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != 200 {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s: Content-Type %q", path, ct)
		}
		body := buf.String()
		for _, want := range []string{"Habit Tracker", "Morning prayer", "tcp://192.168.1.200:1883", "Temple"} {
			if !strings.Contains(body, want) {
				t.Errorf("%s: body missing %q", path, want)
			}
		}
	}
}

func TestUnknownPathIs404(t *testing.T) {
	env := newTestServer(t)
	resp, err := http.Get(env.ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestPostAction(t *testing.T) {
	env := newTestServer(t)

	resp, body := postJSON(t, env.ts.URL+"/api/actions", `{"type":"LOG_WEEKLY","kind":"temple"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}

	var oj OutcomeJSON
	if err := json.Unmarshal(body, &oj); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !oj.Applied || oj.Action == nil || oj.Action.Kind != stats.WeeklyTemple {
		t.Errorf("outcome = %+v", oj)
	}
	s, err := stats.DecodeBlob(env.disp.Config(), oj.State)
	if err != nil {
		t.Fatalf("state blob: %v", err)
	}
	if s.Health != 65 {
		t.Errorf("health = %v, want 65", s.Health)
	}

	// Logging the same weekly action again is a no-op, not an error.
	resp, body = postJSON(t, env.ts.URL+"/api/actions", `{"type":"LOG_WEEKLY","kind":"temple"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	json.Unmarshal(body, &oj)
	if oj.Applied {
		t.Error("repeat weekly action should not apply")
	}
}

func TestPostActionLevelUpEvents(t *testing.T) {
	env := newTestServer(t)
	for _, body := range []string{
		`{"type":"LOG_SCRIPTURE"}`,
		`{"type":"LOG_WEEKLY","kind":"temple"}`,
		`{"type":"LOG_WEEKLY","kind":"church"}`,
		`{"type":"LOG_MORNING_PRAYER"}`,
		`{"type":"LOG_EVENING_PRAYER"}`,
	} {
		postJSON(t, env.ts.URL+"/api/actions", body)
	}

	_, body := postJSON(t, env.ts.URL+"/api/actions", `{"type":"GRANT_BADGE","badge":"scholar"}`)
	var oj OutcomeJSON
	if err := json.Unmarshal(body, &oj); err != nil {
		t.Fatal(err)
	}
	if len(oj.Events) != 2 {
		t.Fatalf("events = %+v", oj.Events)
	}
	if oj.Events[0].Message != "A rare badge has been bestowed!" || oj.Events[1].Message != "Your mastery deepens!" {
		t.Errorf("messages = %q, %q", oj.Events[0].Message, oj.Events[1].Message)
	}
	if oj.Events[1].SkillLevel != 1 {
		t.Errorf("skill level = %d", oj.Events[1].SkillLevel)
	}
}

func TestPostActionRejectsBadInput(t *testing.T) {
	env := newTestServer(t)
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"type":`, http.StatusBadRequest},
		{"unknown type", `{"type":"LOG_JUGGLING"}`, http.StatusBadRequest},
		{"bad weekly kind", `{"type":"LOG_WEEKLY","kind":"picnic"}`, http.StatusUnprocessableEntity},
		{"empty badge", `{"type":"GRANT_BADGE","badge":"  "}`, http.StatusUnprocessableEntity},
		{"non-positive spend", `{"type":"SPEND_COINS","amount":0}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, env.ts.URL+"/api/actions", tt.body)
			if resp.StatusCode != tt.code {
				t.Errorf("status: got %d, want %d (%s)", resp.StatusCode, tt.code, body)
			}
			var ej ErrorJSON
			if err := json.Unmarshal(body, &ej); err != nil || ej.Error == "" {
				t.Errorf("error body = %s", body)
			}
		})
	}
	if got := env.disp.State().Coins; got != 30 {
		t.Errorf("rejected requests changed state: coins = %d", got)
	}
}

func TestPostActivity(t *testing.T) {
	env := newTestServer(t)

	resp, body := postJSON(t, env.ts.URL+"/api/activities/SCRIPTURE_STUDY", "")
	if resp.StatusCode != 200 {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var oj OutcomeJSON
	json.Unmarshal(body, &oj)
	if !oj.Applied || oj.Action.Type != stats.ActionLogScripture {
		t.Errorf("outcome = %+v", oj)
	}

	resp, _ = postJSON(t, env.ts.URL+"/api/activities/juggling", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown activity: got %d, want 404", resp.StatusCode)
	}
}

func TestGetOnActionEndpointIsNotFound(t *testing.T) {
	env := newTestServer(t)
	resp, err := http.Get(env.ts.URL + "/api/actions")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode == 200 {
		t.Error("GET should not dispatch")
	}
}

func TestWebsocketUnavailableBeforeRun(t *testing.T) {
	env := newTestServer(t)
	resp, err := http.Get(env.ts.URL + "/ws")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", resp.StatusCode)
	}
}

func TestWebsocketStreamsOutcomes(t *testing.T) {
	env := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.srv.Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws"
	var conn *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err == nil {
			conn = c
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer conn.Close()

	// Registration is asynchronous; keep dispatching until a message lands.
	got := make(chan OutcomeJSON, 1)
	go func() {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var oj OutcomeJSON
		if err := json.Unmarshal([]byte(strings.SplitN(string(data), "\n", 2)[0]), &oj); err == nil {
			got <- oj
		}
	}()

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case oj := <-got:
			if oj.Action == nil || oj.Action.Type != stats.ActionLogKindness {
				t.Errorf("streamed outcome = %+v", oj)
			}
			return
		case <-tick.C:
			env.disp.Dispatch(context.Background(), stats.Action{Type: stats.ActionLogKindness}, t0)
		case <-timeout:
			t.Fatal("no websocket message received")
		}
	}
}

package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/habit-tracker/internal/stats"
	"github.com/sweeney/habit-tracker/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"check": func(b bool) string {
		if b {
			return "done"
		}
		return "-"
	},
	"percent": func(f float64) string {
		return fmt.Sprintf("%.0f%%", f*100)
	},
	"hours": func(d time.Duration) string {
		return fmt.Sprintf("%.1fh", d.Hours())
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Habit Tracker</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.done { color: green; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.bar { background: #eee; height: 10px; }
.bar span { display: block; height: 10px; background: #4a7; }
button { font-family: monospace; margin: 2px; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
#toast { min-height: 1.4em; color: #a60; }
</style>
</head>
<body>
<h1>Habit Tracker<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>
<p id="toast"></p>

{{if .HaveState}}
<h2>Progress</h2>
<table>
<tr><th>Level</th><td>{{.State.SkillLevel}}</td></tr>
<tr><th>Health</th><td>{{printf "%.1f" .State.Health}} ({{percent .Progress}})<div class="bar"><span style="width: {{percent .Progress}}"></span></div></td></tr>
<tr><th>Coins</th><td>{{.State.Coins}}</td></tr>
<tr><th>Badges</th><td>{{range $i, $b := .State.Badges}}{{if $i}}, {{end}}{{$b}}{{else}}none{{end}}</td></tr>
</table>

<h2>Today</h2>
<table>
<tr><th>Morning prayer</th><td class="{{check .Today.MorningPrayer}}">{{check .Today.MorningPrayer}}</td></tr>
<tr><th>Evening prayer</th><td class="{{check .Today.EveningPrayer}}">{{check .Today.EveningPrayer}}</td></tr>
<tr><th>Scripture</th><td class="{{check .Today.Scripture}}">{{check .Today.Scripture}}</td></tr>
<tr><th>Service / kindness</th><td>{{.Today.KindnessCount}}</td></tr>
</table>

<h2>This Week</h2>
<table>
<tr><th>Church</th><td class="{{check .Week.Church}}">{{check .Week.Church}}</td></tr>
<tr><th>Mutual</th><td class="{{check .Week.Mutual}}">{{check .Week.Mutual}}</td></tr>
<tr><th>Temple</th><td class="{{check .Week.Temple}}">{{check .Week.Temple}}</td></tr>
</table>

<h2>Sleep</h2>
<table>
<tr><th>Session</th><td>{{if .State.Sleep.Open}}asleep since {{.State.Sleep.CurrentStart.UTC.Format "15:04"}} UTC{{else}}awake{{end}}</td></tr>
<tr><th>Last session</th><td>{{hours .State.Sleep.LastSessionDuration}}</td></tr>
</table>

<h2>Log</h2>
<p>
{{range .Actions}}<button data-action='{{.JSON}}'>{{.Label}}</button>
{{end}}
</p>
{{else}}
<p>Loading state...</p>
{{end}}

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Store</th><td>{{.Config.Store}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Actions</th><td>{{.Counts.Applied}} applied, {{.Counts.Ignored}} ignored</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var toast = document.getElementById("toast");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  document.querySelectorAll("button[data-action]").forEach(function(b) {
    b.addEventListener("click", function() {
      fetch("/api/actions", { method: "POST", headers: { "Content-Type": "application/json" }, body: b.dataset.action });
    });
  });

  function connect() {
    var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() { setDot("err", "offline"); setTimeout(connect, 5000); };
    ws.onmessage = function(m) {
      m.data.split("\n").forEach(function(line) {
        try {
          var msg = JSON.parse(line);
          if (msg.events && msg.events.length) {
            toast.textContent = msg.events.map(function(e) { return e.message; }).join(" ");
          }
          if (msg.applied) {
            setTimeout(function() { location.reload(); }, 1500);
          }
        } catch (e) {}
      });
    };
  }
  connect();
})();
</script>
</body>
</html>
`

// actionButton is one quick-log button on the index page.
type actionButton struct {
	Label string
	JSON  string
}

var indexActions = []actionButton{
	{"Morning prayer", `{"type":"LOG_MORNING_PRAYER"}`},
	{"Evening prayer", `{"type":"LOG_EVENING_PRAYER"}`},
	{"Scripture", `{"type":"LOG_SCRIPTURE"}`},
	{"Service", `{"type":"LOG_SERVICE"}`},
	{"Kindness", `{"type":"LOG_KINDNESS"}`},
	{"Church", `{"type":"LOG_WEEKLY","kind":"church"}`},
	{"Mutual", `{"type":"LOG_WEEKLY","kind":"mutual"}`},
	{"Temple", `{"type":"LOG_WEEKLY","kind":"temple"}`},
	{"Sleep", `{"type":"START_SLEEP"}`},
	{"Wake", `{"type":"END_SLEEP"}`},
}

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Template calls need fields, not methods with computed arguments.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		Progress float64
		Today    stats.DailyFlags
		Week     stats.WeeklyFlags
		Actions  []actionButton
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Progress: snap.Progress(),
		Today:    snap.Today(),
		Week:     snap.ThisWeek(),
		Actions:  indexActions,
	}
	return indexTmpl.Execute(w, data)
}

package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/deskcycle-kb/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": formatUptime,
	"keys": func(keys []string) string {
		if len(keys) == 0 {
			return "none"
		}
		return strings.Join(keys, ", ")
	},
	"km": func(v float64) string { return fmt.Sprintf("%.3f", v) },
}).Parse(indexHTML))

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>DeskCycle Keyboard</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.active { color: green; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>DeskCycle Keyboard<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Ride</h2>
<table>
<tr><th>Device</th><td>{{if .Device}}{{.Device}}{{else}}searching{{end}}</td></tr>
<tr><th>Speed</th><td id="speed">{{printf "%.1f" .Speed}}</td></tr>
<tr><th>Distance</th><td id="distance">{{km .Distance}}</td></tr>
<tr><th>Active keys</th><td id="keys" class="{{if .ActiveKeys}}active{{else}}idle{{end}}">{{keys .ActiveKeys}}</td></tr>
<tr><th>Samples</th><td id="samples">{{.Samples}}</td></tr>
<tr><th>Bad samples</th><td id="bad-samples">{{.BadSamples}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Rules</th><td>{{.Rules}}{{if .Config.ConfigPath}} ({{.Config.ConfigPath}}){{end}}</td></tr>
<tr><th>Keyboard</th><td>{{if .Config.DryRun}}dry run{{else}}uinput{{end}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a>{{if .History}} | <a href="/rides.json">Rides</a>{{end}}</p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }
  function text(id, v) { document.getElementById(id).textContent = v; }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        text("speed", s.speed.toFixed(1));
        text("distance", s.distance.toFixed(3));
        text("samples", s.samples);
        text("bad-samples", s.bad_samples);
        var keys = document.getElementById("keys");
        keys.textContent = s.active_keys.length ? s.active_keys.join(", ") : "none";
        keys.className = s.active_keys.length ? "active" : "idle";
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, history bool) {
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		History bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		History:  history,
	}
	indexTmpl.Execute(w, data)
}

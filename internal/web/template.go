package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/keypad-panel/internal/status"
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
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Keypad Panel</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.pressed { color: green; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
#log { font-size: 0.9em; color: #444; }
</style>
</head>
<body>
<h1>Keypad Panel{{if .Live}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Panel</h2>
<table>
<tr><th>State</th><td id="state">{{orUnknown .State}}</td></tr>
<tr><th>Pressed</th><td id="pressed" class="{{if eq .Pressed.String "NONE"}}idle{{else}}pressed{{end}}">{{.Pressed}}</td></tr>
<tr><th>Elapsed</th><td id="elapsed">{{.Elapsed}}</td></tr>
<tr><th>Last event</th><td id="last-event">{{with .LastEvent}}{{.Kind}} {{.Button}}{{else}}none{{end}}</td></tr>
<tr><th>Raw sample</th><td>{{if .SampleOK}}{{.Sample}}{{else}}none{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if not .Config.Broker}}disabled{{else if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
{{if .Config.Broker}}<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}: {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>PRESS</th><td id="count-press">{{.Counts.Press}}</td></tr>
<tr><th>HOLD</th><td id="count-hold">{{.Counts.Hold}}</td></tr>
<tr><th>RELEASE</th><td id="count-release">{{.Counts.Release}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Loop</th><td>{{.Config.LoopMs}}ms</td></tr>
<tr><th>Sampling</th><td>{{.Config.SampleMs}}ms, press {{.Config.ConfirmSamples}} / hold {{.Config.HoldSamples}} / release {{.Config.ReleaseSamples}} samples</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>ADC</th><td>{{.Config.ADCDevice}}</td></tr>
<tr><th>LCD</th><td>{{.Config.LCDDriver}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Live}}
<h2>Live</h2>
<pre id="log"></pre>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var log = document.getElementById("log");
  var lines = [];

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function text(id, value) {
    document.getElementById(id).textContent = value;
  }

  function bump(id) {
    var el = document.getElementById(id);
    el.textContent = String(Number(el.textContent) + 1);
  }

  function append(line) {
    lines.unshift(line);
    lines = lines.slice(0, 20);
    log.textContent = lines.join("\n");
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(e) {
      var msg;
      try { msg = JSON.parse(e.data); } catch (err) { return; }
      var d = msg.data || {};
      switch (msg.type) {
      case "button":
        var pressed = document.getElementById("pressed");
        pressed.textContent = d.state === "UP" ? "NONE" : d.button;
        pressed.className = d.state === "UP" ? "idle" : "pressed";
        bump("count-" + d.event.toLowerCase());
        text("last-event", d.event + " " + d.button);
        append(msg.ts + " " + d.event + " " + d.button);
        break;
      case "state_changed":
        text("state", d.to);
        append(msg.ts + " " + d.from + " -> " + d.to);
        break;
      case "elapsed":
        text("elapsed", d.elapsed);
        break;
      }
    };
  }

  connect();
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, live bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Live   bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Live:     live,
	}
	indexTmpl.Execute(w, data)
}

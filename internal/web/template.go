package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/status"
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
	"reservoir": func(s logic.ReservoirStatus) string {
		return status.ReservoirOrUnknown(s)
	},
	"clock": func(c logic.Clock) string {
		if t := status.ClockText(c); t != "" {
			return t
		}
		return "not synced"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Irrigation Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.warn { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.next { font-weight: bold; }
</style>
</head>
<body>
<h1>Irrigation Controller</h1>
<p>{{with .Controller.LastStatus}}{{.}}{{else}}&nbsp;{{end}}</p>

<h2>Reservoir</h2>
<table>
<tr><th>Level</th><td>{{.Controller.Level}}%</td></tr>
<tr><th>Status</th><td class="{{if eq (reservoir .Controller.Reservoir) "OK"}}on{{else}}warn{{end}}">{{reservoir .Controller.Reservoir}}</td></tr>
<tr><th>Inlet valve</th><td>{{.Controller.Valve}}</td></tr>
</table>

<h2>Pump</h2>
<table>
<tr><th>State</th><td class="{{if eq (printf "%s" .Controller.Pump) "RUNNING"}}on{{else}}off{{end}}">{{.Controller.Pump}}</td></tr>
<tr><th>Progress</th><td>{{.Controller.Progress}}%</td></tr>
<tr><th>Duration</th><td>{{.Controller.Duration}}</td></tr>
<tr><th>Cycles started</th><td>{{.Controller.CyclesStarted}}</td></tr>
</table>

<h2>Schedule</h2>
<table>
<tr><th>Clock</th><td>{{clock .Controller.Clock}}</td></tr>
<tr><th>Interval</th><td>every {{.Controller.Interval}}h</td></tr>
<tr><th>Next cycle</th><td>{{.Controller.NextCycleHour}}:00</td></tr>
<tr><th>Cycle hours</th><td>{{range $i, $h := .Controller.Table}}{{if $i}}, {{end}}{{$h}}{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Sensor errors</th><td>{{.SensorErrors}} / {{.Ticks}} ticks</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Clock source</th><td>{{.Config.ClockSource}}</td></tr>
<tr><th>History</th><td>{{if .Config.History}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}

package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/fridge-thermostat/internal/status"
	"github.com/sweeney/fridge-thermostat/internal/trace"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"duration": formatDuration,
	"deg":      trace.FormatMdeg,
}).Parse(indexHTML))

// formatDuration renders d as "1d 2h 3m 4s", dropping leading zero units.
func formatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	units := []struct {
		size   int64
		suffix string
	}{{86400, "d"}, {3600, "h"}, {60, "m"}, {1, "s"}}

	var parts []string
	for _, u := range units {
		n := secs / u.size
		secs %= u.size
		if n == 0 && len(parts) == 0 && u.size > 1 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d%s", n, u.suffix))
	}
	return strings.Join(parts, " ")
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Fridge Thermostat</title>
<style>
body { font: 14px/1.4 monospace; max-width: 640px; margin: 1.5em auto; padding: 0 1em; background: #f7fbff; }
h1 { font-size: 1.3em; color: #035; }
h2 { font-size: 1.05em; margin-bottom: 0.2em; }
table { width: 100%; border-spacing: 0; margin-bottom: 1em; }
th, td { padding: 3px 6px; text-align: left; border-bottom: 1px dotted #bcd; }
th { width: 35%; font-weight: normal; color: #456; }
.cooling { color: #06c; font-weight: bold; }
.idle { color: #888; }
.fault, .unknown { color: #c60; font-weight: bold; }
.connected { color: #080; }
.disconnected { color: #c00; }
</style>
</head>
<body>
<h1>Fridge Thermostat</h1>

<h2>State</h2>
<table>
{{if not .Ready}}<tr><th>Compressor</th><td id="state" class="unknown">UNKNOWN</td></tr>
{{else if .Record.Fault}}<tr><th>Compressor</th><td id="state" class="fault">FAULT (off)</td></tr>
{{else if .Record.Compressor}}<tr><th>Compressor</th><td id="state" class="cooling">COOLING</td></tr>
{{else}}<tr><th>Compressor</th><td id="state" class="idle">IDLE</td></tr>
{{end}}<tr><th>Setpoint</th><td id="setpoint">{{deg .Record.SetpointMdeg}} deg (raw {{.Record.SetpointRaw}})</td></tr>
<tr><th>Current</th><td id="current">{{deg .Record.CurrentMdeg}} deg (raw {{.Record.CurrentRaw}})</td></tr>
<tr><th>Hysteresis</th><td>&plusmn;{{deg .Config.HysteresisMdeg}} deg</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Config.RedisAddr}}<tr><th>Redis</th><td class="{{if .RedisConnected}}connected{{else}}disconnected{{end}}">{{.Config.RedisAddr}}</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Ticks</th><td>{{.Counts.Ticks}}</td></tr>
<tr><th>Cooling ON</th><td>{{.Counts.CoolingOn}}</td></tr>
<tr><th>Cooling OFF</th><td>{{.Counts.CoolingOff}}</td></tr>
<tr><th>Faults</th><td>{{.Counts.Faults}}</td></tr>
<tr><th>Write errors</th><td>{{.Counts.WriteErrors}}</td></tr>
<tr><th>Cooling time</th><td>{{duration .CoolingTime}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{duration .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Run</th><td>{{.RunID}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Filter</th><td>{{.Config.FilterOrder}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// the template needs Uptime as a field, not a method
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}

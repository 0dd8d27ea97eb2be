package health

import (
	"bytes"
	"encoding/json"
	"html/template"
	"sort"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Diasporan · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    :root { --green: #0f766e; --ink: #1c1917; --gold: #d97706; --bg: #fafaf9; --muted: #78716c; }
    * { box-sizing: border-box; }
    body { background: var(--bg); color: var(--ink); font-family: system-ui, sans-serif; margin: 0; display: flex; justify-content: center; padding: 48px 16px; }
    .wrap { width: 100%; max-width: 1000px; }
    h1 { font-size: clamp(28px, 5vw, 52px); font-weight: 900; letter-spacing: -2px; margin: 0 0 8px; }
    h1.issue { color: #b91c1c; }
    .sub { color: var(--muted); font-weight: 600; margin-bottom: 28px; }
    .card { background: #fff; border-radius: 24px; box-shadow: 0 20px 60px -20px rgba(15,118,110,.15); overflow: hidden; }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); }
    .col { padding: 32px; border-right: 1px solid #f5f5f4; }
    .col:last-child { border-right: none; }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 900; letter-spacing: 2px; color: #a8a29e; margin-bottom: 18px; }
    .big { font-size: 38px; font-weight: 900; margin-bottom: 10px; }
    .row { display: flex; justify-content: space-between; padding: 7px 0; border-bottom: 1px solid #fafaf9; font-size: 14px; font-weight: 600; }
    .pill { padding: 3px 10px; border-radius: 8px; font-size: 11px; font-weight: 800; }
    .ok { background: rgba(15,118,110,.1); color: var(--green); }
    .err { background: rgba(185,28,28,.1); color: #b91c1c; }
    .foot { background: #fafaf9; padding: 14px 32px; display: flex; justify-content: space-between; font-family: monospace; font-size: 13px; }
    .links { margin-top: 20px; font-size: 13px; }
    .links a { color: var(--green); font-weight: 700; margin-right: 16px; }
    @media (max-width: 800px) { .grid { grid-template-columns: 1fr; } .col { border-right: none; } }
  </style>
</head>
<body>
<div class="wrap">
  {{if eq .Report.Status "ok"}}<h1>All Systems Operational</h1>{{else}}<h1 class="issue">System Issues Detected</h1>{{end}}
  <div class="sub">Diasporan booking API · uptime {{.Report.Runtime.UptimeSeconds}}s</div>
  <div class="card">
    <div class="grid">
      <div class="col">
        <div class="label">Traffic</div>
        <div class="big">{{.Report.Traffic.TotalRequests}}</div>
        <div class="row"><span>Successful</span><span>{{.Report.Traffic.SuccessCount}}</span></div>
        <div class="row"><span>Failed</span><span>{{.Report.Traffic.FailedCount}}</span></div>
        <div class="row"><span>Success Rate</span><span>{{.Report.Traffic.SuccessRate}}%</span></div>
        <div class="row"><span>Avg Latency</span><span>{{.Report.Traffic.AvgResponseTime}}ms</span></div>
      </div>
      <div class="col">
        <div class="label">Runtime</div>
        <div class="big">{{.Report.Runtime.Goroutines}}</div>
        <div class="row"><span>Heap In Use</span><span>{{.Report.Runtime.Memory.HeapUsed}} MB</span></div>
        <div class="row"><span>Allocated</span><span>{{.Report.Runtime.Memory.AllocMB}} MB</span></div>
        <div class="row"><span>Platform</span><span>{{.Report.Runtime.Platform}}</span></div>
        <div class="row"><span>Go</span><span>{{.Report.Runtime.GoVersion}}</span></div>
      </div>
      <div class="col">
        <div class="label">Dependencies</div>
        {{range .Deps}}<div class="row"><span>{{.Name}}</span><span class="pill {{if .Healthy}}ok{{else}}err{{end}}">{{.Status}}{{if .PingMs}} · {{.PingMs}} ms{{end}}</span></div>
        {{end}}
      </div>
    </div>
    <div class="foot">
      <span>LAST INBOUND</span>
      <span>{{index .Last "method"}} {{index .Last "path"}}</span>
      <span>{{index .Last "ip"}}</span>
    </div>
  </div>
  <div class="links"><a href="/health/json">JSON</a><a href="/health/errors">Error log</a></div>
</div>
<script>window.__HEALTH__ = {{.JSON}};</script>
</body>
</html>`))

type depRow struct {
	Name    string
	Status  string
	PingMs  *int64
	Healthy bool
}

// RenderDashboard renders the status page for GET /.
func RenderDashboard(report Report) (string, error) {
	deps := make([]depRow, 0, len(report.Dependencies))
	for name, d := range report.Dependencies {
		deps = append(deps, depRow{
			Name:    name,
			Status:  d.Status,
			PingMs:  d.PingMs,
			Healthy: d.Status == "connected" || d.Status == "reachable",
		})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })

	last := map[string]interface{}{"method": "-", "path": "-", "ip": "-"}
	for k, v := range report.Traffic.LastRequest {
		last[k] = v
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = dashboardTmpl.Execute(&buf, map[string]interface{}{
		"Report": report,
		"Deps":   deps,
		"Last":   last,
		"JSON":   template.JS(raw),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

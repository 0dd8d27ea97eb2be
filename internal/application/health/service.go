package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keys shared by the request marker middleware and the health endpoints.
const (
	KeyReqTotal  = "health:global:req_total"
	KeyReqErrors = "health:global:req_errors"
	KeyResTime   = "health:global:res_time_total"
	KeyResCount  = "health:global:res_count"
	KeyStartTime = "health:global:start_time"
	KeyLastReq   = "health:global:last_request"
	KeyErrorLog  = "health:global:error_log"

	// ErrorLogSize is how many recent internal errors are kept.
	ErrorLogSize = 50
)

// StatKeys lists every key a stats reset clears.
var StatKeys = []string{KeyReqTotal, KeyReqErrors, KeyResTime, KeyResCount, KeyStartTime, KeyLastReq, KeyErrorLog}

// DBPinger is satisfied by *sql.DB. A nil pinger reports the database as disconnected.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// Report is the payload of /health/json and the dashboard.
type Report struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapUsed int `json:"heapUsed"`
}

type TrafficInfo struct {
	TotalRequests   int                    `json:"totalRequests"`
	SuccessCount    int                    `json:"successCount"`
	FailedCount     int                    `json:"failedCount"`
	SuccessRate     string                 `json:"successRate"`
	AvgResponseTime string                 `json:"avgResponseTime"`
	LastRequest     map[string]interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

// Collector gathers the report. Externals maps a dependency name to a URL that is
// probed with a GET; any response counts as reachable.
type Collector struct {
	Redis     *redis.Client
	DB        DBPinger
	Externals map[string]string
	Client    *http.Client
}

// Collect never fails: unreachable dependencies are reported, not returned as errors.
func (c *Collector) Collect(ctx context.Context) Report {
	report := Report{Dependencies: make(map[string]DepStatus)}

	dbStatus := DepStatus{Status: "disconnected"}
	if c.DB != nil {
		dbStatus = timed(func() error { return c.DB.PingContext(ctx) }, "connected", "error")
	}
	report.Dependencies["database"] = dbStatus

	startMs := time.Now().UnixMilli()
	stats := TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"}
	redisStatus := DepStatus{Status: "disconnected"}
	if c.Redis != nil {
		redisStatus = timed(func() error { return c.Redis.Ping(ctx).Err() }, "connected", "error")
		if redisStatus.Status == "connected" {
			startMs = c.readTraffic(ctx, &stats, startMs)
		}
	}
	report.Dependencies["redis"] = redisStatus

	names := make([]string, 0, len(c.Externals))
	for name := range c.Externals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		report.Dependencies[name] = c.probe(ctx, c.Externals[name])
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (time.Now().UnixMilli() - startMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	report.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc >> 20), HeapUsed: int(m.HeapInuse >> 20)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}
	report.Traffic = stats

	report.Status = "issue"
	if dbStatus.Status == "connected" && redisStatus.Status == "connected" {
		report.Status = "ok"
	}
	return report
}

func (c *Collector) readTraffic(ctx context.Context, stats *TrafficInfo, startMs int64) int64 {
	vals, _ := c.Redis.MGet(ctx, KeyReqTotal, KeyReqErrors, KeyResTime, KeyResCount, KeyStartTime, KeyLastReq).Result()
	str := func(i int) string {
		if i < len(vals) {
			if s, ok := vals[i].(string); ok {
				return s
			}
		}
		return ""
	}

	if s := str(4); s != "" {
		if t, err := strconv.ParseInt(s, 10, 64); err == nil {
			startMs = t
		}
	} else {
		c.Redis.SetNX(ctx, KeyStartTime, startMs, 0)
	}

	stats.TotalRequests, _ = strconv.Atoi(str(0))
	stats.FailedCount, _ = strconv.Atoi(str(1))
	stats.SuccessCount = stats.TotalRequests - stats.FailedCount
	if stats.TotalRequests > 0 {
		stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(str(2), 64)
	if count, _ := strconv.Atoi(str(3)); count > 0 {
		stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(count), 'f', 2, 64)
	}
	if s := str(5); s != "" {
		_ = json.Unmarshal([]byte(s), &stats.LastRequest)
	}
	return startMs
}

func (c *Collector) probe(ctx context.Context, url string) DepStatus {
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	return timed(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}, "reachable", "unreachable")
}

func timed(fn func() error, okStatus, failStatus string) DepStatus {
	start := time.Now()
	if err := fn(); err != nil {
		return DepStatus{Status: failStatus}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: okStatus, PingMs: &ms}
}

package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics collects basic application counters (JSON endpoint, no
// Prometheus dep needed at this scale).
type Metrics struct {
	wsConnections atomic.Int64
	liveSessions  atomic.Int64
	totalClicks   atomic.Int64
	totalActions  atomic.Int64
	totalSaves    atomic.Int64
	totalBattles  atomic.Int64
	startTime     time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) IncrWSConn()         { m.wsConnections.Add(1) }
func (m *Metrics) DecrWSConn()         { m.wsConnections.Add(-1) }
func (m *Metrics) SetSessions(n int64) { m.liveSessions.Store(n) }
func (m *Metrics) IncrClick()          { m.totalClicks.Add(1) }
func (m *Metrics) IncrAction()         { m.totalActions.Add(1) }
func (m *Metrics) IncrSave()           { m.totalSaves.Add(1) }
func (m *Metrics) IncrBattle()         { m.totalBattles.Add(1) }

// ServeHTTP exposes metrics as JSON at /metrics.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	data := map[string]any{
		"uptime_seconds": int(time.Since(m.startTime).Seconds()),
		"ws_connections": m.wsConnections.Load(),
		"live_sessions":  m.liveSessions.Load(),
		"total_clicks":   m.totalClicks.Load(),
		"total_actions":  m.totalActions.Load(),
		"total_saves":    m.totalSaves.Load(),
		"total_battles":  m.totalBattles.Load(),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc_mb":  mem.HeapAlloc / 1024 / 1024,
		"sys_mb":         mem.Sys / 1024 / 1024,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
}

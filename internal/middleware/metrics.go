package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	domai "github.com/bryanwahyu/trustlayer/internal/domain/ai"
)

type counters struct {
	requests, requestsActive, requestsOK, requestsFailed atomic.Uint64
	analyses, analysesRunning, analysesFailed, quota     atomic.Uint64
	claimChecks, emergencies                             atomic.Uint64
	started                                              time.Time
}

var metrics = &counters{started: time.Now()}

// MetricsSnapshot is what /metrics serves.
type MetricsSnapshot struct {
	RequestsTotal      uint64      `json:"requests_total"`
	RequestsInProgress uint64      `json:"requests_in_progress"`
	RequestsSuccess    uint64      `json:"requests_success"`
	RequestsFailed     uint64      `json:"requests_failed"`
	AnalysesTotal      uint64      `json:"analyses_total"`
	AnalysesRunning    uint64      `json:"analyses_running"`
	AnalysesFailed     uint64      `json:"analyses_failed"`
	QuotaExceeded      uint64      `json:"quota_exceeded"`
	ClaimChecks        uint64      `json:"claim_checks"`
	EmergencyActivated uint64      `json:"emergency_activated"`
	UptimeSeconds      float64     `json:"uptime_seconds"`
	Goroutines         int         `json:"goroutines"`
	Memory             MemoryStats `json:"memory"`
}

type MemoryStats struct {
	AllocBytes uint64 `json:"alloc_bytes"`
	SysBytes   uint64 `json:"sys_bytes"`
	NumGC      uint32 `json:"num_gc"`
}

func IncrementClaimChecks() { metrics.claimChecks.Add(1) }

func IncrementEmergency() { metrics.emergencies.Add(1) }

// AnalysisObserver feeds synthesizer calls into the process counters.
type AnalysisObserver struct{}

func (AnalysisObserver) AnalysisStarted() {
	metrics.analyses.Add(1)
	metrics.analysesRunning.Add(1)
}

func (AnalysisObserver) AnalysisFinished(err error) {
	metrics.analysesRunning.Add(^uint64(0))
	if err == nil {
		return
	}
	metrics.analysesFailed.Add(1)
	if errors.Is(err, domai.ErrQuotaExceeded) {
		metrics.quota.Add(1)
	}
}

func GetMetrics() MetricsSnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MetricsSnapshot{
		RequestsTotal:      metrics.requests.Load(),
		RequestsInProgress: metrics.requestsActive.Load(),
		RequestsSuccess:    metrics.requestsOK.Load(),
		RequestsFailed:     metrics.requestsFailed.Load(),
		AnalysesTotal:      metrics.analyses.Load(),
		AnalysesRunning:    metrics.analysesRunning.Load(),
		AnalysesFailed:     metrics.analysesFailed.Load(),
		QuotaExceeded:      metrics.quota.Load(),
		ClaimChecks:        metrics.claimChecks.Load(),
		EmergencyActivated: metrics.emergencies.Load(),
		UptimeSeconds:      time.Since(metrics.started).Seconds(),
		Goroutines:         runtime.NumGoroutine(),
		Memory:             MemoryStats{AllocBytes: m.Alloc, SysBytes: m.Sys, NumGC: m.NumGC},
	}
}

// MetricsMiddleware counts requests; 4xx and 5xx both count as failed.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.requests.Add(1)
		metrics.requestsActive.Add(1)
		defer metrics.requestsActive.Add(^uint64(0))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if rw.statusCode < http.StatusBadRequest {
			metrics.requestsOK.Add(1)
		} else {
			metrics.requestsFailed.Add(1)
		}
	})
}

func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GetMetrics())
}

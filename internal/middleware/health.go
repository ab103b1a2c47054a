package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const checkTimeout = 2 * time.Second

type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

// DatabaseHealthChecker pings a SQL session backend.
type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

type CheckStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthHandler runs every checker concurrently, each under its own
// timeout, and answers 503 if any fails.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	names := make([]string, 0, len(checkers))
	for name := range checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		var (
			mu      sync.Mutex
			results = make(map[string]CheckStatus, len(names))
			g       errgroup.Group
		)
		for _, name := range names {
			checker := checkers[name]
			g.Go(func() error {
				ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
				defer cancel()
				start := time.Now()
				st := CheckStatus{Status: "healthy"}
				if err := checker.Check(ctx); err != nil {
					st = CheckStatus{Status: "unhealthy", Message: err.Error()}
				}
				st.LatencyMS = time.Since(start).Milliseconds()
				mu.Lock()
				results[name] = st
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		health := HealthStatus{Status: "healthy", Timestamp: time.Now().UTC(), Checks: results}
		code := http.StatusOK
		for _, st := range results {
			if st.Status != "healthy" {
				health.Status = "unhealthy"
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(health)
	}
}

var ready atomic.Bool

// SetReady flips what /readyz reports; serve sets it once wiring is done
// and clears it when shutdown begins.
func SetReady(v bool) { ready.Store(v) }

func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	if !ready.Load() {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "timestamp": time.Now().UTC()})
}

func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

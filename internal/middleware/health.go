package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker is one dependency checked by /ready.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// DatabaseHealthChecker pings the history database.
type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.DB.PingContext(ctx)
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

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

// ReadinessHandler runs every checker concurrently and answers 503 when
// any of them fails. No checkers means ready.
func ReadinessHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		health := HealthStatus{
			Status:    "ready",
			Timestamp: time.Now().UTC(),
			Checks:    make(map[string]CheckStatus, len(checkers)),
		}
		for name, checker := range checkers {
			wg.Add(1)
			go func(name string, c HealthChecker) {
				defer wg.Done()
				start := time.Now()
				err := c.Check(ctx)
				st := CheckStatus{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
				if err != nil {
					st.Status, st.Message = "unhealthy", err.Error()
				}

				mu.Lock()
				defer mu.Unlock()
				health.Checks[name] = st
				if err != nil {
					health.Status = "unavailable"
				}
			}(name, checker)
		}
		wg.Wait()

		code := http.StatusOK
		if health.Status != "ready" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(health)
	}
}

// LivenessHandler only says the process is serving.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

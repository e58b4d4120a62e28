package middleware

import (
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics stores application counters. It also receives analysis events
// from the application layer.
type Metrics struct {
	requestsTotal      atomic.Uint64
	requestsInProgress atomic.Int64
	requestsSuccess    atomic.Uint64
	requestsFailed     atomic.Uint64
	analysesTotal      atomic.Uint64
	reviewsFlagged     atomic.Uint64
	recordsRejected    atomic.Uint64
	startTime          time.Time
}

// Snapshot is a point-in-time copy of Metrics.
type Snapshot struct {
	RequestsTotal      uint64
	RequestsInProgress int64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	AnalysesTotal      uint64
	ReviewsFlagged     uint64
	RecordsRejected    uint64
	Uptime             time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// AnalysisCompleted counts one finished analysis.
func (m *Metrics) AnalysisCompleted(needsReview bool) {
	m.analysesTotal.Add(1)
	if needsReview {
		m.reviewsFlagged.Add(1)
	}
}

// RecordRejected counts one rejected history or prediction.
func (m *Metrics) RecordRejected() {
	m.recordsRejected.Add(1)
}

// Snapshot returns current metrics
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		RequestsTotal:      m.requestsTotal.Load(),
		RequestsInProgress: m.requestsInProgress.Load(),
		RequestsSuccess:    m.requestsSuccess.Load(),
		RequestsFailed:     m.requestsFailed.Load(),
		AnalysesTotal:      m.analysesTotal.Load(),
		ReviewsFlagged:     m.reviewsFlagged.Load(),
		RecordsRejected:    m.recordsRejected.Load(),
		Uptime:             time.Since(m.startTime),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requestsTotal.Add(1)
		m.requestsInProgress.Add(1)
		defer m.requestsInProgress.Add(-1)

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		// Track success/failure based on status code
		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			m.requestsSuccess.Add(1)
		} else {
			m.requestsFailed.Add(1)
		}
	})
}

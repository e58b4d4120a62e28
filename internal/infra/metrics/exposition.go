// Package metrics renders service counters in the Prometheus text format.
package metrics

import (
	"io"
	"net/http"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/bryanwahyu/tumortrack/internal/middleware"
)

const namespace = "tumortrack_"

// Source provides the counters to expose.
type Source interface {
	Snapshot() middleware.Snapshot
}

// Families converts a snapshot into metric families, sorted by name.
func Families(s middleware.Snapshot) []*dto.MetricFamily {
	out := []*dto.MetricFamily{
		counter("http_requests_total", "HTTP requests received.", float64(s.RequestsTotal)),
		counter("http_requests_success_total", "HTTP requests answered with 2xx or 3xx.", float64(s.RequestsSuccess)),
		counter("http_requests_failed_total", "HTTP requests answered with 4xx or 5xx.", float64(s.RequestsFailed)),
		gauge("http_requests_in_progress", "HTTP requests currently being served.", float64(s.RequestsInProgress)),
		counter("analyses_total", "Longitudinal analyses completed.", float64(s.AnalysesTotal)),
		counter("reviews_flagged_total", "Predictions routed to human review.", float64(s.ReviewsFlagged)),
		counter("records_rejected_total", "Histories or predictions rejected as invalid.", float64(s.RecordsRejected)),
		gauge("uptime_seconds", "Seconds since process start.", s.Uptime.Seconds()),
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// Write renders the snapshot as Prometheus text.
func Write(w io.Writer, s middleware.Snapshot) error {
	for _, mf := range Families(s) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves GET /metrics.
func Handler(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		_ = Write(w, src.Snapshot())
	}
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(namespace + name),
		Help:   proto.String(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: proto.Float64(v)}}},
	}
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(namespace + name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(v)}}},
	}
}

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/tumortrack/internal/application/analysis"
	domai "github.com/bryanwahyu/tumortrack/internal/domain/ai"
	"github.com/bryanwahyu/tumortrack/internal/domain/analyst"
	"github.com/bryanwahyu/tumortrack/internal/domain/longitudinal"
	"github.com/bryanwahyu/tumortrack/internal/domain/scanerrors"
	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
	"github.com/bryanwahyu/tumortrack/internal/infra/metrics"
	"github.com/bryanwahyu/tumortrack/internal/middleware"
)

const (
	maxBodyBytes = 1 << 20
	reportURLTTL = 15 * time.Minute
)

// AnalysisService is the use-case surface the router needs.
type AnalysisService interface {
	Analyze(ctx context.Context, cmd analysis.AnalyzeCommand) (analysis.Result, error)
	Evaluate(ctx context.Context, records []scans.ScanRecord, p scans.Prediction, treatmentDates []time.Time) (*longitudinal.Report, error)
	History(ctx context.Context, tenant, patient string, page, pageSize int) (scans.Page, error)
	Analyses(ctx context.Context, tenant, patient string, page, pageSize int) ([]*analyst.Analysis, error)
	GetAnalysis(ctx context.Context, tenant string, id analyst.AnalysisID) (*analyst.Analysis, error)
	Errors(ctx context.Context, tenant, patient string, limit int) ([]*scanerrors.ScanError, error)
}

// NarrativeService writes narratives onto analyses.
type NarrativeService interface {
	Narrate(ctx context.Context, tenant string, id analyst.AnalysisID) (*analyst.Analysis, error)
}

// ReportLinker hands out short-lived download links for stored reports.
type ReportLinker interface {
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Deps wires the router.
type Deps struct {
	Analysis    AnalysisService
	Narratives  NarrativeService // optional
	Reports     ReportLinker     // optional
	Keys        *middleware.KeySet
	Metrics     *middleware.Metrics
	Limiter     *middleware.RateLimiter // optional
	Ready       map[string]middleware.HealthChecker
	CORSOrigins []string
}

type Router struct {
	analysis   AnalysisService
	narratives NarrativeService
	reports    ReportLinker
}

func NewRouter(d Deps) http.Handler {
	r := &Router{analysis: d.Analysis, narratives: d.Narratives, reports: d.Reports}
	if d.Metrics == nil {
		d.Metrics = middleware.NewMetrics()
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID, chimw.Recoverer)
	mux.Use(d.Metrics.Middleware, middleware.LoggingMiddleware)
	// go-chi/cors treats an empty origin list as "*", so only mount it
	// when origins are configured
	if len(d.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/ready", middleware.ReadinessHandler(d.Ready))
	mux.Get("/metrics", metrics.Handler(d.Metrics))

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(d.Keys), middleware.RequireTenant)
		if d.Limiter != nil {
			rt.Use(d.Limiter.Middleware)
		}

		rt.Post("/evaluate", r.wrap(r.handleEvaluate))
		rt.Post("/confidence", r.wrap(r.handleConfidence))

		rt.Route("/patients/{patient}", func(pr chi.Router) {
			pr.Post("/analyze", r.wrap(r.handleAnalyze))
			pr.Get("/scans", r.wrap(r.handleHistory))
			pr.Get("/analyses", r.wrap(r.handleAnalyses))
			pr.Get("/errors", r.wrap(r.handleErrors))
		})

		rt.Get("/analyses/{id}", r.wrap(r.handleGetAnalysis))
		rt.Get("/analyses/{id}/report", r.wrap(r.handleReport))
		rt.Post("/analyses/{id}/narrative", r.wrap(r.handleNarrative))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errBadRequest marks request validation failures.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var ire *longitudinal.InvalidRecordError
		switch {
		case errors.As(err, &ire):
			jsonResp(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: ire.Field, Index: &ire.Index})
		case errors.Is(err, longitudinal.ErrInvalidDistribution), errors.Is(err, errBadRequest):
			jsonErr(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, scans.ErrConflict):
			jsonErr(w, http.StatusConflict, "scan id already used by another patient")
		case errors.Is(err, analyst.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			jsonErr(w, http.StatusNotFound, "not found")
		case errors.Is(err, domai.ErrQuotaExceeded):
			jsonErr(w, http.StatusTooManyRequests, "ai quota exceeded")
		case errors.Is(err, domai.ErrDisabled):
			jsonErr(w, http.StatusServiceUnavailable, "narratives are not enabled")
		default:
			slog.Error("http: handler failed", "method", req.Method, "path", req.URL.Path, "err", err)
			jsonErr(w, http.StatusInternalServerError, "internal error")
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Index *int   `json:"index,omitempty"`
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

func decode(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func patientParam(req *http.Request) (string, error) {
	patient := chi.URLParam(req, "patient")
	if err := middleware.ValidatePatientID(patient); err != nil {
		return "", badRequest("%v", err)
	}
	return patient, nil
}

func pageParams(req *http.Request) (int, int) {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
	return middleware.ValidatePage(page), middleware.ValidateLimit(size)
}

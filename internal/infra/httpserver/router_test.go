package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/tumortrack/internal/application"
	"github.com/bryanwahyu/tumortrack/internal/application/analysis"
	domai "github.com/bryanwahyu/tumortrack/internal/domain/ai"
	"github.com/bryanwahyu/tumortrack/internal/domain/analyst"
	"github.com/bryanwahyu/tumortrack/internal/domain/longitudinal"
	"github.com/bryanwahyu/tumortrack/internal/domain/scanerrors"
	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
	"github.com/bryanwahyu/tumortrack/internal/middleware"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// stubAnalysis answers the storage-backed calls with canned values and runs
// Evaluate through the real engine.
type stubAnalysis struct {
	engine  *analysis.Service
	lastCmd analysis.AnalyzeCommand
	err     error
	page    scans.Page
	lastPg  [2]int
	limit   int

	reportURL string
}

func (s *stubAnalysis) Analyze(_ context.Context, cmd analysis.AnalyzeCommand) (analysis.Result, error) {
	s.lastCmd = cmd
	if s.err != nil {
		return analysis.Result{}, s.err
	}
	rep, err := s.engine.Evaluate(context.Background(), nil, cmd.Prediction, cmd.TreatmentDates)
	if err != nil {
		return analysis.Result{}, err
	}
	return analysis.Result{
		Analysis: &analyst.Analysis{ID: "a-1", TenantID: cmd.TenantID, PatientID: cmd.PatientID},
		Report:   rep,
	}, nil
}

func (s *stubAnalysis) Evaluate(ctx context.Context, records []scans.ScanRecord, p scans.Prediction, dates []time.Time) (*longitudinal.Report, error) {
	return s.engine.Evaluate(ctx, records, p, dates)
}

func (s *stubAnalysis) History(_ context.Context, _, _ string, page, size int) (scans.Page, error) {
	s.lastPg = [2]int{page, size}
	return s.page, s.err
}

func (s *stubAnalysis) Analyses(_ context.Context, _, _ string, page, size int) ([]*analyst.Analysis, error) {
	s.lastPg = [2]int{page, size}
	return nil, s.err
}

func (s *stubAnalysis) GetAnalysis(_ context.Context, tenant string, id analyst.AnalysisID) (*analyst.Analysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &analyst.Analysis{
		ID:        id,
		TenantID:  tenant,
		PatientID: "p1",
		ReportURL: s.reportURL,
		Report:    json.RawMessage(`{"record_count":2}`),
	}, nil
}

func (s *stubAnalysis) Errors(_ context.Context, _, _ string, limit int) ([]*scanerrors.ScanError, error) {
	s.limit = limit
	return []*scanerrors.ScanError{}, s.err
}

type stubLinker struct{ key string }

func (l *stubLinker) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	l.key = key
	return "https://objects.example/" + key + "?sig=1", nil
}

type stubNarratives struct{ err error }

func (s stubNarratives) Narrate(_ context.Context, tenant string, id analyst.AnalysisID) (*analyst.Analysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &analyst.Analysis{ID: id, TenantID: tenant, Narrative: "stable"}, nil
}

func newTestRouter(svc *stubAnalysis, n NarrativeService) http.Handler {
	svc.engine = &analysis.Service{Clock: application.FixedClock{T: now}}
	return NewRouter(Deps{
		Analysis:   svc,
		Narratives: n,
		Keys:       middleware.NewKeySet(map[string]string{"clinic-a": "key-a"}),
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer key-a")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const gliomaPrediction = `"date":"2024-06-01T00:00:00Z","tumor_volume":12.5,"tumor_type":"glioma","tumor_grade":"II","tumor_probability":0.9,"class_probabilities":{"glioma":0.9,"meningioma":0.1}`

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(&stubAnalysis{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tumortrack_http_requests_total")
}

func TestAuthAndTenantGuard(t *testing.T) {
	h := newTestRouter(&stubAnalysis{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/clinic-a/patients/p1/scans", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/clinic-b/patients/p1/scans", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAnalyze(t *testing.T) {
	svc := &stubAnalysis{}
	h := newTestRouter(svc, nil)

	body := `{"scan_id":"scan-7",` + gliomaPrediction + `,"treatment_dates":["2024-05-01","2024-05-15T09:00:00Z"]}`
	rec := do(t, h, http.MethodPost, "/v1/clinic-a/patients/p.001/analyze", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, "clinic-a", svc.lastCmd.TenantID)
	assert.Equal(t, "p.001", svc.lastCmd.PatientID)
	assert.Equal(t, "scan-7", svc.lastCmd.ScanID)
	assert.Equal(t, 12.5, svc.lastCmd.Prediction.Volume)
	require.Len(t, svc.lastCmd.TreatmentDates, 2)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), svc.lastCmd.TreatmentDates[0])

	var got struct {
		Analysis struct {
			ID string `json:"id"`
		} `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "a-1", got.Analysis.ID)
}

func TestAnalyze_BadRequests(t *testing.T) {
	h := newTestRouter(&stubAnalysis{}, nil)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed json", "/v1/clinic-a/patients/p1/analyze", `{`},
		{"unknown field", "/v1/clinic-a/patients/p1/analyze", `{"volume":1}`},
		{"bad patient", "/v1/clinic-a/patients/p%20x/analyze", `{` + gliomaPrediction + `}`},
		{"bad treatment date", "/v1/clinic-a/patients/p1/analyze", `{` + gliomaPrediction + `,"treatment_dates":["May 1"]}`},
		{"negative volume", "/v1/clinic-a/patients/p1/analyze", `{"date":"2024-06-01T00:00:00Z","tumor_volume":-1,"tumor_type":"glioma","tumor_grade":"II","tumor_probability":0.9,"class_probabilities":{"glioma":1}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestAnalyze_InvalidRecordCarriesField(t *testing.T) {
	h := newTestRouter(&stubAnalysis{}, nil)
	body := `{"date":"2024-06-01T00:00:00Z","tumor_volume":-1,"tumor_type":"glioma","tumor_grade":"II","tumor_probability":0.9,"class_probabilities":{"glioma":1}}`

	rec := do(t, h, http.MethodPost, "/v1/clinic-a/patients/p1/analyze", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var got errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "volume", got.Field)
	require.NotNil(t, got.Index)
}

func TestEvaluate(t *testing.T) {
	h := newTestRouter(&stubAnalysis{}, nil)
	body := `{"records":[{"date":"2024-01-01T00:00:00Z","volume":10,"tumor_type":"glioma","tumor_grade":"II","confidence":0.9}],` +
		`"prediction":{` + gliomaPrediction + `}}`

	rec := do(t, h, http.MethodPost, "/v1/clinic-a/evaluate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Contains(t, got, "growth_metrics")
	assert.Contains(t, got, "confidence_metrics")
}

func TestConfidence(t *testing.T) {
	h := newTestRouter(&stubAnalysis{}, nil)

	rec := do(t, h, http.MethodPost, "/v1/clinic-a/confidence", `{"glioma":0.9,"meningioma":0.1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got struct {
		NeedsHumanReview bool `json:"needs_human_review"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.NeedsHumanReview)

	rec = do(t, h, http.MethodPost, "/v1/clinic-a/confidence", `{"glioma":0.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/clinic-a/confidence", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListingsClampPaging(t *testing.T) {
	svc := &stubAnalysis{page: scans.Page{Page: 1, PageSize: 20}}
	h := newTestRouter(svc, nil)

	rec := do(t, h, http.MethodGet, "/v1/clinic-a/patients/p1/scans?page=0&page_size=1000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]int{1, 100}, svc.lastPg)

	rec = do(t, h, http.MethodGet, "/v1/clinic-a/patients/p1/analyses?page=3&page_size=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]int{3, 5}, svc.lastPg)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/clinic-a/patients/p1/errors?limit=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, svc.limit)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", analyst.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", errors.Join(errors.New("repo"), analyst.ErrNotFound), http.StatusNotFound},
		{"quota", domai.ErrQuotaExceeded, http.StatusTooManyRequests},
		{"disabled", domai.ErrDisabled, http.StatusServiceUnavailable},
		{"other", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(&stubAnalysis{}, stubNarratives{err: tc.err})
			rec := do(t, h, http.MethodPost, "/v1/clinic-a/analyses/a-1/narrative", "")
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	h := newTestRouter(&stubAnalysis{err: analyst.ErrNotFound}, nil)
	rec := do(t, h, http.MethodGet, "/v1/clinic-a/analyses/a-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h = newTestRouter(&stubAnalysis{err: fmt.Errorf("analysis: save record: %w", scans.ErrConflict)}, nil)
	rec = do(t, h, http.MethodPost, "/v1/clinic-a/patients/p2/analyze", `{"scan_id":"s1",`+gliomaPrediction+`}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestNarrative(t *testing.T) {
	h := newTestRouter(&stubAnalysis{}, stubNarratives{})
	rec := do(t, h, http.MethodPost, "/v1/clinic-a/analyses/a-1/narrative", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stable"`)

	h = newTestRouter(&stubAnalysis{}, nil)
	rec = do(t, h, http.MethodPost, "/v1/clinic-a/analyses/a-1/narrative", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReport(t *testing.T) {
	h := newTestRouter(&stubAnalysis{}, nil)
	rec := do(t, h, http.MethodGet, "/v1/clinic-a/analyses/a-1/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"record_count":2}`, rec.Body.String())

	svc := &stubAnalysis{reportURL: "http://minio/bucket/clinic-a/p1/a-1.json"}
	svc.engine = &analysis.Service{Clock: application.FixedClock{T: now}}
	linker := &stubLinker{}
	h = NewRouter(Deps{
		Analysis: svc,
		Reports:  linker,
		Keys:     middleware.NewKeySet(map[string]string{"clinic-a": "key-a"}),
	})
	rec = do(t, h, http.MethodGet, "/v1/clinic-a/analyses/a-1/report", "")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "clinic-a/p1/a-1.json", linker.key)
	assert.Contains(t, rec.Header().Get("Location"), "clinic-a/p1/a-1.json")
}

func TestCORS(t *testing.T) {
	preflight := func(h http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/v1/clinic-a/evaluate", nil)
		req.Header.Set("Origin", "https://viewer.example.org")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	h := NewRouter(Deps{
		Analysis:    &stubAnalysis{},
		Keys:        middleware.NewKeySet(nil),
		CORSOrigins: []string{"https://viewer.example.org"},
	})
	rec := preflight(h)
	assert.Equal(t, "https://viewer.example.org", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = preflight(newTestRouter(&stubAnalysis{}, nil))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/tumortrack/internal/application/analysis"
	"github.com/bryanwahyu/tumortrack/internal/domain/analyst"
	"github.com/bryanwahyu/tumortrack/internal/domain/longitudinal"
	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
	"github.com/bryanwahyu/tumortrack/internal/middleware"
)

type analyzeRequest struct {
	scans.Prediction
	ScanID         string   `json:"scan_id"`
	TreatmentDates []string `json:"treatment_dates"`
}

type evaluateRequest struct {
	Records        []scans.ScanRecord `json:"records"`
	Prediction     scans.Prediction   `json:"prediction"`
	TreatmentDates []string           `json:"treatment_dates"`
}

// POST /v1/{tenant}/patients/{patient}/analyze
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	patient, err := patientParam(req)
	if err != nil {
		return err
	}

	var body analyzeRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	body.ScanID = middleware.SanitizeString(body.ScanID)
	if body.ScanID != "" {
		if err := middleware.ValidateID("scan", body.ScanID); err != nil {
			return badRequest("%v", err)
		}
	}
	dates, err := parseDates(body.TreatmentDates)
	if err != nil {
		return err
	}

	res, err := r.analysis.Analyze(req.Context(), analysis.AnalyzeCommand{
		TenantID:       tenant,
		PatientID:      patient,
		ScanID:         body.ScanID,
		Prediction:     body.Prediction,
		TreatmentDates: dates,
	})
	if err != nil {
		return err
	}
	jsonResp(w, http.StatusCreated, res)
	return nil
}

// POST /v1/{tenant}/evaluate
func (r *Router) handleEvaluate(w http.ResponseWriter, req *http.Request) error {
	var body evaluateRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	dates, err := parseDates(body.TreatmentDates)
	if err != nil {
		return err
	}
	rep, err := r.analysis.Evaluate(req.Context(), body.Records, body.Prediction, dates)
	if err != nil {
		return err
	}
	jsonResp(w, http.StatusOK, rep)
	return nil
}

// POST /v1/{tenant}/confidence
// Body: {"glioma": 0.7, "meningioma": 0.2, ...}
func (r *Router) handleConfidence(w http.ResponseWriter, req *http.Request) error {
	var dist map[string]float64
	if err := decode(w, req, &dist); err != nil {
		return err
	}
	m, err := longitudinal.Route(dist)
	if err != nil {
		return err
	}
	jsonResp(w, http.StatusOK, m)
	return nil
}

// GET /v1/{tenant}/patients/{patient}/scans?page=&page_size=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	patient, err := patientParam(req)
	if err != nil {
		return err
	}
	page, size := pageParams(req)
	res, err := r.analysis.History(req.Context(), chi.URLParam(req, "tenant"), patient, page, size)
	if err != nil {
		return err
	}
	jsonResp(w, http.StatusOK, res)
	return nil
}

// GET /v1/{tenant}/patients/{patient}/analyses?page=&page_size=
func (r *Router) handleAnalyses(w http.ResponseWriter, req *http.Request) error {
	patient, err := patientParam(req)
	if err != nil {
		return err
	}
	page, size := pageParams(req)
	list, err := r.analysis.Analyses(req.Context(), chi.URLParam(req, "tenant"), patient, page, size)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*analyst.Analysis{}
	}
	jsonResp(w, http.StatusOK, list)
	return nil
}

// GET /v1/{tenant}/patients/{patient}/errors?limit=
func (r *Router) handleErrors(w http.ResponseWriter, req *http.Request) error {
	patient, err := patientParam(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.analysis.Errors(req.Context(), chi.URLParam(req, "tenant"), patient, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	jsonResp(w, http.StatusOK, list)
	return nil
}

// GET /v1/{tenant}/analyses/{id}
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisParam(req)
	if err != nil {
		return err
	}
	a, err := r.analysis.GetAnalysis(req.Context(), chi.URLParam(req, "tenant"), id)
	if err != nil {
		return err
	}
	jsonResp(w, http.StatusOK, a)
	return nil
}

// GET /v1/{tenant}/analyses/{id}/report
// Redirects to the stored object when a report store is configured,
// otherwise serves the report kept on the analysis row.
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisParam(req)
	if err != nil {
		return err
	}
	a, err := r.analysis.GetAnalysis(req.Context(), chi.URLParam(req, "tenant"), id)
	if err != nil {
		return err
	}
	if r.reports != nil && a.ReportURL != "" {
		u, err := r.reports.PresignedURL(req.Context(), analysis.ReportKey(a), reportURLTTL)
		if err != nil {
			return err
		}
		http.Redirect(w, req, u, http.StatusTemporaryRedirect)
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Report)
	return nil
}

// POST /v1/{tenant}/analyses/{id}/narrative
func (r *Router) handleNarrative(w http.ResponseWriter, req *http.Request) error {
	if r.narratives == nil {
		jsonErr(w, http.StatusServiceUnavailable, "narratives are not enabled")
		return nil
	}
	id, err := analysisParam(req)
	if err != nil {
		return err
	}
	a, err := r.narratives.Narrate(req.Context(), chi.URLParam(req, "tenant"), id)
	if err != nil {
		return err
	}
	jsonResp(w, http.StatusOK, a)
	return nil
}

func analysisParam(req *http.Request) (analyst.AnalysisID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID("analysis", id); err != nil {
		return "", badRequest("%v", err)
	}
	return analyst.AnalysisID(id), nil
}

// parseDates accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDates(raw []string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			t, err = time.Parse(time.DateOnly, s)
		}
		if err != nil {
			return nil, badRequest("treatment date %q: want RFC 3339 or YYYY-MM-DD", s)
		}
		out = append(out, t.UTC())
	}
	return out, nil
}

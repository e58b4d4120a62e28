package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/tumortrack/internal/application"
	"github.com/bryanwahyu/tumortrack/internal/domain/analyst"
	"github.com/bryanwahyu/tumortrack/internal/domain/longitudinal"
	"github.com/bryanwahyu/tumortrack/internal/domain/scanerrors"
	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

// Observer is notified about finished analyses. The HTTP metrics middleware
// implements it.
type Observer interface {
	AnalysisCompleted(needsReview bool)
	RecordRejected()
}

// Service implements the analysis use-cases.
// Service is safe for concurrent use when its ports are.
type Service struct {
	Repo         scans.Repository
	AnalysisRepo analyst.Repository
	ErrorRepo    scanerrors.Repository
	Reports      scans.ReportStore // optional
	Observer     Observer          // optional
	Clock        application.Clock
	Log          *slog.Logger
}

// AnalyzeCommand is one new prediction for a patient.
type AnalyzeCommand struct {
	TenantID       string
	PatientID      string
	ScanID         string
	Prediction     scans.Prediction
	TreatmentDates []time.Time
}

// Result is a stored analysis plus its decoded report.
type Result struct {
	Analysis *analyst.Analysis    `json:"analysis"`
	Report   *longitudinal.Report `json:"report"`
}

// Analyze loads the patient's history, runs the longitudinal pipeline on
// it plus the new prediction, then stores the new record, the report and
// the analysis row. Rejected input is recorded as a scan error. Resending a
// ScanID replaces that patient's record; a ScanID already used by another
// patient of the tenant fails with scans.ErrConflict.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (Result, error) {
	log := s.logger().With("tenant", cmd.TenantID, "patient", cmd.PatientID)

	if cmd.Prediction.Date.IsZero() {
		cmd.Prediction.Date = s.Clock.Now()
	}
	recordID := cmd.ScanID
	if recordID == "" {
		recordID = uuid.NewString()
	}

	history, err := s.Repo.ListByPatient(ctx, cmd.TenantID, cmd.PatientID)
	if err != nil {
		return Result{}, fmt.Errorf("analysis: list history: %w", err)
	}
	// a resent scan replaces its stored record instead of adding to it
	history = slices.DeleteFunc(history, func(r scans.ScanRecord) bool {
		return r.ID == scans.RecordID(recordID)
	})

	rep, err := longitudinal.Analyze(longitudinal.Input{
		History:        history,
		Current:        cmd.Prediction,
		TreatmentDates: cmd.TreatmentDates,
	})
	if err != nil {
		if errors.Is(err, longitudinal.ErrInvalidRecord) || errors.Is(err, longitudinal.ErrInvalidDistribution) {
			log.Warn("analysis: input rejected", "err", err)
			s.recordError(ctx, cmd, recordID, scanerrors.PhaseAnalyze, err)
			if s.Observer != nil {
				s.Observer.RecordRejected()
			}
		}
		return Result{}, fmt.Errorf("analysis: %w", err)
	}

	record := cmd.Prediction.Record()
	record.ID = scans.RecordID(recordID)
	record.TenantID = cmd.TenantID
	record.PatientID = cmd.PatientID
	if err := s.Repo.Save(ctx, &record); err != nil {
		phase := scanerrors.PhasePersist
		if errors.Is(err, scans.ErrConflict) {
			log.Warn("analysis: scan id owned by another patient", "scan", recordID)
			phase = scanerrors.PhaseValidate
			if s.Observer != nil {
				s.Observer.RecordRejected()
			}
		}
		s.recordError(ctx, cmd, recordID, phase, err)
		return Result{}, fmt.Errorf("analysis: save record: %w", err)
	}

	body, err := json.Marshal(rep)
	if err != nil {
		return Result{}, fmt.Errorf("analysis: encode report: %w", err)
	}

	a := &analyst.Analysis{
		ID:        analyst.AnalysisID(uuid.NewString()),
		TenantID:  cmd.TenantID,
		PatientID: cmd.PatientID,
		RecordID:  recordID,
		Report:    body,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.AnalysisRepo.Save(ctx, a); err != nil {
		s.recordError(ctx, cmd, recordID, scanerrors.PhasePersist, err)
		return Result{}, fmt.Errorf("analysis: save analysis: %w", err)
	}
	// row first; an uploaded object always has a row to point back to it
	if s.Reports != nil {
		key := ReportKey(a)
		if url, err := s.Reports.Put(ctx, key, body); err != nil {
			// report stays in the row even without the object copy
			log.Error("analysis: report upload failed", "key", key, "err", err)
		} else {
			a.ReportURL = url
			if err := s.AnalysisRepo.Save(ctx, a); err != nil {
				log.Error("analysis: save report url failed", "analysis", a.ID, "err", err)
				a.ReportURL = ""
			}
		}
	}

	if s.Observer != nil {
		s.Observer.AnalysisCompleted(rep.Confidence.NeedsHumanReview)
	}
	log.Info("analysis: completed",
		"analysis", a.ID,
		"records", rep.RecordCount,
		"needs_review", rep.Confidence.NeedsHumanReview,
		"not_computable", rep.NotComputable,
	)
	return Result{Analysis: a, Report: rep}, nil
}

// Evaluate runs the pipeline on caller-supplied records without touching
// storage.
func (s *Service) Evaluate(_ context.Context, records []scans.ScanRecord, p scans.Prediction, treatmentDates []time.Time) (*longitudinal.Report, error) {
	if p.Date.IsZero() {
		p.Date = s.Clock.Now()
	}
	rep, err := longitudinal.Analyze(longitudinal.Input{
		History:        records,
		Current:        p,
		TreatmentDates: treatmentDates,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	if s.Observer != nil {
		s.Observer.AnalysisCompleted(rep.Confidence.NeedsHumanReview)
	}
	return rep, nil
}

// History returns one page of a patient's stored scan records.
func (s *Service) History(ctx context.Context, tenant, patient string, page, pageSize int) (scans.Page, error) {
	return s.Repo.Paginate(ctx, tenant, patient, page, pageSize)
}

// Analyses returns one page of a patient's stored analyses, newest first.
func (s *Service) Analyses(ctx context.Context, tenant, patient string, page, pageSize int) ([]*analyst.Analysis, error) {
	return s.AnalysisRepo.Paginate(ctx, tenant, patient, page, pageSize)
}

// GetAnalysis ambil 1 analysis by id
func (s *Service) GetAnalysis(ctx context.Context, tenant string, id analyst.AnalysisID) (*analyst.Analysis, error) {
	return s.AnalysisRepo.Get(ctx, tenant, id)
}

// Errors returns the latest rejections recorded for a patient.
func (s *Service) Errors(ctx context.Context, tenant, patient string, limit int) ([]*scanerrors.ScanError, error) {
	return s.ErrorRepo.ListByPatient(ctx, tenant, patient, limit)
}

// ReportKey is the object key under which an analysis report is stored.
func ReportKey(a *analyst.Analysis) string {
	return fmt.Sprintf("%s/%s/%s.json", a.TenantID, a.PatientID, a.ID)
}

func (s *Service) recordError(ctx context.Context, cmd AnalyzeCommand, recordID, phase string, cause error) {
	if s.ErrorRepo == nil {
		return
	}
	details, _ := json.Marshal(errorDetails(cause))
	e := &scanerrors.ScanError{
		TenantID:    cmd.TenantID,
		PatientID:   cmd.PatientID,
		RecordID:    recordID,
		Phase:       phase,
		Message:     cause.Error(),
		DetailsJSON: string(details),
		CreatedAt:   s.Clock.Now(),
	}
	if err := s.ErrorRepo.Save(ctx, e); err != nil {
		s.logger().Error("analysis: save scan error failed", "tenant", cmd.TenantID, "patient", cmd.PatientID, "err", err)
	}
}

func errorDetails(err error) map[string]any {
	var ire *longitudinal.InvalidRecordError
	if errors.As(err, &ire) {
		return map[string]any{"index": ire.Index, "field": ire.Field, "reason": ire.Reason}
	}
	return map[string]any{}
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

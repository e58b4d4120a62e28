package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/tumortrack/internal/domain/analyst"
)

type AnalystRepository struct {
	db *sql.DB
}

func NewAnalystRepository(db *sql.DB) *AnalystRepository {
	return &AnalystRepository{db: db}
}

const analysisColumns = `id, tenant_id, patient_id, record_id, report_url, report_json, narrative, created_at`

// Save inserts an analysis record
func (r *AnalystRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO longitudinal_analyses
  (id, tenant_id, patient_id, record_id, report_url, report_json, narrative, created_at)
VALUES (?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  report_url=VALUES(report_url), report_json=VALUES(report_json), narrative=VALUES(narrative);
`
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		a.ID, stringOrDash(a.TenantID), stringOrDash(a.PatientID), stringOrDash(a.RecordID),
		a.ReportURL, jsonOrEmpty(string(a.Report)), a.Narrative, createdAt,
	)
	return err
}

// Get by ID + Tenant
func (r *AnalystRepository) Get(ctx context.Context, tenant string, id domain.AnalysisID) (*domain.Analysis, error) {
	q := `SELECT ` + analysisColumns + ` FROM longitudinal_analyses WHERE tenant_id=? AND id=? LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, tenant, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

// Paginate returns a page of a patient's analyses ordered by created_at desc
func (r *AnalystRepository) Paginate(ctx context.Context, tenant, patient string, page, pageSize int) ([]*domain.Analysis, error) {
	_, pageSize, offset := normalizePage(page, pageSize)

	q := `SELECT ` + analysisColumns + `
FROM longitudinal_analyses
WHERE tenant_id=? AND patient_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, q, tenant, patient, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetNarrative hanya update kolom narrative
func (r *AnalystRepository) SetNarrative(ctx context.Context, tenant string, id domain.AnalysisID, narrative string) error {
	const q = `UPDATE longitudinal_analyses SET narrative=? WHERE tenant_id=? AND id=?;`
	res, err := r.db.ExecContext(ctx, q, narrative, tenant, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 when the value is unchanged, so confirm the row exists
		if _, err := r.Get(ctx, tenant, id); err != nil {
			return err
		}
	}
	return nil
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	var a domain.Analysis
	var report []byte
	if err := row.Scan(&a.ID, &a.TenantID, &a.PatientID, &a.RecordID, &a.ReportURL, &report, &a.Narrative, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Report = report
	return &a, nil
}

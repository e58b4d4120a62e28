package postgres

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

// Save inserts or updates an analysis record
func (r *AnalystRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO longitudinal_analyses
  (id, tenant_id, patient_id, record_id, report_url, report_json, narrative, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  report_url=EXCLUDED.report_url,
  report_json=EXCLUDED.report_json,
  narrative=EXCLUDED.narrative;
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
	q := `SELECT ` + analysisColumns + ` FROM longitudinal_analyses WHERE tenant_id=$1 AND id=$2 LIMIT 1;`
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
WHERE tenant_id=$1 AND patient_id=$2
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4;`
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

func (r *AnalystRepository) SetNarrative(ctx context.Context, tenant string, id domain.AnalysisID, narrative string) error {
	const q = `UPDATE longitudinal_analyses SET narrative=$1 WHERE tenant_id=$2 AND id=$3;`
	res, err := r.db.ExecContext(ctx, q, narrative, tenant, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
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

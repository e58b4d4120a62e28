package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/tumortrack/internal/domain/scanerrors"
)

type ScanErrorRepository struct {
	db *sql.DB
}

func NewScanErrorRepository(db *sql.DB) *ScanErrorRepository { return &ScanErrorRepository{db: db} }

func (r *ScanErrorRepository) Save(ctx context.Context, e *domain.ScanError) error {
	const q = `
INSERT INTO scan_errors
  (tenant_id, patient_id, record_id, phase, message, details_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id;`
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return r.db.QueryRowContext(ctx, q,
		stringOrDash(e.TenantID), stringOrDash(e.PatientID), stringOrDash(e.RecordID),
		stringOrDash(e.Phase), msg, jsonOrEmpty(e.DetailsJSON), created,
	).Scan(&e.ID)
}

func (r *ScanErrorRepository) ListByPatient(ctx context.Context, tenant, patient string, limit int) ([]*domain.ScanError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, patient_id, record_id, phase, message, details_json, created_at
FROM scan_errors
WHERE tenant_id = $1 AND patient_id = $2
ORDER BY created_at DESC, id DESC
LIMIT $3;`
	rows, err := r.db.QueryContext(ctx, q, tenant, patient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.ScanError
	for rows.Next() {
		var e domain.ScanError
		if err := rows.Scan(&e.ID, &e.TenantID, &e.PatientID, &e.RecordID, &e.Phase, &e.Message, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	domain "github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

type ScanRepository struct{ db *sql.DB }

func NewScanRepository(db *sql.DB) *ScanRepository { return &ScanRepository{db: db} }

const scanColumns = `id, tenant_id, patient_id, scan_date, volume, tumor_type, tumor_grade, confidence`

// Save inserts a scan record, or replaces the tenant's record with the same
// ID when it belongs to the same patient. A record of another patient is
// left untouched and domain.ErrConflict is returned.
func (r *ScanRepository) Save(ctx context.Context, s *domain.ScanRecord) error {
	const q = `
INSERT INTO patient_scans
(id, tenant_id, patient_id, scan_date, volume, tumor_type, tumor_grade, confidence, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (tenant_id, id) DO UPDATE SET
 scan_date = EXCLUDED.scan_date,
 volume = EXCLUDED.volume,
 tumor_type = EXCLUDED.tumor_type,
 tumor_grade = EXCLUDED.tumor_grade,
 confidence = EXCLUDED.confidence
WHERE patient_scans.patient_id = EXCLUDED.patient_id;`

	res, err := r.db.ExecContext(ctx, q,
		s.ID, stringOrDash(s.TenantID), stringOrDash(s.PatientID),
		s.Date.UTC(), s.Volume, string(s.TumorType), gradeValue(s.TumorGrade), s.Confidence,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving scan %s: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving scan %s: %w", s.ID, err)
	}
	// the conditional update skipped a row owned by another patient
	if n == 0 {
		return fmt.Errorf("saving scan %s: %w", s.ID, domain.ErrConflict)
	}
	return nil
}

// ListByPatient returns the full history of one patient, oldest first
func (r *ScanRepository) ListByPatient(ctx context.Context, tenant, patient string) ([]domain.ScanRecord, error) {
	q := `SELECT ` + scanColumns + `
FROM patient_scans
WHERE tenant_id=$1 AND patient_id=$2
ORDER BY scan_date ASC, id ASC;`
	rows, err := r.db.QueryContext(ctx, q, tenant, patient)
	if err != nil {
		return nil, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	var out []domain.ScanRecord
	for rows.Next() {
		s, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Paginate with offset + limit, newest first
func (r *ScanRepository) Paginate(ctx context.Context, tenant, patient string, page, pageSize int) (domain.Page, error) {
	page, pageSize, offset := normalizePage(page, pageSize)

	q := `SELECT ` + scanColumns + `
FROM patient_scans
WHERE tenant_id=$1 AND patient_id=$2
ORDER BY scan_date DESC, id DESC
LIMIT $3 OFFSET $4;`
	rows, err := r.db.QueryContext(ctx, q, tenant, patient, pageSize, offset)
	if err != nil {
		return domain.Page{}, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	var data []*domain.ScanRecord
	for rows.Next() {
		s, err := scanRecord(rows)
		if err != nil {
			return domain.Page{}, err
		}
		data = append(data, &s)
	}
	if err = rows.Err(); err != nil {
		return domain.Page{}, fmt.Errorf("iterating rows: %w", err)
	}

	var total int64
	const cq = `SELECT COUNT(*) FROM patient_scans WHERE tenant_id=$1 AND patient_id=$2`
	if err := r.db.QueryRowContext(ctx, cq, tenant, patient).Scan(&total); err != nil {
		return domain.Page{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.Page{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.ScanRecord, error) {
	var s domain.ScanRecord
	var grade sql.NullString
	if err := row.Scan(&s.ID, &s.TenantID, &s.PatientID, &s.Date, &s.Volume, &s.TumorType, &grade, &s.Confidence); err != nil {
		return domain.ScanRecord{}, fmt.Errorf("scanning row: %w", err)
	}
	s.Date = s.Date.UTC()
	s.TumorGrade = gradeFrom(grade)
	return s, nil
}

package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	domain "github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

const scanColumns = `id, tenant_id, patient_id, scan_date, volume, tumor_type, tumor_grade, confidence`

// Save inserts a scan record, or replaces the tenant's record with the same
// ID when it belongs to the same patient. The owner check and the upsert
// run in one transaction with the existing row locked.
func (r *ScanRepository) Save(ctx context.Context, s *domain.ScanRecord) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving scan %s: begin: %w", s.ID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	tenant, patient := stringOrDash(s.TenantID), stringOrDash(s.PatientID)

	var owner string
	err = tx.QueryRowContext(ctx,
		`SELECT patient_id FROM patient_scans WHERE tenant_id=? AND id=? FOR UPDATE`,
		tenant, s.ID,
	).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	case err != nil:
		return fmt.Errorf("saving scan %s: owner check: %w", s.ID, err)
	case owner != patient:
		err = fmt.Errorf("saving scan %s: %w", s.ID, domain.ErrConflict)
		return err
	}

	const q = `
INSERT INTO patient_scans
(id, tenant_id, patient_id, scan_date, volume, tumor_type, tumor_grade, confidence, created_at)
VALUES (?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 scan_date=VALUES(scan_date), volume=VALUES(volume),
 tumor_type=VALUES(tumor_type), tumor_grade=VALUES(tumor_grade),
 confidence=VALUES(confidence);
`
	if _, err = tx.ExecContext(ctx, q,
		s.ID, tenant, patient,
		s.Date.UTC(), s.Volume, string(s.TumorType), gradeValue(s.TumorGrade), s.Confidence,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("saving scan %s: %w", s.ID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("saving scan %s: commit: %w", s.ID, err)
	}
	return nil
}

// ListByPatient returns the full history of one patient, oldest first
func (r *ScanRepository) ListByPatient(ctx context.Context, tenant, patient string) ([]domain.ScanRecord, error) {
	q := `SELECT ` + scanColumns + `
FROM patient_scans
WHERE tenant_id=? AND patient_id=?
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

// Paginate with offset + limit (classic pagination), newest first
func (r *ScanRepository) Paginate(ctx context.Context, tenant, patient string, page, pageSize int) (domain.Page, error) {
	page, pageSize, offset := normalizePage(page, pageSize)

	q := `SELECT ` + scanColumns + `
FROM patient_scans
WHERE tenant_id=? AND patient_id=?
ORDER BY scan_date DESC, id DESC
LIMIT ? OFFSET ?;`
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
	const cq = `SELECT COUNT(*) FROM patient_scans WHERE tenant_id=? AND patient_id=?`
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

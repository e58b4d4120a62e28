package scans

import (
	"context"
	"errors"
)

// ErrConflict is returned by Repository.Save when the record ID is already
// used by another patient of the same tenant. Record IDs are unique per
// tenant.
var ErrConflict = errors.New("scan id already used by another patient")

// Repository port (interface untuk persistence of patient history)
type Repository interface {
	// Save inserts the record or, when tenant and ID match a stored record of
	// the same patient, replaces it.
	Save(ctx context.Context, r *ScanRecord) error
	// ListByPatient returns the full history of a patient, in any order.
	ListByPatient(ctx context.Context, tenant, patient string) ([]ScanRecord, error)
	Paginate(ctx context.Context, tenant, patient string, page, pageSize int) (Page, error)
}

// ReportStore port (penyimpanan report JSON)
type ReportStore interface {
	Put(ctx context.Context, key string, body []byte) (string, error)
}

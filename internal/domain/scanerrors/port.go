package scanerrors

import (
	"context"
)

// Repository defines persistence for scan errors
type Repository interface {
	Save(ctx context.Context, e *ScanError) error
	ListByPatient(ctx context.Context, tenant, patient string, limit int) ([]*ScanError, error)
}

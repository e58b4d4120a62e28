package analyst

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and SetNarrative for an unknown analysis.
var ErrNotFound = errors.New("analysis not found")

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, tenant string, id AnalysisID) (*Analysis, error)
	Paginate(ctx context.Context, tenant, patient string, page, pageSize int) ([]*Analysis, error)
	SetNarrative(ctx context.Context, tenant string, id AnalysisID, narrative string) error
}

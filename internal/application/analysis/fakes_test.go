package analysis

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/bryanwahyu/tumortrack/internal/domain/analyst"
	"github.com/bryanwahyu/tumortrack/internal/domain/scanerrors"
	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

type memScans struct {
	mu      sync.Mutex
	records []scans.ScanRecord
	listErr error
}

// Save upserts on (tenant, id) like the SQL adapters.
func (m *memScans) Save(_ context.Context, r *scans.ScanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, old := range m.records {
		if old.TenantID != r.TenantID || old.ID != r.ID {
			continue
		}
		if old.PatientID != r.PatientID {
			return scans.ErrConflict
		}
		m.records[i] = *r
		return nil
	}
	m.records = append(m.records, *r)
	return nil
}

func (m *memScans) ListByPatient(_ context.Context, tenant, patient string) ([]scans.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []scans.ScanRecord
	for _, r := range m.records {
		if r.TenantID == tenant && r.PatientID == patient {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memScans) Paginate(ctx context.Context, tenant, patient string, page, pageSize int) (scans.Page, error) {
	all, _ := m.ListByPatient(ctx, tenant, patient)
	return scans.Page{Data: nil, Page: page, PageSize: pageSize, Total: int64(len(all))}, nil
}

type memAnalyses struct {
	mu      sync.Mutex
	byID    map[analyst.AnalysisID]*analyst.Analysis
	saveErr error
}

func newMemAnalyses() *memAnalyses {
	return &memAnalyses{byID: map[analyst.AnalysisID]*analyst.Analysis{}}
}

func (m *memAnalyses) Save(_ context.Context, a *analyst.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAnalyses) Get(_ context.Context, tenant string, id analyst.AnalysisID) (*analyst.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.TenantID != tenant {
		return nil, analyst.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAnalyses) Paginate(_ context.Context, tenant, patient string, _, _ int) ([]*analyst.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*analyst.Analysis
	for _, a := range m.byID {
		if a.TenantID == tenant && a.PatientID == patient {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memAnalyses) SetNarrative(_ context.Context, tenant string, id analyst.AnalysisID, narrative string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.TenantID != tenant {
		return analyst.ErrNotFound
	}
	a.Narrative = narrative
	return nil
}

type memErrors struct {
	mu   sync.Mutex
	list []*scanerrors.ScanError
}

func (m *memErrors) Save(_ context.Context, e *scanerrors.ScanError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, e)
	return nil
}

func (m *memErrors) ListByPatient(_ context.Context, tenant, patient string, _ int) ([]*scanerrors.ScanError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*scanerrors.ScanError
	for _, e := range m.list {
		if e.TenantID == tenant && e.PatientID == patient {
			out = append(out, e)
		}
	}
	return out, nil
}

type memReports struct {
	objects map[string][]byte
	err     error
}

func (m *memReports) Put(_ context.Context, key string, body []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = body
	return "mem://" + key, nil
}

type countingObserver struct {
	completed, reviews, rejected int
}

func (o *countingObserver) AnalysisCompleted(needsReview bool) {
	o.completed++
	if needsReview {
		o.reviews++
	}
}

func (o *countingObserver) RecordRejected() { o.rejected++ }

var errBoom = errors.New("boom")

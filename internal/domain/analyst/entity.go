package analyst

import (
	"encoding/json"
	"time"
)

// AnalysisID identifier type
type AnalysisID string

// Analysis is one stored longitudinal report, kept for auditing and retrieval.
type Analysis struct {
	ID        AnalysisID      `json:"id"`
	TenantID  string          `json:"tenant_id"`
	PatientID string          `json:"patient_id"`
	RecordID  string          `json:"record_id"`
	ReportURL string          `json:"report_url,omitempty"`
	Report    json.RawMessage `json:"report"`
	Narrative string          `json:"narrative,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

package scanerrors

import "time"

// Phases a ScanError can be recorded in.
const (
	PhaseValidate = "validate"
	PhaseAnalyze  = "analyze"
	PhasePersist  = "persist"
)

// ScanError represents a persisted rejection or failure entry
type ScanError struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	PatientID   string    `json:"patient_id"`
	RecordID    string    `json:"record_id,omitempty"`
	Phase       string    `json:"phase,omitempty"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}

package scans

import (
	"time"
)

// RecordID identifies one stored ScanRecord
type RecordID string

// TumorType enum
type TumorType string

const (
	TypeGlioma     TumorType = "glioma"
	TypeMeningioma TumorType = "meningioma"
	TypePituitary  TumorType = "pituitary"
	TypeNormal     TumorType = "normal" // no finding
)

// Valid reports whether t is one of the classifier's labels.
func (t TumorType) Valid() bool {
	switch t {
	case TypeGlioma, TypeMeningioma, TypePituitary, TypeNormal:
		return true
	}
	return false
}

// Gradable reports whether records of this type carry a grade.
func (t TumorType) Gradable() bool { return t == TypeGlioma }

// Grade enum (WHO grade, roman numerals)
type Grade string

const (
	GradeI   Grade = "I"
	GradeII  Grade = "II"
	GradeIII Grade = "III"
	GradeIV  Grade = "IV"
)

func (g Grade) Valid() bool {
	switch g {
	case GradeI, GradeII, GradeIII, GradeIV:
		return true
	}
	return false
}

// HighGrade reports grade III or IV.
func (g Grade) HighGrade() bool { return g == GradeIII || g == GradeIV }

// ScanRecord is the summary of one imaging study.
// Grade is nil when the type is not gradable; a nil grade is distinct
// from every concrete grade.
type ScanRecord struct {
	ID         RecordID  `json:"id,omitempty"`
	TenantID   string    `json:"tenant_id,omitempty"`
	PatientID  string    `json:"patient_id,omitempty"`
	Date       time.Time `json:"date"`
	Volume     float64   `json:"volume"`
	TumorType  TumorType `json:"tumor_type"`
	TumorGrade *Grade    `json:"tumor_grade"`
	Confidence float64   `json:"confidence"`
}

// GradeOrEmpty returns the grade as a string, "" when absent.
func (r ScanRecord) GradeOrEmpty() string {
	if r.TumorGrade == nil {
		return ""
	}
	return string(*r.TumorGrade)
}

// Prediction is the classifier output for the scan being analysed.
type Prediction struct {
	Date               time.Time          `json:"date"`
	Volume             float64            `json:"tumor_volume"`
	TumorType          TumorType          `json:"tumor_type"`
	TumorGrade         *Grade             `json:"tumor_grade"`
	Probability        float64            `json:"tumor_probability"`
	ClassProbabilities map[string]float64 `json:"class_probabilities"`
}

// Record turns the prediction into the ScanRecord appended to history.
func (p Prediction) Record() ScanRecord {
	return ScanRecord{
		Date:       p.Date,
		Volume:     p.Volume,
		TumorType:  p.TumorType,
		TumorGrade: p.TumorGrade,
		Confidence: p.Probability,
	}
}

// GradePtr is a helper for building records with a grade.
func GradePtr(g Grade) *Grade { return &g }

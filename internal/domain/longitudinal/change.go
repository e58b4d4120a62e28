package longitudinal

import "github.com/bryanwahyu/tumortrack/internal/domain/scans"

// ChangeReport is the delta between two consecutive scans.
type ChangeReport struct {
	VolumeChange float64 `json:"volume_change"`
	// VolumeChangePercent is nil when the previous volume is zero.
	VolumeChangePercent *float64 `json:"volume_change_percent"`
	DaysBetweenScans    int      `json:"days_between_scans"`
	TypeChange          bool     `json:"type_change"`
	GradeChange         bool     `json:"grade_change"`
	ConfidenceChange    float64  `json:"confidence_change"`
}

// DetectChange compares previous and current as given; it does not reorder
// them.
func DetectChange(previous, current scans.ScanRecord) ChangeReport {
	change := current.Volume - previous.Volume
	out := ChangeReport{
		VolumeChange:     change,
		DaysBetweenScans: wholeDays(current.Date.Sub(previous.Date)),
		TypeChange:       current.TumorType != previous.TumorType,
		GradeChange:      !sameGrade(previous.TumorGrade, current.TumorGrade),
		ConfidenceChange: current.Confidence - previous.Confidence,
	}
	if previous.Volume != 0 {
		out.VolumeChangePercent = ptr(change / previous.Volume * 100)
	}
	return out
}

func sameGrade(a, b *scans.Grade) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

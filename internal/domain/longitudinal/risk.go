package longitudinal

import (
	"math"

	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

var typeRisk = map[scans.TumorType]float64{
	scans.TypeGlioma:     0.8,
	scans.TypeMeningioma: 0.4,
	scans.TypePituitary:  0.3,
	scans.TypeNormal:     0.0,
}

var gradeRisk = map[scans.Grade]float64{
	scans.GradeI:   0.2,
	scans.GradeII:  0.4,
	scans.GradeIII: 0.6,
	scans.GradeIV:  0.8,
}

// base survival in months per type
var baseSurvival = map[scans.TumorType]float64{
	scans.TypeGlioma:     24,
	scans.TypeMeningioma: 60,
	scans.TypePituitary:  48,
	scans.TypeNormal:     120,
}

// RiskProfile is a heuristic risk score for a single record.
type RiskProfile struct {
	RiskScore               float64         `json:"risk_score"`
	EstimatedSurvivalMonths float64         `json:"estimated_survival_months"`
	TumorType               scans.TumorType `json:"tumor_type"`
	TumorGrade              *scans.Grade    `json:"tumor_grade"`
	TumorVolume             *float64        `json:"tumor_volume"`
}

// Risk scores a record from its type, grade and volume. The score is the
// mean of the three components, capped at 1.
func Risk(r scans.ScanRecord) RiskProfile {
	score := typeRisk[r.TumorType]
	if r.TumorGrade != nil {
		score += gradeRisk[*r.TumorGrade]
	}
	out := RiskProfile{TumorType: r.TumorType, TumorGrade: r.TumorGrade}
	if r.Volume > 0 {
		score += math.Min(r.Volume/100, 1)
		out.TumorVolume = ptr(r.Volume)
	}
	out.RiskScore = math.Min(score/3, 1)
	out.EstimatedSurvivalMonths = baseSurvival[r.TumorType] * (1 - out.RiskScore)
	return out
}

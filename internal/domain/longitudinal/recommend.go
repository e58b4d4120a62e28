package longitudinal

import (
	"math"
	"time"

	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

// Urgency is the recommendation severity.
type Urgency string

const (
	UrgencyRoutine  Urgency = "routine"
	UrgencyModerate Urgency = "moderate"
	UrgencyUrgent   Urgency = "urgent"
)

// Policy thresholds on the mean growth rate (volume per day). Both bounds
// are exclusive: a rate equal to a threshold falls into the lower level.
const (
	UrgentGrowthRate   = 0.5
	ModerateGrowthRate = 0.2

	// LargeTumorVolume is the volume above which a tumor counts as large.
	LargeTumorVolume = 50.0

	// scanHorizon divided by the growth rate gives the days until the next
	// scan, capped at MaxScanIntervalDays.
	scanHorizon         = 30.0
	MaxScanIntervalDays = 90
)

// TreatmentOption is one entry of the fixed treatment vocabulary.
type TreatmentOption string

const (
	TreatmentMultimodal    TreatmentOption = "Surgery + Radiation + Chemotherapy"
	TreatmentTargeted      TreatmentOption = "Targeted therapy"
	TreatmentClinicalTrial TreatmentOption = "Clinical trial participation"
	TreatmentSurgery       TreatmentOption = "Surgery"
	TreatmentRadiation     TreatmentOption = "Radiation therapy"
	TreatmentWatchAndWait  TreatmentOption = "Watch and wait"
)

// RiskFactor is one entry of the fixed risk vocabulary.
type RiskFactor string

const (
	RiskRapidGrowth     RiskFactor = "Rapid growth rate"
	RiskLargeTumor      RiskFactor = "Large tumor size"
	RiskHighGradeGlioma RiskFactor = "High-grade glioma"
)

// treatmentPlan enumerates the (type, grade) variants of the catalog.
type treatmentPlan int

const (
	planNone treatmentPlan = iota
	planHighGradeGlioma
	planStandard
)

var treatmentCatalog = map[treatmentPlan][]TreatmentOption{
	planNone:            {},
	planHighGradeGlioma: {TreatmentMultimodal, TreatmentTargeted, TreatmentClinicalTrial},
	planStandard:        {TreatmentSurgery, TreatmentRadiation, TreatmentWatchAndWait},
}

func planFor(t scans.TumorType, g *scans.Grade) treatmentPlan {
	switch t {
	case scans.TypeGlioma:
		if isHighGrade(g) {
			return planHighGradeGlioma
		}
		return planStandard
	case scans.TypeMeningioma:
		return planStandard
	case scans.TypePituitary, scans.TypeNormal:
		return planNone
	default:
		return planNone
	}
}

func isHighGrade(g *scans.Grade) bool { return g != nil && g.HighGrade() }

// Recommendation is the follow-up plan for the latest scan.
type Recommendation struct {
	UrgencyLevel      Urgency           `json:"urgency_level"`
	NextScanDate      time.Time         `json:"next_scan_date"`
	DaysUntilNextScan int               `json:"days_until_next_scan"`
	TreatmentOptions  []TreatmentOption `json:"treatment_options"`
	RiskFactors       []RiskFactor      `json:"risk_factors"`
}

// Recommend applies the fixed policy to growth statistics and the latest
// record. A nil growth means the history was too short and yields
// ErrNotComputable.
func Recommend(growth *GrowthStatistics, latest scans.ScanRecord) (*Recommendation, error) {
	if growth == nil {
		return nil, ErrNotComputable
	}
	rate := growth.MeanGrowthRate

	days := nextScanDays(rate)
	options := treatmentCatalog[planFor(latest.TumorType, latest.TumorGrade)]

	risks := []RiskFactor{}
	if rate > ModerateGrowthRate {
		risks = append(risks, RiskRapidGrowth)
	}
	if latest.Volume > LargeTumorVolume {
		risks = append(risks, RiskLargeTumor)
	}
	if latest.TumorType == scans.TypeGlioma && isHighGrade(latest.TumorGrade) {
		risks = append(risks, RiskHighGradeGlioma)
	}

	return &Recommendation{
		UrgencyLevel:      urgencyFor(rate),
		NextScanDate:      latest.Date.AddDate(0, 0, days),
		DaysUntilNextScan: days,
		TreatmentOptions:  append([]TreatmentOption{}, options...),
		RiskFactors:       risks,
	}, nil
}

func urgencyFor(rate float64) Urgency {
	switch {
	case rate > UrgentGrowthRate:
		return UrgencyUrgent
	case rate > ModerateGrowthRate:
		return UrgencyModerate
	default:
		return UrgencyRoutine
	}
}

func nextScanDays(rate float64) int {
	if rate <= 0 {
		return MaxScanIntervalDays
	}
	d := math.Round(scanHorizon / rate)
	if d > MaxScanIntervalDays {
		return MaxScanIntervalDays
	}
	return int(d)
}

package longitudinal

import (
	"errors"
	"time"

	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

// Report section names, as used in Report.NotComputable.
const (
	SectionGrowth            = "growth_metrics"
	SectionTrend             = "trend_analysis"
	SectionChanges           = "changes_from_previous"
	SectionRecommendation    = "recommendation"
	SectionTreatmentResponse = "treatment_response"
)

// Input is everything one analysis needs.
type Input struct {
	History        []scans.ScanRecord
	Current        scans.Prediction
	TreatmentDates []time.Time
}

// Report is the full longitudinal analysis for one new scan. Optional
// sections are nil when the history is too short; their names are then
// listed in NotComputable.
type Report struct {
	RecordCount       int                `json:"record_count"`
	Growth            *GrowthStatistics  `json:"growth_metrics"`
	Trend             *TrendAnalysis     `json:"trend_analysis"`
	Changes           *ChangeReport      `json:"changes_from_previous"`
	Recommendation    *Recommendation    `json:"recommendation"`
	TreatmentResponse []PeriodResponse   `json:"treatment_response"`
	Risk              RiskProfile        `json:"risk_profile"`
	Confidence        ConfidenceMetrics  `json:"confidence_metrics"`
	NotComputable     []string           `json:"not_computable"`
	History           []scans.ScanRecord `json:"historical_data"`
}

// Analyze appends the current prediction to a copy of the history and runs
// the full pipeline. Invalid records or an invalid distribution fail the
// whole analysis; no partial report is returned.
func Analyze(in Input) (*Report, error) {
	all := make([]scans.ScanRecord, 0, len(in.History)+1)
	all = append(all, in.History...)
	all = append(all, in.Current.Record())

	sorted, err := Normalize(all)
	if err != nil {
		return nil, err
	}
	conf, err := Route(in.Current.ClassProbabilities)
	if err != nil {
		return nil, err
	}

	latest := sorted[len(sorted)-1]
	rep := &Report{
		RecordCount:   len(sorted),
		Risk:          Risk(latest),
		Confidence:    conf,
		NotComputable: []string{},
		History:       sorted,
	}

	if rep.Growth, err = Growth(sorted); err != nil {
		if !errors.Is(err, ErrNotComputable) {
			return nil, err
		}
		rep.NotComputable = append(rep.NotComputable, SectionGrowth)
	}
	if rep.Trend, err = Trend(sorted); err != nil {
		if !errors.Is(err, ErrNotComputable) {
			return nil, err
		}
		rep.NotComputable = append(rep.NotComputable, SectionTrend)
	}
	if len(sorted) >= 2 {
		ch := DetectChange(sorted[len(sorted)-2], latest)
		rep.Changes = &ch
	} else {
		rep.NotComputable = append(rep.NotComputable, SectionChanges)
	}
	if rep.Recommendation, err = Recommend(rep.Growth, latest); err != nil {
		if !errors.Is(err, ErrNotComputable) {
			return nil, err
		}
		rep.NotComputable = append(rep.NotComputable, SectionRecommendation)
	}
	if rep.TreatmentResponse, err = TreatmentResponse(sorted, in.TreatmentDates); err != nil {
		if !errors.Is(err, ErrNotComputable) {
			return nil, err
		}
		rep.NotComputable = append(rep.NotComputable, SectionTreatmentResponse)
	}
	return rep, nil
}

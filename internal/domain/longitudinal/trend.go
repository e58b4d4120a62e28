package longitudinal

import (
	"slices"

	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

// ConfidenceDirection labels the first-vs-last change in model confidence.
type ConfidenceDirection string

const (
	ConfidenceImproving  ConfidenceDirection = "improving"
	ConfidenceDecreasing ConfidenceDirection = "decreasing"
	ConfidenceStable     ConfidenceDirection = "stable"
)

// VolumeStats is the summary of all volumes in a history.
type VolumeStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// TrendAnalysis compares the first and last record only. It is deliberately
// separate from GrowthStatistics.GrowthTrend, which is interval based.
type TrendAnalysis struct {
	VolumeStats       VolumeStats         `json:"volume_stats"`
	VolumeTrend       Direction           `json:"volume_trend"`
	RateOfChange      float64             `json:"rate_of_change"`
	VolumeVariability float64             `json:"volume_variability"`
	ConfidenceTrend   ConfidenceDirection `json:"confidence_trend"`
	TotalDays         int                 `json:"total_days"`
}

// Trend analyses sorted records. It returns ErrNotComputable with fewer
// than two records.
func Trend(records []scans.ScanRecord) (*TrendAnalysis, error) {
	if len(records) < 2 {
		return nil, ErrNotComputable
	}

	volumes := make([]float64, len(records))
	for i, r := range records {
		volumes[i] = r.Volume
	}
	first, last := records[0], records[len(records)-1]

	stats := VolumeStats{
		Mean: mean(volumes),
		Std:  populationStd(volumes),
		Min:  slices.Min(volumes),
		Max:  slices.Max(volumes),
	}

	out := &TrendAnalysis{
		VolumeStats:     stats,
		VolumeTrend:     directionOf(last.Volume - first.Volume),
		ConfidenceTrend: confidenceDirection(last.Confidence - first.Confidence),
		TotalDays:       wholeDays(last.Date.Sub(first.Date)),
	}
	// zero span: rate stays 0
	if out.TotalDays > 0 {
		out.RateOfChange = (last.Volume - first.Volume) / float64(out.TotalDays)
	}
	if stats.Mean > 0 {
		out.VolumeVariability = stats.Std / stats.Mean
	}
	return out, nil
}

func confidenceDirection(delta float64) ConfidenceDirection {
	switch {
	case delta > 0:
		return ConfidenceImproving
	case delta < 0:
		return ConfidenceDecreasing
	default:
		return ConfidenceStable
	}
}

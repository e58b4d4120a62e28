package longitudinal

import (
	"math"

	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

// GrowthStatistics summarises per-interval growth rates (volume change per
// day) between consecutive records.
type GrowthStatistics struct {
	MeanGrowthRate float64 `json:"mean_growth_rate"`
	StdGrowthRate  float64 `json:"std_growth_rate"`
	// DoublingTime is nil unless MeanGrowthRate > 0.
	DoublingTime *float64  `json:"doubling_time"`
	GrowthTrend  Direction `json:"growth_trend"`

	// Intervals is the number of intervals that entered the statistics.
	// ExcludedIntervals counts zero-day intervals, which have no defined rate.
	Intervals         int `json:"intervals"`
	ExcludedIntervals int `json:"excluded_intervals"`
}

// Growth computes growth statistics over records, which must already be
// sorted (see Normalize). It returns ErrNotComputable with fewer than two
// records or when every interval spans zero days.
func Growth(records []scans.ScanRecord) (*GrowthStatistics, error) {
	if len(records) < 2 {
		return nil, ErrNotComputable
	}

	first := records[0].Date
	rates := make([]float64, 0, len(records)-1)
	excluded := 0
	prevDay := 0
	for i := 1; i < len(records); i++ {
		day := wholeDays(records[i].Date.Sub(first))
		dt := day - prevDay
		prevDay = day
		if dt == 0 {
			excluded++
			continue
		}
		rates = append(rates, (records[i].Volume-records[i-1].Volume)/float64(dt))
	}
	if len(rates) == 0 {
		return nil, ErrNotComputable
	}

	m := mean(rates)
	out := &GrowthStatistics{
		MeanGrowthRate:    m,
		StdGrowthRate:     populationStd(rates),
		GrowthTrend:       directionOf(m),
		Intervals:         len(rates),
		ExcludedIntervals: excluded,
	}
	if m > 0 {
		out.DoublingTime = ptr(math.Ln2 / m)
	}
	return out, nil
}

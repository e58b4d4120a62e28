package longitudinal

import (
	"math"
	"time"
)

// Direction is a coarse trend label.
type Direction string

const (
	Increasing Direction = "increasing"
	Decreasing Direction = "decreasing"
	Stable     Direction = "stable"
)

func directionOf(v float64) Direction {
	switch {
	case v > 0:
		return Increasing
	case v < 0:
		return Decreasing
	default:
		return Stable
	}
}

// wholeDays floors d to whole days.
func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// populationStd is the standard deviation with divisor n.
func populationStd(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func ptr(v float64) *float64 { return &v }

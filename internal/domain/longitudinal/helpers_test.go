package longitudinal

import (
	"math"
	"math/rand"
	"time"

	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

var day0 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// rec builds a record dated day days after day0.
func rec(day int, volume float64) scans.ScanRecord {
	return scans.ScanRecord{
		Date:       day0.AddDate(0, 0, day),
		Volume:     volume,
		TumorType:  scans.TypeGlioma,
		TumorGrade: scans.GradePtr(scans.GradeII),
		Confidence: 0.9,
	}
}

// randomHistory generates a shuffled, valid history from a fixed seed.
func randomHistory(seed int64, n int) []scans.ScanRecord {
	rng := rand.New(rand.NewSource(seed))
	types := []scans.TumorType{scans.TypeGlioma, scans.TypeMeningioma, scans.TypePituitary, scans.TypeNormal}
	grades := []scans.Grade{scans.GradeI, scans.GradeII, scans.GradeIII, scans.GradeIV}

	out := make([]scans.ScanRecord, n)
	base := 10 + rng.Float64()*20
	for i := range out {
		t := types[rng.Intn(len(types))]
		var g *scans.Grade
		if t.Gradable() {
			g = scans.GradePtr(grades[rng.Intn(len(grades))])
		}
		out[i] = scans.ScanRecord{
			Date:       day0.AddDate(0, 0, rng.Intn(365)),
			Volume:     base * (1 + 0.1*float64(i) + rng.NormFloat64()*0.1),
			TumorType:  t,
			TumorGrade: g,
			Confidence: 0.7 + rng.Float64()*0.25,
		}
		if out[i].Volume < 0 {
			out[i].Volume = 0
		}
	}
	return out
}

package longitudinal

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

func prediction(day int, volume float64) scans.Prediction {
	return scans.Prediction{
		Date:               day0.AddDate(0, 0, day),
		Volume:             volume,
		TumorType:          scans.TypeGlioma,
		TumorGrade:         scans.GradePtr(scans.GradeII),
		Probability:        0.9,
		ClassProbabilities: map[string]float64{"glioma": 0.9, "meningioma": 0.1},
	}
}

func TestAnalyze_SlowGrowth(t *testing.T) {
	rep, err := Analyze(Input{
		History: []scans.ScanRecord{rec(0, 10)},
		Current: prediction(30, 13),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.RecordCount != 2 {
		t.Errorf("RecordCount = %d, want 2", rep.RecordCount)
	}
	if !almostEqual(rep.Growth.MeanGrowthRate, 0.1, 1e-9) || rep.Growth.GrowthTrend != Increasing {
		t.Errorf("growth = %+v", rep.Growth)
	}
	if rep.Recommendation.UrgencyLevel != UrgencyRoutine {
		t.Errorf("UrgencyLevel = %q, want routine", rep.Recommendation.UrgencyLevel)
	}
	if want := day0.AddDate(0, 0, 120); !rep.Recommendation.NextScanDate.Equal(want) {
		t.Errorf("NextScanDate = %v, want %v", rep.Recommendation.NextScanDate, want)
	}
	if rep.Changes == nil || rep.Changes.DaysBetweenScans != 30 {
		t.Errorf("Changes = %+v", rep.Changes)
	}
	if rep.Confidence.NeedsHumanReview {
		t.Errorf("NeedsHumanReview = true")
	}
	if !slices.Equal(rep.NotComputable, []string{SectionTreatmentResponse}) {
		t.Errorf("NotComputable = %v", rep.NotComputable)
	}
}

func TestAnalyze_FastGrowth(t *testing.T) {
	rep, err := Analyze(Input{
		History: []scans.ScanRecord{rec(0, 10)},
		Current: prediction(10, 16),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !almostEqual(rep.Growth.MeanGrowthRate, 0.6, 1e-9) {
		t.Errorf("MeanGrowthRate = %v, want 0.6", rep.Growth.MeanGrowthRate)
	}
	if rep.Recommendation.UrgencyLevel != UrgencyUrgent {
		t.Errorf("UrgencyLevel = %q, want urgent", rep.Recommendation.UrgencyLevel)
	}
	if want := day0.AddDate(0, 0, 60); !rep.Recommendation.NextScanDate.Equal(want) {
		t.Errorf("NextScanDate = %v, want %v", rep.Recommendation.NextScanDate, want)
	}
	if !slices.Contains(rep.Recommendation.RiskFactors, RiskRapidGrowth) {
		t.Errorf("RiskFactors = %v, want rapid growth", rep.Recommendation.RiskFactors)
	}
}

func TestAnalyze_FirstScan(t *testing.T) {
	rep, err := Analyze(Input{Current: prediction(0, 10)})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.Growth != nil || rep.Trend != nil || rep.Changes != nil || rep.Recommendation != nil {
		t.Errorf("expected only risk and confidence, got %+v", rep)
	}
	want := []string{SectionGrowth, SectionTrend, SectionChanges, SectionRecommendation, SectionTreatmentResponse}
	if !slices.Equal(rep.NotComputable, want) {
		t.Errorf("NotComputable = %v, want %v", rep.NotComputable, want)
	}
}

func TestAnalyze_UnsortedHistory(t *testing.T) {
	history := []scans.ScanRecord{rec(20, 14), rec(0, 10), rec(10, 12)}
	rep, err := Analyze(Input{History: history, Current: prediction(30, 16)})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	for i := 1; i < len(rep.History); i++ {
		if rep.History[i].Date.Before(rep.History[i-1].Date) {
			t.Fatalf("history not sorted at %d", i)
		}
	}
	if !almostEqual(rep.Growth.MeanGrowthRate, 0.2, 1e-9) {
		t.Errorf("MeanGrowthRate = %v, want 0.2", rep.Growth.MeanGrowthRate)
	}
	if history[0].Volume != 14 {
		t.Errorf("input history was reordered")
	}
}

func TestAnalyze_TreatmentResponse(t *testing.T) {
	rep, err := Analyze(Input{
		History:        []scans.ScanRecord{rec(0, 10), rec(10, 12)},
		Current:        prediction(20, 9),
		TreatmentDates: []time.Time{day0.AddDate(0, 0, 10)},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(rep.TreatmentResponse) != 1 {
		t.Fatalf("TreatmentResponse = %+v, want one period", rep.TreatmentResponse)
	}
	if len(rep.NotComputable) != 0 {
		t.Errorf("NotComputable = %v, want none", rep.NotComputable)
	}
}

func TestAnalyze_Rejections(t *testing.T) {
	bad := rec(5, -1)
	if _, err := Analyze(Input{History: []scans.ScanRecord{bad}, Current: prediction(10, 3)}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("invalid history: err = %v, want ErrInvalidRecord", err)
	}

	p := prediction(10, 3)
	p.ClassProbabilities = map[string]float64{"glioma": 0.4}
	if _, err := Analyze(Input{Current: p}); !errors.Is(err, ErrInvalidDistribution) {
		t.Errorf("invalid distribution: err = %v, want ErrInvalidDistribution", err)
	}
}

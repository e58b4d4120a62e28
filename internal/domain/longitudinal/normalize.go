package longitudinal

import (
	"math"
	"slices"

	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

// Normalize validates records and returns a copy sorted ascending by date.
// Records with equal dates keep their input order. The input slice is not
// modified.
func Normalize(records []scans.ScanRecord) ([]scans.ScanRecord, error) {
	for i, r := range records {
		if err := validateRecord(i, r); err != nil {
			return nil, err
		}
	}
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b scans.ScanRecord) int {
		return a.Date.Compare(b.Date)
	})
	return out, nil
}

func validateRecord(i int, r scans.ScanRecord) error {
	switch {
	case r.Date.IsZero():
		return &InvalidRecordError{Index: i, Field: "date", Reason: "is required"}
	case math.IsNaN(r.Volume) || math.IsInf(r.Volume, 0) || r.Volume < 0:
		return &InvalidRecordError{Index: i, Field: "volume", Reason: "must be a non-negative number"}
	case math.IsNaN(r.Confidence) || r.Confidence < 0 || r.Confidence > 1:
		return &InvalidRecordError{Index: i, Field: "confidence", Reason: "must be within [0, 1]"}
	case !r.TumorType.Valid():
		return &InvalidRecordError{Index: i, Field: "tumor_type", Reason: "unknown label " + string(r.TumorType)}
	}
	if r.TumorGrade != nil {
		if !r.TumorType.Gradable() {
			return &InvalidRecordError{Index: i, Field: "tumor_grade", Reason: "not allowed for " + string(r.TumorType)}
		}
		if !r.TumorGrade.Valid() {
			return &InvalidRecordError{Index: i, Field: "tumor_grade", Reason: "unknown grade " + string(*r.TumorGrade)}
		}
	}
	return nil
}

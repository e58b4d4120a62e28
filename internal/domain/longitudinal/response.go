package longitudinal

import (
	"time"

	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

// PeriodResponse is the volume response over one treatment period.
type PeriodResponse struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	InitialVolume float64   `json:"initial_volume"`
	FinalVolume   float64   `json:"final_volume"`
	VolumeChange  float64   `json:"volume_change"`
	// PercentChange is nil when the initial volume is zero.
	PercentChange *float64 `json:"percent_change"`
	TimeSpanDays  int      `json:"time_span"`
	// ResponseRate is nil when the period spans zero days.
	ResponseRate *float64 `json:"response_rate"`
}

// TreatmentResponse splits sorted records into treatment periods and reports
// the volume response of each. A record dated on a treatment day closes the
// period it belongs to. Periods with fewer than two records are skipped.
func TreatmentResponse(records []scans.ScanRecord, treatmentDates []time.Time) ([]PeriodResponse, error) {
	if len(treatmentDates) == 0 || len(records) < 2 {
		return nil, ErrNotComputable
	}

	var periods [][]scans.ScanRecord
	var current []scans.ScanRecord
	for _, r := range records {
		current = append(current, r)
		if onTreatmentDay(r.Date, treatmentDates) {
			periods = append(periods, current)
			current = nil
		}
	}
	if len(current) > 0 {
		periods = append(periods, current)
	}

	out := []PeriodResponse{}
	for _, p := range periods {
		if len(p) < 2 {
			continue
		}
		first, last := p[0], p[len(p)-1]
		resp := PeriodResponse{
			Start:         first.Date,
			End:           last.Date,
			InitialVolume: first.Volume,
			FinalVolume:   last.Volume,
			VolumeChange:  last.Volume - first.Volume,
			TimeSpanDays:  wholeDays(last.Date.Sub(first.Date)),
		}
		if first.Volume != 0 {
			resp.PercentChange = ptr(resp.VolumeChange / first.Volume * 100)
		}
		if resp.TimeSpanDays != 0 {
			resp.ResponseRate = ptr(resp.VolumeChange / float64(resp.TimeSpanDays))
		}
		out = append(out, resp)
	}
	return out, nil
}

func onTreatmentDay(d time.Time, days []time.Time) bool {
	y, m, dd := d.UTC().Date()
	for _, t := range days {
		ty, tm, td := t.UTC().Date()
		if y == ty && m == tm && dd == td {
			return true
		}
	}
	return false
}

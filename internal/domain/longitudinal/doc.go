// Package longitudinal derives multi-visit analytics from a patient's scan
// history.
//
// Every function here is pure: inputs are caller-supplied snapshots, nothing
// is read from or written to storage, and the same input always produces the
// same output. The pipeline entry point is Analyze, which composes
//
//	Normalize       validate and stably sort records by date
//	Growth          per-interval growth rate statistics
//	Trend           end-point trend, volume summary, variability
//	DetectChange    delta between the last two records
//	Recommend       urgency, next scan date, treatment options, risk factors
//	Route           confidence metrics and human review routing
//
// plus TreatmentResponse and Risk for the latest record.
//
// Undefined quantities (zero-day intervals, zero baseline volume) are reported
// absent, never as NaN or ±Inf. Sections that need at least two records fail
// with ErrNotComputable, which callers treat as "no history yet" rather than
// as a failure.
package longitudinal

package longitudinal

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRecord is returned when a scan record violates a field
	// constraint. The whole batch is rejected.
	ErrInvalidRecord = errors.New("invalid scan record")

	// ErrNotComputable marks a result that is absent because the history is
	// too short. It is not a failure.
	ErrNotComputable = errors.New("not computable")

	// ErrInvalidDistribution is returned for an empty or malformed class
	// probability distribution.
	ErrInvalidDistribution = errors.New("invalid class probability distribution")
)

// InvalidRecordError names the offending record and field.
type InvalidRecordError struct {
	Index  int
	Field  string
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("%s: record %d: %s %s", ErrInvalidRecord, e.Index, e.Field, e.Reason)
}

func (e *InvalidRecordError) Is(target error) bool { return target == ErrInvalidRecord }

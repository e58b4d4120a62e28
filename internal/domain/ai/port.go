package ai

import "context"

// Narrator turns a stored longitudinal report (JSON) into a short
// plain-language summary for clinicians.
type Narrator interface {
	Narrate(ctx context.Context, report []byte) (string, error)
}

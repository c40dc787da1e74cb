// Package clockevent persists immutable clock events. Commit re-runs the
// duplication check and inserts inside one atomic unit per dedup key.
package clockevent

import (
	"context"

	"ponto/internal/attendance/dedup"
	"ponto/internal/attendance/models"
)

// BuildFunc runs inside the commit unit. It re-checks duplication through r
// and returns the fully sealed event to insert. Returning an error aborts
// the commit with nothing written.
type BuildFunc func(ctx context.Context, r dedup.Reader) (*models.ClockEvent, error)

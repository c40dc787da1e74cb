// Package dedup enforces the two temporal uniqueness rules for clock events:
// a short rolling window and once per organizational calendar day.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ponto/internal/attendance/models"
	"ponto/pkg/platform/sentinel"
)

// Reader is the read side of the clock-event store the guard needs.
type Reader interface {
	// LatestSince returns the newest event for key with Timestamp >= since,
	// or sentinel.ErrNotFound.
	LatestSince(ctx context.Context, key models.DedupKey, since time.Time) (*models.ClockEvent, error)
	// ExistsBetween reports whether an event for key has Timestamp in [from, to).
	ExistsBetween(ctx context.Context, key models.DedupKey, from, to time.Time) (bool, error)
}

// Guard evaluates both duplication rules for a (employee, unit, type) triple.
type Guard struct {
	window time.Duration
	loc    *time.Location
}

func NewGuard(window time.Duration, loc *time.Location) *Guard {
	if loc == nil {
		loc = time.UTC
	}
	return &Guard{window: window, loc: loc}
}

func (g *Guard) Window() time.Duration { return g.window }

func (g *Guard) Location() *time.Location { return g.loc }

// Check returns DuplicateSubmission when an identical event happened within
// the window before now, else AlreadyRecordedToday when one exists on the
// current local day. The window rule is checked first because it is the
// more specific message.
func (g *Guard) Check(ctx context.Context, r Reader, key models.DedupKey, now time.Time) error {
	if g.window > 0 {
		last, err := r.LatestSince(ctx, key, now.Add(-g.window))
		switch {
		case err == nil:
			retryIn := max(0, g.window-now.Sub(last.Timestamp))
			return models.Reject(models.KindDuplicateSubmission,
				fmt.Sprintf("this %s was just recorded; wait %d seconds before trying again",
					key.Type.Label(), int(retryIn.Round(time.Second).Seconds())),
				map[string]any{
					"tipoBatido":        string(key.Type),
					"retryAfterSeconds": int(retryIn.Round(time.Second).Seconds()),
				})
		case !errors.Is(err, sentinel.ErrNotFound):
			return fmt.Errorf("check duplicate window: %w", err)
		}
	}

	start, end, day := DayWindow(now, g.loc)
	exists, err := r.ExistsBetween(ctx, key, start, end)
	if err != nil {
		return fmt.Errorf("check local day: %w", err)
	}
	if exists {
		return models.Reject(models.KindAlreadyRecordedToday,
			fmt.Sprintf("%s already recorded today", key.Type.Label()),
			map[string]any{
				"tipoBatido": string(key.Type),
				"localDay":   day,
			})
	}
	return nil
}

// DayWindow converts now into loc, takes that zone's midnight-to-midnight
// window and returns it in UTC along with the YYYY-MM-DD day label. DST days
// shorter or longer than 24h are handled by constructing the next midnight
// rather than adding 24h.
func DayWindow(now time.Time, loc *time.Location) (start, end time.Time, day string) {
	local := now.In(loc)
	y, m, d := local.Date()
	startLocal := time.Date(y, m, d, 0, 0, 0, 0, loc)
	endLocal := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return startLocal.UTC(), endLocal.UTC(), startLocal.Format(time.DateOnly)
}

// LocalDay is the YYYY-MM-DD label of t in loc.
func LocalDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

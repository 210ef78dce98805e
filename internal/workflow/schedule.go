package workflow

import (
	"time"

	"github.com/mtomcal/swarm-sub001/internal/swarmerr"
)

// RunOptions carries run(document, when)'s scheduling input (spec.md §4.5).
type RunOptions struct {
	At    string // "HH:MM" local time, mutually exclusive with In
	In    time.Duration
	Force bool
}

// ResolveSchedule returns the absolute scheduled-for time, or the zero
// time if the workflow should transition directly to running. At most
// one of opts.At/opts.In may be set (spec.md §4.5).
func ResolveSchedule(now time.Time, opts RunOptions) (time.Time, error) {
	hasAt := opts.At != ""
	hasIn := opts.In > 0
	if hasAt && hasIn {
		return time.Time{}, swarmerr.Field("at/in", "--at and --in are mutually exclusive")
	}
	if hasIn {
		return now.Add(opts.In), nil
	}
	if hasAt {
		t, err := time.ParseInLocation("15:04", opts.At, now.Location())
		if err != nil {
			return time.Time{}, swarmerr.Wrap(swarmerr.InvalidInput, err, "parse --at time")
		}
		scheduled := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
		if scheduled.Before(now) {
			scheduled = scheduled.Add(24 * time.Hour)
		}
		return scheduled, nil
	}
	return time.Time{}, nil
}

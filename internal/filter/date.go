package filter

import (
	"time"

	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/rules"
)

// freshEnough compares calendar dates: the window is floored to whole days,
// so 36h behaves like 24h and anything under 24h means "posted today".
func freshEnough(l listing.Listing, r *rules.Rules, today time.Time) bool {
	cutoff := listing.AddDays(today, -r.FreshnessDays())
	return !listing.DateOf(l.PostedDate).Before(cutoff)
}

// notExpired passes listings with no deadline or a deadline of today or later.
func notExpired(l listing.Listing, today time.Time) bool {
	if l.Deadline == nil {
		return true
	}
	return !listing.DateOf(*l.Deadline).Before(today)
}

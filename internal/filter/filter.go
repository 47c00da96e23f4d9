// Package filter decides which listings fit the actor profile. Every criterion
// must pass; order only affects which reason is reported.
package filter

import (
	"time"

	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/rules"
)

// Reason names the first criterion a listing failed.
type Reason int

const (
	Passed Reason = iota
	WrongLocation
	UnionOnly
	Stale
	Expired
	ProfileMismatch
)

func (r Reason) String() string {
	switch r {
	case Passed:
		return "passed"
	case WrongLocation:
		return "location"
	case UnionOnly:
		return "union"
	case Stale:
		return "stale"
	case Expired:
		return "expired"
	case ProfileMismatch:
		return "profile"
	default:
		return "unknown"
	}
}

// Check evaluates every criterion against l and returns the first failure.
func Check(l listing.Listing, r *rules.Rules, now time.Time) (Reason, bool) {
	today := listing.DateOf(now)

	switch {
	case !locationOK(l, r):
		return WrongLocation, false
	case !unionOK(l, r):
		return UnionOnly, false
	case !freshEnough(l, r, today):
		return Stale, false
	case !notExpired(l, today):
		return Expired, false
	case !profileOK(l, r):
		return ProfileMismatch, false
	}
	return Passed, true
}

// Apply returns the listings that pass every criterion, in input order.
func Apply(listings []listing.Listing, r *rules.Rules, now time.Time) []listing.Listing {
	kept, _ := Partition(listings, r, now)
	return kept
}

// Partition is Apply plus a count of rejections per reason.
func Partition(listings []listing.Listing, r *rules.Rules, now time.Time) ([]listing.Listing, map[Reason]int) {
	kept := make([]listing.Listing, 0, len(listings))
	rejected := make(map[Reason]int)
	for _, l := range listings {
		reason, ok := Check(l, r, now)
		if !ok {
			rejected[reason]++
			continue
		}
		kept = append(kept, l)
	}
	return kept, rejected
}

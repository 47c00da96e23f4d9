package filter

import (
	"strings"

	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/rules"
)

// locationOK: the location must name an accepted metro area.
func locationOK(l listing.Listing, r *rules.Rules) bool {
	return r.Locations().ContainsAny(strings.ToLower(l.Location))
}

// unionOK: blank status is treated as unspecified and passes; anything else
// must carry a non-union phrase.
func unionOK(l listing.Listing, r *rules.Rules) bool {
	status := strings.ToLower(strings.TrimSpace(l.UnionStatus))
	if status == "" {
		return true
	}
	return r.NonUnion().ContainsAny(status)
}

// profileOK rejects on any exclusion phrase in title or description. Plain
// substring match: "female" also hits "females".
func profileOK(l listing.Listing, r *rules.Rules) bool {
	text := strings.ToLower(l.Title + " " + l.Description)
	return !r.Exclude().ContainsAny(text)
}

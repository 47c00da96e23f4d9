// Package classifier assigns every listing one career-value category.
package classifier

import (
	"strings"

	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/rules"
)

var (
	principalRoles  = []string{"principal", "lead", "supporting", "speaking"}
	backgroundRoles = []string{"background", "extra", "extras"}
)

// Classify returns the category for l. Checks run top to bottom and the first
// hit wins: a top-school affiliation outranks any role signal, and listings
// with no stronger signal fall through to ShortIndie.
func Classify(l listing.Listing, r *rules.Rules) listing.Category {
	text := l.Text()
	role := strings.ToLower(strings.TrimSpace(l.RoleType))

	switch {
	case r.Schools().Has(l.SchoolOrProduction) || r.Schools().ContainsAny(text):
		return listing.StudentFilm
	case oneOf(role, principalRoles):
		return listing.Principal
	case role == "commercial" || strings.Contains(text, "commercial"):
		return listing.Commercial
	case oneOf(role, backgroundRoles):
		return listing.Background
	case strings.Contains(text, "open call") || strings.Contains(text, "workshop") || role == "open call":
		return listing.OpenCall
	default:
		return listing.ShortIndie
	}
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Group is the listings of one category in arrival order.
type Group struct {
	Category listing.Category
	Listings []listing.Listing
}

// GroupByCategory classifies listings and buckets them in priority order.
// Empty categories are omitted; order inside a bucket follows the input.
func GroupByCategory(listings []listing.Listing, r *rules.Rules) []Group {
	buckets := make(map[listing.Category][]listing.Listing)
	for _, l := range listings {
		c := Classify(l, r)
		buckets[c] = append(buckets[c], l)
	}

	groups := make([]Group, 0, len(buckets))
	for _, c := range listing.Categories() {
		if ls, ok := buckets[c]; ok {
			groups = append(groups, Group{Category: c, Listings: ls})
		}
	}
	return groups
}

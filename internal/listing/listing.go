// Package listing defines the source-agnostic casting call record that every
// scraper produces and every pipeline stage consumes.
package listing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// KeyLength is the number of hex characters kept from the identity digest.
const KeyLength = 16

// Listing is one casting opportunity.
type Listing struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PostedDate  time.Time `json:"posted_date"`
	Location    string    `json:"location"`
	UnionStatus string    `json:"union_status"` // empty means unspecified
	RoleType    string    `json:"role_type"`    // principal, background, commercial, voice, other...
	Description string    `json:"description"`
	HowToApply  string    `json:"how_to_apply"`

	Deadline           *time.Time `json:"deadline,omitempty"`
	Compensation       string     `json:"compensation,omitempty"`
	SchoolOrProduction string     `json:"school_or_production,omitempty"`
}

// Valid reports whether the listing carries the fields the pipeline relies on.
// Scrapers drop anything that fails this before emitting it.
func (l Listing) Valid() bool {
	return strings.TrimSpace(l.Title) != "" && strings.TrimSpace(l.URL) != ""
}

// Text returns title, description and affiliation joined and lower-cased.
func (l Listing) Text() string {
	return strings.ToLower(l.Title + " " + l.Description + " " + l.SchoolOrProduction)
}

// Key derives the dedup identity from URL and title only, so the same posting
// mirrored on two boards collapses to one key.
func (l Listing) Key() string {
	return Key(l.URL, l.Title)
}

// Key hashes lower(trim(url)) + "|" + lower(trim(title)).
func Key(url, title string) string {
	raw := strings.ToLower(strings.TrimSpace(url)) + "|" + strings.ToLower(strings.TrimSpace(title))
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:KeyLength]
}

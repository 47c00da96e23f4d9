// Package archive keeps a record of every listing that went out in a digest.
package archive

import (
	"context"
	"time"

	"go-casting-scout/internal/listing"
)

// Archiver stores delivered listings. Archiving is best-effort: the runner
// logs failures and carries on.
type Archiver interface {
	Name() string
	Save(ctx context.Context, runID string, day time.Time, listings []listing.Listing) error
	Close() error
}

// Record is an archived listing.
type Record struct {
	Key   string `json:"key"`
	RunID string `json:"run_id"`
	listing.Listing
}

func records(runID string, listings []listing.Listing) []Record {
	out := make([]Record, len(listings))
	for i, l := range listings {
		out[i] = Record{Key: l.Key(), RunID: runID, Listing: l}
	}
	return out
}

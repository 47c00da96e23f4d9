package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"go-casting-scout/internal/classifier"
	"go-casting-scout/internal/filter"
	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/pipeline"
	"go-casting-scout/internal/scraper"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveCollection(&scraper.Collection{Outcomes: []scraper.Outcome{
		{Source: "craigslist", Count: 12, Duration: time.Second},
		{Source: "reddit", Err: errors.New("403")},
	}})
	m.ObserveResult(&pipeline.Result{
		Rejected: map[filter.Reason]int{filter.WrongLocation: 3, filter.Stale: 2},
		Groups: []classifier.Group{
			{Category: listing.Principal, Listings: make([]listing.Listing, 2)},
			{Category: listing.Background, Listings: make([]listing.Listing, 1)},
		},
	})
	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	m.RunFinished(StatusOK, 40*time.Second, at)
	m.RunFinished(StatusFailed, time.Second, at.Add(time.Hour))

	assert.Equal(t, 12.0, testutil.ToFloat64(m.SourceListings.WithLabelValues("craigslist")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceFailures.WithLabelValues("reddit")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Rejected.WithLabelValues(filter.WrongLocation.String())))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NewListings.WithLabelValues(listing.Principal.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues(StatusOK)))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.LastSuccess), "failed runs do not move the success clock")
}

func TestHandler(t *testing.T) {
	m := New()
	m.SeenEntries.Set(7)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "castingscout_seen_entries 7")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestIndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}

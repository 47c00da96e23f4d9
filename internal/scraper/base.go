// Package scraper defines the contract every casting source implements and
// runs a set of sources concurrently.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go-casting-scout/internal/browser"
	"go-casting-scout/internal/listing"

	"go.uber.org/zap"
)

// Source fetches casting listings from one site. An adapter that cannot reach
// its site returns an error; it never returns partial garbage records.
type Source interface {
	// Name is the stable source identifier (craigslist, reddit, ...).
	Name() string

	Scrape(ctx context.Context) ([]listing.Listing, error)
}

// Outcome is the per-source result of a Collect run.
type Outcome struct {
	Source   string
	Count    int
	Dropped  int
	Duration time.Duration
	Err      error
}

// Collection is everything gathered in one run.
type Collection struct {
	Listings []listing.Listing
	Outcomes []Outcome
}

// Failed lists the sources that errored, in registration order.
func (c *Collection) Failed() []string {
	var names []string
	for _, o := range c.Outcomes {
		if o.Err != nil {
			names = append(names, o.Source)
		}
	}
	return names
}

// AllFailed reports whether there was at least one source and none succeeded.
func (c *Collection) AllFailed() bool {
	return len(c.Outcomes) > 0 && len(c.Failed()) == len(c.Outcomes)
}

// Collect runs every source concurrently and concatenates their listings in
// registration order. Records without a title or URL are dropped. A panicking
// source counts as failed.
func Collect(ctx context.Context, sources []Source, log *zap.SugaredLogger) *Collection {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	results := make([][]listing.Listing, len(sources))
	outcomes := make([]Outcome, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], outcomes[i] = runOne(ctx, src, log)
		}()
	}
	wg.Wait()

	c := &Collection{Outcomes: outcomes}
	for _, ls := range results {
		c.Listings = append(c.Listings, ls...)
	}
	return c
}

func runOne(ctx context.Context, src Source, log *zap.SugaredLogger) (kept []listing.Listing, out Outcome) {
	name := src.Name()
	out.Source = name
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			kept = nil
			out.Err = fmt.Errorf("%s: panic: %v", name, r)
		}
		out.Duration = time.Since(start)
		if out.Err != nil {
			log.Errorw("Source failed", "source", name, "error", out.Err, "duration", out.Duration)
			return
		}
		log.Infow("Source scraped", "source", name, "listings", out.Count, "dropped", out.Dropped, "duration", out.Duration)
	}()

	raw, err := src.Scrape(ctx)
	if err != nil {
		out.Err = err
		return nil, out
	}

	kept = make([]listing.Listing, 0, len(raw))
	for _, l := range raw {
		if !l.Valid() {
			out.Dropped++
			continue
		}
		if l.Source == "" {
			l.Source = name
		}
		kept = append(kept, l)
	}
	out.Count = len(kept)
	return kept, out
}

// Fetcher performs plain HTTP GETs. *httpclient.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Renderer returns the HTML of a page after client-side rendering.
// *browser.Manager satisfies it.
type Renderer interface {
	Render(ctx context.Context, url string, opts browser.RenderOptions) (string, error)
}

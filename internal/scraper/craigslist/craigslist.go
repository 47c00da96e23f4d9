// Package craigslist scrapes the Los Angeles "talent gigs" board.
package craigslist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/rules"
	"go-casting-scout/internal/scraper"

	"github.com/PuerkitoBio/goquery"
)

const (
	Name      = "craigslist"
	BaseURL   = "https://losangeles.craigslist.org"
	SearchURL = BaseURL + "/search/tlg"

	defaultLocation = "Los Angeles"
)

// roleHints adds "ad " to the commercial hints; gig titles often read
// "Paid ad shoot".
var roleHints = scraper.DefaultRoleHints.With(scraper.RoleCommercial, "ad ")

type Scraper struct {
	client    scraper.Fetcher
	rules     *rules.Rules
	searchURL string
	now       func() time.Time
}

type Option func(*Scraper)

// WithSearchURL points the scraper somewhere other than SearchURL.
func WithSearchURL(u string) Option {
	return func(s *Scraper) { s.searchURL = u }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

func New(client scraper.Fetcher, r *rules.Rules, opts ...Option) *Scraper {
	s := &Scraper{client: client, rules: r, searchURL: SearchURL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scraper) Name() string { return Name }

func (s *Scraper) Scrape(ctx context.Context) ([]listing.Listing, error) {
	resp, err := s.client.Get(ctx, s.searchURL)
	if err != nil {
		return nil, fmt.Errorf("craigslist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("craigslist: unexpected status %d", resp.StatusCode)
	}
	return s.parse(resp.Body)
}

func (s *Scraper) parse(r io.Reader) ([]listing.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("craigslist: parsing HTML: %w", err)
	}

	today := listing.DateOf(s.now())
	var out []listing.Listing
	doc.Find("li.cl-static-search-result").Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find("a").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		title := scraper.CleanText(item.Find(".title").First().Text())
		if title == "" {
			title = scraper.CleanText(item.AttrOr("title", ""))
		}
		if title == "" {
			return
		}

		location := scraper.CleanText(item.Find(".location").First().Text())
		if location == "" {
			location = defaultLocation
		}

		posted := today
		if d := item.Find(".date").First(); d.Length() > 0 {
			posted = parseDate(d.Text(), today)
		}

		url := scraper.ResolveURL(BaseURL, href)
		out = append(out, listing.Listing{
			Title:              title,
			Source:             Name,
			URL:                url,
			PostedDate:         posted,
			Location:           location,
			UnionStatus:        "",
			RoleType:           roleHints.Infer(title),
			Description:        title,
			HowToApply:         "Reply on Craigslist: " + url,
			SchoolOrProduction: scraper.DetectSchool(title, s.rules),
		})
	})
	return out, nil
}

// parseDate reads board dates like "Feb 25" or "2/25" in today's year.
// Anything else falls back to today.
func parseDate(text string, today time.Time) time.Time {
	text = strings.TrimSpace(text)
	for _, layout := range []string{"Jan 2", "1/2"} {
		t, err := time.Parse(layout, text)
		if err == nil {
			return listing.Date(today.Year(), t.Month(), t.Day())
		}
	}
	return today
}

// Package reddit reads new posts from casting subreddits through the public
// JSON listing endpoint.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/rules"
	"go-casting-scout/internal/scraper"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	Name      = "reddit"
	BaseURL   = "https://www.reddit.com"
	UserAgent = "CastingScout/1.0 (personal casting aggregator)"

	postLimit      = 50
	descriptionMax = 500
)

// laPlaces are checked in order; the first hit becomes "<Place>, CA".
var laPlaces = []string{
	"los angeles", "hollywood", "burbank", "santa monica",
	"studio city", "culver city", "downtown la", "glendale",
	"pasadena", "north hollywood", "van nuys",
}

var tagPrefix = regexp.MustCompile(`^\[.*?\]\s*`)

type Scraper struct {
	client     scraper.Fetcher
	rules      *rules.Rules
	subreddits []string
	baseURL    string
	now        func() time.Time
	log        *zap.SugaredLogger
}

type Option func(*Scraper)

func WithBaseURL(u string) Option {
	return func(s *Scraper) { s.baseURL = strings.TrimRight(u, "/") }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Scraper) { s.log = log }
}

func New(client scraper.Fetcher, r *rules.Rules, subreddits []string, opts ...Option) *Scraper {
	s := &Scraper{
		client:     client,
		rules:      r,
		subreddits: subreddits,
		baseURL:    BaseURL,
		now:        time.Now,
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scraper) Name() string { return Name }

// Scrape reads every subreddit. One failing subreddit is logged and skipped;
// the source only fails when all of them do.
func (s *Scraper) Scrape(ctx context.Context) ([]listing.Listing, error) {
	var (
		out     []listing.Listing
		lastErr error
		failed  int
	)
	for _, sub := range s.subreddits {
		ls, err := s.scrapeSub(ctx, sub)
		if err != nil {
			s.log.Warnw("Subreddit failed", "subreddit", sub, "error", err)
			lastErr = err
			failed++
			continue
		}
		out = append(out, ls...)
	}
	if failed > 0 && failed == len(s.subreddits) {
		return nil, fmt.Errorf("reddit: all %d subreddits failed: %w", failed, lastErr)
	}
	return out, nil
}

func (s *Scraper) scrapeSub(ctx context.Context, sub string) ([]listing.Listing, error) {
	url := fmt.Sprintf("%s/r/%s/new.json?limit=%d", s.baseURL, sub, postLimit)
	resp, err := s.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("r/%s: %w", sub, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("r/%s: unexpected status %d", sub, resp.StatusCode)
	}

	var page listingPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("r/%s: decoding JSON: %w", sub, err)
	}
	return s.convert(page), nil
}

type listingPage struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Permalink  string  `json:"permalink"`
	URL        string  `json:"url"`
	CreatedUTC float64 `json:"created_utc"`
}

func (s *Scraper) convert(page listingPage) []listing.Listing {
	today := listing.DateOf(s.now())
	var out []listing.Listing
	for _, child := range page.Data.Children {
		p := child.Data
		if strings.TrimSpace(p.Title) == "" {
			continue
		}

		url := p.URL
		if p.Permalink != "" {
			url = scraper.ResolveURL(BaseURL, p.Permalink)
		}
		posted := today
		if p.CreatedUTC > 0 {
			posted = listing.DateOf(time.Unix(int64(p.CreatedUTC), 0).UTC())
		}

		body := p.Title + " " + p.Selftext
		desc := scraper.Truncate(strings.TrimSpace(p.Selftext), descriptionMax)
		if desc == "" {
			desc = p.Title
		}

		out = append(out, listing.Listing{
			Title:              CleanTitle(p.Title),
			Source:             Name,
			URL:                url,
			PostedDate:         posted,
			Location:           ExtractLocation(body),
			UnionStatus:        "",
			RoleType:           scraper.InferRoleType(body),
			Description:        desc,
			HowToApply:         "See Reddit post: " + url,
			SchoolOrProduction: scraper.DetectSchool(body, s.rules),
		})
	}
	return out
}

// CleanTitle strips a leading bracket tag such as "[CASTING]".
func CleanTitle(title string) string {
	return scraper.CleanText(tagPrefix.ReplaceAllString(strings.TrimSpace(title), ""))
}

// ExtractLocation finds a Los Angeles area place name in free text, or "".
func ExtractLocation(text string) string {
	t := strings.ToLower(text)
	for _, place := range laPlaces {
		if strings.Contains(t, place) {
			return cases.Title(language.English).String(place) + ", CA"
		}
	}
	if strings.Contains(t, " la ") || strings.HasPrefix(t, "la ") || strings.HasSuffix(t, " la") {
		return "Los Angeles, CA"
	}
	return ""
}

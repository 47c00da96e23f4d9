// Package castingnetworks scrapes the public casting board on
// castingnetworks.com through a rendered browser page.
package castingnetworks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-casting-scout/internal/browser"
	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/rules"
	"go-casting-scout/internal/scraper"

	"github.com/PuerkitoBio/goquery"
)

const (
	Name      = "casting_networks"
	BaseURL   = "https://www.castingnetworks.com"
	SearchURL = BaseURL + "/talent/casting"
)

type Scraper struct {
	renderer scraper.Renderer
	rules    *rules.Rules
	now      func() time.Time
}

func New(renderer scraper.Renderer, r *rules.Rules) *Scraper {
	return &Scraper{renderer: renderer, rules: r, now: time.Now}
}

func (s *Scraper) Name() string { return Name }

func (s *Scraper) Scrape(ctx context.Context) ([]listing.Listing, error) {
	html, err := s.renderer.Render(ctx, SearchURL, browser.RenderOptions{NetworkIdle: true, Timeout: time.Minute})
	if err != nil {
		return nil, fmt.Errorf("casting networks: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("casting networks: parsing HTML: %w", err)
	}

	today := listing.DateOf(s.now())
	var out []listing.Listing
	doc.Find("[data-testid='casting-listing'], .casting-listing").Each(func(_ int, item *goquery.Selection) {
		link := item.Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		title := scraper.CleanText(item.Find(".listing-title").First().Text())
		if title == "" {
			title = scraper.CleanText(link.Text())
		}
		if title == "" {
			return
		}

		location := scraper.CleanText(item.Find(".listing-location").First().Text())
		if location == "" {
			location = "Los Angeles, CA"
		}
		union := scraper.CleanText(item.Find(".listing-union").First().Text())
		if union == "" {
			union = "non-union"
		}
		role := strings.ToLower(scraper.CleanText(item.Find(".listing-type").First().Text()))
		if role == "" {
			role = scraper.RoleOther
		}

		url := scraper.ResolveURL(BaseURL, href)
		out = append(out, listing.Listing{
			Title:              title,
			Source:             Name,
			URL:                url,
			PostedDate:         today,
			Location:           location,
			UnionStatus:        union,
			RoleType:           role,
			Description:        title,
			HowToApply:         "Apply on Casting Networks: " + url,
			SchoolOrProduction: scraper.DetectSchool(title, s.rules),
		})
	})
	return out, nil
}

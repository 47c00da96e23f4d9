// Package backstage scrapes the open casting calls board on backstage.com.
// The board renders client-side, so the page is loaded in a browser first.
package backstage

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
	Name      = "backstage"
	BaseURL   = "https://www.backstage.com"
	SearchURL = BaseURL + "/casting/open-casting-calls-auditions/"

	cardSelector = "[data-testid='casting-card'], .casting-card, article.StyledCastingCard"
)

type Scraper struct {
	renderer scraper.Renderer
	rules    *rules.Rules
	url      string
	now      func() time.Time
}

func New(renderer scraper.Renderer, r *rules.Rules) *Scraper {
	return &Scraper{renderer: renderer, rules: r, url: SearchURL, now: time.Now}
}

func (s *Scraper) Name() string { return Name }

func (s *Scraper) Scrape(ctx context.Context) ([]listing.Listing, error) {
	html, err := s.renderer.Render(ctx, s.url, browser.RenderOptions{NetworkIdle: true, Timeout: time.Minute})
	if err != nil {
		return nil, fmt.Errorf("backstage: %w", err)
	}
	return s.parse(html)
}

func (s *Scraper) parse(html string) ([]listing.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("backstage: parsing HTML: %w", err)
	}

	today := listing.DateOf(s.now())
	var out []listing.Listing
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		title := scraper.CleanText(link.Text())
		if title == "" {
			title = scraper.Truncate(scraper.CleanText(card.Text()), 100)
		}
		if title == "" {
			return
		}

		url := scraper.ResolveURL(BaseURL, href)
		out = append(out, listing.Listing{
			Title:              title,
			Source:             Name,
			URL:                url,
			PostedDate:         today,
			Location:           textOr(card, ".location", "Los Angeles, CA"),
			UnionStatus:        textOr(card, ".union-status", "non-union"),
			RoleType:           strings.ToLower(textOr(card, ".role-type", scraper.RoleOther)),
			Description:        title,
			HowToApply:         "Apply on Backstage: " + url,
			SchoolOrProduction: scraper.DetectSchool(title, s.rules),
		})
	})
	return out, nil
}

func textOr(card *goquery.Selection, selector, fallback string) string {
	if v := scraper.CleanText(card.Find(selector).First().Text()); v != "" {
		return v
	}
	return fallback
}

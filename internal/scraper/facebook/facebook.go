// Package facebook reads casting posts from public Facebook groups using a
// logged-in browser session restored from exported cookies. Facebook
// obfuscates its DOM, so extraction is deliberately loose.
package facebook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go-casting-scout/internal/browser"
	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/scraper"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const (
	Name    = "facebook"
	BaseURL = "https://www.facebook.com"

	minPostLength  = 20
	titleMax       = 100
	descriptionMax = 500
)

var castingWords = []string{
	"casting", "audition", "seeking", "looking for actors",
	"open call", "background", "extras", "role",
}

type Scraper struct {
	renderer    scraper.Renderer
	groups      []string
	cookiesPath string
	now         func() time.Time
	log         *zap.SugaredLogger
}

func New(renderer scraper.Renderer, groups []string, cookiesPath string, log *zap.SugaredLogger) *Scraper {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scraper{
		renderer:    renderer,
		groups:      groups,
		cookiesPath: cookiesPath,
		now:         time.Now,
		log:         log,
	}
}

func (s *Scraper) Name() string { return Name }

// Scrape visits each group. Missing cookies mean the source is not set up and
// yields nothing; unreadable cookies are an error.
func (s *Scraper) Scrape(ctx context.Context) ([]listing.Listing, error) {
	cookies, err := browser.LoadCookies(s.cookiesPath)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Infow("Facebook cookies not configured, skipping", "path", s.cookiesPath)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("facebook: %w", err)
	}
	return s.scrapeGroups(ctx, cookies)
}

func (s *Scraper) scrapeGroups(ctx context.Context, cookies []playwright.OptionalCookie) ([]listing.Listing, error) {
	var (
		out     []listing.Listing
		lastErr error
		failed  int
	)
	for _, group := range s.groups {
		html, err := s.renderer.Render(ctx, group, browser.RenderOptions{
			Cookies: cookies,
			Timeout: 30 * time.Second,
			Settle:  3 * time.Second,
			Scroll:  true,
		})
		if err != nil {
			s.log.Warnw("Facebook group failed", "group", group, "error", err)
			lastErr = err
			failed++
			continue
		}
		ls, err := s.parse(html)
		if err != nil {
			return nil, err
		}
		out = append(out, ls...)
	}
	if failed > 0 && failed == len(s.groups) {
		return nil, fmt.Errorf("facebook: all %d groups failed: %w", failed, lastErr)
	}
	return out, nil
}

func (s *Scraper) parse(html string) ([]listing.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("facebook: parsing HTML: %w", err)
	}

	today := listing.DateOf(s.now())
	var out []listing.Listing
	doc.Find("[data-ad-preview], [role='article']").Each(func(_ int, post *goquery.Selection) {
		text := scraper.SpacedText(post)
		if len(text) < minPostLength || !isCastingPost(text) {
			return
		}

		url := ""
		if href, ok := post.Find("a[href]").First().Attr("href"); ok {
			url = scraper.ResolveURL(BaseURL, href)
		}
		apply := "Check Facebook group"
		if url != "" {
			apply = "See Facebook post: " + url
		} else {
			url = BaseURL
		}

		out = append(out, listing.Listing{
			Title:       scraper.Truncate(text, titleMax),
			Source:      Name,
			URL:         url,
			PostedDate:  today,
			RoleType:    scraper.RoleOther,
			Description: scraper.Truncate(text, descriptionMax),
			HowToApply:  apply,
		})
	})
	return out, nil
}

func isCastingPost(text string) bool {
	t := strings.ToLower(text)
	for _, w := range castingWords {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

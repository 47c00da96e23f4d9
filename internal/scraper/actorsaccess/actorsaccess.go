// Package actorsaccess scrapes project breakdowns on actorsaccess.com. The
// board sits behind a login, so the scraper is a no-op without credentials.
package actorsaccess

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
	"go.uber.org/zap"
)

const (
	Name        = "actors_access"
	BaseURL     = "https://www.actorsaccess.com"
	ProjectsURL = BaseURL + "/projects"
)

// LoginRenderer renders a page after a form login. *browser.Manager
// satisfies it.
type LoginRenderer interface {
	RenderAfterLogin(ctx context.Context, login browser.Login, target string, opts browser.RenderOptions) (string, error)
}

// Credentials for the talent account.
type Credentials struct {
	Email    string
	Password string
}

type Scraper struct {
	renderer LoginRenderer
	creds    Credentials
	rules    *rules.Rules
	now      func() time.Time
	log      *zap.SugaredLogger
}

func New(renderer LoginRenderer, creds Credentials, r *rules.Rules, log *zap.SugaredLogger) *Scraper {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scraper{renderer: renderer, creds: creds, rules: r, now: time.Now, log: log}
}

func (s *Scraper) Name() string { return Name }

func (s *Scraper) Scrape(ctx context.Context) ([]listing.Listing, error) {
	if s.creds.Email == "" || s.creds.Password == "" {
		s.log.Info("Actors Access credentials not configured, skipping")
		return nil, nil
	}

	login := browser.Login{
		URL: BaseURL + "/",
		Fields: map[string]string{
			`input[name="email"], input[type="email"]`:       s.creds.Email,
			`input[name="password"], input[type="password"]`: s.creds.Password,
		},
		Submit: `button[type="submit"], input[type="submit"]`,
	}
	html, err := s.renderer.RenderAfterLogin(ctx, login, ProjectsURL, browser.RenderOptions{NetworkIdle: true, Timeout: time.Minute})
	if err != nil {
		return nil, fmt.Errorf("actors access: %w", err)
	}
	return s.parse(html)
}

func (s *Scraper) parse(html string) ([]listing.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("actors access: parsing HTML: %w", err)
	}

	today := listing.DateOf(s.now())
	var out []listing.Listing
	doc.Find(".project-listing, .project-item, tr.project-row").Each(func(_ int, project *goquery.Selection) {
		link := project.Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		title := scraper.CleanText(link.Text())
		if title == "" {
			return
		}

		url := scraper.ResolveURL(BaseURL, href)
		out = append(out, listing.Listing{
			Title:              title,
			Source:             Name,
			URL:                url,
			PostedDate:         today,
			Location:           "Los Angeles, CA",
			UnionStatus:        "non-union",
			RoleType:           scraper.RoleOther,
			Description:        title,
			HowToApply:         "Apply on Actors Access: " + url,
			SchoolOrProduction: scraper.DetectSchool(title, s.rules),
		})
	})
	return out, nil
}

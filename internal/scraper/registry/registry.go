// Package registry turns the config's source toggles into scrapers.
package registry

import (
	"sort"

	"go-casting-scout/internal/config"
	"go-casting-scout/internal/rules"
	"go-casting-scout/internal/scraper"
	"go-casting-scout/internal/scraper/actorsaccess"
	"go-casting-scout/internal/scraper/backstage"
	"go-casting-scout/internal/scraper/castingnetworks"
	"go-casting-scout/internal/scraper/craigslist"
	"go-casting-scout/internal/scraper/facebook"
	"go-casting-scout/internal/scraper/reddit"

	"go.uber.org/zap"
)

// Browser is what the rendered sources need from *browser.Manager.
type Browser interface {
	scraper.Renderer
	actorsaccess.LoginRenderer
}

// Deps are the shared clients handed to the adapters.
type Deps struct {
	HTTP   scraper.Fetcher // browser-like agent, used by craigslist
	Reddit scraper.Fetcher // pinned CastingScout agent
	// Browser may be nil when no rendered source is enabled.
	Browser Browser
	Rules   *rules.Rules
	Log     *zap.SugaredLogger
}

// Order is the registration order; Collect preserves it in its output.
var Order = []string{
	craigslist.Name,
	reddit.Name,
	backstage.Name,
	castingnetworks.Name,
	actorsaccess.Name,
	facebook.Name,
}

// NeedsBrowser reports whether any enabled source renders pages.
func NeedsBrowser(cfg *config.Config) bool {
	for _, name := range []string{backstage.Name, castingnetworks.Name, actorsaccess.Name, facebook.Name} {
		if cfg.Enabled(name) {
			return true
		}
	}
	return false
}

// Build returns the enabled sources in Order. Toggles naming an unknown
// source are returned separately so the caller can warn about typos.
func Build(cfg *config.Config, deps Deps) (sources []scraper.Source, unknown []string) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	known := make(map[string]bool, len(Order))
	for _, name := range Order {
		known[name] = true
		if !cfg.Enabled(name) {
			continue
		}
		if src := build(name, cfg, deps, log); src != nil {
			sources = append(sources, src)
		}
	}
	for name, on := range cfg.Sources {
		if on && !known[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return sources, unknown
}

func build(name string, cfg *config.Config, deps Deps, log *zap.SugaredLogger) scraper.Source {
	switch name {
	case craigslist.Name:
		return craigslist.New(deps.HTTP, deps.Rules)
	case reddit.Name:
		client := deps.Reddit
		if client == nil {
			client = deps.HTTP
		}
		return reddit.New(client, deps.Rules, cfg.RedditSubreddits, reddit.WithLogger(log.Named(reddit.Name)))
	}

	if deps.Browser == nil {
		log.Warnw("Source needs a browser but none is available, skipping", "source", name)
		return nil
	}
	switch name {
	case backstage.Name:
		return backstage.New(deps.Browser, deps.Rules)
	case castingnetworks.Name:
		return castingnetworks.New(deps.Browser, deps.Rules)
	case actorsaccess.Name:
		creds := actorsaccess.Credentials{Email: cfg.ActorsAccessEmail, Password: cfg.ActorsAccessPassword}
		return actorsaccess.New(deps.Browser, creds, deps.Rules, log.Named(actorsaccess.Name))
	case facebook.Name:
		return facebook.New(deps.Browser, cfg.FacebookGroups, cfg.CookiesPath, log.Named(facebook.Name))
	}
	return nil
}

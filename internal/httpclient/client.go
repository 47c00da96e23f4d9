// Package httpclient is the HTTP client shared by the plain-HTTP scrapers:
// user-agent rotation, per-host pacing and retry on throttling responses.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
}

// Options configures the client. Zero values take defaults.
type Options struct {
	ProxyURL   string
	MinDelay   time.Duration
	MaxDelay   time.Duration
	MaxRetries int
	Timeout    time.Duration
	// UserAgent pins a single agent instead of rotating. Reddit rejects
	// browser agents on its JSON API, so it sends its own.
	UserAgent string
	Logger    *zap.SugaredLogger
}

func (o Options) withDefaults() Options {
	if o.MinDelay == 0 {
		o.MinDelay = 2 * time.Second
	}
	if o.MaxDelay < o.MinDelay {
		o.MaxDelay = o.MinDelay
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}

type Client struct {
	inner    *http.Client
	opts     Options
	log      *zap.SugaredLogger
	backoff  time.Duration
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(opts Options) (*Client, error) {
	opts = opts.withDefaults()

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("httpclient: invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Client{
		inner:    &http.Client{Transport: transport, Timeout: opts.Timeout},
		opts:     opts,
		log:      opts.Logger,
		backoff:  2 * time.Second,
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// Do sends req after waiting for the host's pacing slot. 429 and 503
// responses are retried with exponential backoff.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.setHeaders(req)

	var resp *http.Response
	for attempt := range c.opts.MaxRetries {
		if err := c.wait(req.Context(), req.URL.Host); err != nil {
			return nil, err
		}

		var err error
		resp, err = c.inner.Do(req)
		if err != nil {
			return nil, fmt.Errorf("httpclient: request failed: %w", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
			return resp, nil
		}
		if attempt == c.opts.MaxRetries-1 {
			break
		}
		resp.Body.Close()

		backoff := c.backoff << attempt
		c.log.Warnw("Throttled, backing off",
			"host", req.URL.Host, "status", resp.StatusCode,
			"backoff", backoff, "attempt", attempt+1, "max_retries", c.opts.MaxRetries)

		select {
		case <-time.After(backoff):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}
	return resp, nil
}

// Get is a convenience wrapper for a GET request bound to ctx.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: building request: %w", err)
	}
	return c.Do(req)
}

func (c *Client) setHeaders(req *http.Request) {
	ua := c.opts.UserAgent
	if ua == "" {
		ua = userAgents[rand.IntN(len(userAgents))]
	}
	req.Header.Set("User-Agent", ua)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// wait blocks until host may be hit again. The first request to a host goes
// straight through; later ones are spaced by MinDelay plus jitter up to
// MaxDelay.
func (c *Client) wait(ctx context.Context, host string) error {
	c.mu.Lock()
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(c.opts.MinDelay), 1)
		c.limiters[host] = lim
	}
	c.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return err
	}
	if !ok {
		return nil
	}

	spread := c.opts.MaxDelay - c.opts.MinDelay
	if spread <= 0 {
		return nil
	}
	jitter := time.Duration(rand.Int64N(int64(spread)))
	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

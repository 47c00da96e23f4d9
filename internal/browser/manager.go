// Package browser drives a headless Chromium through playwright for the
// sources that only render listings client-side.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Options configures the Manager.
type Options struct {
	Headless      bool
	UserAgent     string
	ScreenshotDir string // empty disables failure screenshots
	Logger        *zap.SugaredLogger
}

// RenderOptions controls a single page load.
type RenderOptions struct {
	Cookies []playwright.OptionalCookie
	// NetworkIdle waits for the network to go quiet instead of DOMContentLoaded.
	NetworkIdle bool
	Timeout     time.Duration
	// Settle is extra time given to client-side rendering after load.
	Settle time.Duration
	Scroll bool
}

// Login describes a form login performed before rendering a target page.
type Login struct {
	URL    string
	Fields map[string]string // selector -> value
	Submit string
}

// Manager owns one playwright driver and browser, launched on first use and
// shared by every browser-backed source. Each render gets a fresh context.
type Manager struct {
	opts Options
	log  *zap.SugaredLogger
	shot *ScreenshotDebugger

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

func NewManager(opts Options) *Manager {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	m := &Manager{opts: opts, log: opts.Logger}
	if opts.ScreenshotDir != "" {
		m.shot = NewScreenshotDebugger(opts.ScreenshotDir, opts.Logger)
	}
	return m
}

func (m *Manager) launch() (playwright.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		return m.browser, nil
	}

	m.log.Info("Launching headless Chromium")
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.opts.Headless),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	m.pw, m.browser = pw, b
	return b, nil
}

// NewContext opens an isolated browser context carrying cookies.
func (m *Manager) NewContext(cookies []playwright.OptionalCookie) (playwright.BrowserContext, error) {
	b, err := m.launch()
	if err != nil {
		return nil, err
	}
	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(m.opts.UserAgent),
		Viewport:  &playwright.Size{Width: 1366, Height: 900},
		Locale:    playwright.String("en-US"),
	})
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	if len(cookies) > 0 {
		if err := bctx.AddCookies(cookies); err != nil {
			bctx.Close()
			return nil, fmt.Errorf("add cookies: %w", err)
		}
	}
	return bctx, nil
}

// Render loads url and returns the page HTML once it has settled.
func (m *Manager) Render(ctx context.Context, url string, opts RenderOptions) (string, error) {
	return m.render(ctx, url, nil, opts)
}

// RenderAfterLogin submits login first, then renders target in the same
// session.
func (m *Manager) RenderAfterLogin(ctx context.Context, login Login, target string, opts RenderOptions) (string, error) {
	return m.render(ctx, target, &login, opts)
}

func (m *Manager) render(ctx context.Context, url string, login *Login, opts RenderOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}

	bctx, err := m.NewContext(opts.Cookies)
	if err != nil {
		return "", err
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return "", fmt.Errorf("new page: %w", err)
	}
	defer page.Close()

	// playwright calls are not context-aware; closing the page aborts them.
	stop := context.AfterFunc(ctx, func() { page.Close() })
	defer stop()

	if login != nil {
		if err := m.login(page, *login, opts); err != nil {
			m.capture(page, "login-failed", login.URL)
			return "", err
		}
	}

	if _, err := page.Goto(url, gotoOptions(opts)); err != nil {
		m.capture(page, "goto-failed", url)
		return "", fmt.Errorf("goto %s: %w", url, err)
	}
	if opts.Settle > 0 {
		page.WaitForTimeout(float64(opts.Settle.Milliseconds()))
	}
	if opts.Scroll {
		if err := MouseJiggle(page); err != nil {
			m.log.Debugw("Mouse move failed", "url", url, "error", err)
		}
		if err := HumanScroll(page); err != nil {
			m.log.Debugw("Scroll failed", "url", url, "error", err)
		}
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("read content of %s: %w", url, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return html, nil
}

func (m *Manager) login(page playwright.Page, login Login, opts RenderOptions) error {
	if _, err := page.Goto(login.URL, gotoOptions(opts)); err != nil {
		return fmt.Errorf("goto login %s: %w", login.URL, err)
	}
	for selector, value := range login.Fields {
		if err := page.Locator(selector).First().Fill(value); err != nil {
			return fmt.Errorf("fill %s: %w", selector, err)
		}
		RandomDelay(200, 600)
	}
	if err := page.Locator(login.Submit).First().Click(); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(30000),
	}); err != nil {
		return fmt.Errorf("wait after login: %w", err)
	}
	return nil
}

func gotoOptions(opts RenderOptions) playwright.PageGotoOptions {
	wait := playwright.WaitUntilStateDomcontentloaded
	if opts.NetworkIdle {
		wait = playwright.WaitUntilStateNetworkidle
	}
	return playwright.PageGotoOptions{
		WaitUntil: wait,
		Timeout:   playwright.Float(float64(opts.Timeout.Milliseconds())),
	}
}

func (m *Manager) capture(page playwright.Page, name, url string) {
	if m.shot == nil {
		return
	}
	_ = m.shot.Capture(page, name, "Render failed for "+url)
}

// Close shuts down the browser and the driver if they were started.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return nil
	}
	var firstErr error
	if err := m.browser.Close(); err != nil {
		firstErr = fmt.Errorf("close browser: %w", err)
	}
	if err := m.pw.Stop(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("stop playwright: %w", err)
	}
	m.browser, m.pw = nil, nil
	return firstErr
}

package backstage

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-casting-scout/internal/browser"
	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	html string
	err  error
	url  string
	opts browser.RenderOptions
}

func (f *fakeRenderer) Render(_ context.Context, url string, opts browser.RenderOptions) (string, error) {
	f.url, f.opts = url, opts
	return f.html, f.err
}

const fixture = `<html><body>
<div data-testid="casting-card">
  <a href="/casting/123-chapman-short/">Chapman Short Film "Tides"</a>
  <span class="location">Orange, CA</span>
  <span class="union-status">Non-Union</span>
  <span class="role-type">Principal</span>
</div>
<article class="StyledCastingCard">
  <a href="https://www.backstage.com/casting/456/"></a>
  <p>Open call for dancers in a music video shooting downtown</p>
</article>
<div class="casting-card"><span>No link</span></div>
</body></html>`

func TestScrape(t *testing.T) {
	fr := &fakeRenderer{html: fixture}
	s := New(fr, rules.Default())
	s.now = func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }

	got, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, SearchURL, fr.url)
	assert.True(t, fr.opts.NetworkIdle)

	first := got[0]
	assert.Equal(t, `Chapman Short Film "Tides"`, first.Title)
	assert.Equal(t, "https://www.backstage.com/casting/123-chapman-short/", first.URL)
	assert.Equal(t, "Orange, CA", first.Location)
	assert.Equal(t, "Non-Union", first.UnionStatus)
	assert.Equal(t, "principal", first.RoleType)
	assert.Equal(t, "Chapman", first.SchoolOrProduction)
	assert.Equal(t, listing.Date(2026, time.March, 10), first.PostedDate)

	second := got[1]
	assert.Equal(t, "Open call for dancers in a music video shooting downtown", second.Title)
	assert.Equal(t, "Los Angeles, CA", second.Location)
	assert.Equal(t, "non-union", second.UnionStatus)
	assert.Equal(t, "other", second.RoleType)
	assert.Equal(t, "Apply on Backstage: https://www.backstage.com/casting/456/", second.HowToApply)
}

func TestScrapeRenderError(t *testing.T) {
	s := New(&fakeRenderer{err: errors.New("timeout")}, rules.Default())
	_, err := s.Scrape(context.Background())
	assert.ErrorContains(t, err, "backstage: timeout")
}

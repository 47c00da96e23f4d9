package digest

import (
	"strings"
	"testing"
	"time"

	"go-casting-scout/internal/classifier"
	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func result(groups ...classifier.Group) *pipeline.Result {
	res := &pipeline.Result{Groups: groups}
	for _, g := range groups {
		res.Listings = append(res.Listings, g.Listings...)
	}
	res.Count = len(res.Listings)
	return res
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Casting Scout — No New Opportunities (Mar 10)", Subject(0, now))
	assert.Equal(t, "Casting Scout — 1 New Opportunity (Mar 10)", Subject(1, now))
	assert.Equal(t, "Casting Scout — 3 New Opportunities (Mar 10)", Subject(3, now))
	assert.Equal(t, "Casting Scout — 2 New Opportunities (Mar 05)", Subject(2, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)))
}

func TestBuildEmpty(t *testing.T) {
	d, err := Build(result(), []string{"backstage", "reddit"}, now)
	require.NoError(t, err)

	assert.True(t, d.Empty())
	assert.Equal(t, "Casting Scout — No New Opportunities (Mar 10)", d.Subject)
	assert.Contains(t, d.Text, "No new casting opportunities found today (Mar 10)")
	assert.Contains(t, d.Text, "Unavailable today: backstage, reddit")
	assert.Contains(t, d.HTML, "<h1>Casting Scout</h1>")
	assert.Contains(t, d.HTML, "Unavailable today: backstage, reddit")
}

func TestBuildSections(t *testing.T) {
	deadline := listing.Date(2026, time.March, 20)
	principal := listing.Listing{
		Title: "Lead in <Indie> drama", Source: "casting_networks", URL: "https://example.com/a (1)",
		Location: "Burbank, CA", RoleType: "principal", Description: strings.Repeat("x", 250),
		Compensation: "$200/day", Deadline: &deadline,
	}
	student := listing.Listing{
		Title: "Thesis film", Source: "craigslist", URL: "https://example.com/b",
		Location: "Los Angeles", RoleType: "other", Description: "- short shoot", SchoolOrProduction: "USC",
	}
	extra := listing.Listing{
		Title: "Extras", Source: "reddit", URL: "https://example.com/c",
		Location: "Hollywood, CA", RoleType: "background", Description: "Crowd scene",
	}

	d, err := Build(result(
		classifier.Group{Category: listing.Principal, Listings: []listing.Listing{principal}},
		classifier.Group{Category: listing.StudentFilm, Listings: []listing.Listing{student}},
		classifier.Group{Category: listing.Commercial},
		classifier.Group{Category: listing.Background, Listings: []listing.Listing{extra}},
	), nil, now)
	require.NoError(t, err)

	assert.Equal(t, 3, d.Count)
	assert.Equal(t, "Casting Scout — 3 New Opportunities (Mar 10)", d.Subject)
	require.Len(t, d.Sections, 3, "empty groups are skipped")
	assert.Equal(t, 3, d.Sections[2].Entries[0].Number, "numbering runs across sections")

	t.Run("text", func(t *testing.T) {
		assert.Contains(t, d.Text, "== Principal / Speaking Roles ==")
		assert.Contains(t, d.Text, "1. Lead in <Indie> drama")
		assert.Contains(t, d.Text, "2. Thesis film [USC]")
		assert.Contains(t, d.Text, "Source: Casting Networks | Deadline: Mar 20")
		assert.Contains(t, d.Text, "Compensation: $200/day")
		assert.Contains(t, d.Text, strings.Repeat("x", DescriptionMax)+"...")
		assert.NotContains(t, d.Text, "Unavailable today")
		assert.Less(t, strings.Index(d.Text, "Principal / Speaking Roles"), strings.Index(d.Text, "Background / Extra Work"))
	})

	t.Run("html", func(t *testing.T) {
		assert.Contains(t, d.HTML, "<h2>Principal / Speaking Roles</h2>")
		assert.Contains(t, d.HTML, "Lead in &lt;Indie&gt; drama")
		assert.NotContains(t, d.HTML, "<Indie>")
		assert.Contains(t, d.HTML, `<a href="https://example.com/a%20%281%29">Apply / View Details</a>`)
		assert.Contains(t, d.HTML, "<code>USC</code>")
		assert.NotContains(t, d.HTML, "<ul>", "a leading dash in a description must not start a list")
	})
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short"))
	exact := strings.Repeat("é", DescriptionMax)
	assert.Equal(t, exact, Excerpt(exact))
	assert.Equal(t, exact+"...", Excerpt(exact+"more"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Casting Networks", DisplayName("casting_networks"))
	assert.Equal(t, "Craigslist", DisplayName("craigslist"))
	assert.Equal(t, "Background", DisplayName("background"))
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `\*bold\* \_x\_`, EscapeMarkdown("*bold* _x_"))
	assert.Equal(t, `\- item`, EscapeMarkdown("- item"))
	assert.Equal(t, `12\. Angry Men`, EscapeMarkdown("12. Angry Men"))
	assert.Equal(t, "two lines", EscapeMarkdown("two\nlines"))
}

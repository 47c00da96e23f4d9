// Package digest turns a cycle's new listings into the daily message: a
// subject line plus plain text, Markdown and HTML bodies.
package digest

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/pipeline"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DescriptionMax is how much of a description the digest shows.
const DescriptionMax = 200

const dateLayout = "Jan 02"

// Entry is one numbered listing. Numbers run across sections.
type Entry struct {
	Number  int
	Listing listing.Listing
}

// Section is one career category with its listings.
type Section struct {
	Category listing.Category
	Entries  []Entry
}

func (s Section) Label() string { return s.Category.Label() }
func (s Section) Blurb() string { return s.Category.Blurb() }

type Digest struct {
	Subject  string
	Date     time.Time
	Count    int
	Sections []Section
	Failed   []string

	Text     string
	Markdown string
	HTML     string
}

// Empty reports whether there is nothing new to show.
func (d Digest) Empty() bool { return d.Count == 0 }

var md = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithHardWraps()))

// Build renders the digest for res. failed names the sources that errored
// this cycle and is mentioned at the bottom.
func Build(res *pipeline.Result, failed []string, now time.Time) (Digest, error) {
	d := Digest{Date: now, Failed: failed}

	n := 0
	if res != nil {
		for _, g := range res.Groups {
			if len(g.Listings) == 0 {
				continue
			}
			sec := Section{Category: g.Category}
			for _, l := range g.Listings {
				n++
				sec.Entries = append(sec.Entries, Entry{Number: n, Listing: l})
			}
			d.Sections = append(d.Sections, sec)
		}
	}
	d.Count = n
	d.Subject = Subject(n, now)
	d.Text = renderText(d)
	d.Markdown = renderMarkdown(d)

	var body bytes.Buffer
	if err := md.Convert([]byte(d.Markdown), &body); err != nil {
		return Digest{}, fmt.Errorf("render digest HTML: %w", err)
	}
	d.HTML = wrapHTML(body.String())
	return d, nil
}

// Subject is the message subject for count new listings on day now.
func Subject(count int, now time.Time) string {
	day := now.Format(dateLayout)
	if count == 0 {
		return fmt.Sprintf("Casting Scout — No New Opportunities (%s)", day)
	}
	return fmt.Sprintf("Casting Scout — %d New %s (%s)", count, opportunities(count), day)
}

func opportunities(n int) string {
	if n == 1 {
		return "Opportunity"
	}
	return "Opportunities"
}

// Excerpt cuts a description to DescriptionMax runes, marking the cut.
func Excerpt(desc string) string {
	r := []rune(desc)
	if len(r) <= DescriptionMax {
		return desc
	}
	return string(r[:DescriptionMax]) + "..."
}

var titleCaser = cases.Title(language.English)

// DisplayName turns identifiers like "casting_networks" into "Casting Networks".
func DisplayName(s string) string {
	return titleCaser.String(strings.ReplaceAll(s, "_", " "))
}

func renderText(d Digest) string {
	var b strings.Builder
	day := d.Date.Format(dateLayout)

	b.WriteString("CASTING SCOUT\n\n")
	if d.Empty() {
		fmt.Fprintf(&b, "No new casting opportunities found today (%s). Keep checking your direct sources!\n", day)
	} else {
		fmt.Fprintf(&b, "%d new %s found - %s\n", d.Count, strings.ToLower(opportunities(d.Count)), day)
		for _, sec := range d.Sections {
			fmt.Fprintf(&b, "\n== %s ==\n%s\n", sec.Label(), sec.Blurb())
			for _, e := range sec.Entries {
				l := e.Listing
				fmt.Fprintf(&b, "\n%d. %s", e.Number, l.Title)
				if l.SchoolOrProduction != "" {
					fmt.Fprintf(&b, " [%s]", l.SchoolOrProduction)
				}
				fmt.Fprintf(&b, "\n   Location: %s | Role: %s\n", l.Location, DisplayName(l.RoleType))
				if l.Compensation != "" {
					fmt.Fprintf(&b, "   Compensation: %s\n", l.Compensation)
				}
				fmt.Fprintf(&b, "   Source: %s%s\n", DisplayName(l.Source), deadline(l))
				if desc := Excerpt(l.Description); desc != "" {
					fmt.Fprintf(&b, "   %s\n", desc)
				}
				fmt.Fprintf(&b, "   Apply: %s\n", l.URL)
			}
		}
	}
	if len(d.Failed) > 0 {
		fmt.Fprintf(&b, "\nUnavailable today: %s\n", strings.Join(d.Failed, ", "))
	}
	return b.String()
}

func renderMarkdown(d Digest) string {
	var b strings.Builder
	day := d.Date.Format(dateLayout)

	b.WriteString("# Casting Scout\n\n")
	if d.Empty() {
		fmt.Fprintf(&b, "No new casting opportunities found today (%s). Keep checking your direct sources!\n", day)
	} else {
		fmt.Fprintf(&b, "%d new %s found - %s\n", d.Count, strings.ToLower(opportunities(d.Count)), day)
		for _, sec := range d.Sections {
			fmt.Fprintf(&b, "\n## %s\n\n*%s*\n", sec.Label(), sec.Blurb())
			for _, e := range sec.Entries {
				l := e.Listing
				fmt.Fprintf(&b, "\n**%d. %s**", e.Number, EscapeMarkdown(l.Title))
				if l.SchoolOrProduction != "" {
					fmt.Fprintf(&b, " `%s`", strings.ReplaceAll(l.SchoolOrProduction, "`", "'"))
				}
				fmt.Fprintf(&b, "\nLocation: %s | Role: %s", EscapeMarkdown(l.Location), DisplayName(l.RoleType))
				if l.Compensation != "" {
					fmt.Fprintf(&b, "\nCompensation: %s", EscapeMarkdown(l.Compensation))
				}
				fmt.Fprintf(&b, "\nSource: %s%s", DisplayName(l.Source), deadline(l))
				if desc := Excerpt(l.Description); desc != "" {
					fmt.Fprintf(&b, "\n%s", EscapeMarkdown(desc))
				}
				fmt.Fprintf(&b, "\n[Apply / View Details](%s)\n", linkTarget(l.URL))
			}
		}
	}
	if len(d.Failed) > 0 {
		fmt.Fprintf(&b, "\n*Unavailable today: %s*\n", EscapeMarkdown(strings.Join(d.Failed, ", ")))
	}
	return b.String()
}

func deadline(l listing.Listing) string {
	if l.Deadline == nil {
		return ""
	}
	return " | Deadline: " + l.Deadline.Format(dateLayout)
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`, "~", `\~`, "!", `\!`,
)

var leadingBlock = regexp.MustCompile(`^(\s*)([-+=]|\d+[.)])`)

// EscapeMarkdown neutralises characters Markdown would interpret, including a
// leading marker that would start a list or heading.
func EscapeMarkdown(s string) string {
	s = mdEscaper.Replace(strings.ReplaceAll(s, "\n", " "))
	return leadingBlock.ReplaceAllStringFunc(s, func(m string) string {
		return m[:len(m)-1] + `\` + m[len(m)-1:]
	})
}

var linkEscaper = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "<", "%3C", ">", "%3E")

func linkTarget(url string) string {
	return linkEscaper.Replace(url)
}

func wrapHTML(body string) string {
	return `<html><body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">` +
		"\n" + body +
		`<hr style="border: 1px solid #eee;">` + "\n" +
		`<p style="color:#999; font-size:12px;">Casting Scout, your daily LA casting digest</p>` +
		"\n</body></html>\n"
}

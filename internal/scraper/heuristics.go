package scraper

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"go-casting-scout/internal/rules"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// Role types produced by InferRoleType.
const (
	RoleBackground = "background"
	RolePrincipal  = "principal"
	RoleCommercial = "commercial"
	RoleVoice      = "voice"
	RoleOther      = "other"
)

// StudentFilmLabel marks a student production with no recognised school.
const StudentFilmLabel = "Student Film"

// RoleHint maps substring hints to a role type.
type RoleHint struct {
	Role  string
	Words []string
}

// RoleHints are checked in order; the first role with a matching word wins.
type RoleHints []RoleHint

// DefaultRoleHints is the hint table shared by the text-only adapters.
var DefaultRoleHints = RoleHints{
	{RoleBackground, []string{"background", "extra", "extras", "bg"}},
	{RolePrincipal, []string{"lead", "principal", "starring"}},
	{RoleCommercial, []string{"commercial", "spot"}},
	{RoleVoice, []string{"voice", "vo ", "voiceover"}},
}

// With returns a copy of h with words appended to role's hints.
func (h RoleHints) With(role string, words ...string) RoleHints {
	out := make(RoleHints, len(h))
	for i, hint := range h {
		out[i] = RoleHint{Role: hint.Role, Words: slices.Clone(hint.Words)}
		if hint.Role == role {
			out[i].Words = append(out[i].Words, words...)
		}
	}
	return out
}

// Infer guesses a role type from free text. Hints are substring matches
// checked in priority order, so "background" wins over "lead".
func (h RoleHints) Infer(text string) string {
	t := strings.ToLower(text)
	for _, hint := range h {
		for _, w := range hint.Words {
			if strings.Contains(t, w) {
				return hint.Role
			}
		}
	}
	return RoleOther
}

// InferRoleType applies DefaultRoleHints.
func InferRoleType(text string) string {
	return DefaultRoleHints.Infer(text)
}

// DetectSchool returns the display name of a top film school mentioned in
// text, StudentFilmLabel for an unaffiliated student film, or "".
func DetectSchool(text string, r *rules.Rules) string {
	t := strings.ToLower(text)
	if name, ok := r.SchoolName(t); ok {
		return name
	}
	if strings.Contains(t, "student film") {
		return StudentFilmLabel
	}
	return ""
}

// ResolveURL makes href absolute against base. Unparseable input is returned
// unchanged.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

var spaceRun = regexp.MustCompile(`\s+`)

// CleanText normalises scraped text: NFKC folds fancy Unicode forms
// (full-width letters, ligatures, non-breaking spaces), control characters
// are dropped, and whitespace runs collapse to one space.
func CleanText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return strings.TrimSpace(s[:pos])
		}
		i++
	}
	return s
}

// SpacedText returns the text of sel with a space between text nodes, so
// adjacent elements do not run their words together.
func SpacedText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				if t := strings.TrimSpace(c.Text()); t != "" {
					parts = append(parts, t)
				}
			case "script", "style":
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return CleanText(strings.Join(parts, " "))
}

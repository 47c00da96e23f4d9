// Package rules holds the hand-curated keyword tables that drive filtering and
// classification. Tables are plain data loaded from YAML so they can be swapped
// per deployment without touching pipeline code.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalid is returned for tables that fail validation.
var ErrInvalid = errors.New("invalid rule tables")

// School maps a substring marker to its display name.
type School struct {
	Marker string `yaml:"marker"`
	Name   string `yaml:"name"`
}

// Tables is the raw, serialisable form of the rules.
type Tables struct {
	Locations      []string `yaml:"locations"`
	NonUnion       []string `yaml:"non_union"`
	Exclude        []string `yaml:"exclude"`
	FreshnessHours int      `yaml:"freshness_hours"`
	RetentionDays  int      `yaml:"retention_days"`
	Schools        []School `yaml:"schools"`
}

// Rules is the compiled, read-only form of Tables.
type Rules struct {
	tables    Tables
	locations *Matcher
	nonUnion  *Matcher
	exclude   *Matcher
	schools   *Matcher
	names     map[string]string
}

// New validates and compiles t.
func New(t Tables) (*Rules, error) {
	if t.FreshnessHours < 0 {
		return nil, fmt.Errorf("%w: freshness_hours must be >= 0, got %d", ErrInvalid, t.FreshnessHours)
	}
	if t.RetentionDays < 0 {
		return nil, fmt.Errorf("%w: retention_days must be >= 0, got %d", ErrInvalid, t.RetentionDays)
	}

	markers := make([]string, 0, len(t.Schools))
	names := make(map[string]string, len(t.Schools))
	for _, s := range t.Schools {
		marker := strings.ToLower(strings.TrimSpace(s.Marker))
		if marker == "" {
			return nil, fmt.Errorf("%w: school %q has an empty marker", ErrInvalid, s.Name)
		}
		if _, dup := names[marker]; dup {
			continue
		}
		name := strings.TrimSpace(s.Name)
		if name == "" {
			name = strings.ToUpper(marker)
		}
		markers = append(markers, marker)
		names[marker] = name
	}

	return &Rules{
		tables:    t,
		locations: NewMatcher(t.Locations),
		nonUnion:  NewMatcher(t.NonUnion),
		exclude:   NewMatcher(t.Exclude),
		schools:   NewMatcher(markers),
		names:     names,
	}, nil
}

// Default returns the built-in Los Angeles tables.
func Default() *Rules {
	t, err := parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("rules: embedded defaults: %v", err))
	}
	r, err := New(t)
	if err != nil {
		panic(fmt.Sprintf("rules: embedded defaults: %v", err))
	}
	return r
}

// DefaultTables returns a copy of the built-in tables for callers that want
// to tweak one field.
func DefaultTables() Tables {
	return Default().Tables()
}

// Load reads tables from a YAML file. An empty path yields the defaults. Keys
// missing from the file keep their default value.
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML tables layered over the defaults.
func Parse(data []byte) (*Rules, error) {
	var overlay struct {
		Locations      []string `yaml:"locations"`
		NonUnion       []string `yaml:"non_union"`
		Exclude        []string `yaml:"exclude"`
		FreshnessHours *int     `yaml:"freshness_hours"`
		RetentionDays  *int     `yaml:"retention_days"`
		Schools        []School `yaml:"schools"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	t := DefaultTables()
	if overlay.Locations != nil {
		t.Locations = overlay.Locations
	}
	if overlay.NonUnion != nil {
		t.NonUnion = overlay.NonUnion
	}
	if overlay.Exclude != nil {
		t.Exclude = overlay.Exclude
	}
	if overlay.FreshnessHours != nil {
		t.FreshnessHours = *overlay.FreshnessHours
	}
	if overlay.RetentionDays != nil {
		t.RetentionDays = *overlay.RetentionDays
	}
	if overlay.Schools != nil {
		t.Schools = overlay.Schools
	}
	return New(t)
}

func parse(data []byte) (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, err
	}
	return t, nil
}

// Tables returns a copy of the source tables.
func (r *Rules) Tables() Tables {
	t := r.tables
	t.Locations = append([]string(nil), t.Locations...)
	t.NonUnion = append([]string(nil), t.NonUnion...)
	t.Exclude = append([]string(nil), t.Exclude...)
	t.Schools = append([]School(nil), t.Schools...)
	return t
}

// Locations matches accepted metro-area substrings.
func (r *Rules) Locations() *Matcher { return r.locations }

// NonUnion matches phrases that mark a posting as open to non-union talent.
func (r *Rules) NonUnion() *Matcher { return r.nonUnion }

// Exclude matches phrases that rule a posting out for this profile.
func (r *Rules) Exclude() *Matcher { return r.exclude }

// Schools matches top film school markers.
func (r *Rules) Schools() *Matcher { return r.schools }

// FreshnessHours is the maximum posting age.
func (r *Rules) FreshnessHours() int { return r.tables.FreshnessHours }

// FreshnessDays is FreshnessHours floored to whole days. Postings only carry a
// calendar date, so anything finer than a day cannot be honoured.
func (r *Rules) FreshnessDays() int { return r.tables.FreshnessHours / 24 }

// RetentionDays is how long seen-state entries are kept.
func (r *Rules) RetentionDays() int { return r.tables.RetentionDays }

// SchoolName returns the display name for the first school marker found in
// text, which must be lower-case.
func (r *Rules) SchoolName(text string) (string, bool) {
	marker, ok := r.schools.First(text)
	if !ok {
		return "", false
	}
	return r.names[marker], true
}

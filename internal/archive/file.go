package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go-casting-scout/internal/listing"
)

const (
	filePrefix = "casting-"
	fileSuffix = ".json"
)

// File writes one JSON file per day, casting-YYYY-MM-DD.json. A second run on
// the same day merges into the existing file.
type File struct {
	dir string
}

func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (f *File) Name() string { return "file" }

// Path is the archive file for day.
func (f *File) Path(day time.Time) string {
	return filepath.Join(f.dir, filePrefix+listing.FormatDate(day)+fileSuffix)
}

func (f *File) Save(_ context.Context, runID string, day time.Time, listings []listing.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	path := f.Path(day)
	existing, err := f.Load(day)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.Key] = true
	}
	for _, r := range records(runID, listings) {
		if !seen[r.Key] {
			existing = append(existing, r)
			seen[r.Key] = true
		}
	}

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads the archive for day; a missing file is an empty archive.
func (f *File) Load(day time.Time) ([]Record, error) {
	data, err := os.ReadFile(f.Path(day))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	var out []Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode archive %s: %w", f.Path(day), err)
	}
	return out, nil
}

// Since returns listings archived on or after day, newest day first. Only
// files that exist are read.
func (f *File) Since(_ context.Context, day time.Time, limit int) ([]Record, error) {
	days, err := f.days()
	if err != nil {
		return nil, err
	}
	since := listing.DateOf(day)

	var out []Record
	for _, d := range days {
		if d.Before(since) {
			break
		}
		recs, err := f.Load(d)
		if err != nil {
			return nil, err
		}
		for i := len(recs) - 1; i >= 0; i-- {
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
			out = append(out, recs[i])
		}
	}
	return out, nil
}

// days lists the dates that have an archive file, newest first.
func (f *File) days() ([]time.Time, error) {
	paths, err := filepath.Glob(filepath.Join(f.dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	days := make([]time.Time, 0, len(paths))
	for _, p := range paths {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), filePrefix), fileSuffix)
		d, err := listing.ParseDate(name)
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return b.Compare(a) })
	return days, nil
}

func (f *File) Close() error { return nil }

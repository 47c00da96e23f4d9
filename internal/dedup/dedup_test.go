package dedup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-casting-scout/internal/listing"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newListing(title, url string) listing.Listing {
	return listing.Listing{
		Title:       title,
		Source:      "backstage",
		URL:         url,
		PostedDate:  listing.DateOf(fixedNow),
		Location:    "LA",
		UnionStatus: "non-union",
		RoleType:    "principal",
		Description: "Test",
		HowToApply:  "Apply",
	}
}

func newFileStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := New(context.Background(), NewFileBackend(path), WithClock(clock))
	require.NoError(t, err)
	return s
}

func readState(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]string
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestNewListingsPassThrough(t *testing.T) {
	s := newFileStore(t, filepath.Join(t.TempDir(), "seen.json"))
	in := []listing.Listing{newListing("A", "https://a.com"), newListing("B", "https://b.com")}
	assert.Len(t, s.Deduplicate(in), 2)
}

func TestSeenListingsFilteredOut(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t, filepath.Join(t.TempDir(), "seen.json"))
	l := newListing("A", "https://a.com")

	first := s.Deduplicate([]listing.Listing{l})
	require.Len(t, first, 1)
	require.NoError(t, s.MarkSeen(ctx, first))

	assert.Empty(t, s.Deduplicate([]listing.Listing{l}))
	assert.True(t, s.IsSeen(l.Key()))
}

func TestDeduplicateIsReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	s := newFileStore(t, path)
	l := newListing("A", "https://a.com")

	assert.Len(t, s.Deduplicate([]listing.Listing{l}), 1)
	assert.Len(t, s.Deduplicate([]listing.Listing{l}), 1, "deduplicate must not mark listings seen")
	assert.NoFileExists(t, path)
}

func TestPersistenceAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "seen.json")
	l := newListing("A", "https://a.com")

	s1 := newFileStore(t, path)
	require.NoError(t, s1.MarkSeen(ctx, []listing.Listing{l}))

	s2 := newFileStore(t, path)
	assert.Empty(t, s2.Deduplicate([]listing.Listing{l}))
	assert.Equal(t, map[string]string{l.Key(): "2026-03-10"}, readState(t, path))
}

func TestCrossSourceDedup(t *testing.T) {
	s := newFileStore(t, filepath.Join(t.TempDir(), "seen.json"))
	first := newListing("Role X", "https://example.com/role-x")
	second := newListing("Role X", "https://example.com/role-x")
	second.Source = "craigslist"
	other := newListing("Role Y", "https://example.com/role-y")

	got := s.Deduplicate([]listing.Listing{first, other, second})
	require.Len(t, got, 2)
	assert.Equal(t, "backstage", got[0].Source)
	assert.Equal(t, "Role Y", got[1].Title)
}

func TestMarkSeenRefreshesDate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seen.json")
	l := newListing("A", "https://a.com")
	require.NoError(t, os.WriteFile(path, []byte(`{"`+l.Key()+`": "2026-02-01"}`), 0o644))

	s := newFileStore(t, path)
	require.NoError(t, s.MarkSeen(ctx, []listing.Listing{l}))

	assert.Equal(t, "2026-03-10", readState(t, path)[l.Key()])
	assert.Equal(t, 1, s.Len())
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seen.json")
	state := map[string]string{
		"old":      "2026-01-01",
		"over":     "2026-02-07", // 31 days before 2026-03-10
		"boundary": "2026-02-08", // exactly 30 days
		"recent":   "2026-03-09",
	}
	data, err := json.Marshal(state)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s := newFileStore(t, path)
	removed, err := s.Cleanup(ctx, DefaultRetentionDays)
	require.NoError(t, err)

	assert.Equal(t, 2, removed)
	assert.Equal(t, map[string]string{"boundary": "2026-02-08", "recent": "2026-03-09"}, readState(t, path))
}

func TestCleanupZeroDaysKeepsToday(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seen.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"today":"2026-03-10","yesterday":"2026-03-09"}`), 0o644))

	s := newFileStore(t, path)
	_, err := s.Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"today"}, s.Keys())

	_, err = s.Cleanup(ctx, -1)
	assert.Error(t, err)
}

func TestMissingFileStartsEmpty(t *testing.T) {
	s := newFileStore(t, filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Equal(t, 0, s.Len())
}

func TestCorruptStateIsFatal(t *testing.T) {
	tests := map[string]string{
		"not json":     "{this is not json",
		"legacy array": `[{"url":"https://a.com","timestamp":1}]`,
		"bad date":     `{"abc":"10/03/2026"}`,
		"non-string":   `{"abc": 5}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "seen.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := New(context.Background(), NewFileBackend(path), WithClock(clock))
			assert.ErrorIs(t, err, ErrCorruptState)
		})
	}
}

func TestForgetAndStats(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seen.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":"2026-03-01","b":"2026-03-05","c":"2026-02-20"}`), 0o644))

	s := newFileStore(t, path)
	st := s.Stats()
	assert.Equal(t, 3, st.Entries)
	assert.Equal(t, listing.Date(2026, 2, 20), st.Oldest)
	assert.Equal(t, listing.Date(2026, 3, 5), st.Newest)

	n, err := s.Forget(ctx, "a", "missing")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"b", "c"}, s.Keys())
	assert.NotContains(t, readState(t, path), "a")
}

func TestIdempotentAfterMarkSeen(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t, filepath.Join(t.TempDir(), "seen.json"))
	batch := []listing.Listing{
		newListing("A", "https://a.com"),
		newListing("B", "https://b.com"),
		newListing("A", "https://a.com"),
	}

	fresh := s.Deduplicate(batch)
	require.Len(t, fresh, 2)
	require.NoError(t, s.MarkSeen(ctx, fresh))
	assert.Empty(t, s.Deduplicate(batch))
}

package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-casting-scout/internal/listing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = listing.Date(2026, time.March, 10)

func sample(title string) listing.Listing {
	return listing.Listing{
		Title:      title,
		Source:     "craigslist",
		URL:        "https://example.com/" + title,
		PostedDate: day,
		Location:   "Burbank, CA",
		RoleType:   "principal",
	}
}

func TestFileSaveMergesSameDay(t *testing.T) {
	a := NewFile(t.TempDir())
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, "run-1", day, []listing.Listing{sample("a"), sample("b")}))
	require.NoError(t, a.Save(ctx, "run-2", day, []listing.Listing{sample("b"), sample("c")}))

	got, err := a.Load(day)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "run-1", got[1].RunID, "an already archived listing keeps its first run")
	assert.Equal(t, "run-2", got[2].RunID)
	assert.Equal(t, sample("c").Key(), got[2].Key)
	assert.Equal(t, "Burbank, CA", got[0].Location)
}

func TestFileSaveNothing(t *testing.T) {
	a := NewFile(t.TempDir())
	require.NoError(t, a.Save(context.Background(), "run", day, nil))
	_, err := os.Stat(a.Path(day))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFilePath(t *testing.T) {
	a := NewFile("logs")
	assert.Equal(t, "logs/casting-2026-03-10.json", a.Path(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)))
}

func TestFileSinceNewestFirst(t *testing.T) {
	a := NewFile(t.TempDir())
	ctx := context.Background()
	today := listing.DateOf(time.Now())
	yesterday := listing.AddDays(today, -1)

	require.NoError(t, a.Save(ctx, "run-1", yesterday, []listing.Listing{sample("old")}))
	require.NoError(t, a.Save(ctx, "run-2", today, []listing.Listing{sample("a"), sample("b")}))

	got, err := a.Since(ctx, yesterday, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Title)
	assert.Equal(t, "old", got[2].Title)

	got, err = a.Since(ctx, yesterday, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = a.Since(ctx, today, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFileSinceFarPast(t *testing.T) {
	dir := t.TempDir()
	a := NewFile(dir)
	ctx := context.Background()

	got, err := a.Since(ctx, listing.Date(1, time.January, 1), 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, a.Save(ctx, "run-1", day, []listing.Listing{sample("a")}))
	require.NoError(t, a.Save(ctx, "run-2", listing.Date(2019, time.June, 1), []listing.Listing{sample("ancient")}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "casting-notes.json"), []byte("{}"), 0o644))

	got, err = a.Since(ctx, listing.Date(1, time.January, 1), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, "ancient", got[1].Title)

	got, err = a.Since(ctx, listing.Date(2020, time.January, 1), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Title)
}

// Runs against a real database when ARCHIVE_TEST_DATABASE_URL is set.
func TestPostgresRoundTrip(t *testing.T) {
	url := os.Getenv("ARCHIVE_TEST_DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("ARCHIVE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pg, err := ConnectPostgres(ctx, url)
	require.NoError(t, err)
	defer pg.Close()

	deadline := listing.Date(2026, time.March, 20)
	l := sample("pg-" + time.Now().Format("150405.000"))
	l.Deadline = &deadline
	require.NoError(t, pg.Save(ctx, "run-pg", day, []listing.Listing{l}))
	require.NoError(t, pg.Save(ctx, "run-pg-2", day, []listing.Listing{l}))

	got, err := pg.Since(ctx, day, 500)
	require.NoError(t, err)

	var found *Record
	for i := range got {
		if got[i].Key == l.Key() {
			found = &got[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "run-pg-2", found.RunID)
	require.NotNil(t, found.Deadline)
	assert.True(t, found.Deadline.Equal(deadline))
}

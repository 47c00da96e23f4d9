package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS seen_listings (
	key     TEXT PRIMARY KEY,
	seen_on TEXT NOT NULL
)`

// SQLiteBackend keeps the state in a single SQLite table.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (and if needed creates) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create seen_listings table: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Load(ctx context.Context) (map[string]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key, seen_on FROM seen_listings`)
	if err != nil {
		return nil, fmt.Errorf("query seen_listings: %w", err)
	}
	defer rows.Close()

	entries := map[string]string{}
	for rows.Next() {
		var key, seenOn string
		if err := rows.Scan(&key, &seenOn); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		entries[key] = seenOn
	}
	return entries, rows.Err()
}

func (b *SQLiteBackend) Save(ctx context.Context, entries map[string]string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_listings`); err != nil {
		return fmt.Errorf("clear seen_listings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO seen_listings (key, seen_on) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for key, seenOn := range entries {
		if _, err := stmt.ExecContext(ctx, key, seenOn); err != nil {
			return fmt.Errorf("insert %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

package archive

import (
	"context"
	"fmt"
	"time"

	"go-casting-scout/internal/listing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS listings (
	dedup_key            TEXT PRIMARY KEY,
	run_id               TEXT NOT NULL,
	source               TEXT NOT NULL,
	title                TEXT NOT NULL,
	url                  TEXT NOT NULL,
	posted_date          DATE NOT NULL,
	location             TEXT NOT NULL DEFAULT '',
	union_status         TEXT NOT NULL DEFAULT '',
	role_type            TEXT NOT NULL DEFAULT '',
	description          TEXT NOT NULL DEFAULT '',
	how_to_apply         TEXT NOT NULL DEFAULT '',
	deadline             DATE,
	compensation         TEXT NOT NULL DEFAULT '',
	school_or_production TEXT NOT NULL DEFAULT '',
	delivered_on         DATE NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsert = `
INSERT INTO listings (dedup_key, run_id, source, title, url, posted_date, location, union_status,
	role_type, description, how_to_apply, deadline, compensation, school_or_production, delivered_on)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (dedup_key)
DO UPDATE SET run_id = EXCLUDED.run_id, description = EXCLUDED.description, delivered_on = EXCLUDED.delivered_on`

// Postgres archives listings into a listings table keyed by dedup key.
type Postgres struct {
	db *pgxpool.Pool
}

// ConnectPostgres opens a pool and creates the table if needed.
func ConnectPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	// Poolers in transaction mode (PgBouncer, Supabase) reject cached
	// prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create listings table: %w", err)
	}
	return &Postgres{db: pool}, nil
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Save(ctx context.Context, runID string, day time.Time, listings []listing.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records(runID, listings) {
		batch.Queue(upsert,
			r.Key, r.RunID, r.Source, r.Title, r.URL, listing.DateOf(r.PostedDate),
			r.Location, r.UnionStatus, r.RoleType, r.Description, r.HowToApply,
			r.Deadline, r.Compensation, r.SchoolOrProduction, listing.DateOf(day))
	}

	br := p.db.SendBatch(ctx, batch)
	defer br.Close()
	for range listings {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to save listing: %w", err)
		}
	}
	return nil
}

// Since returns listings delivered on or after day, newest first.
func (p *Postgres) Since(ctx context.Context, day time.Time, limit int) ([]Record, error) {
	rows, err := p.db.Query(ctx, `
		SELECT dedup_key, run_id, source, title, url, posted_date, location, union_status,
			role_type, description, how_to_apply, deadline, compensation, school_or_production
		FROM listings WHERE delivered_on >= $1
		ORDER BY delivered_on DESC, created_at DESC
		LIMIT $2`, listing.DateOf(day), limit)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Key, &r.RunID, &r.Source, &r.Title, &r.URL, &r.PostedDate, &r.Location,
			&r.UnionStatus, &r.RoleType, &r.Description, &r.HowToApply, &r.Deadline, &r.Compensation,
			&r.SchoolOrProduction); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	if p.db != nil {
		p.db.Close()
	}
	return nil
}

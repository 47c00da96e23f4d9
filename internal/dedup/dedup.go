// Package dedup remembers which listings were already sent so a posting is
// only notified once. State maps a listing key to the calendar date it was
// last seen; it is loaded whole on construction and written whole on every
// mutation.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-casting-scout/internal/listing"
)

// DefaultRetentionDays is how long an entry survives Cleanup by default.
const DefaultRetentionDays = 30

// ErrCorruptState means the persisted state could not be decoded. The store
// refuses to start rather than silently forgetting what it has seen.
var ErrCorruptState = errors.New("corrupt seen state")

// Backend persists the full key -> YYYY-MM-DD snapshot.
type Backend interface {
	// Load returns the stored snapshot; an absent store yields an empty map.
	Load(ctx context.Context) (map[string]string, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, entries map[string]string) error
	Close() error
}

// Store is the in-memory view of the seen state.
type Store struct {
	mu      sync.Mutex
	backend Backend
	seen    map[string]time.Time
	now     func() time.Time
	log     *zap.SugaredLogger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now, used to decide "today".
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) { s.log = log }
}

// New loads the backend's snapshot into memory.
func New(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		seen:    make(map[string]time.Time),
		now:     time.Now,
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load seen state: %w", err)
	}
	for key, value := range raw {
		d, err := listing.ParseDate(value)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q has date %q", ErrCorruptState, key, value)
		}
		s.seen[key] = d
	}
	s.log.Infof("Loaded %d previously seen listings", len(s.seen))
	return s, nil
}

// IsSeen reports whether key is in the persisted state.
func (s *Store) IsSeen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

// Deduplicate returns listings that were never seen before, dropping repeats
// within the batch too (first occurrence wins). Persisted state is untouched.
func (s *Store) Deduplicate(listings []listing.Listing) []listing.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]listing.Listing, 0, len(listings))
	batch := make(map[string]bool, len(listings))
	for _, l := range listings {
		key := l.Key()
		if _, ok := s.seen[key]; ok || batch[key] {
			continue
		}
		batch[key] = true
		out = append(out, l)
	}
	return out
}

// MarkSeen records listings with today's date and persists the state. Call it
// only for listings that were actually delivered.
func (s *Store) MarkSeen(ctx context.Context, listings []listing.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := listing.DateOf(s.now())
	for _, l := range listings {
		s.seen[l.Key()] = today
	}
	if err := s.saveLocked(ctx); err != nil {
		return err
	}
	s.log.Infof("Marked %d listings as seen", len(listings))
	return nil
}

// Cleanup drops entries dated strictly before today - maxAgeDays and persists.
// An entry dated exactly on the cutoff is kept.
func (s *Store) Cleanup(ctx context.Context, maxAgeDays int) (int, error) {
	if maxAgeDays < 0 {
		return 0, fmt.Errorf("cleanup: max age must be >= 0, got %d", maxAgeDays)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := listing.AddDays(s.now(), -maxAgeDays)
	removed := 0
	for key, d := range s.seen {
		if d.Before(cutoff) {
			delete(s.seen, key)
			removed++
		}
	}
	if err := s.saveLocked(ctx); err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Infof("Expired %d seen listings older than %s", removed, listing.FormatDate(cutoff))
	}
	return removed, nil
}

// Forget removes keys so the matching listings can be sent again.
func (s *Store) Forget(ctx context.Context, keys ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, key := range keys {
		if _, ok := s.seen[key]; ok {
			delete(s.seen, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.saveLocked(ctx)
}

// Stats summarises the state.
type Stats struct {
	Entries int
	Oldest  time.Time
	Newest  time.Time
}

// Stats returns entry count and date range.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Entries: len(s.seen)}
	for _, d := range s.seen {
		if st.Oldest.IsZero() || d.Before(st.Oldest) {
			st.Oldest = d
		}
		if d.After(st.Newest) {
			st.Newest = d
		}
	}
	return st
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Keys returns every key, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.seen))
	for k := range s.seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) saveLocked(ctx context.Context) error {
	snapshot := make(map[string]string, len(s.seen))
	for key, d := range s.seen {
		snapshot[key] = listing.FormatDate(d)
	}
	if err := s.backend.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save seen state: %w", err)
	}
	return nil
}

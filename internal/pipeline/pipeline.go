// Package pipeline runs one decision cycle over a raw batch of listings:
// expire old seen-state, filter, drop already-seen listings, then classify and
// group what is left.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"go-casting-scout/internal/classifier"
	"go-casting-scout/internal/filter"
	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/rules"
)

// SeenState is the part of the seen-state store a cycle needs. Marking
// listings seen is left to the caller, after delivery succeeds.
type SeenState interface {
	Cleanup(ctx context.Context, maxAgeDays int) (int, error)
	Deduplicate(listings []listing.Listing) []listing.Listing
}

// Result is the outcome of one cycle.
type Result struct {
	// Groups holds the new listings bucketed by category, best first.
	Groups []classifier.Group
	// Listings is Groups flattened, in the same order.
	Listings []listing.Listing
	// Count is len(Listings).
	Count int

	Raw      int
	Filtered int
	Rejected map[filter.Reason]int
	Expired  int
}

// Pipeline is safe to reuse across cycles.
type Pipeline struct {
	rules *rules.Rules
	seen  SeenState
	now   func() time.Time
	log   *zap.SugaredLogger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Pipeline) { p.log = log }
}

// New builds a pipeline over the given rule tables and seen state.
func New(r *rules.Rules, seen SeenState, opts ...Option) *Pipeline {
	p := &Pipeline{
		rules: r,
		seen:  seen,
		now:   time.Now,
		log:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes cleanup -> filter -> deduplicate -> classify for raw.
func (p *Pipeline) Run(ctx context.Context, raw []listing.Listing) (*Result, error) {
	expired, err := p.seen.Cleanup(ctx, p.rules.RetentionDays())
	if err != nil {
		return nil, fmt.Errorf("cleanup seen state: %w", err)
	}
	res := p.decide(raw)
	res.Expired = expired
	return res, nil
}

// Preview is Run without cleanup: the seen state is only read. Entries past
// retention still count as seen.
func (p *Pipeline) Preview(raw []listing.Listing) *Result {
	return p.decide(raw)
}

func (p *Pipeline) decide(raw []listing.Listing) *Result {
	now := p.now()

	filtered, rejected := filter.Partition(raw, p.rules, now)
	p.log.Infof("Filtered: %d/%d listings kept", len(filtered), len(raw))
	for reason, n := range rejected {
		p.log.Debugw("rejected listings", "reason", reason.String(), "count", n)
	}

	fresh := p.seen.Deduplicate(filtered)
	p.log.Infof("Deduplication: %d filtered -> %d unseen listings", len(filtered), len(fresh))

	groups := classifier.GroupByCategory(fresh, p.rules)
	flat := make([]listing.Listing, 0, len(fresh))
	for _, g := range groups {
		flat = append(flat, g.Listings...)
	}

	return &Result{
		Groups:   groups,
		Listings: flat,
		Count:    len(flat),
		Raw:      len(raw),
		Filtered: len(filtered),
		Rejected: rejected,
	}
}

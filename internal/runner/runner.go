// Package runner executes one full scrape cycle: collect, filter, dedup,
// classify, render, deliver, remember, archive.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-casting-scout/internal/archive"
	"go-casting-scout/internal/digest"
	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/metrics"
	"go-casting-scout/internal/notify"
	"go-casting-scout/internal/pipeline"
	"go-casting-scout/internal/scraper"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAllSourcesFailed aborts a cycle that gathered nothing because sources
// errored. No digest goes out, so the failure is not mistaken for a quiet day.
var ErrAllSourcesFailed = errors.New("no listings collected and sources failed")

// SeenStore is what a cycle needs from the seen-state store.
type SeenStore interface {
	pipeline.SeenState
	MarkSeen(ctx context.Context, listings []listing.Listing) error
	Len() int
}

// Report summarises a cycle.
type Report struct {
	RunID     string
	Started   time.Time
	Duration  time.Duration
	Raw       int
	New       int
	Failed    []string
	Delivered bool
	DryRun    bool
	Result    *pipeline.Result
	Digest    digest.Digest
}

// Deps are the collaborators of a Runner. Metrics and Archivers are optional.
type Deps struct {
	Sources   []scraper.Source
	Pipeline  *pipeline.Pipeline
	Store     SeenStore
	Notifier  notify.Notifier
	Archivers []archive.Archiver
	Metrics   *metrics.Metrics
	Log       *zap.SugaredLogger
	Now       func() time.Time
	// DryRun renders the digest to Notifier and leaves the seen state
	// untouched: no cleanup, nothing marked seen.
	DryRun bool
}

type Runner struct {
	deps Deps
	log  *zap.SugaredLogger
	now  func() time.Time
}

func New(deps Deps) *Runner {
	log := deps.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{deps: deps, log: log, now: now}
}

// Run executes one cycle. Listings are marked seen only after the digest was
// delivered, so a failed delivery is retried on the next cycle.
func (r *Runner) Run(ctx context.Context) (rep *Report, err error) {
	rep = &Report{RunID: uuid.NewString(), Started: r.now(), DryRun: r.deps.DryRun}
	log := r.log.With("run_id", rep.RunID)
	log.Infow("Casting Scout starting", "sources", len(r.deps.Sources), "dry_run", r.deps.DryRun)

	defer func() {
		rep.Duration = r.now().Sub(rep.Started)
		r.finish(rep, err)
		if err != nil {
			log.Errorw("Cycle failed", "error", err, "duration", rep.Duration)
			return
		}
		log.Infow("Cycle finished", "new", rep.New, "delivered", rep.Delivered, "duration", rep.Duration)
	}()

	coll := scraper.Collect(ctx, r.deps.Sources, log)
	rep.Raw = len(coll.Listings)
	rep.Failed = coll.Failed()
	if m := r.deps.Metrics; m != nil {
		m.ObserveCollection(coll)
	}
	log.Infow("Total raw listings", "count", rep.Raw, "failed_sources", rep.Failed)

	if rep.Raw == 0 && len(rep.Failed) > 0 {
		return rep, fmt.Errorf("%w: %v", ErrAllSourcesFailed, rep.Failed)
	}

	var res *pipeline.Result
	if r.deps.DryRun {
		res = r.deps.Pipeline.Preview(coll.Listings)
	} else if res, err = r.deps.Pipeline.Run(ctx, coll.Listings); err != nil {
		return rep, err
	}
	rep.Result = res
	rep.New = res.Count
	if m := r.deps.Metrics; m != nil {
		m.ObserveResult(res)
	}

	d, err := digest.Build(res, rep.Failed, rep.Started)
	if err != nil {
		return rep, err
	}
	rep.Digest = d

	if err := r.deps.Notifier.Send(ctx, d); err != nil {
		if m := r.deps.Metrics; m != nil {
			m.DeliveryFailure.WithLabelValues(r.deps.Notifier.Name()).Inc()
		}
		return rep, fmt.Errorf("deliver digest: %w", err)
	}
	if r.deps.DryRun {
		log.Infow("Dry run, nothing marked as seen", "new", res.Count)
		return rep, nil
	}
	rep.Delivered = true

	if err := r.deps.Store.MarkSeen(ctx, res.Listings); err != nil {
		return rep, fmt.Errorf("mark seen: %w", err)
	}
	r.archive(ctx, log, rep)
	return rep, nil
}

func (r *Runner) archive(ctx context.Context, log *zap.SugaredLogger, rep *Report) {
	for _, a := range r.deps.Archivers {
		if err := a.Save(ctx, rep.RunID, rep.Started, rep.Result.Listings); err != nil {
			log.Warnw("Archive failed", "archive", a.Name(), "error", err)
			continue
		}
		log.Debugw("Archived listings", "archive", a.Name(), "count", rep.New)
	}
}

func (r *Runner) finish(rep *Report, err error) {
	m := r.deps.Metrics
	if m == nil {
		return
	}
	status := metrics.StatusOK
	switch {
	case err != nil:
		status = metrics.StatusFailed
	case rep.DryRun:
		status = metrics.StatusDryRun
	}
	m.RunFinished(status, rep.Duration, r.now())
	if r.deps.Store != nil {
		m.SeenEntries.Set(float64(r.deps.Store.Len()))
	}
}

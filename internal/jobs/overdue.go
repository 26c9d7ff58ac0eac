// Package jobs runs the periodic maintenance work: refreshing the cached
// is_overdue flags and the ministry rollup projection.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/learnpath/learnpath-lms/internal/ministry"
	"github.com/learnpath/learnpath-lms/internal/progress"
)

// CacheKeys dropped after each projection refresh.
var CacheKeys = []string{"ministry:stats", "ministry:course_stats"}

type Sweeper struct {
	svc    *progress.Service
	source *ministry.SQLSource
	cache  *ministry.Cache
	events progress.EventRecorder
	cron   *cron.Cron
}

// NewSweeper wires the sweep. source, cache and events may be nil when the
// schema lacks ministry support or Redis/auditing is not configured.
func NewSweeper(svc *progress.Service, source *ministry.SQLSource, cache *ministry.Cache, events progress.EventRecorder) *Sweeper {
	return &Sweeper{svc: svc, source: source, cache: cache, events: events, cron: cron.New()}
}

// Start registers the sweep under spec (cron syntax, e.g. "15 2 * * *") and
// launches the scheduler.
func (s *Sweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("jobs: overdue sweep scheduled", "spec", spec)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		slog.Error("jobs: overdue sweep failed", "error", err)
	}
}

// Run executes one sweep. Exported so operators can trigger it on demand.
func (s *Sweeper) Run(ctx context.Context) error {
	start := time.Now()

	flagged, err := s.svc.RefreshOverdueFlags(ctx)
	switch {
	case err == nil:
		slog.Info("jobs: overdue flags refreshed", "flagged", flagged)
	case progress.KindOf(err) == progress.KindUnsupported:
		// schema has no deadline columns; nothing to flag
	default:
		return err
	}

	if s.source != nil {
		snap, err := s.source.LoadSnapshot(ctx)
		if err != nil {
			return err
		}
		stats := ministry.AggregateByCourse(snap, "", time.Now().UTC())
		if err := s.source.RefreshProjection(ctx, stats, time.Now().UTC()); err != nil {
			return err
		}
		if err := s.cache.Invalidate(ctx, CacheKeys...); err != nil {
			slog.Warn("jobs: cache invalidate failed", "error", err)
		}
		slog.Info("jobs: ministry projection refreshed", "rows", len(stats))
	}

	if s.events != nil {
		s.events.Record(ctx, progress.EventOverdueSweep, "sweep", map[string]any{
			"flagged": flagged,
			"took_ms": time.Since(start).Milliseconds(),
		})
	}
	slog.Info("jobs: sweep complete", "took", time.Since(start))
	return nil
}

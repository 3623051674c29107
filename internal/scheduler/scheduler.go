// Package scheduler runs periodic maintenance jobs on a cron timetable.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// DefaultCapacityReconcile runs nightly at 03:00 UTC.
	DefaultCapacityReconcile = "0 0 3 * * *"
	// DefaultExportCleanup runs hourly.
	DefaultExportCleanup = "0 15 * * * *"

	jobTimeout = 5 * time.Minute
)

type occupancyReconciler interface {
	Reconcile(ctx context.Context) (int64, error)
}

type exportCleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

type jobRecorder interface {
	RecordJobRun(job string, err error)
}

// Config holds cron specs with seconds precision. Empty specs fall back to
// the defaults.
type Config struct {
	CapacityReconcile string
	ExportCleanup     string
}

// Scheduler owns the cron runner and the registered maintenance jobs.
type Scheduler struct {
	cron     *cron.Cron
	capacity occupancyReconciler
	exports  exportCleaner
	metrics  jobRecorder
	logger   *zap.Logger
	ctx      context.Context
}

// New registers the maintenance jobs. A nil exports cleaner skips the export
// sweep, which is the case when exports are disabled.
func New(ctx context.Context, cfg Config, capacity occupancyReconciler, exports exportCleaner, metrics jobRecorder, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CapacityReconcile == "" {
		cfg.CapacityReconcile = DefaultCapacityReconcile
	}
	if cfg.ExportCleanup == "" {
		cfg.ExportCleanup = DefaultExportCleanup
	}
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC), cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		capacity: capacity,
		exports:  exports,
		metrics:  metrics,
		logger:   logger.With(zap.String("component", "scheduler")),
		ctx:      ctx,
	}

	if capacity != nil {
		if _, err := s.cron.AddFunc(cfg.CapacityReconcile, s.ReconcileCapacity); err != nil {
			return nil, fmt.Errorf("register capacity reconcile %q: %w", cfg.CapacityReconcile, err)
		}
	}
	if exports != nil {
		if _, err := s.cron.AddFunc(cfg.ExportCleanup, s.CleanupExports); err != nil {
			return nil, fmt.Errorf("register export cleanup %q: %w", cfg.ExportCleanup, err)
		}
	}
	return s, nil
}

// Start begins firing jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Jobs reports the number of registered entries.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// ReconcileCapacity recomputes mentor occupancy counters.
func (s *Scheduler) ReconcileCapacity() {
	s.run("capacity_reconcile", func(ctx context.Context) error {
		fixed, err := s.capacity.Reconcile(ctx)
		if err == nil {
			s.logger.Info("capacity reconciled", zap.Int64("corrected", fixed))
		}
		return err
	})
}

// CleanupExports purges expired export files and jobs.
func (s *Scheduler) CleanupExports() {
	s.run("export_cleanup", func(ctx context.Context) error {
		purged, err := s.exports.Cleanup(ctx)
		if err == nil && purged > 0 {
			s.logger.Info("exports purged", zap.Int("jobs", purged))
		}
		return err
	})
}

func (s *Scheduler) run(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	started := time.Now()
	err := fn(ctx)
	if s.metrics != nil {
		s.metrics.RecordJobRun(name, err)
	}
	if err != nil {
		s.logger.Error("scheduled job failed", zap.String("job", name), zap.Duration("took", time.Since(started)), zap.Error(err))
		return
	}
	s.logger.Debug("scheduled job finished", zap.String("job", name), zap.Duration("took", time.Since(started)))
}

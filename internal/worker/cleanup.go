// Package worker runs periodic maintenance jobs.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"medbook/config"
)

// ExceptionPurger deletes exceptional dates older than a cutoff.
type ExceptionPurger interface {
	PurgeExceptions(ctx context.Context, cutoff time.Time) (int64, error)
}

type Cleanup struct {
	purger    ExceptionPurger
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
	cron      *cron.Cron
}

func NewCleanup(cfg config.CleanupConfig, loc *time.Location, purger ExceptionPurger, logger *zap.Logger) (*Cleanup, error) {
	if loc == nil {
		loc = time.Local
	}
	w := &Cleanup{
		purger:    purger,
		retention: cfg.Retention,
		now:       time.Now,
		logger:    logger,
		cron:      cron.New(cron.WithLocation(loc)),
	}
	if _, err := w.cron.AddFunc(cfg.Schedule, func() { w.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("cleanup schedule %q: %w", cfg.Schedule, err)
	}
	return w, nil
}

func (w *Cleanup) Start() {
	w.cron.Start()
	w.logger.Info("cleanup worker started", zap.Duration("retention", w.retention))
}

// Stop waits for a running job to finish or ctx to expire.
func (w *Cleanup) Stop(ctx context.Context) {
	select {
	case <-w.cron.Stop().Done():
	case <-ctx.Done():
		w.logger.Warn("cleanup worker stop timed out")
	}
}

// RunOnce purges exceptions dated before now minus the retention.
func (w *Cleanup) RunOnce(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.retention)
	n, err := w.purger.PurgeExceptions(ctx, cutoff)
	if err != nil {
		w.logger.Error("exception cleanup failed", zap.Error(err))
		return 0, err
	}
	w.logger.Info("exception cleanup done", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	return n, nil
}

// Package jobs runs scheduled background work: currently the trending
// cache warmer, which recomputes the trending set slightly before its
// TTL expires so readers never take the miss.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TrendingRefresher recomputes and rewrites the cached trending set.
type TrendingRefresher interface {
	RefreshTrending(ctx context.Context) error
}

// refreshTimeout bounds one warmer run; a wedged store must not pile up
// overlapping refreshes.
const refreshTimeout = 2 * time.Minute

// Scheduler owns the cron runner. Jobs run in the scheduler's own
// goroutines; Stop waits for in-flight runs.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:  log,
	}
}

// AddTrendingWarmer schedules the trending refresh on the given cron
// spec (e.g. "@every 25m").
func (s *Scheduler) AddTrendingWarmer(spec string, r TrendingRefresher) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		start := time.Now()
		if err := r.RefreshTrending(ctx); err != nil {
			s.log.Error("trending warmer failed", zap.Error(err))
			return
		}
		s.log.Debug("trending warmer completed", zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("schedule trending warmer %q: %w", spec, err)
	}
	return nil
}

// Start launches the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Package scheduler runs the daily pipeline on a cron schedule in the
// market's local timezone.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"TrendWatch/internal/pipeline"
	"TrendWatch/pkg/logger"
)

// Scheduler manages the cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Pipeline *pipeline.Pipeline
	Location *time.Location
	Ctx      context.Context
}

// New creates a scheduler whose cron expressions are evaluated in tz.
func New(ctx context.Context, pipe *pipeline.Pipeline, tz string) (*Scheduler, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Pipeline: pipe,
		Location: loc,
		Ctx:      ctx,
	}, nil
}

// Register adds the daily pipeline run at dailyCron (6-field expression).
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyRun); err != nil {
		return fmt.Errorf("register daily run: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.L().Info("scheduler started", zap.String("timezone", s.Location.String()))
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.L().Info("scheduler stopped")
}

// RunNow executes the daily run immediately (manual trigger).
func (s *Scheduler) RunNow() {
	s.dailyRun()
}

func (s *Scheduler) dailyRun() {
	runDate := time.Now().In(s.Location)
	runDate = time.Date(runDate.Year(), runDate.Month(), runDate.Day(), 0, 0, 0, 0, time.UTC)
	if err := s.Pipeline.Run(s.Ctx, runDate); err != nil {
		logger.L().Error("daily run failed", zap.Error(err))
	}
}

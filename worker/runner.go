package worker

import (
	"context"
	"fmt"
	"time"

	"homeapi-backend/models"
	"homeapi-backend/repository"
	"homeapi-backend/utils/logger"

	"github.com/robfig/cron"
)

// runTimeout bounds one import cycle.
const runTimeout = 2 * time.Minute

// Service schedules the import job.
type Service struct {
	importer *Importer
	schedule string
	cron     *cron.Cron
	logger   logger.Logger
}

// NewService creates a new import worker service
func NewService(cfg *models.Config, records *repository.RecordRepository, log logger.Logger) (*Service, error) {
	if cfg.NatureRemoToken == "" {
		return nil, fmt.Errorf("device API token is not configured")
	}

	remo := NewRemoClient(cfg.NatureRemoBaseURL, cfg.NatureRemoToken, log)
	return &Service{
		importer: NewImporter(records, remo, log),
		schedule: cfg.ImportSchedule,
		cron:     cron.New(),
		logger:   log,
	}, nil
}

// StartInBackground registers the cron entry and starts the scheduler.
func (s *Service) StartInBackground() error {
	s.logger.Infof("Starting import worker with schedule: %s", s.schedule)

	if err := s.cron.AddFunc(s.schedule, func() {
		if err := s.RunOnce(); err != nil {
			s.logger.Errorf("Import run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid import schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

// RunOnce executes one import cycle with the run timeout applied.
func (s *Service) RunOnce() error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	if err := s.importer.Run(ctx); err != nil {
		return err
	}
	s.logger.Infof("Import run completed in %s", time.Since(start))
	return nil
}

// Stop stops the scheduler. A run already in flight finishes on its own.
func (s *Service) Stop() {
	s.logger.Info("Stopping import worker")
	s.cron.Stop()
}

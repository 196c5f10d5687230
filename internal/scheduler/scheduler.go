package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"gharbazaar/internal/config"
	"gharbazaar/internal/listings"
)

// Scheduler runs the nightly maintenance jobs: premium package expiry
// and the full search reindex.
type Scheduler struct {
	cron      *cron.Cron
	listings  *listings.Service
	config    *config.Config
	logger    *logrus.Logger
	isRunning bool
}

// NewScheduler creates a new scheduler
func NewScheduler(svc *listings.Service, cfg *config.Config, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		listings: svc,
		config:   cfg,
		logger:   logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if !s.config.Scheduler.Enabled {
		s.logger.Info("scheduler disabled in configuration")
		return nil
	}

	expirySpec := s.parseDailyRunTime(s.config.Scheduler.PackageExpiryTime, "30 1 * * *")
	_, err := s.cron.AddFunc(expirySpec, func() {
		if err := s.runPackageExpiry(); err != nil {
			s.logger.WithError(err).Error("package expiry job failed")
		}
	})
	if err != nil {
		return err
	}

	reindexSpec := s.parseDailyRunTime(s.config.Scheduler.ReindexTime, "0 3 * * *")
	_, err = s.cron.AddFunc(reindexSpec, func() {
		if err := s.runReindex(); err != nil {
			s.logger.WithError(err).Error("reindex job failed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithFields(logrus.Fields{
		"packageExpiry": expirySpec,
		"reindex":       reindexSpec,
	}).Info("scheduler started")

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		s.logger.Info("scheduler stopped")
	}
}

func (s *Scheduler) runPackageExpiry() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	count, err := s.listings.ExpirePackages(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	s.logger.WithField("demoted", count).Info("package expiry job completed")
	return nil
}

func (s *Scheduler) runReindex() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	count, err := s.listings.ReindexAll(ctx)
	if err != nil {
		return err
	}
	s.logger.WithField("indexed", count).Info("reindex job completed")
	return nil
}

// RunNow immediately executes both maintenance jobs (for manual trigger).
func (s *Scheduler) RunNow() error {
	if err := s.runPackageExpiry(); err != nil {
		return err
	}
	return s.runReindex()
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "01:30" -> "30 1 * * *"
func (s *Scheduler) parseDailyRunTime(timeStr, fallback string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 && hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	s.logger.WithField("value", timeStr).Warn("failed to parse job time, using fallback")
	return fallback
}

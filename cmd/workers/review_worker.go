package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"escrow-desk/escrow-portal/escrow-portal-backend/internal/dispute"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/timeparse"
)

// ReviewWorker periodically sweeps the dispute ledger and flags disputes that
// sat in open beyond the configured window, moving them to under_review so
// they surface in the admin queue.
type ReviewWorker struct {
	disputes *dispute.Service
	logger   *zap.Logger
	config   ReviewWorkerConfig
}

// ReviewWorkerConfig configuration for the review worker
type ReviewWorkerConfig struct {
	Schedule       string
	StaleOpenAfter time.Duration
	SweepTimeout   time.Duration
}

// DefaultReviewWorkerConfig returns default configuration
func DefaultReviewWorkerConfig() ReviewWorkerConfig {
	return ReviewWorkerConfig{
		Schedule:       "@hourly",
		StaleOpenAfter: 72 * time.Hour,
		SweepTimeout:   5 * time.Minute,
	}
}

// NewReviewWorker creates a new review worker
func NewReviewWorker(disputes *dispute.Service, logger *zap.Logger, config ReviewWorkerConfig) *ReviewWorker {
	return &ReviewWorker{disputes: disputes, logger: logger, config: config}
}

// Start schedules the sweep and returns the running scheduler.
func (w *ReviewWorker) Start() (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(w.config.Schedule, w.sweep); err != nil {
		return nil, err
	}
	c.Start()
	w.logger.Info("Review worker started",
		zap.String("schedule", w.config.Schedule),
		zap.Duration("stale_open_after", w.config.StaleOpenAfter))
	return c, nil
}

func (w *ReviewWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.SweepTimeout)
	defer cancel()

	disputes, err := w.disputes.ListAll(ctx)
	if err != nil {
		w.logger.Error("Sweep failed to list disputes", zap.Error(err))
		return
	}

	cutoff := time.Now().Add(-w.config.StaleOpenAfter)
	flagged := 0
	for _, d := range disputes {
		if d.Status != dispute.StatusOpen {
			continue
		}
		opened := timeparse.Instant(d.CreatedAt)
		if opened.IsZero() || opened.After(cutoff) {
			continue
		}
		next := dispute.StatusUnderReview
		if err := w.disputes.Resolve(ctx, d.ID, dispute.ResolveInput{Status: &next}); err != nil {
			w.logger.Warn("Failed to flag stale dispute",
				zap.String("id", d.ID), zap.Error(err))
			continue
		}
		flagged++
	}

	w.logger.Info("Dispute sweep complete",
		zap.Int("scanned", len(disputes)),
		zap.Int("flagged", flagged))
}

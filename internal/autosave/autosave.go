// Package autosave periodically saves the live bill.
package autosave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mmynk/billbook/internal/apperror"
)

// DefaultInterval is the autosave period.
const DefaultInterval = 60 * time.Second

// Saver is implemented by billing.Engine.
type Saver interface {
	AutoSave(ctx context.Context) error
}

// Scheduler calls Saver.AutoSave on a fixed period.
// A tick that arrives while the previous save is still running is skipped.
type Scheduler struct {
	saver    Saver
	interval time.Duration
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a Scheduler. Intervals under one second are rounded up, which
// is the cron library's resolution.
func New(saver Saver, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if interval < time.Second {
		interval = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		saver:    saver,
		interval: interval,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:      ctx,
		cancel:   cancel,
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule autosave: %w", err)
	}
	return s, nil
}

// Interval returns the effective period.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	slog.Info("Autosave started", "interval", s.interval)
	s.cron.Start()
}

// Stop stops ticking and waits for a running save to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	slog.Info("Autosave stopped")
}

func (s *Scheduler) tick() {
	if err := s.saver.AutoSave(s.ctx); err != nil {
		if apperror.IsStorageUnavailable(err) {
			slog.Warn("Autosave could not persist", "error", err)
			return
		}
		slog.Error("Autosave failed", "error", err)
		return
	}
	slog.Debug("Autosave complete")
}

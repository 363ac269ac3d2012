package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
)

const defaultSweepInterval = time.Hour

// Sweeper deletes expired ledger records. *Manager implements it.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// HousekeepingService sweeps the ledger on a fixed interval, once at start
// and then every Interval until Stop. Sweeps only remove rows whose stored
// expiry has passed, so they can overlap with live traffic.
type HousekeepingService struct {
	Sweeper  Sweeper
	Logger   *slog.Logger
	Interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHousekeepingService returns a stopped service. A non-positive interval
// means one hour.
func NewHousekeepingService(sweeper Sweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &HousekeepingService{Sweeper: sweeper, Logger: logger, Interval: interval}
}

// Start launches the sweep loop and returns immediately.
func (s *HousekeepingService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
	s.Logger.Info("housekeeping started", slog.Duration("interval", s.Interval))
}

// Stop cancels the loop and waits for an in-flight sweep to return. It is a
// no-op on a service that was never started.
func (s *HousekeepingService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) loop(ctx context.Context) {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	for {
		s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// RunOnce performs a single sweep bounded by Interval and returns the number
// of rows deleted. Failures are logged and count as zero.
func (s *HousekeepingService) RunOnce(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, s.Interval)
	defer cancel()

	n, err := s.Sweeper.Sweep(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		s.Logger.Warn("housekeeping sweep cut short", slogx.Err(err))
		return 0
	case err != nil:
		s.Logger.Error("housekeeping sweep failed", slogx.Err(err))
		return 0
	}
	if n > 0 {
		s.Logger.Info("housekeeping sweep", slog.Int64("deleted", n))
	} else {
		s.Logger.Debug("housekeeping sweep", slog.Int64("deleted", n))
	}
	return n
}

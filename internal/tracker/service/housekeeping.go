package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
)

// HousekeepingService periodically deletes expired invites.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to one hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the worker. It runs one pass immediately.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", slog.Duration("interval", s.Interval))
}

// Stop blocks until an in-progress pass has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs a single cleanup pass and returns the rows removed.
func (s *HousekeepingService) RunOnce(ctx context.Context) int64 {
	n, err := s.Store.Invites().DeleteExpiredInvites(ctx, time.Now())
	if err != nil {
		s.Logger.Error("failed to delete expired invites", slog.Any("error", err))
		return 0
	}

	s.Logger.Debug("housekeeping pass completed", slog.Int64("expired_invites", n))
	return n
}

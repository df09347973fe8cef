package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FreezeExpirer clears the in-effect flag of freezes past their end date.
type FreezeExpirer interface {
	ExpireEndedFreezes(ctx context.Context) (int64, error)
}

// FreezeSweeper periodically expires ended code freezes. It never activates
// scheduled ones.
type FreezeSweeper struct {
	expirer  FreezeExpirer
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFreezeSweeper builds a sweeper. A non-positive interval disables it.
func NewFreezeSweeper(expirer FreezeExpirer, interval time.Duration, logger *zap.Logger) *FreezeSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FreezeSweeper{expirer: expirer, interval: interval, logger: logger}
}

// Start runs one sweep immediately and then one per interval until ctx is
// cancelled or Stop is called.
func (s *FreezeSweeper) Start(ctx context.Context) {
	if s.interval <= 0 || s.expirer == nil {
		s.logger.Info("freeze sweeper disabled")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *FreezeSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *FreezeSweeper) sweep(ctx context.Context) {
	expired, err := s.expirer.ExpireEndedFreezes(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("freeze sweep failed", zap.Error(err))
		}
		return
	}
	if expired > 0 {
		s.logger.Info("expired code freezes", zap.Int64("count", expired))
	}
}

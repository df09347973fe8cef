package service

import (
	"context"
	"time"

	"github.com/spec-kit/release-queue/internal/domain"
	"github.com/spec-kit/release-queue/internal/repository"
	apperrors "github.com/spec-kit/release-queue/pkg/util/errorutil"
)

// LedgerService reads the master queue.
type LedgerService struct {
	ledger repository.LedgerRepository
	now    func() time.Time
}

// LedgerQuery selects and orders master-queue rows. DaysBack of nil or zero
// disables the date filter.
type LedgerQuery struct {
	ByComponent bool
	DaysBack    *int
}

// NewLedgerService constructs the service.
func NewLedgerService(ledger repository.LedgerRepository, clock func() time.Time) *LedgerService {
	if clock == nil {
		clock = time.Now
	}
	return &LedgerService{ledger: ledger, now: clock}
}

// ListLedger returns master-queue rows ordered by component or by open time.
func (s *LedgerService) ListLedger(ctx context.Context, q LedgerQuery) ([]domain.LedgerEntry, error) {
	filter := repository.LedgerFilter{SortByComponent: q.ByComponent}
	if q.DaysBack != nil {
		if *q.DaysBack < 0 {
			return nil, apperrors.NewValidationError("daysBack must not be negative", map[string]any{"field": "daysBack"})
		}
		if *q.DaysBack > 0 {
			since := startOfLocalDay(s.now()).AddDate(0, 0, -*q.DaysBack)
			filter.OpenedSince = &since
		}
	}

	entries, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStorageError("list ledger", err)
	}
	return entries, nil
}

func startOfLocalDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/release-queue/internal/auth"
	"github.com/spec-kit/release-queue/internal/domain"
	"github.com/spec-kit/release-queue/internal/events"
	"github.com/spec-kit/release-queue/internal/observability"
	"github.com/spec-kit/release-queue/internal/repository"
	apperrors "github.com/spec-kit/release-queue/pkg/util/errorutil"
)

// FreezeService implements the code freeze gate.
type FreezeService struct {
	freezes    repository.FreezeRepository
	auth       *AuthService
	ids        *auth.IDGenerator
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// FreezeDependencies bundles collaborators for the freeze service.
type FreezeDependencies struct {
	FreezeRepo repository.FreezeRepository
	Auth       *AuthService
	IDs        *auth.IDGenerator
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      func() time.Time
}

// StartFreezeInput describes a new freeze, StartInDays from today.
type StartFreezeInput struct {
	StartInDays  int
	DurationDays int
	Email        string
	Password     string
}

// NewFreezeService constructs the service.
func NewFreezeService(deps FreezeDependencies) *FreezeService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FreezeService{
		freezes:    deps.FreezeRepo,
		auth:       deps.Auth,
		ids:        deps.IDs,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        clock,
	}
}

// IsFreezeActive reports whether an in-effect freeze covers today.
func (s *FreezeService) IsFreezeActive(ctx context.Context) (bool, error) {
	count, err := s.freezes.CountActive(ctx, s.today())
	if err != nil {
		return false, apperrors.NewStorageError("check freezes", err)
	}
	return count > 0, nil
}

// StartFreeze records a freeze. Only a freeze starting today is created in
// effect; a future freeze stays scheduled and is never activated here.
func (s *FreezeService) StartFreeze(ctx context.Context, in StartFreezeInput) (freeze *domain.CodeFreeze, err error) {
	defer func() { s.metrics.RecordQueueOperation("start_freeze", "", err) }()

	if in.StartInDays < 0 {
		return nil, apperrors.NewValidationError("startIn must not be negative", map[string]any{"field": "startIn"})
	}
	if in.DurationDays < 0 {
		return nil, apperrors.NewValidationError("duration must not be negative", map[string]any{"field": "duration"})
	}

	admin, err := s.auth.Authenticate(ctx, in.Email, in.Password, true)
	if err != nil {
		return nil, err
	}

	id, err := s.ids.Generate(ctx, domain.IDScopeFreezes)
	if err != nil {
		return nil, err
	}

	begins := s.today().AddDate(0, 0, in.StartInDays)
	freeze = &domain.CodeFreeze{
		ID:           id,
		Begins:       begins,
		DurationDays: in.DurationDays,
		Ends:         begins.AddDate(0, 0, in.DurationDays),
		InEffect:     in.StartInDays == 0,
	}
	if err := s.freezes.Create(ctx, freeze); err != nil {
		return nil, apperrors.NewStorageError("create freeze", err)
	}

	s.logger.Info("code freeze started",
		zap.String("freeze_id", freeze.ID),
		zap.Time("begins", freeze.Begins),
		zap.Time("ends", freeze.Ends),
		zap.Bool("in_effect", freeze.InEffect))
	publishEvent(ctx, s.dispatcher, s.logger, events.EventFreezeStarted, admin.Email, events.FreezeStartedPayload{
		FreezeID:     freeze.ID,
		Begins:       freeze.Begins,
		Ends:         freeze.Ends,
		DurationDays: freeze.DurationDays,
		InEffect:     freeze.InEffect,
	})
	return freeze, nil
}

// EndAllActiveFreezes clears the in-effect flag everywhere and returns how many
// freezes changed.
func (s *FreezeService) EndAllActiveFreezes(ctx context.Context, email, password string) (count int64, err error) {
	defer func() { s.metrics.RecordQueueOperation("end_freezes", "", err) }()

	admin, err := s.auth.Authenticate(ctx, email, password, true)
	if err != nil {
		return 0, err
	}
	count, err = s.freezes.EndAllInEffect(ctx)
	if err != nil {
		return 0, apperrors.NewStorageError("end freezes", err)
	}

	s.logger.Info("code freezes ended", zap.Int64("count", count))
	publishEvent(ctx, s.dispatcher, s.logger, events.EventFreezesEnded, admin.Email, events.FreezesEndedPayload{Count: count})
	return count, nil
}

// EndFreezeByID deletes one freeze.
func (s *FreezeService) EndFreezeByID(ctx context.Context, id, email, password string) (err error) {
	defer func() { s.metrics.RecordQueueOperation("delete_freeze", "", err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		return apperrors.NewValidationError("codeFreezeUUID is required", map[string]any{"field": "codeFreezeUUID"})
	}
	admin, err := s.auth.Authenticate(ctx, email, password, true)
	if err != nil {
		return err
	}
	if err := s.freezes.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("code freeze", map[string]any{"codeFreezeUUID": id})
		}
		return apperrors.NewStorageError("delete freeze", err)
	}

	s.logger.Info("code freeze deleted", zap.String("freeze_id", id))
	publishEvent(ctx, s.dispatcher, s.logger, events.EventFreezeDeleted, admin.Email, events.FreezeDeletedPayload{FreezeID: id})
	return nil
}

// ListFreezes returns every freeze.
func (s *FreezeService) ListFreezes(ctx context.Context) ([]domain.CodeFreeze, error) {
	freezes, err := s.freezes.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("list freezes", err)
	}
	return freezes, nil
}

// ExpireEndedFreezes clears the in-effect flag of freezes whose end date has
// passed. It does not activate scheduled freezes.
func (s *FreezeService) ExpireEndedFreezes(ctx context.Context) (int64, error) {
	count, err := s.freezes.ExpireEnded(ctx, s.today())
	if err != nil {
		return 0, apperrors.NewStorageError("expire freezes", err)
	}
	s.metrics.RecordSweep(count)
	return count, nil
}

func (s *FreezeService) today() time.Time {
	return domain.Day(s.now())
}

package service

import (
	"context"
	"errors"
	"sort"
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

const (
	maxTicketLen      = 45
	maxDescriptionLen = 500
	// unknownQueueLabel stands in for queue names that did not resolve, so
	// caller input never becomes a metric label.
	unknownQueueLabel = "unknown"
)

// QueueService implements the queue directory and the entry/exit engine.
type QueueService struct {
	queues     repository.QueueRepository
	auth       *AuthService
	ids        *auth.IDGenerator
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// QueueDependencies bundles collaborators for the queue service.
type QueueDependencies struct {
	QueueRepo  repository.QueueRepository
	Auth       *AuthService
	IDs        *auth.IDGenerator
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      func() time.Time
}

// EnterQueueInput describes a request to join a queue.
type EnterQueueInput struct {
	Queue       string
	Ticket      string
	Description string
	Email       string
	Password    string
}

// ExitQueueInput describes a request to leave a queue.
type ExitQueueInput struct {
	Queue    string
	Ticket   string
	Email    string
	Password string
}

// RankedEntry is a queue entry as reported to callers. The head of the queue
// is Releasing and its numeric position is not shown.
type RankedEntry struct {
	domain.QueueEntry
	Releasing bool
}

// NewQueueService constructs the service.
func NewQueueService(deps QueueDependencies) *QueueService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueService{
		queues:     deps.QueueRepo,
		auth:       deps.Auth,
		ids:        deps.IDs,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        clock,
	}
}

// ListQueueNames returns every registered queue.
func (s *QueueService) ListQueueNames(ctx context.Context) ([]string, error) {
	names, err := s.queues.ListQueueNames(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("list queues", err)
	}
	return names, nil
}

// CreateQueue registers a queue. It is reached from the operator CLI only.
func (s *QueueService) CreateQueue(ctx context.Context, name string) error {
	name = normalizeQueueName(name)
	if err := validateLength("componant", name, 1, maxNameLen); err != nil {
		return err
	}
	if err := s.queues.CreateQueue(ctx, name); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperrors.NewConflict("queue already exists", map[string]any{"componant": name})
		}
		return apperrors.NewStorageError("create queue", err)
	}
	return nil
}

// EnterQueue appends a ticket to a queue and the ledger and returns its
// position. Positions come from an unlocked count, so concurrent entries can
// share a position.
func (s *QueueService) EnterQueue(ctx context.Context, in EnterQueueInput) (position int, err error) {
	queue := normalizeQueueName(in.Queue)
	label := unknownQueueLabel
	defer func() { s.metrics.RecordQueueOperation("enter", label, err) }()

	ticket := normalizeTicket(in.Ticket)
	if err := validateLength("ticket", ticket, 1, maxTicketLen); err != nil {
		return 0, err
	}
	if len(in.Description) > maxDescriptionLen {
		return 0, apperrors.NewValidationError("description is too long", map[string]any{"field": "description", "max": maxDescriptionLen})
	}

	user, err := s.auth.Authenticate(ctx, in.Email, in.Password, false)
	if err != nil {
		return 0, err
	}
	if err := s.requireQueue(ctx, queue); err != nil {
		return 0, err
	}
	label = queue

	id, err := s.ids.Generate(ctx, domain.IDScopeLedger)
	if err != nil {
		return 0, err
	}

	opened := s.now().UTC()
	entry := &domain.QueueEntry{
		ID:          id,
		QueueName:   queue,
		Ticket:      ticket,
		Description: in.Description,
		Email:       user.Email,
		Team:        user.Team,
		OpenedAt:    opened,
	}
	ledger := &domain.LedgerEntry{
		ID:          id,
		Ticket:      ticket,
		Description: in.Description,
		Component:   queue,
		Email:       user.Email,
		Team:        user.Team,
		Active:      true,
		OpenedAt:    opened,
	}
	if err := s.queues.Enter(ctx, entry, ledger); err != nil {
		return 0, apperrors.NewStorageError("enter queue", err)
	}

	s.logger.Info("queue entered",
		zap.String("queue", queue),
		zap.String("ticket", ticket),
		zap.Int("position", entry.Position))
	publishEvent(ctx, s.dispatcher, s.logger, events.EventQueueEntered, user.Email, events.QueueEnteredPayload{
		Queue:    queue,
		Ticket:   ticket,
		Team:     user.Team,
		Position: entry.Position,
	})
	return entry.Position, nil
}

// ExitQueue removes a ticket from a queue and closes its active ledger rows.
// Remaining positions are left as they are.
func (s *QueueService) ExitQueue(ctx context.Context, in ExitQueueInput) (err error) {
	queue := normalizeQueueName(in.Queue)
	label := unknownQueueLabel
	defer func() { s.metrics.RecordQueueOperation("exit", label, err) }()

	ticket := normalizeTicket(in.Ticket)
	if err := validateLength("ticket", ticket, 1, maxTicketLen); err != nil {
		return err
	}

	user, err := s.auth.Authenticate(ctx, in.Email, in.Password, false)
	if err != nil {
		return err
	}
	if err := s.requireQueue(ctx, queue); err != nil {
		return err
	}
	label = queue

	result, err := s.queues.Exit(ctx, queue, ticket, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"componant": queue, "ticket": ticket})
		}
		return apperrors.NewStorageError("exit queue", err)
	}

	s.logger.Info("queue exited",
		zap.String("queue", queue),
		zap.String("ticket", ticket),
		zap.Int64("ledger_closed", result.Closed))
	publishEvent(ctx, s.dispatcher, s.logger, events.EventQueueExited, user.Email, events.QueueExitedPayload{
		Queue:          queue,
		Ticket:         ticket,
		LedgerClosed:   result.Closed,
		EntriesRemoved: result.Removed,
	})
	return nil
}

// ListQueue returns the queue's entries ordered by position with the head
// marked Releasing. An empty queue yields an empty slice.
func (s *QueueService) ListQueue(ctx context.Context, name string) ([]RankedEntry, error) {
	queue := normalizeQueueName(name)
	if err := s.requireQueue(ctx, queue); err != nil {
		return nil, err
	}
	entries, err := s.queues.ListEntries(ctx, queue)
	if err != nil {
		return nil, apperrors.NewStorageError("list queue", err)
	}
	return rankEntries(entries), nil
}

func (s *QueueService) requireQueue(ctx context.Context, queue string) error {
	if queue == "" {
		return apperrors.NewValidationError("componant is required", map[string]any{"field": "componant"})
	}
	exists, err := s.queues.QueueExists(ctx, queue)
	if err != nil {
		return apperrors.NewStorageError("check queue", err)
	}
	if !exists {
		return apperrors.NewNotFound("queue", map[string]any{"componant": queue})
	}
	return nil
}

func rankEntries(entries []domain.QueueEntry) []RankedEntry {
	ranked := make([]RankedEntry, 0, len(entries))
	for _, entry := range entries {
		ranked = append(ranked, RankedEntry{QueueEntry: entry})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Position < ranked[j].Position
	})
	if len(ranked) > 0 {
		ranked[0].Releasing = true
	}
	return ranked
}

func normalizeQueueName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func normalizeTicket(ticket string) string {
	return strings.ToUpper(strings.TrimSpace(ticket))
}

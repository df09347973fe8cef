package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/release-queue/internal/auth"
	"github.com/spec-kit/release-queue/internal/events"
	"github.com/spec-kit/release-queue/internal/observability"
	"github.com/spec-kit/release-queue/internal/repository/memory"
)

const testPassword = "correct-horse"

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store      *memory.Store
	auth       *AuthService
	queues     *QueueService
	ledger     *LedgerService
	freezes    *FreezeService
	dispatcher *recordingDispatcher
	metrics    *observability.Metrics
	now        time.Time
}

func (f *fixture) clock() time.Time { return f.now }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher, err := auth.NewCredentialHasher([]string{"pepper", "paprika"})
	require.NoError(t, err)

	f := &fixture{
		store:      memory.NewStore(),
		dispatcher: &recordingDispatcher{},
		now:        time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
	}
	ids := auth.NewIDGenerator(f.store, 8)
	metrics := observability.NewMetrics()
	f.metrics = metrics

	f.auth = NewAuthService(AuthDependencies{
		UserRepo:       f.store,
		Hasher:         hasher,
		IDs:            ids,
		AllowedDomains: []string{"company-domain", "@kaseya.com"},
	})
	f.queues = NewQueueService(QueueDependencies{
		QueueRepo:  f.store,
		Auth:       f.auth,
		IDs:        ids,
		Dispatcher: f.dispatcher,
		Metrics:    metrics,
		Clock:      f.clock,
	})
	f.ledger = NewLedgerService(f.store.Ledger(), f.clock)
	f.freezes = NewFreezeService(FreezeDependencies{
		FreezeRepo: f.store.Freezes(),
		Auth:       f.auth,
		IDs:        ids,
		Dispatcher: f.dispatcher,
		Metrics:    metrics,
		Clock:      f.clock,
	})
	return f
}

func (f *fixture) register(t *testing.T, first, email string) {
	t.Helper()
	_, err := f.auth.Register(context.Background(), RegisterInput{
		FirstName: first,
		LastName:  "Tester",
		Email:     email,
		Password:  testPassword,
		Team:      "Payments",
	})
	require.NoError(t, err)
}

func (f *fixture) registerAdmin(t *testing.T, email string) {
	t.Helper()
	f.register(t, "Admin", email)
	require.NoError(t, f.auth.PromoteAdmin(context.Background(), email))
}

func (f *fixture) createQueue(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, f.queues.CreateQueue(context.Background(), name))
}

func (f *fixture) enter(t *testing.T, queue, ticket, email string) int {
	t.Helper()
	pos, err := f.queues.EnterQueue(context.Background(), EnterQueueInput{
		Queue:       queue,
		Ticket:      ticket,
		Description: "release " + ticket,
		Email:       email,
		Password:    testPassword,
	})
	require.NoError(t, err)
	return pos
}

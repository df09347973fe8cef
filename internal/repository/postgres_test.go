package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/release-queue/internal/domain"
	"github.com/spec-kit/release-queue/internal/persistence"
	"github.com/spec-kit/release-queue/internal/repository"
)

// testPool connects to POSTGRES_TEST_DSN, applies migrations and empties every
// table. Tests are skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()))
	_, err = pool.Exec(ctx, `TRUNCATE users, queues, queue_entries, ledger_entries, code_freezes`)
	require.NoError(t, err)
	return pool
}

func TestPostgres_UserDuplicateEmail(t *testing.T) {
	pool := testPool(t)
	repo := repository.NewUserRepository(pool)
	ctx := context.Background()

	user := &domain.User{ID: "u1", FirstName: "alice", LastName: "smith", Email: "alice@company-domain", PasswordHash: "h", Team: "billing"}
	require.NoError(t, repo.Create(ctx, user))

	dup := *user
	dup.ID = "u2"
	assert.ErrorIs(t, repo.Create(ctx, &dup), repository.ErrDuplicate)

	_, err := repo.GetByEmail(ctx, "nobody@company-domain")
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	require.NoError(t, repo.SetAdmin(ctx, "alice@company-domain", true))
	stored, err := repo.GetByEmail(ctx, "alice@company-domain")
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin)

	ids := repository.NewIdentifierRepository(pool)
	taken, err := ids.IdentifierExists(ctx, domain.IDScopeUsers, "u1")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestPostgres_EnterAndExit(t *testing.T) {
	pool := testPool(t)
	queues := repository.NewQueueRepository(pool)
	ledger := repository.NewLedgerRepository(pool)
	ctx := context.Background()
	opened := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	require.NoError(t, queues.CreateQueue(ctx, "billing"))
	assert.ErrorIs(t, queues.CreateQueue(ctx, "billing"), repository.ErrDuplicate)

	for i, ticket := range []string{"ABC123", "XYZ999"} {
		id := []string{"e1", "e2"}[i]
		entry := &domain.QueueEntry{ID: id, QueueName: "billing", Ticket: ticket, Email: "a@company-domain", Team: "billing", OpenedAt: opened}
		row := &domain.LedgerEntry{ID: id, Ticket: ticket, Component: "billing", Email: "a@company-domain", Team: "billing", Active: true, OpenedAt: opened}
		require.NoError(t, queues.Enter(ctx, entry, row))
		assert.Equal(t, i+1, entry.Position)
	}

	result, err := queues.Exit(ctx, "billing", "ABC123", opened.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, repository.ExitResult{Removed: 1, Closed: 1}, result)

	_, err = queues.Exit(ctx, "billing", "ABC123", opened.Add(time.Hour))
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	entries, err := queues.ListEntries(ctx, "billing")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Position)

	rows, err := ledger.List(ctx, repository.LedgerFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	closed := 0
	for _, r := range rows {
		if !r.Active {
			closed++
			require.NotNil(t, r.ClosedAt)
		}
	}
	assert.Equal(t, 1, closed)
}

func TestPostgres_EnterRollsBackOnLedgerConflict(t *testing.T) {
	pool := testPool(t)
	queues := repository.NewQueueRepository(pool)
	ctx := context.Background()
	opened := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	require.NoError(t, queues.CreateQueue(ctx, "billing"))
	_, err := pool.Exec(ctx, `
        INSERT INTO ledger_entries (id, ticket, description, component, email, team, active, opened_at)
        VALUES ('e1', 'OLD1', '', 'billing', 'b@company-domain', 'billing', FALSE, $1)`, opened.Add(-24*time.Hour))
	require.NoError(t, err)

	entry := &domain.QueueEntry{ID: "e1", QueueName: "billing", Ticket: "ABC123", Email: "a@company-domain", Team: "billing", OpenedAt: opened}
	row := &domain.LedgerEntry{ID: "e1", Ticket: "ABC123", Component: "billing", Email: "a@company-domain", Team: "billing", Active: true, OpenedAt: opened}
	assert.ErrorIs(t, queues.Enter(ctx, entry, row), repository.ErrDuplicate)

	entries, err := queues.ListEntries(ctx, "billing")
	require.NoError(t, err)
	assert.Empty(t, entries, "queue entry must roll back with the ledger insert")
}

func TestPostgres_Freezes(t *testing.T) {
	pool := testPool(t)
	repo := repository.NewFreezeRepository(pool)
	ctx := context.Background()
	today := domain.Day(time.Now())

	require.NoError(t, repo.Create(ctx, &domain.CodeFreeze{ID: "f1", Begins: today, DurationDays: 1, Ends: today.AddDate(0, 0, 1), InEffect: true}))
	require.NoError(t, repo.Create(ctx, &domain.CodeFreeze{ID: "f2", Begins: today.AddDate(0, 0, 3), DurationDays: 1, Ends: today.AddDate(0, 0, 4)}))

	count, err := repo.CountActive(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expired, err := repo.ExpireEnded(ctx, today.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	require.NoError(t, repo.Delete(ctx, "f2"))
	assert.ErrorIs(t, repo.Delete(ctx, "f2"), pgx.ErrNoRows)

	freezes, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, freezes, 1)
	assert.Equal(t, today, freezes[0].Begins)
}

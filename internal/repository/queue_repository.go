package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/release-queue/internal/domain"
)

// ExitResult reports how many rows an exit touched.
type ExitResult struct {
	Removed int64
	Closed  int64
}

// QueueRepository covers the queue registry, queue entries and the ledger rows
// written alongside them.
type QueueRepository interface {
	CreateQueue(ctx context.Context, name string) error
	ListQueueNames(ctx context.Context) ([]string, error)
	QueueExists(ctx context.Context, name string) (bool, error)
	// Enter assigns entry.Position and inserts entry and ledger atomically.
	Enter(ctx context.Context, entry *domain.QueueEntry, ledger *domain.LedgerEntry) error
	// Exit removes the queue rows for ticket and closes the matching active
	// ledger rows atomically. It returns pgx.ErrNoRows when no queue row matched.
	Exit(ctx context.Context, queue, ticket string, closedAt time.Time) (ExitResult, error)
	ListEntries(ctx context.Context, queue string) ([]domain.QueueEntry, error)
}

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository instantiates repository.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

func (r *queueRepository) CreateQueue(ctx context.Context, name string) error {
	const query = `INSERT INTO queues (name) VALUES ($1)`
	_, err := r.pool.Exec(ctx, query, name)
	return mapInsertError(err)
}

func (r *queueRepository) ListQueueNames(ctx context.Context) ([]string, error) {
	const query = `SELECT name FROM queues ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *queueRepository) QueueExists(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM queues WHERE name=$1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *queueRepository) Enter(ctx context.Context, entry *domain.QueueEntry, ledger *domain.LedgerEntry) error {
	const countQuery = `SELECT COUNT(*) FROM queue_entries WHERE queue_name=$1`
	const entryQuery = `
        INSERT INTO queue_entries (id, queue_name, ticket, description, email, team, opened_at, position)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	const ledgerQuery = `
        INSERT INTO ledger_entries (id, ticket, description, component, email, team, active, opened_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx, countQuery, entry.QueueName).Scan(&count); err != nil {
			return err
		}
		entry.Position = count + 1

		if _, err := tx.Exec(ctx, entryQuery,
			entry.ID,
			entry.QueueName,
			entry.Ticket,
			entry.Description,
			entry.Email,
			entry.Team,
			entry.OpenedAt,
			entry.Position,
		); err != nil {
			return mapInsertError(err)
		}

		_, err := tx.Exec(ctx, ledgerQuery,
			ledger.ID,
			ledger.Ticket,
			ledger.Description,
			ledger.Component,
			ledger.Email,
			ledger.Team,
			ledger.Active,
			ledger.OpenedAt,
		)
		return mapInsertError(err)
	})
}

func (r *queueRepository) Exit(ctx context.Context, queue, ticket string, closedAt time.Time) (ExitResult, error) {
	const deleteQuery = `DELETE FROM queue_entries WHERE queue_name=$1 AND ticket=$2`
	const closeQuery = `
        UPDATE ledger_entries SET active=FALSE, closed_at=$1
        WHERE component=$2 AND ticket=$3 AND active=TRUE`

	var result ExitResult
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, deleteQuery, queue, ticket)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		result.Removed = cmd.RowsAffected()

		cmd, err = tx.Exec(ctx, closeQuery, closedAt, queue, ticket)
		if err != nil {
			return err
		}
		result.Closed = cmd.RowsAffected()
		return nil
	})
	if err != nil {
		return ExitResult{}, err
	}
	return result, nil
}

func (r *queueRepository) ListEntries(ctx context.Context, queue string) ([]domain.QueueEntry, error) {
	const query = `
        SELECT id, queue_name, ticket, description, email, team, opened_at, position
        FROM queue_entries WHERE queue_name=$1
        ORDER BY position ASC, opened_at ASC`
	rows, err := r.pool.Query(ctx, query, queue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.QueueEntry
	for rows.Next() {
		var entry domain.QueueEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.QueueName,
			&entry.Ticket,
			&entry.Description,
			&entry.Email,
			&entry.Team,
			&entry.OpenedAt,
			&entry.Position,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/release-queue/internal/domain"
)

// LedgerFilter captures master-queue listing options.
type LedgerFilter struct {
	OpenedSince     *time.Time
	SortByComponent bool
}

// LedgerRepository reads the master queue.
type LedgerRepository interface {
	List(ctx context.Context, filter LedgerFilter) ([]domain.LedgerEntry, error)
}

type ledgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository instantiates repository.
func NewLedgerRepository(pool *pgxpool.Pool) LedgerRepository {
	return &ledgerRepository{pool: pool}
}

func (r *ledgerRepository) List(ctx context.Context, filter LedgerFilter) ([]domain.LedgerEntry, error) {
	base := `SELECT id, ticket, description, component, email, team, active, opened_at, closed_at
             FROM ledger_entries`
	where := ""
	args := []any{}
	if filter.OpenedSince != nil {
		args = append(args, *filter.OpenedSince)
		where = fmt.Sprintf(" WHERE opened_at >= $%d", len(args))
	}
	order := " ORDER BY opened_at ASC, id ASC"
	if filter.SortByComponent {
		order = " ORDER BY component ASC, opened_at ASC, id ASC"
	}

	rows, err := r.pool.Query(ctx, base+where+order, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLedgerEntries(rows)
}

func scanLedgerEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var result []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Ticket,
			&entry.Description,
			&entry.Component,
			&entry.Email,
			&entry.Team,
			&entry.Active,
			&entry.OpenedAt,
			&entry.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

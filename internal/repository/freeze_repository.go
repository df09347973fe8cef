package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/release-queue/internal/domain"
)

// FreezeRepository persists code freezes. Day arguments are calendar dates
// produced by domain.Day.
type FreezeRepository interface {
	Create(ctx context.Context, freeze *domain.CodeFreeze) error
	CountActive(ctx context.Context, day time.Time) (int, error)
	EndAllInEffect(ctx context.Context) (int64, error)
	// ExpireEnded clears in_effect on freezes whose end date is before day.
	ExpireEnded(ctx context.Context, day time.Time) (int64, error)
	// Delete returns pgx.ErrNoRows when no freeze has the id.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.CodeFreeze, error)
}

type freezeRepository struct {
	pool *pgxpool.Pool
}

// NewFreezeRepository instantiates repository.
func NewFreezeRepository(pool *pgxpool.Pool) FreezeRepository {
	return &freezeRepository{pool: pool}
}

func (r *freezeRepository) Create(ctx context.Context, freeze *domain.CodeFreeze) error {
	const query = `
        INSERT INTO code_freezes (id, begins, duration_days, ends, in_effect)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := r.pool.Exec(ctx, query,
		freeze.ID,
		freeze.Begins,
		freeze.DurationDays,
		freeze.Ends,
		freeze.InEffect,
	)
	return mapInsertError(err)
}

func (r *freezeRepository) CountActive(ctx context.Context, day time.Time) (int, error) {
	const query = `
        SELECT COUNT(*) FROM code_freezes
        WHERE begins <= $1 AND ends >= $1 AND in_effect=TRUE`
	var count int
	if err := r.pool.QueryRow(ctx, query, day).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *freezeRepository) EndAllInEffect(ctx context.Context) (int64, error) {
	const query = `UPDATE code_freezes SET in_effect=FALSE WHERE in_effect=TRUE`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *freezeRepository) ExpireEnded(ctx context.Context, day time.Time) (int64, error) {
	const query = `UPDATE code_freezes SET in_effect=FALSE WHERE in_effect=TRUE AND ends < $1`
	cmd, err := r.pool.Exec(ctx, query, day)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *freezeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM code_freezes WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *freezeRepository) List(ctx context.Context) ([]domain.CodeFreeze, error) {
	const query = `SELECT id, begins, duration_days, ends, in_effect FROM code_freezes`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CodeFreeze
	for rows.Next() {
		var freeze domain.CodeFreeze
		if err := rows.Scan(&freeze.ID, &freeze.Begins, &freeze.DurationDays, &freeze.Ends, &freeze.InEffect); err != nil {
			return nil, err
		}
		result = append(result, freeze)
	}
	return result, rows.Err()
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/release-queue/internal/domain"
)

// IdentifierRepository answers collision checks for generated identifiers.
type IdentifierRepository interface {
	IdentifierExists(ctx context.Context, scope domain.IDScope, id string) (bool, error)
}

var identifierQueries = map[domain.IDScope]string{
	domain.IDScopeUsers:   `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`,
	domain.IDScopeLedger:  `SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE id=$1)`,
	domain.IDScopeFreezes: `SELECT EXISTS (SELECT 1 FROM code_freezes WHERE id=$1)`,
}

type identifierRepository struct {
	pool *pgxpool.Pool
}

// NewIdentifierRepository constructs repository.
func NewIdentifierRepository(pool *pgxpool.Pool) IdentifierRepository {
	return &identifierRepository{pool: pool}
}

func (r *identifierRepository) IdentifierExists(ctx context.Context, scope domain.IDScope, id string) (bool, error) {
	query, ok := identifierQueries[scope]
	if !ok {
		return false, fmt.Errorf("unknown identifier scope %q", scope)
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

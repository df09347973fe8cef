package auth

import (
	"context"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/spec-kit/release-queue/internal/domain"
	apperrors "github.com/spec-kit/release-queue/pkg/util/errorutil"
)

// IdentifierChecker reports whether an identifier is already taken in a scope.
type IdentifierChecker interface {
	IdentifierExists(ctx context.Context, scope domain.IDScope, id string) (bool, error)
}

// IDGenerator issues random 128-bit identifiers rendered as 32 lowercase hex
// characters, retrying on collision up to maxAttempts times.
type IDGenerator struct {
	checker     IdentifierChecker
	maxAttempts int
	newToken    func() string
}

// NewIDGenerator builds a generator backed by random UUIDs.
func NewIDGenerator(checker IdentifierChecker, maxAttempts int) *IDGenerator {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &IDGenerator{checker: checker, maxAttempts: maxAttempts, newToken: randomToken}
}

// Generate returns an identifier unused within scope.
func (g *IDGenerator) Generate(ctx context.Context, scope domain.IDScope) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		id := g.newToken()
		taken, err := g.checker.IdentifierExists(ctx, scope, id)
		if err != nil {
			return "", apperrors.NewStorageError("check identifier", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", apperrors.NewIdentifierExhausted(string(scope), g.maxAttempts)
}

func randomToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

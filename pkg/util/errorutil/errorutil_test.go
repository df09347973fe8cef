package errorutil_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/spec-kit/release-queue/pkg/util/errorutil"
)

func TestToDomainError(t *testing.T) {
	conflict := apperrors.NewConflict("email is already in use", nil)
	assert.Same(t, conflict, apperrors.ToDomainError(fmt.Errorf("register: %w", conflict)))

	notFound := apperrors.ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, apperrors.CodeNotFound, notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	internal := apperrors.ToDomainError(errors.New("boom"))
	assert.Equal(t, apperrors.CodeInternal, internal.Code)
	assert.Equal(t, "something went wrong", internal.Message)

	assert.Nil(t, apperrors.ToDomainError(nil))
}

func TestStorageErrorHidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:5432: connection refused")
	err := apperrors.NewStorageError("enter queue", cause)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeStorage, domainErr.Code)
	assert.Equal(t, "storage unavailable", domainErr.Message)
	assert.Equal(t, map[string]any{"operation": "enter queue"}, domainErr.Details)
	assert.ErrorIs(t, err, cause)
}

func TestStatuses(t *testing.T) {
	cases := map[string]struct {
		err    error
		code   string
		status int
	}{
		"validation":   {apperrors.NewValidationError("bad", nil), apperrors.CodeValidation, http.StatusBadRequest},
		"unauthorized": {apperrors.NewUnauthorized("Login Failed"), apperrors.CodeUnauthorized, http.StatusUnauthorized},
		"not found":    {apperrors.NewNotFound("queue", nil), apperrors.CodeNotFound, http.StatusNotFound},
		"conflict":     {apperrors.NewConflict("dup", nil), apperrors.CodeConflict, http.StatusConflict},
		"throttled":    {apperrors.NewTooManyRequests("slow down"), apperrors.CodeTooManyRequests, http.StatusTooManyRequests},
		"exhausted":    {apperrors.NewIdentifierExhausted("users", 16), apperrors.CodeIdentifierExhausted, http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, apperrors.HasCode(tc.err, tc.code))
			assert.Equal(t, tc.status, apperrors.ToDomainError(tc.err).HTTPStatus)
		})
	}
}

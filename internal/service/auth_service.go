package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/release-queue/internal/auth"
	"github.com/spec-kit/release-queue/internal/domain"
	"github.com/spec-kit/release-queue/internal/repository"
	apperrors "github.com/spec-kit/release-queue/pkg/util/errorutil"
)

// Field length bounds applied at registration.
const (
	minFieldLen    = 3
	maxNameLen     = 45
	maxEmailLen    = 100
	maxPasswordLen = 128
)

// AuthService coordinates registration and per-request credential checks.
type AuthService struct {
	users          repository.UserRepository
	hasher         *auth.CredentialHasher
	ids            *auth.IDGenerator
	allowedDomains []string
	logger         *zap.Logger
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	UserRepo       repository.UserRepository
	Hasher         *auth.CredentialHasher
	IDs            *auth.IDGenerator
	AllowedDomains []string
	Logger         *zap.Logger
}

// RegisterInput describes a new account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Team      string
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	domains := make([]string, 0, len(deps.AllowedDomains))
	for _, d := range deps.AllowedDomains {
		domains = append(domains, "@"+strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@")))
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:          deps.UserRepo,
		hasher:         deps.Hasher,
		ids:            deps.IDs,
		allowedDomains: domains,
		logger:         logger,
	}
}

// Register creates a non-admin account. Names and team are stored lowercase.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(in.Email)
	fields := []struct {
		key, value string
		max        int
	}{
		{"firstName", in.FirstName, maxNameLen},
		{"lastName", in.LastName, maxNameLen},
		{"email", email, maxEmailLen},
		{"team", in.Team, maxNameLen},
	}
	for _, f := range fields {
		if err := validateLength(f.key, strings.TrimSpace(f.value), minFieldLen, f.max); err != nil {
			return nil, err
		}
	}
	if in.Password == "" {
		return nil, apperrors.NewValidationError("password is required", map[string]any{"field": "password"})
	}
	if len(in.Password) > maxPasswordLen {
		return nil, apperrors.NewValidationError("password is too long", map[string]any{"field": "password", "max": maxPasswordLen})
	}
	if !s.emailAllowed(email) {
		return nil, apperrors.NewValidationError("Bad email submitted", map[string]any{"field": "email"})
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email is already in use", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewStorageError("lookup user", err)
	}

	id, err := s.ids.Generate(ctx, domain.IDScopeUsers)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           id,
		FirstName:    strings.ToLower(strings.TrimSpace(in.FirstName)),
		LastName:     strings.ToLower(strings.TrimSpace(in.LastName)),
		Email:        email,
		PasswordHash: s.hasher.Hash(email, in.Password),
		Team:         strings.ToLower(strings.TrimSpace(in.Team)),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email is already in use", nil)
		}
		return nil, apperrors.NewStorageError("create user", err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("team", user.Team))
	return user, nil
}

// VerifyLogin reports whether email and secret identify a user whose admin
// flag equals requireAdmin. Admins therefore fail non-admin checks.
func (s *AuthService) VerifyLogin(ctx context.Context, email, secret string, requireAdmin bool) (bool, error) {
	user, err := s.lookup(ctx, email, secret)
	if err != nil {
		return false, err
	}
	return user != nil && user.IsAdmin == requireAdmin, nil
}

// Authenticate is VerifyLogin returning the user, or an UNAUTHORIZED error.
func (s *AuthService) Authenticate(ctx context.Context, email, secret string, requireAdmin bool) (*domain.User, error) {
	user, err := s.lookup(ctx, email, secret)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsAdmin != requireAdmin {
		return nil, apperrors.NewUnauthorized("Login Failed")
	}
	return user, nil
}

// PromoteAdmin flags an existing account as administrator.
func (s *AuthService) PromoteAdmin(ctx context.Context, email string) error {
	if err := s.users.SetAdmin(ctx, email, true); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return apperrors.NewStorageError("promote admin", err)
	}
	return nil
}

// lookup returns nil without error when the credentials do not match.
func (s *AuthService) lookup(ctx context.Context, email, secret string) (*domain.User, error) {
	if email == "" || secret == "" {
		return nil, nil
	}
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("lookup user", err)
	}
	if !s.hasher.Matches(user.PasswordHash, email, secret) {
		return nil, nil
	}
	return user, nil
}

func (s *AuthService) emailAllowed(email string) bool {
	lower := strings.ToLower(email)
	for _, suffix := range s.allowedDomains {
		if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
			return true
		}
	}
	return false
}

func validateLength(key, value string, min, max int) error {
	switch {
	case value == "":
		return apperrors.NewValidationError(key+" is required", map[string]any{"field": key})
	case len(value) > max:
		return apperrors.NewValidationError(key+" is too long", map[string]any{"field": key, "max": max})
	case len(value) < min:
		return apperrors.NewValidationError(key+" is too short", map[string]any{"field": key, "min": min})
	}
	return nil
}

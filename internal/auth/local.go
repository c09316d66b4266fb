package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/hushd-dev/hushd/internal/accounts"
	"github.com/hushd-dev/hushd/internal/models"
)

// LocalStrategy verifies email/password pairs against the account store
type LocalStrategy struct {
	store      *accounts.Store
	bcryptCost int
	logger     zerolog.Logger
}

// NewLocalStrategy creates a local password strategy
func NewLocalStrategy(store *accounts.Store, bcryptCost int, log zerolog.Logger) *LocalStrategy {
	return &LocalStrategy{
		store:      store,
		bcryptCost: bcryptCost,
		logger:     log,
	}
}

// Authenticate verifies a submitted email/password pair. Store failures
// pass through unchanged so callers can tell infrastructure errors apart
// from bad credentials.
func (s *LocalStrategy) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	user, err := s.store.FindByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			s.logger.Debug().Str("email", creds.Email).Msg("Login attempt for unknown email")
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !user.HasLocalCredential() {
		s.logger.Debug().Str("email", creds.Email).Msg("Password login attempt for federated-only account")
		return nil, ErrNoLocalCredential
	}

	if err := VerifyPassword(creds.Password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Register hashes the password and creates the account. The duplicate check
// is the insert itself: a second racing registration with the same email
// fails on the unique index and is reported as ErrUserAlreadyExists.
func (s *LocalStrategy) Register(ctx context.Context, email, password string) (*models.User, error) {
	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, accounts.ErrDuplicateEmail) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered")
	return user, nil
}

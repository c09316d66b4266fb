package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/rs/zerolog"

	"github.com/hushd-dev/hushd/internal/accounts"
	"github.com/hushd-dev/hushd/internal/models"
)

// session key for the account reference. Only the account ID is stored;
// the account is re-fetched on restore so the session never holds a stale
// record or a password hash.
const sessionUserIDKey = "userID"

// SessionManager owns the token-to-account mapping. The opaque token lives
// in a cookie; the binding lives server side, so invalidation on logout is
// real and not just a cleared cookie.
type SessionManager struct {
	scs    *scs.SessionManager
	store  *accounts.Store
	logger zerolog.Logger
}

// NewSessionManager creates a session manager with the given lifetime.
// The scs store defaults to in-memory; callers may replace it (the server
// installs a database-backed store so sessions survive restarts).
func NewSessionManager(store *accounts.Store, lifetime time.Duration, log zerolog.Logger) *SessionManager {
	sm := scs.New()
	sm.Lifetime = lifetime
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode

	return &SessionManager{
		scs:    sm,
		store:  store,
		logger: log,
	}
}

// SCS exposes the underlying scs manager for store installation and the
// LoadAndSave middleware.
func (m *SessionManager) SCS() *scs.SessionManager {
	return m.scs
}

// LoadAndSave is the middleware that loads the session for each request
// and writes the cookie/server-side state back afterwards.
func (m *SessionManager) LoadAndSave(next http.Handler) http.Handler {
	return m.scs.LoadAndSave(next)
}

// Establish binds the session to the account. The token is renewed first
// so a pre-login session token never survives into an authenticated one.
func (m *SessionManager) Establish(ctx context.Context, user *models.User) error {
	if err := m.scs.RenewToken(ctx); err != nil {
		return fmt.Errorf("failed to renew session token: %w", err)
	}
	m.scs.Put(ctx, sessionUserIDKey, user.ID)
	return nil
}

// Restore resolves the session back to an account. Idempotent; never
// mutates the account. An absent or stale binding is ErrSessionInvalid.
func (m *SessionManager) Restore(ctx context.Context) (*models.User, error) {
	userID := m.scs.GetString(ctx, sessionUserIDKey)
	if userID == "" {
		return nil, ErrSessionInvalid
	}

	user, err := m.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			// Account deleted out from under the session
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	return user, nil
}

// Invalidate destroys the server-side binding. Callers must complete this
// before redirecting; a failure is reported, never dropped.
func (m *SessionManager) Invalidate(ctx context.Context) error {
	if err := m.scs.Destroy(ctx); err != nil {
		m.logger.Error().Err(err).Msg("Failed to destroy session")
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// IsAuthenticated is the guard predicate protected routes consult
func (m *SessionManager) IsAuthenticated(ctx context.Context) bool {
	return m.scs.Exists(ctx, sessionUserIDKey)
}

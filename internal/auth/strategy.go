package auth

import (
	"context"

	"github.com/hushd-dev/hushd/internal/models"
)

// Credentials is the input to a Strategy: an email/password pair for the
// local variant, an authorization code for the federated one.
type Credentials struct {
	Email    string
	Password string
	Code     string
}

// Strategy is the single contract both authentication variants implement.
// Which strategy runs is decided by the login route that received the
// submission; on success both hand the resulting account to the session
// manager.
type Strategy interface {
	Authenticate(ctx context.Context, creds Credentials) (*models.User, error)
}

var (
	_ Strategy = (*LocalStrategy)(nil)
	_ Strategy = (*GoogleStrategy)(nil)
)

package auth

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/hushd-dev/hushd/internal/accounts"
	"github.com/hushd-dev/hushd/internal/config"
)

// Service bundles the authentication core: the credential store, the two
// strategies, the session manager, and the API token issuer. It is
// constructed once and handed to the server; nothing here is package state.
type Service struct {
	Store    *accounts.Store
	Local    *LocalStrategy
	Google   *GoogleStrategy
	Sessions *SessionManager
	Tokens   *TokenIssuer
}

// tokens outlive sessions slightly so long-running API clients are not cut
// off mid-window
const tokenTTLFactor = 2

// NewService wires the authentication core from configuration
func NewService(store *accounts.Store, cfg *config.Config, log zerolog.Logger) (*Service, error) {
	issuer, err := NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(tokenTTLFactor)*cfg.Auth.SessionLifetime)
	if err != nil {
		return nil, err
	}

	return &Service{
		Store:    store,
		Local:    NewLocalStrategy(store, cfg.Auth.BcryptCost, log),
		Google:   NewGoogleStrategy(store, cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL, log),
		Sessions: NewSessionManager(store, cfg.Auth.SessionLifetime, log),
		Tokens:   issuer,
	}, nil
}

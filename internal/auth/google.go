package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/hushd-dev/hushd/internal/accounts"
	"github.com/hushd-dev/hushd/internal/models"
)

const (
	googleUserInfoURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
	profileFetchTimeout = 10 * time.Second
)

// googleProfile is the subset of the userinfo response we consume
type googleProfile struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// GoogleStrategy exchanges an OAuth2 authorization result for a Google
// profile and finds or creates the matching account. Accounts it creates
// carry the federated sentinel instead of a password hash.
type GoogleStrategy struct {
	store    *accounts.Store
	config   *oauth2.Config
	validate *validator.Validate
	logger   zerolog.Logger

	// overridden in tests
	userInfoURL string
}

// NewGoogleStrategy creates a Google OAuth2 strategy. Client ID/secret and
// the callback URL are externally supplied configuration.
func NewGoogleStrategy(store *accounts.Store, clientID, clientSecret, callbackURL string, log zerolog.Logger) *GoogleStrategy {
	return &GoogleStrategy{
		store: store,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		validate:    validator.New(),
		logger:      log,
		userInfoURL: googleUserInfoURL,
	}
}

// AuthCodeURL returns the provider redirect URL for the given state nonce
func (s *GoogleStrategy) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Authenticate exchanges the authorization code, fetches the profile, and
// resolves it to an account. Every upstream failure wraps
// ErrFederatedAuthFailure and propagates; no account is created on error.
func (s *GoogleStrategy) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	token, err := s.config.Exchange(ctx, creds.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", ErrFederatedAuthFailure, err)
	}

	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.validate.Var(profile.Email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: profile has no usable email", ErrFederatedAuthFailure)
	}

	return s.findOrCreate(ctx, profile.Email)
}

// fetchProfile calls the userinfo endpoint with a bounded timeout. A slow
// provider is a reported failure, not a hang.
func (s *GoogleStrategy) fetchProfile(ctx context.Context, token *oauth2.Token) (*googleProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, profileFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFederatedAuthFailure, err)
	}

	resp, err := s.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: profile fetch: %v", ErrFederatedAuthFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: profile fetch returned %d", ErrFederatedAuthFailure, resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: profile decode: %v", ErrFederatedAuthFailure, err)
	}

	return &profile, nil
}

// findOrCreate resolves a verified email to exactly one account. A local
// registration and a Google sign-in with the same email converge on the
// same row; two concurrent first sign-ins converge via the unique index.
func (s *GoogleStrategy) findOrCreate(ctx context.Context, email string) (*models.User, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, accounts.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrFederatedAuthFailure, err)
	}

	user, err = s.store.Create(ctx, email, models.FederatedSentinel)
	if err != nil {
		if errors.Is(err, accounts.ErrDuplicateEmail) {
			// Lost the race against a concurrent sign-in; reuse that row
			return s.store.FindByEmail(ctx, email)
		}
		return nil, fmt.Errorf("%w: %v", ErrFederatedAuthFailure, err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("Account created via Google sign-in")
	return user, nil
}

// GenerateState returns a random nonce for the OAuth2 state parameter
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

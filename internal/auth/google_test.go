package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/hushd-dev/hushd/internal/accounts"
	"github.com/hushd-dev/hushd/internal/models"
)

// fakeProvider stands in for Google's token and userinfo endpoints
type fakeProvider struct {
	server *httptest.Server

	// behavior knobs
	failExchange bool
	profileCode  int
	profileBody  string
}

func newFakeProvider(t *testing.T, email string) *fakeProvider {
	t.Helper()

	p := &fakeProvider{
		profileCode: http.StatusOK,
		profileBody: fmt.Sprintf(`{"email":%q,"verified_email":true,"name":"Test User"}`, email),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if p.failExchange {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-access-token","token_type":"bearer"}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.profileCode)
		fmt.Fprint(w, p.profileBody)
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func newTestGoogleStrategy(t *testing.T, store *accounts.Store, provider *fakeProvider) *GoogleStrategy {
	t.Helper()

	s := NewGoogleStrategy(store, "client-id", "client-secret", "http://localhost/auth/google/callback", zerolog.Nop())
	s.config.Endpoint = oauth2.Endpoint{
		AuthURL:  provider.server.URL + "/auth",
		TokenURL: provider.server.URL + "/token",
	}
	s.userInfoURL = provider.server.URL + "/userinfo"
	return s
}

func TestGoogleCreatesFederatedAccount(t *testing.T) {
	store := openTestStore(t)
	provider := newFakeProvider(t, "c@x.com")
	strategy := newTestGoogleStrategy(t, store, provider)
	ctx := context.Background()

	user, err := strategy.Authenticate(ctx, Credentials{Code: "auth-code"})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.Email != "c@x.com" {
		t.Errorf("email = %v, want c@x.com", user.Email)
	}
	if user.PasswordHash != models.FederatedSentinel {
		t.Errorf("password hash = %q, want federated sentinel", user.PasswordHash)
	}
	if user.HasLocalCredential() {
		t.Error("federated account reports a local credential")
	}

	// A second sign-in reuses the account; the count stays at one
	again, err := strategy.Authenticate(ctx, Credentials{Code: "auth-code"})
	if err != nil {
		t.Fatalf("second Authenticate() error = %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("second sign-in returned account %v, want %v", again.ID, user.ID)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("account count = %d after two sign-ins, want 1", count)
	}
}

func TestGoogleReusesLocalAccount(t *testing.T) {
	store := openTestStore(t)
	provider := newFakeProvider(t, "a@x.com")
	strategy := newTestGoogleStrategy(t, store, provider)
	local := NewLocalStrategy(store, testBcryptCost, zerolog.Nop())
	ctx := context.Background()

	registered, err := local.Register(ctx, "a@x.com", "pw1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Federated and local logins converge on one identity per email
	user, err := strategy.Authenticate(ctx, Credentials{Code: "auth-code"})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("Google sign-in returned account %v, want existing %v", user.ID, registered.ID)
	}
	if user.PasswordHash == models.FederatedSentinel {
		t.Error("Google sign-in overwrote the local password hash with the sentinel")
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("account count = %d, want 1", count)
	}

	// Local login still works afterwards
	if _, err := local.Authenticate(ctx, Credentials{Email: "a@x.com", Password: "pw1"}); err != nil {
		t.Errorf("local Authenticate() after Google sign-in error = %v", err)
	}
}

func TestGoogleFailuresPropagate(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *fakeProvider)
	}{
		{"code exchange fails", func(p *fakeProvider) { p.failExchange = true }},
		{"profile fetch fails", func(p *fakeProvider) { p.profileCode = http.StatusInternalServerError }},
		{"profile is not json", func(p *fakeProvider) { p.profileBody = "not json" }},
		{"profile has no email", func(p *fakeProvider) { p.profileBody = `{"name":"No Email"}` }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := openTestStore(t)
			provider := newFakeProvider(t, "c@x.com")
			tt.setup(provider)
			strategy := newTestGoogleStrategy(t, store, provider)
			ctx := context.Background()

			_, err := strategy.Authenticate(ctx, Credentials{Code: "auth-code"})
			if !errors.Is(err, ErrFederatedAuthFailure) {
				t.Fatalf("Authenticate() error = %v, want ErrFederatedAuthFailure", err)
			}

			// No account may be created on a failed sign-in
			count, countErr := store.Count(ctx)
			if countErr != nil {
				t.Fatalf("Count() error = %v", countErr)
			}
			if count != 0 {
				t.Errorf("account count = %d after failed sign-in, want 0", count)
			}
		})
	}
}

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hushd-dev/hushd/internal/auth"
)

const oauthStateCookie = "oauthstate"

// LoginForm represents the login form submission. The field is named
// username for form compatibility but always carries an email.
type LoginForm struct {
	Username string `form:"username" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

// RegisterForm represents the registration form submission
type RegisterForm struct {
	Username string `form:"username" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

// APILoginRequest represents a JSON API login request
type APILoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// APILoginResponse represents a JSON API login response
type APILoginResponse struct {
	Token string      `json:"token"`
	User  *UserDetail `json:"user"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// login handles the local strategy form submission. All credential-level
// failures collapse to the same redirect so responses never reveal whether
// the email or the password was wrong.
func (s *Server) login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	ctx, cancel := storeContext(c)
	defer cancel()

	user, err := s.authSvc.Local.Authenticate(ctx, auth.Credentials{Email: form.Username, Password: form.Password})
	if err != nil {
		if auth.IsAuthFailure(err) {
			s.logger.Debug().Err(err).Str("email", form.Username).Msg("Login failed")
			c.Redirect(http.StatusFound, "/login")
			return
		}
		s.logger.Error().Err(err).Msg("Login failed against account store")
		c.String(http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}

	if err := s.authSvc.Sessions.Establish(ctx, user); err != nil {
		s.logger.Error().Err(err).Msg("Failed to establish session")
		c.String(http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in")
	c.Redirect(http.StatusFound, "/secrets")
}

// register creates an account and logs it in. A duplicate email is an
// explicit conflict; the existing account is left untouched.
func (s *Server) register(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "error.html", gin.H{"message": "Email and password are required"})
		return
	}

	ctx, cancel := storeContext(c)
	defer cancel()

	user, err := s.authSvc.Local.Register(ctx, form.Username, form.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserAlreadyExists) {
			c.HTML(http.StatusConflict, "error.html", gin.H{"message": "User already exists"})
			return
		}
		s.logger.Error().Err(err).Msg("Registration failed")
		c.String(http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}

	// Registration implies login
	if err := s.authSvc.Sessions.Establish(ctx, user); err != nil {
		s.logger.Error().Err(err).Msg("Failed to establish session after registration")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	c.Redirect(http.StatusFound, "/secrets")
}

// logout invalidates the server-side session binding before redirecting.
// Cleanup failure is reported in the log but the user still lands home.
func (s *Server) logout(c *gin.Context) {
	if err := s.authSvc.Sessions.Invalidate(c.Request.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Logout cleanup failed")
	}
	c.Redirect(http.StatusFound, "/")
}

// googleRedirect initiates the provider handshake with a state nonce
func (s *Server) googleRedirect(c *gin.Context) {
	state, err := auth.GenerateState()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate OAuth state")
		c.String(http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}

	c.SetCookie(oauthStateCookie, state, int((10 * time.Minute).Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, s.authSvc.Google.AuthCodeURL(state))
}

// googleCallback consumes the provider redirect. Any failure in the state
// check, code exchange, or profile fetch sends the user back to login;
// nothing is swallowed and no account is created on error.
func (s *Server) googleCallback(c *gin.Context) {
	state, err := c.Cookie(oauthStateCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)
	if err != nil || state == "" || c.Query("state") != state {
		s.logger.Warn().Msg("OAuth callback with missing or mismatched state")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	code := c.Query("code")
	if code == "" {
		s.logger.Warn().Msg("OAuth callback without authorization code")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	ctx, cancel := storeContext(c)
	defer cancel()

	user, err := s.authSvc.Google.Authenticate(ctx, auth.Credentials{Code: code})
	if err != nil {
		s.logger.Error().Err(err).Msg("Google sign-in failed")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if err := s.authSvc.Sessions.Establish(ctx, user); err != nil {
		s.logger.Error().Err(err).Msg("Failed to establish session")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in via Google")
	c.Redirect(http.StatusFound, "/secrets")
}

// apiLogin authenticates local credentials and returns a bearer token
func (s *Server) apiLogin(c *gin.Context) {
	var req APILoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := storeContext(c)
	defer cancel()

	user, err := s.authSvc.Local.Authenticate(ctx, auth.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		if auth.IsAuthFailure(err) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		s.logger.Error().Err(err).Msg("API login failed against account store")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := s.authSvc.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, APILoginResponse{
		Token: token,
		User: &UserDetail{
			ID:        user.ID,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
		},
	})
}

// apiCurrentUser returns the account behind the presented bearer token
func (s *Server) apiCurrentUser(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, UserDetail{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

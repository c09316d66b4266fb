package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hushd-dev/hushd/internal/auth"
	"github.com/hushd-dev/hushd/internal/models"
)

const (
	bearerPrefix   = "Bearer "
	currentUserKey = "currentUser"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidToken      = errors.New("invalid token")
)

func setCurrentUser(c *gin.Context, user *models.User) {
	c.Set(currentUserKey, user)
}

// CurrentUser returns the authenticated account for the request, if any
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(currentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// SessionAuthMiddleware gates protected pages on a valid session. An
// anonymous request is redirected to the login page; a store failure is a
// server error, never an auth failure.
func SessionAuthMiddleware(authSvc *auth.Service, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := storeContext(c)
		defer cancel()

		if !authSvc.Sessions.IsAuthenticated(ctx) {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		user, err := authSvc.Sessions.Restore(ctx)
		if err != nil {
			if errors.Is(err, auth.ErrSessionInvalid) {
				c.Redirect(http.StatusFound, "/login")
				c.Abort()
				return
			}
			log.Error().Err(err).Msg("Failed to restore session")
			c.String(http.StatusInternalServerError, "Internal server error")
			c.Abort()
			return
		}

		setCurrentUser(c, user)
		c.Next()
	}
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// BearerAuthMiddleware validates API bearer tokens and re-fetches the user
func BearerAuthMiddleware(authSvc *auth.Service, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			var message string
			switch err {
			case ErrMissingAuthHeader:
				message = "Missing authorization header"
			case ErrInvalidAuthFormat:
				message = "Invalid authorization header format"
			case ErrEmptyToken:
				message = "Empty token"
			}
			respondWithError(c, log, http.StatusUnauthorized, err, message)
			return
		}

		claims, err := authSvc.Tokens.Validate(token)
		if err != nil {
			respondWithError(c, log, http.StatusUnauthorized, ErrInvalidToken, "Invalid or expired token")
			return
		}

		ctx, cancel := storeContext(c)
		defer cancel()

		user, err := authSvc.Store.FindByID(ctx, claims.UserID)
		if err != nil {
			respondWithError(c, log, http.StatusUnauthorized, err, "User not found")
			return
		}

		setCurrentUser(c, user)
		c.Next()
	}
}

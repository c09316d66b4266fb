package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SubmitForm represents the secret submission form
type SubmitForm struct {
	Secret string `form:"secret" binding:"required"`
}

// APISecretRequest represents a JSON API secret update
type APISecretRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// submitSecret updates the current user's secret from the web form
func (s *Server) submitSecret(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	var form SubmitForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "error.html", gin.H{"message": "A secret is required"})
		return
	}

	ctx, cancel := storeContext(c)
	defer cancel()

	if err := s.authSvc.Store.UpdateSecret(ctx, user.ID, form.Secret); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update secret")
		c.String(http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}

	c.Redirect(http.StatusFound, "/secrets")
}

// apiGetSecret returns the current user's secret
func (s *Server) apiGetSecret(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"secret": user.Secret})
}

// apiUpdateSecret updates the current user's secret
func (s *Server) apiUpdateSecret(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req APISecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := storeContext(c)
	defer cancel()

	if err := s.authSvc.Store.UpdateSecret(ctx, user.ID, req.Secret); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update secret")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"secret": req.Secret})
}

package server

import (
	"math/rand"
	"net/http"

	"github.com/gin-gonic/gin"
)

// topics shown alongside the secret as a writing prompt
var topics = []string{
	"programming",
	"cooking",
	"AI",
	"fighting games",
	"action movies",
	"food",
	"traveling",
	"learning",
}

func (s *Server) homePage(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", nil)
}

func (s *Server) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", nil)
}

func (s *Server) registerPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", nil)
}

// secretsPage shows the current user's secret. The guard middleware has
// already restored the account; no second store round trip here.
func (s *Server) secretsPage(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	secret := user.Secret
	if secret == "" {
		secret = "No secret yet!"
	}

	c.HTML(http.StatusOK, "secrets.html", gin.H{
		"secret": secret,
		"topic":  topics[rand.Intn(len(topics))],
	})
}

func (s *Server) submitPage(c *gin.Context) {
	c.HTML(http.StatusOK, "submit.html", nil)
}

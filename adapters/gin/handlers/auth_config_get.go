package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

// HandleAuthConfigGET publishes the authorization-code flow endpoints so
// clients (SPAs, API consoles) can drive the login without hardcoding the
// tenant. Unprotected: it carries no secrets.
func HandleAuthConfigGET(cfg *oauth2.Config, audience string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"authorization_endpoint": cfg.Endpoint.AuthURL,
			"token_endpoint":         cfg.Endpoint.TokenURL,
			"client_id":              cfg.ClientID,
			"scopes":                 cfg.Scopes,
			"audience":               audience,
		})
	}
}

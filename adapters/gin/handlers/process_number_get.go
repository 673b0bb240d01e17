// Package handlers implements the HTTP endpoints guarded by the bearer
// token gate.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	authgin "github.com/juslabs/casegate/adapters/gin"
	"github.com/juslabs/casegate/cases"
	"github.com/juslabs/casegate/verifier"
)

// validationError is one entry of a 422 response body.
type validationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// HandleProcessNumberGET resolves a filing protocol to its process number.
// Query parameter validation is the endpoint's concern, not the verifier's:
// a missing protocol yields 422 with a structured error body.
func HandleProcessNumberGET(store cases.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		protocol := strings.TrimSpace(c.Query("protocol"))
		if protocol == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []validationError{{
				Loc:  []string{"query", "protocol"},
				Msg:  "Field required",
				Type: "missing",
			}}})
			return
		}

		username := verifier.UnknownIdentity
		if id, ok := authgin.CurrentIdentity(c); ok {
			username = id.Username
		}

		number, err := store.ProcessNumber(c.Request.Context(), protocol)
		if errors.Is(err, cases.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Process not found"})
			return
		}
		if err != nil {
			log.WithError(err).WithField("request_id", authgin.RequestIDFrom(c)).Error("process lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Process lookup failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": number, "user_email": username})
	}
}

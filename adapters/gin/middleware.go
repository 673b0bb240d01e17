// Package authgin adapts the token verifier to gin: bearer extraction,
// the authentication gate, request IDs and per-caller rate limits.
package authgin

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/juslabs/casegate/audit"
	"github.com/juslabs/casegate/ratelimit"
	"github.com/juslabs/casegate/verifier"
)

const (
	identityKey  = "casegate.identity"
	requestIDKey = "casegate.request_id"

	detailNotAuthenticated   = "Not authenticated"
	detailInvalidCredentials = "Invalid credentials"
	detailAuthUnavailable    = "Authentication service unavailable"
)

// RequestID tags every request with an ID for log correlation, honoring an
// incoming X-Request-ID header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// RequestIDFrom returns the request ID assigned by RequestID.
func RequestIDFrom(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// CurrentIdentity returns the authenticated identity set by AuthRequired.
func CurrentIdentity(c *gin.Context) (*verifier.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*verifier.Identity)
	return id, ok
}

// AuthRequired gates a route on a valid bearer token.
//
// A missing Authorization header and an invalid token both produce 401, with
// distinct bodies matching the upstream taxonomy; provider outages surface
// as 503 so operators can tell "provider unreachable" from "bad token".
// Failure kinds are logged server-side only; response bodies never carry
// token contents or provider error text.
func AuthRequired(v *verifier.Verifier, sink audit.Logger) gin.HandlerFunc {
	if sink == nil {
		sink = audit.Noop{}
	}
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			recordAccess(c, sink, nil, string(verifier.KindMissingCredentials))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detailNotAuthenticated})
			return
		}

		id, err := v.Validate(c.Request.Context(), raw)
		if err != nil {
			var authErr *verifier.Error
			if !errors.As(err, &authErr) {
				authErr = &verifier.Error{Kind: verifier.KindMalformedToken, Err: err}
			}
			fields := log.Fields{
				"kind":       authErr.Kind,
				"path":       c.FullPath(),
				"request_id": RequestIDFrom(c),
			}
			if authErr.Reason != "" {
				fields["reason"] = authErr.Reason
			}
			recordAccess(c, sink, nil, string(authErr.Kind))

			if authErr.ServerFault() {
				log.WithFields(fields).WithError(authErr.Err).Error("signing key retrieval failed")
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"detail": detailAuthUnavailable})
				return
			}
			log.WithFields(fields).Info("rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detailInvalidCredentials})
			return
		}

		c.Set(identityKey, id)
		recordAccess(c, sink, id, "allowed")
		c.Next()
	}
}

// RateLimit applies the named bucket to a route, keyed by the authenticated
// subject and falling back to the client IP. Limiter errors fail open.
func RateLimit(l ratelimit.Limiter, bucket string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		key := c.ClientIP()
		if id, ok := CurrentIdentity(c); ok && id.Subject != "" {
			key = id.Subject
		}
		allowed, err := l.Allow(c.Request.Context(), bucket, key)
		if err != nil {
			log.WithError(err).WithField("bucket", bucket).Warn("rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Too many requests"})
			return
		}
		c.Next()
	}
}

// bearerToken extracts the credential from "Authorization: Bearer <token>".
// The second return distinguishes an absent credential from a present but
// invalid one.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func recordAccess(c *gin.Context, sink audit.Logger, id *verifier.Identity, outcome string) {
	ev := audit.Event{
		Route:     c.FullPath(),
		Outcome:   outcome,
		RequestID: RequestIDFrom(c),
		At:        time.Now().UTC(),
	}
	if id != nil {
		ev.Subject = id.Subject
		ev.Username = id.Username
	}
	sink.Record(c.Request.Context(), ev)
}

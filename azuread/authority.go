// Package azuread derives the OAuth2 endpoints of an Azure AD tenant
// authority. The API never exchanges authorization codes itself; the config
// here is published to clients driving the authorization-code flow, and the
// JWKS URL feeds the token verifier.
package azuread

import (
	"errors"
	"strings"

	"golang.org/x/oauth2"
)

const loginBase = "https://login.microsoftonline.com"

// Authority is an immutable view of a tenant's endpoints.
type Authority struct {
	tenantID string
	base     string
}

// NewAuthority builds the authority for a tenant ID (a GUID, or "common"
// style pseudo-tenants).
func NewAuthority(tenantID string) (Authority, error) {
	t := strings.TrimSpace(tenantID)
	if t == "" {
		return Authority{}, errors.New("azuread: tenant id is empty")
	}
	return Authority{tenantID: t, base: loginBase + "/" + t}, nil
}

// TenantID returns the tenant identifier.
func (a Authority) TenantID() string { return a.tenantID }

// URL returns the authority base URL.
func (a Authority) URL() string { return a.base }

// AuthorizeURL returns the v2.0 authorization endpoint.
func (a Authority) AuthorizeURL() string { return a.base + "/oauth2/v2.0/authorize" }

// TokenURL returns the v2.0 token endpoint.
func (a Authority) TokenURL() string { return a.base + "/oauth2/v2.0/token" }

// JWKSURL returns the v2.0 discovery keys endpoint.
func (a Authority) JWKSURL() string { return a.base + "/discovery/v2.0/keys" }

// Issuer returns the iss value of v2.0 tokens for this tenant.
func (a Authority) Issuer() string { return a.base + "/v2.0" }

// OAuthConfig builds the authorization-code flow configuration clients use
// against this authority.
func (a Authority) OAuthConfig(clientID, redirectURL string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURL,
		Scopes:      scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  a.AuthorizeURL(),
			TokenURL: a.TokenURL(),
		},
	}
}

package azuread

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DiscoveryDoc is the subset of the OIDC well-known document the service
// needs. Used when the issuer is not an Azure AD tenant and endpoints
// cannot be derived from the authority shape.
type DiscoveryDoc struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// Discover fetches <issuer>/.well-known/openid-configuration and validates
// that the advertised issuer matches.
func Discover(ctx context.Context, issuer string) (*DiscoveryDoc, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(issuer), "/")
	if trimmed == "" {
		return nil, errors.New("azuread: issuer is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed+"/.well-known/openid-configuration", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("azuread: discovery failed: %s", resp.Status)
	}
	var doc DiscoveryDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}
	if got := strings.TrimRight(doc.Issuer, "/"); got != "" && got != trimmed {
		return nil, fmt.Errorf("azuread: issuer mismatch: %s", doc.Issuer)
	}
	if doc.JWKSURI == "" {
		return nil, errors.New("azuread: discovery missing jwks_uri")
	}
	return &doc, nil
}

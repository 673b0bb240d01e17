package verifier

import jwt "github.com/golang-jwt/jwt/v5"

// UnknownIdentity is the sentinel username used when a validated token
// carries no user-identifying claim. Validation never fails solely because
// the display identity is absent.
const UnknownIdentity = "unknown"

// Identity is the subset of validated claims exposed to handlers.
// It exists only after signature and claim checks have passed.
type Identity struct {
	// Subject is the token's sub claim.
	Subject string
	// Username is preferred_username, falling back to upn, falling back
	// to UnknownIdentity. Azure AD v2.0 tokens carry preferred_username;
	// v1.0 tokens carry upn.
	Username string
	// Name is the display name claim, if present.
	Name string
	// TenantID is the tid claim, if present.
	TenantID string
}

func identityFromClaims(claims jwt.MapClaims) *Identity {
	str := func(name string) string {
		if v, ok := claims[name].(string); ok {
			return v
		}
		return ""
	}
	username := str("preferred_username")
	if username == "" {
		username = str("upn")
	}
	if username == "" {
		username = UnknownIdentity
	}
	sub, _ := claims.GetSubject()
	return &Identity{
		Subject:  sub,
		Username: username,
		Name:     str("name"),
		TenantID: str("tid"),
	}
}

// Package verifier validates bearer tokens issued by an OAuth2/OIDC
// provider against its published JWKS.
//
// Validation is a linear pipeline: decode the header, resolve the signing
// key by kid (with a TTL cache and a single rotation refetch), verify the
// signature against an algorithm allow-list, then check audience, expiry
// and not-before. No claim is trusted before the signature passes.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

// audienceScheme is the URI scheme Azure AD prefixes onto application ID
// audiences (api://<client-id>). Both sides of the audience comparison are
// normalized by stripping it once; matching is exact equality afterwards,
// never substring or prefix matching.
const audienceScheme = "api://"

// Config carries the verification policy. All fields are fixed for the
// lifetime of the Verifier.
type Config struct {
	// Audience is the expected aud claim, with or without the api:// scheme.
	Audience string
	// Issuer, when non-empty, is enforced as an exact iss match.
	Issuer string
	// Algorithms is the allow-list of acceptable signing algorithms.
	// Empty defaults to RS256. "none" is rejected outright.
	Algorithms []string
	// Skew is the clock leeway applied to exp and nbf checks.
	Skew time.Duration
}

// Verifier validates bearer tokens. It is safe for concurrent use; the only
// shared state is the key-set cache.
type Verifier struct {
	keys     *KeySet
	audience string
	issuer   string
	parser   *jwt.Parser
}

// New builds a Verifier from a key-set cache and policy.
func New(keys *KeySet, cfg Config) (*Verifier, error) {
	if keys == nil {
		return nil, errors.New("verifier: nil key set")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, errors.New("verifier: audience is required")
	}
	algs := cfg.Algorithms
	if len(algs) == 0 {
		algs = []string{"RS256"}
	}
	for _, alg := range algs {
		if strings.EqualFold(alg, "none") {
			return nil, errors.New(`verifier: algorithm "none" is not allowed`)
		}
	}
	return &Verifier{
		keys:     keys,
		audience: normalizeAudience(cfg.Audience),
		issuer:   cfg.Issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods(algs),
			jwt.WithLeeway(cfg.Skew),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Validate checks token and returns the authenticated identity. On failure
// the returned error is a *Error carrying the failure kind; KindKeyRetrieval
// is the only server-side kind, everything else is a caller fault.
func (v *Verifier) Validate(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, newError(KindMissingCredentials, errors.New("empty token"))
	}

	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, newError(KindUnknownKey, errors.New("token header has no kid"))
		}
		return v.keys.KeyForID(ctx, kid)
	})
	if err != nil {
		return nil, classify(err)
	}

	if err := v.checkAudience(claims); err != nil {
		return nil, err
	}
	if err := v.checkIssuer(claims); err != nil {
		return nil, err
	}

	id := identityFromClaims(claims)
	log.WithFields(log.Fields{"sub": id.Subject}).Debug("token validated")
	return id, nil
}

func (v *Verifier) checkAudience(claims jwt.MapClaims) error {
	auds, err := claims.GetAudience()
	if err != nil || len(auds) == 0 {
		return claimsError(ReasonWrongAudience, errors.New("token has no audience"))
	}
	for _, aud := range auds {
		if normalizeAudience(aud) == v.audience {
			return nil
		}
	}
	return claimsError(ReasonWrongAudience, fmt.Errorf("audience %q not accepted", strings.Join(auds, ",")))
}

func (v *Verifier) checkIssuer(claims jwt.MapClaims) error {
	if v.issuer == "" {
		return nil
	}
	iss, err := claims.GetIssuer()
	if err != nil || iss != v.issuer {
		return claimsError(ReasonWrongIssuer, fmt.Errorf("issuer %q not accepted", iss))
	}
	return nil
}

// classify maps parse failures onto the failure taxonomy. Keyfunc errors
// are already *Error values and pass through unchanged.
func classify(err error) *Error {
	var authErr *Error
	switch {
	case errors.As(err, &authErr):
		return authErr
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newError(KindMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return newError(KindSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return claimsError(ReasonExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return claimsError(ReasonNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		// exp is mandatory; a token that never expires is treated as expired.
		return claimsError(ReasonExpired, err)
	default:
		return newError(KindMalformedToken, err)
	}
}

func normalizeAudience(aud string) string {
	return strings.TrimPrefix(strings.TrimSpace(aud), audienceScheme)
}

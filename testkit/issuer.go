// Package testkit provides a mock identity provider for tests: an
// httptest server publishing a JWKS document plus helpers that sign tokens
// validating (or deliberately failing to validate) against it.
//
// Example:
//
//	issuer := testkit.NewIssuer("api://client-123")
//	defer issuer.Close()
//
//	keys := verifier.NewKeySet(issuer.JWKSURL(), time.Minute)
//	token := issuer.Token("user-1", nil)
package testkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/juslabs/casegate/jwks"
)

// Issuer is a fake identity provider. It serves its JWKS at
// /discovery/v2.0/keys and signs RS256 tokens with the current key.
type Issuer struct {
	server   *httptest.Server
	audience string

	mu      sync.Mutex
	signer  *jwks.RSASigner
	retired *jwks.RSASigner // rotated-out key, no longer published

	fetches  atomic.Int64
	serveErr atomic.Bool
}

// NewIssuer starts a fake provider whose tokens carry the given audience.
// Call Close when done.
func NewIssuer(audience string) *Issuer {
	signer, err := jwks.NewRSASigner(2048, "key-1")
	if err != nil {
		panic("testkit: generate RSA key: " + err.Error())
	}
	iss := &Issuer{signer: signer, audience: audience}

	mux := http.NewServeMux()
	mux.HandleFunc("/discovery/v2.0/keys", iss.handleJWKS)
	iss.server = httptest.NewServer(mux)
	return iss
}

// Close shuts down the JWKS server.
func (i *Issuer) Close() { i.server.Close() }

// URL returns the base URL of the fake provider.
func (i *Issuer) URL() string { return i.server.URL }

// JWKSURL returns the discovery keys endpoint.
func (i *Issuer) JWKSURL() string { return i.server.URL + "/discovery/v2.0/keys" }

// Audience returns the audience tokens are issued for.
func (i *Issuer) Audience() string { return i.audience }

// Fetches reports how many times the JWKS endpoint has been hit.
func (i *Issuer) Fetches() int { return int(i.fetches.Load()) }

// SetUnavailable makes the JWKS endpoint return 503 until reset.
func (i *Issuer) SetUnavailable(down bool) { i.serveErr.Store(down) }

// Rotate replaces the signing key with a fresh one under the given kid.
// The old key is retired: tokens it signed remain verifiable only while a
// stale JWKS is cached.
func (i *Issuer) Rotate(kid string) {
	signer, err := jwks.NewRSASigner(2048, kid)
	if err != nil {
		panic("testkit: generate RSA key: " + err.Error())
	}
	i.mu.Lock()
	i.retired = i.signer
	i.signer = signer
	i.mu.Unlock()
}

// Token signs a token for subject with sane defaults (one hour expiry,
// issuer and audience set) merged with extra claims. Extra claims override
// the defaults, so tests can force exp, aud, nbf and friends.
func (i *Issuer) Token(subject string, extra jwt.MapClaims) string {
	i.mu.Lock()
	signer := i.signer
	i.mu.Unlock()
	return i.signWith(signer, subject, extra)
}

// RetiredToken signs with the key rotated out by Rotate. It panics when no
// rotation happened yet.
func (i *Issuer) RetiredToken(subject string, extra jwt.MapClaims) string {
	i.mu.Lock()
	signer := i.retired
	i.mu.Unlock()
	if signer == nil {
		panic("testkit: no retired key; call Rotate first")
	}
	return i.signWith(signer, subject, extra)
}

// ForeignToken signs with a key the JWKS has never published, under the
// given kid. Verifiers must reject it as an unknown signing key.
func (i *Issuer) ForeignToken(subject, kid string, extra jwt.MapClaims) string {
	signer, err := jwks.NewRSASigner(2048, kid)
	if err != nil {
		panic("testkit: generate RSA key: " + err.Error())
	}
	return i.signWith(signer, subject, extra)
}

// UnsignedToken produces an alg=none token over the default claims.
func (i *Issuer) UnsignedToken(subject string, extra jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, i.claims(subject, extra))
	token.Header["kid"] = "key-1"
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		panic("testkit: sign none token: " + err.Error())
	}
	return raw
}

func (i *Issuer) signWith(signer *jwks.RSASigner, subject string, extra jwt.MapClaims) string {
	raw, err := signer.Sign(context.Background(), i.claims(subject, extra))
	if err != nil {
		panic("testkit: sign token: " + err.Error())
	}
	return raw
}

func (i *Issuer) claims(subject string, extra jwt.MapClaims) jwt.MapClaims {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": i.URL(),
		"aud": i.audience,
		"exp": now.Add(time.Hour).Unix(),
		"iat": now.Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	return claims
}

func (i *Issuer) handleJWKS(w http.ResponseWriter, r *http.Request) {
	i.fetches.Add(1)
	if i.serveErr.Load() {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	i.mu.Lock()
	key := i.signer.JWK()
	i.mu.Unlock()
	jwks.Serve(w, r, jwks.Set{Keys: []jwks.Key{key}})
}

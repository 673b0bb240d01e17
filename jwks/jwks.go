// Package jwks carries a minimal RSA JSON Web Key model for the serving
// side: the development issuer and test fixtures publish keys with it.
// The verification side consumes provider JWKS via lestrrat-go/jwx.
package jwks

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
)

// Key holds the public fields of an RSA signing key.
type Key struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"` // base64url modulus
	E   string `json:"e"` // base64url exponent
}

// Set is a JWKS document body.
type Set struct {
	Keys []Key `json:"keys"`
}

// FromRSAPublic converts an RSA public key into its JWK form.
func FromRSAPublic(pub *rsa.PublicKey, kid, alg string) Key {
	return Key{
		Kty: "RSA",
		Use: "sig",
		Kid: kid,
		Alg: alg,
		N:   base64URLUint(pub.N),
		E:   base64URLUint(big.NewInt(int64(pub.E))),
	}
}

// Serve writes the key set as JSON with an ETag so well-behaved clients can
// revalidate cheaply.
func Serve(w http.ResponseWriter, r *http.Request, set Set) {
	b, _ := json.Marshal(set)
	sum := sha256.Sum256(b)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`

	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300, must-revalidate")
	w.Header().Set("ETag", etag)
	_, _ = w.Write(b)
}

func base64URLUint(i *big.Int) string {
	b := i.Bytes()
	for len(b) > 0 && b[0] == 0x00 {
		b = b[1:]
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

package verifier_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/juslabs/casegate/testkit"
	"github.com/juslabs/casegate/verifier"
)

func newVerifier(t *testing.T, issuer *testkit.Issuer, ttl time.Duration) *verifier.Verifier {
	t.Helper()
	v, err := verifier.New(verifier.NewKeySet(issuer.JWKSURL(), ttl), verifier.Config{
		Audience: issuer.Audience(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func failureKind(t *testing.T, err error) *verifier.Error {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation to fail")
	}
	var authErr *verifier.Error
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *verifier.Error, got %T: %v", err, err)
	}
	return authErr
}

func TestValidate_Success(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	token := issuer.Token("user-1", jwt.MapClaims{"preferred_username": "ana@example.com"})
	id, err := v.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if id.Subject != "user-1" {
		t.Fatalf("expected subject user-1, got %q", id.Subject)
	}
	if id.Username != "ana@example.com" {
		t.Fatalf("expected preferred_username to win, got %q", id.Username)
	}
}

func TestValidate_UPNFallback(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	id, err := v.Validate(context.Background(), issuer.Token("user-1", jwt.MapClaims{"upn": "bruno@example.com"}))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if id.Username != "bruno@example.com" {
		t.Fatalf("expected upn fallback, got %q", id.Username)
	}
}

func TestValidate_MissingIdentityClaimUsesSentinel(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	id, err := v.Validate(context.Background(), issuer.Token("user-1", nil))
	if err != nil {
		t.Fatalf("missing identity claim must not fail validation: %v", err)
	}
	if id.Username != verifier.UnknownIdentity {
		t.Fatalf("expected sentinel %q, got %q", verifier.UnknownIdentity, id.Username)
	}
}

func TestValidate_BareAudienceMatchesSchemeQualified(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()

	// Configured without the api:// scheme; tokens carry it.
	v, err := verifier.New(verifier.NewKeySet(issuer.JWKSURL(), time.Minute), verifier.Config{
		Audience: "client-123",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := v.Validate(context.Background(), issuer.Token("user-1", nil)); err != nil {
		t.Fatalf("expected scheme-qualified audience to match bare config: %v", err)
	}
}

func TestValidate_WrongAudience(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	for _, aud := range []string{
		"api://client-1234",      // superstring
		"api://client-12",        // substring
		"client-124",             // differs after normalization
		"xapi://client-123",      // bogus scheme prefix
		"https://client-123",     // different scheme
		"api://api://client-123", // double scheme survives a single strip
	} {
		token := issuer.Token("user-1", jwt.MapClaims{"aud": aud})
		authErr := failureKind(t, errOf(v.Validate(context.Background(), token)))
		if authErr.Kind != verifier.KindClaimsInvalid || authErr.Reason != verifier.ReasonWrongAudience {
			t.Fatalf("aud %q: expected claims_invalid/wrong_audience, got %v/%v", aud, authErr.Kind, authErr.Reason)
		}
	}
}

func TestValidate_Expired(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	token := issuer.Token("user-1", jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
	authErr := failureKind(t, errOf(v.Validate(context.Background(), token)))
	if authErr.Kind != verifier.KindClaimsInvalid || authErr.Reason != verifier.ReasonExpired {
		t.Fatalf("expected claims_invalid/expired, got %v/%v", authErr.Kind, authErr.Reason)
	}
}

func TestValidate_NotYetValid(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	token := issuer.Token("user-1", jwt.MapClaims{"nbf": time.Now().Add(time.Hour).Unix()})
	authErr := failureKind(t, errOf(v.Validate(context.Background(), token)))
	if authErr.Kind != verifier.KindClaimsInvalid || authErr.Reason != verifier.ReasonNotYetValid {
		t.Fatalf("expected claims_invalid/not_yet_valid, got %v/%v", authErr.Kind, authErr.Reason)
	}
}

func TestValidate_AlgorithmNoneRejectedWithoutNetwork(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	authErr := failureKind(t, errOf(v.Validate(context.Background(), issuer.UnsignedToken("user-1", nil))))
	if authErr.Kind != verifier.KindSignatureInvalid {
		t.Fatalf("expected signature_invalid for alg none, got %v", authErr.Kind)
	}
	if got := issuer.Fetches(); got != 0 {
		t.Fatalf("expected no JWKS fetch for alg none, got %d", got)
	}
}

func TestValidate_MalformedWithoutNetwork(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	for _, raw := range []string{"not-a-token", "a.b", "!!.@@.##"} {
		authErr := failureKind(t, errOf(v.Validate(context.Background(), raw)))
		if authErr.Kind != verifier.KindMalformedToken {
			t.Fatalf("token %q: expected malformed_token, got %v", raw, authErr.Kind)
		}
	}
	if got := issuer.Fetches(); got != 0 {
		t.Fatalf("expected no JWKS fetch for malformed tokens, got %d", got)
	}
}

func TestValidate_EmptyTokenIsMissingCredentials(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	authErr := failureKind(t, errOf(v.Validate(context.Background(), "")))
	if authErr.Kind != verifier.KindMissingCredentials {
		t.Fatalf("expected missing_credentials, got %v", authErr.Kind)
	}
}

func TestValidate_UnknownKeyAfterRefresh(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	// Warm the cache, then present a token from a key the provider never published.
	if _, err := v.Validate(context.Background(), issuer.Token("user-1", nil)); err != nil {
		t.Fatalf("warmup: %v", err)
	}
	token := issuer.ForeignToken("user-1", "rogue-kid", nil)
	authErr := failureKind(t, errOf(v.Validate(context.Background(), token)))
	if authErr.Kind != verifier.KindUnknownKey {
		t.Fatalf("expected unknown_signing_key, got %v", authErr.Kind)
	}
	if got := issuer.Fetches(); got != 2 {
		t.Fatalf("expected exactly one refresh after the cached miss, got %d fetches", got)
	}
}

func TestValidate_KeyRotationForcesSingleRefetch(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	if _, err := v.Validate(context.Background(), issuer.Token("user-1", nil)); err != nil {
		t.Fatalf("warmup: %v", err)
	}
	issuer.Rotate("key-2")

	token := issuer.Token("user-1", jwt.MapClaims{"preferred_username": "carla@example.com"})
	id, err := v.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("expected rotated key to validate after refetch: %v", err)
	}
	if id.Username != "carla@example.com" {
		t.Fatalf("unexpected identity %q", id.Username)
	}
	if got := issuer.Fetches(); got != 2 {
		t.Fatalf("expected exactly one rotation refetch, got %d fetches", got)
	}
}

func TestValidate_SignatureInvalidForTamperedToken(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	// Published kid, wrong private key.
	token := issuer.ForeignToken("user-1", "key-1", nil)
	authErr := failureKind(t, errOf(v.Validate(context.Background(), token)))
	if authErr.Kind != verifier.KindSignatureInvalid {
		t.Fatalf("expected signature_invalid, got %v", authErr.Kind)
	}
}

func TestValidate_MissingKidFailsWithoutNetwork(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "user-1",
		"aud": issuer.Audience(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	authErr := failureKind(t, errOf(v.Validate(context.Background(), raw)))
	if authErr.Kind != verifier.KindUnknownKey {
		t.Fatalf("expected unknown_signing_key for kid-less header, got %v", authErr.Kind)
	}
	if got := issuer.Fetches(); got != 0 {
		t.Fatalf("expected no JWKS fetch for kid-less header, got %d", got)
	}
}

func TestValidate_ProviderUnavailableIsServerFault(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)
	issuer.SetUnavailable(true)

	authErr := failureKind(t, errOf(v.Validate(context.Background(), issuer.Token("user-1", nil))))
	if authErr.Kind != verifier.KindKeyRetrieval {
		t.Fatalf("expected key_retrieval_failure, got %v", authErr.Kind)
	}
	if !authErr.ServerFault() {
		t.Fatal("key retrieval failures must be reported as server faults")
	}
}

func TestValidate_CancelledContext(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()
	v := newVerifier(t, issuer, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	authErr := failureKind(t, errOf(v.Validate(ctx, issuer.Token("user-1", nil))))
	if authErr.Kind != verifier.KindKeyRetrieval {
		t.Fatalf("expected key_retrieval_failure on cancelled fetch, got %v", authErr.Kind)
	}
}

func TestNew_RejectsNoneAlgorithm(t *testing.T) {
	keys := verifier.NewKeySet("http://127.0.0.1:0/keys", time.Minute)
	if _, err := verifier.New(keys, verifier.Config{Audience: "a", Algorithms: []string{"RS256", "none"}}); err == nil {
		t.Fatal(`expected configuration with algorithm "none" to be rejected`)
	}
}

func TestValidate_IssuerEnforcedWhenConfigured(t *testing.T) {
	issuer := testkit.NewIssuer("api://client-123")
	defer issuer.Close()

	v, err := verifier.New(verifier.NewKeySet(issuer.JWKSURL(), time.Minute), verifier.Config{
		Audience: issuer.Audience(),
		Issuer:   "https://login.microsoftonline.com/some-tenant/v2.0",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	authErr := failureKind(t, errOf(v.Validate(context.Background(), issuer.Token("user-1", nil))))
	if authErr.Kind != verifier.KindClaimsInvalid || authErr.Reason != verifier.ReasonWrongIssuer {
		t.Fatalf("expected claims_invalid/wrong_issuer, got %v/%v", authErr.Kind, authErr.Reason)
	}
}

// errOf discards the identity so failure helpers can take the error alone.
func errOf(_ *verifier.Identity, err error) error { return err }

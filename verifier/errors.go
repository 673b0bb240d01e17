package verifier

import "fmt"

// Kind classifies why validation failed. Kinds are kept for server-side
// logging and metrics; clients only ever see a uniform detail message.
type Kind string

const (
	KindMissingCredentials Kind = "missing_credentials"
	KindMalformedToken     Kind = "malformed_token"
	KindKeyRetrieval       Kind = "key_retrieval_failure"
	KindUnknownKey         Kind = "unknown_signing_key"
	KindSignatureInvalid   Kind = "signature_invalid"
	KindClaimsInvalid      Kind = "claims_invalid"
)

// Reason refines KindClaimsInvalid.
type Reason string

const (
	ReasonExpired       Reason = "expired"
	ReasonWrongAudience Reason = "wrong_audience"
	ReasonNotYetValid   Reason = "not_yet_valid"
	ReasonWrongIssuer   Reason = "wrong_issuer"
)

// Error is the validation failure returned by Verifier.Validate.
type Error struct {
	Kind   Kind
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	msg := "verifier: " + string(e.Kind)
	if e.Reason != "" {
		msg += " (" + string(e.Reason) + ")"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ServerFault reports whether the failure is an infrastructure condition
// (key provider unreachable) rather than a bad credential. Callers should
// surface these as 503, never 401.
func (e *Error) ServerFault() bool { return e.Kind == KindKeyRetrieval }

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func claimsError(reason Reason, err error) *Error {
	return &Error{Kind: KindClaimsInvalid, Reason: reason, Err: err}
}

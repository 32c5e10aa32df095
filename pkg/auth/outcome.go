package auth

// OutcomeKind discriminates the four terminal results of a validation.
type OutcomeKind int

const (
	// OutcomeValid means the token was verified (or accepted by the test
	// bypass) and its claims can be trusted.
	OutcomeValid OutcomeKind = iota + 1

	// OutcomeInvalid means verification failed for a reason other than
	// expiry.
	OutcomeInvalid

	// OutcomeExpired means the token's exp is at or before now.
	OutcomeExpired

	// OutcomeUnknownIssuer means no configured issuer matched.
	OutcomeUnknownIssuer
)

// String returns the lowercase name used in logs and span attributes.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeExpired:
		return "expired"
	case OutcomeUnknownIssuer:
		return "unknown_issuer"
	default:
		return "unknown"
	}
}

// Outcome is the result of [JWTValidator.Validate]. It is exactly one of
// [Valid], [Invalid], [Expired] or [UnknownIssuer]; no other type can
// implement it. Callers switch on the concrete type:
//
//	switch o := outcome.(type) {
//	case auth.Valid:
//	    use(o.Claims)
//	case auth.Invalid:
//	    reject(o.Reason)
//	case auth.Expired:
//	    reject("expired")
//	case auth.UnknownIssuer:
//	    reject(o.Issuer)
//	}
type Outcome interface {
	Kind() OutcomeKind
	outcome()
}

// Valid carries the claims of an accepted token.
type Valid struct {
	Claims *Claims
}

// Invalid carries a human-readable reason. For external tokens the reason
// is the verifier's message and may describe verification internals;
// do not echo it to untrusted callers.
type Invalid struct {
	Reason string
}

// Expired reports a token whose exp has passed.
type Expired struct{}

// UnknownIssuer reports the issuer claim that matched no configured issuer.
type UnknownIssuer struct {
	Issuer string
}

func (Valid) Kind() OutcomeKind         { return OutcomeValid }
func (Invalid) Kind() OutcomeKind       { return OutcomeInvalid }
func (Expired) Kind() OutcomeKind       { return OutcomeExpired }
func (UnknownIssuer) Kind() OutcomeKind { return OutcomeUnknownIssuer }

func (Valid) outcome()         {}
func (Invalid) outcome()       {}
func (Expired) outcome()       {}
func (UnknownIssuer) outcome() {}

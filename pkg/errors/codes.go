package errors

// Code is a stable, machine-readable error identifier of the form
// CATEGORY_NNN. Codes never change meaning once published.
type Code string

const (
	// CodeValidation is a generic validation failure, used for rejected
	// configuration.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired reports a required field left empty.
	CodeValidationRequired Code = "VAL_002"

	// CodeValidationFormat reports input whose shape does not match the
	// expected schema, e.g. a token payload whose "iss" is a number.
	CodeValidationFormat Code = "VAL_003"

	// CodeAuthentication is a generic authentication failure.
	CodeAuthentication Code = "AUTH_001"

	// CodeAuthenticationExpired reports an expired credential.
	CodeAuthenticationExpired Code = "AUTH_002"

	// CodeAuthenticationInvalid reports a structurally invalid token:
	// wrong segment count, bad encoding, missing issuer or key id, or a
	// key id the issuer does not publish.
	CodeAuthenticationInvalid Code = "AUTH_003"

	// CodeInternal is an unexpected internal failure.
	CodeInternal Code = "INT_001"

	// CodeInternalConfiguration reports operator misconfiguration, such
	// as an internal-scheme token arriving with no shared secret set.
	CodeInternalConfiguration Code = "INT_003"

	// CodeUnavailable is a generic unavailable dependency.
	CodeUnavailable Code = "UNAVAIL_001"

	// CodeUnavailableDependency reports a failed call to a remote
	// dependency, e.g. a key-discovery endpoint returning 500.
	CodeUnavailableDependency Code = "UNAVAIL_002"

	// CodeTimeout is a generic timeout.
	CodeTimeout Code = "TIMEOUT_001"

	// CodeTimeoutDependency reports a remote dependency that exceeded
	// its deadline.
	CodeTimeoutDependency Code = "TIMEOUT_003"
)

// String returns the code as a plain string.
func (c Code) String() string {
	return string(c)
}

// Category returns the prefix before the first underscore ("AUTH" for
// "AUTH_003"). A code without an underscore is its own category.
func (c Code) Category() string {
	s := string(c)
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			return s[:i]
		}
	}
	return s
}

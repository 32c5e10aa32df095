package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	sserr "github.com/StricklySoft/tokengate/pkg/errors"
)

// ---------------------------------------------------------------------------
// Secret
// ---------------------------------------------------------------------------

// Secret is a string type that redacts its value in String(), GoString(), and
// MarshalText() to prevent accidental exposure in logs, JSON output, or
// fmt.Printf. The raw value is only reachable through [Secret.Value].
type Secret string

const secretRedacted = "[REDACTED]"

// String returns the redacted placeholder.
func (s Secret) String() string { return secretRedacted }

// GoString returns the redacted placeholder, covering fmt's %#v verb.
func (s Secret) GoString() string { return secretRedacted }

// Value returns the actual secret string. Call it only where the raw
// material is required, such as handing it to a signature verifier.
func (s Secret) Value() string { return string(s) }

// MarshalText implements [encoding.TextMarshaler], returning the redacted
// placeholder so the secret never reaches JSON or YAML output.
func (s Secret) MarshalText() ([]byte, error) { return []byte(secretRedacted), nil }

// ---------------------------------------------------------------------------
// HTTPClient interface
// ---------------------------------------------------------------------------

// HTTPClient abstracts the client used to fetch key sets. The standard
// [http.Client] satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ---------------------------------------------------------------------------
// Validator configuration
// ---------------------------------------------------------------------------

// DefaultKeyCacheSize is the number of key-discovery endpoints whose key
// sets are held in memory at once.
const DefaultKeyCacheSize = 10

// DefaultFetchTimeout bounds a key-set fetch when no HTTPClient is
// configured.
const DefaultFetchTimeout = 10 * time.Second

// IssuerEndpoint pairs a trusted issuer name with the URL of the key set
// it publishes. An issuer name matches any token issuer that contains it.
type IssuerEndpoint struct {
	Issuer  string `json:"issuer" yaml:"issuer"`
	JWKSURL string `json:"jwks_url" yaml:"jwks_url"`
}

// ValidatorConfig holds the configuration for [JWTValidator]. It is copied
// at construction and never mutated afterwards.
type ValidatorConfig struct {
	// Issuers lists trusted external issuers in match order. When several
	// names are substrings of a token's issuer, the first one declared
	// selects the endpoint.
	Issuers []IssuerEndpoint

	// SharedSecret verifies internally issued tokens. The raw bytes of
	// the string are the HMAC key. Optional; an internal token arriving
	// without it is a configuration error.
	SharedSecret Secret

	// AllowTestTokens accepts, without signature checks, any token whose
	// issuer contains "test". Development and integration testing only.
	AllowTestTokens bool

	// KeyCacheSize caps the number of cached key sets. Zero means
	// [DefaultKeyCacheSize].
	KeyCacheSize int

	// ClockSkew is the leeway applied to exp checks made during
	// signature verification. Defaults to zero.
	ClockSkew time.Duration

	// HTTPClient fetches key sets. If nil, an [http.Client] with
	// [DefaultFetchTimeout] is used.
	HTTPClient HTTPClient

	// Logger receives validator diagnostics. If nil, [slog.Default] is used.
	Logger *slog.Logger

	// TracerProvider creates the auth spans. If nil, the global provider
	// from [otel.GetTracerProvider] is used.
	TracerProvider trace.TracerProvider
}

// Validate checks the configuration and returns a *[sserr.Error] with code
// [sserr.CodeValidation] describing the first problem found.
func (c *ValidatorConfig) Validate() *sserr.Error {
	for i, ie := range c.Issuers {
		if strings.TrimSpace(ie.Issuer) == "" {
			return sserr.Newf(sserr.CodeValidation, "auth: issuer #%d has an empty name", i)
		}
		if strings.TrimSpace(ie.JWKSURL) == "" {
			return sserr.Newf(sserr.CodeValidation, "auth: issuer %q has an empty key set URL", ie.Issuer)
		}
	}
	if c.KeyCacheSize < 0 {
		return sserr.New(sserr.CodeValidation, "auth: key cache size must be non-negative")
	}
	if c.ClockSkew < 0 {
		return sserr.New(sserr.CodeValidation, "auth: clock skew must be non-negative")
	}
	return nil
}

// overlappingIssuers returns pairs of configured issuer names where one is
// a substring of the other. Such pairs make the later entry unreachable
// for some token issuers.
func overlappingIssuers(issuers []IssuerEndpoint) [][2]string {
	var pairs [][2]string
	for i := 0; i < len(issuers); i++ {
		for j := i + 1; j < len(issuers); j++ {
			a, b := issuers[i].Issuer, issuers[j].Issuer
			if strings.Contains(a, b) || strings.Contains(b, a) {
				pairs = append(pairs, [2]string{a, b})
			}
		}
	}
	return pairs
}

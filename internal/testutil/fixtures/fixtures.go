// Package fixtures provides shared test material for the tokengate test
// suite: constants, RSA keys, key-set servers and token minting helpers.
package fixtures

// Standard token values used across auth and server tests.
const (
	// SharedSecret signs internal-scheme test tokens.
	SharedSecret = "ship-test-secret-0123456789abcdef"

	// KeyID is the default kid for test RSA keys.
	KeyID = "test-key-1"

	// AltKeyID names a second key in rotation tests.
	AltKeyID = "test-key-2"

	// IssuerName is a configured issuer name; it is a prefix of Issuer.
	IssuerName = "https://keycloak.example.com"

	// Issuer is the iss claim of external test tokens.
	Issuer = "https://keycloak.example.com/realms/tms"

	// TestIssuer contains "test" and is accepted by the dev bypass.
	TestIssuer = "https://auth.local-test.example"

	// Subject is the default sub claim.
	Subject = "user-abc-123"

	// UserID is the default userId marker of internal tokens.
	UserID = "ship-user-42"

	// CustomerID is the default customerId marker of internal tokens.
	CustomerID = "customer-7"
)

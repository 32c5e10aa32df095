package fixtures

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// InOneHour returns an exp value one hour from now.
func InOneHour() int64 { return time.Now().Add(time.Hour).Unix() }

// AnHourAgo returns an exp value one hour in the past.
func AnHourAgo() int64 { return time.Now().Add(-time.Hour).Unix() }

// SignRS256 mints an RS256 token with kid in its header. An empty kid
// leaves the header without one.
func SignRS256(t testing.TB, key *rsa.PrivateKey, kid string, claims map[string]any) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(claims))
	if kid != "" {
		tok.Header["kid"] = kid
	}
	signed, err := tok.SignedString(key)
	require.NoError(t, err, "sign RS256 token")
	return signed
}

// SignHMAC mints a token signed with secret using method (HS256, HS384 or
// HS512).
func SignHMAC(t testing.TB, method jwt.SigningMethod, secret string, claims map[string]any) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, jwt.MapClaims(claims))
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err, "sign HMAC token")
	return signed
}

// SignHS256 is SignHMAC with HS256.
func SignHS256(t testing.TB, secret string, claims map[string]any) string {
	t.Helper()
	return SignHMAC(t, jwt.SigningMethodHS256, secret, claims)
}

// UnsignedToken assembles header.payload.signature from arbitrary JSON
// values with a junk signature. Useful for tokens that must never verify.
func UnsignedToken(t testing.TB, header, claims any) string {
	t.Helper()
	return Segment(t, header) + "." + Segment(t, claims) + ".c2lnbmF0dXJl"
}

// Segment base64url-encodes the JSON encoding of v without padding. A
// string or []byte is encoded verbatim.
func Segment(t testing.TB, v any) string {
	t.Helper()
	var raw []byte
	switch x := v.(type) {
	case string:
		raw = []byte(x)
	case []byte:
		raw = x
	default:
		var err error
		raw, err = json.Marshal(v)
		require.NoError(t, err, "marshal token segment")
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

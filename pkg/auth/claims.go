package auth

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	sserr "github.com/StricklySoft/tokengate/pkg/errors"
)

// Claims is the payload of a bearer token. Every modeled field is optional;
// an empty string means the claim was absent (or null). Fields that are not
// modeled are kept verbatim in Extra, so decoding never drops data.
//
// Claims implements [jwt.Claims] so it can be handed straight to the
// golang-jwt parser.
type Claims struct {
	Issuer          string           `json:"iss,omitempty"`
	Subject         string           `json:"sub,omitempty"`
	Audience        jwt.ClaimStrings `json:"aud,omitempty"`
	AuthorizedParty string           `json:"azp,omitempty"`

	// ExpiresAt and IssuedAt are Unix seconds. Float encodings are
	// truncated toward zero; absent or non-numeric values leave them nil.
	ExpiresAt *int64 `json:"exp,omitempty"`
	IssuedAt  *int64 `json:"iat,omitempty"`

	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`

	// ResourceAccess is the provider's per-client role map, kept raw
	// because its shape varies between providers. See [Claims.Roles].
	ResourceAccess json.RawMessage `json:"resource_access,omitempty"`

	// Markers of the internal token scheme. Any one of them routes the
	// token to shared-secret verification.
	CustomerID         string `json:"customerId,omitempty"`
	UserID             string `json:"userId,omitempty"`
	TokenRequestedFrom string `json:"tokenRequestedFrom,omitempty"`

	// Extra holds every claim not listed above.
	Extra map[string]json.RawMessage `json:"-"`
}

// IsInternal reports whether any internal-scheme marker is set.
func (c *Claims) IsInternal() bool {
	return c.TokenRequestedFrom != "" || c.UserID != "" || c.CustomerID != ""
}

// ExpiredAt reports whether the token carries an exp at or before now.
func (c *Claims) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && now.Unix() >= *c.ExpiresAt
}

// UnmarshalJSON decodes a claims object. String claims must be strings or
// null. aud never fails: a string or an array of strings fills Audience,
// any other value is kept in Extra. exp and iat never fail either:
// anything other than a JSON number decodes to nil.
func (c *Claims) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Claims{}
	strs := map[string]*string{
		"iss":                &out.Issuer,
		"sub":                &out.Subject,
		"azp":                &out.AuthorizedParty,
		"email":              &out.Email,
		"name":               &out.Name,
		"customerId":         &out.CustomerID,
		"userId":             &out.UserID,
		"tokenRequestedFrom": &out.TokenRequestedFrom,
	}

	for key, val := range raw {
		if dst, ok := strs[key]; ok {
			if err := decodeStringClaim(key, val, dst); err != nil {
				return err
			}
			continue
		}
		switch key {
		case "aud":
			// Audiences that are not string-shaped stay verbatim in Extra.
			if out.Audience.UnmarshalJSON(val) != nil {
				out.Audience = nil
				out.setExtra(key, val)
			}
		case "exp":
			out.ExpiresAt = decodeTimestamp(val)
		case "iat":
			out.IssuedAt = decodeTimestamp(val)
		case "resource_access":
			if !isNull(val) {
				out.ResourceAccess = val
			}
		default:
			out.setExtra(key, val)
		}
	}

	*c = out
	return nil
}

func (c *Claims) setExtra(key string, val json.RawMessage) {
	if c.Extra == nil {
		c.Extra = make(map[string]json.RawMessage)
	}
	c.Extra[key] = val
}

// MarshalJSON writes the modeled claims and flattens Extra back into the
// same object.
func (c Claims) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Extra)+12)
	for k, v := range c.Extra {
		m[k] = v
	}
	put := func(key, val string) {
		if val != "" {
			m[key] = val
		}
	}
	put("iss", c.Issuer)
	put("sub", c.Subject)
	put("azp", c.AuthorizedParty)
	put("email", c.Email)
	put("name", c.Name)
	put("customerId", c.CustomerID)
	put("userId", c.UserID)
	put("tokenRequestedFrom", c.TokenRequestedFrom)
	if len(c.Audience) > 0 {
		m["aud"] = c.Audience
	}
	if c.ExpiresAt != nil {
		m["exp"] = *c.ExpiresAt
	}
	if c.IssuedAt != nil {
		m["iat"] = *c.IssuedAt
	}
	if len(c.ResourceAccess) > 0 {
		m["resource_access"] = c.ResourceAccess
	}
	return json.Marshal(m)
}

func decodeStringClaim(key string, val json.RawMessage, dst *string) error {
	if isNull(val) {
		return nil
	}
	if err := json.Unmarshal(val, dst); err != nil {
		return fmt.Errorf("claim %q: expected a string", key)
	}
	return nil
}

func decodeTimestamp(val json.RawMessage) *int64 {
	s := string(bytes.TrimSpace(val))
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return nil
	}
	var n int64
	switch {
	case f >= math.MaxInt64:
		n = math.MaxInt64
	case f <= math.MinInt64:
		n = math.MinInt64
	default:
		n = int64(f)
	}
	return &n
}

func isNull(val json.RawMessage) bool {
	return string(bytes.TrimSpace(val)) == "null"
}

// ---------------------------------------------------------------------------
// jwt.Claims implementation
// ---------------------------------------------------------------------------

// GetExpirationTime implements [jwt.Claims].
func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return unixDate(c.ExpiresAt), nil
}

// GetIssuedAt implements [jwt.Claims].
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return unixDate(c.IssuedAt), nil
}

// GetNotBefore implements [jwt.Claims]. nbf is not modeled, so it is never
// enforced.
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

// GetIssuer implements [jwt.Claims].
func (c *Claims) GetIssuer() (string, error) { return c.Issuer, nil }

// GetSubject implements [jwt.Claims].
func (c *Claims) GetSubject() (string, error) { return c.Subject, nil }

// GetAudience implements [jwt.Claims].
func (c *Claims) GetAudience() (jwt.ClaimStrings, error) { return c.Audience, nil }

func unixDate(sec *int64) *jwt.NumericDate {
	if sec == nil {
		return nil
	}
	return jwt.NewNumericDate(time.Unix(*sec, 0))
}

// ---------------------------------------------------------------------------
// Unverified decoding
// ---------------------------------------------------------------------------

// tokenHeader is the subset of the JOSE header used for dispatch.
type tokenHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	Typ string `json:"typ"`
}

// DecodeClaims decodes the payload of token without verifying anything.
// The result must not be used for access decisions on its own.
//
// A token that is not three dot-separated segments, or whose payload is not
// unpadded base64url, yields [sserr.CodeAuthenticationInvalid]. A payload
// that is not a valid claims object yields [sserr.CodeValidationFormat].
func DecodeClaims(token string) (*Claims, error) {
	parts, err := splitToken(token)
	if err != nil {
		return nil, err
	}
	return decodeClaimsSegment(parts[1])
}

func decodeUnverified(token string) (*tokenHeader, *Claims, error) {
	parts, err := splitToken(token)
	if err != nil {
		return nil, nil, err
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, nil, errInvalidTokenFormat("header is not base64url", err)
	}
	var header tokenHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, nil, errInvalidTokenFormat("header is not a JSON object", err)
	}

	claims, err := decodeClaimsSegment(parts[1])
	if err != nil {
		return nil, nil, err
	}
	return &header, claims, nil
}

func splitToken(token string) ([]string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errInvalidTokenFormat(
			fmt.Sprintf("expected 3 segments, got %d", len(parts)), nil)
	}
	return parts, nil
}

func decodeClaimsSegment(seg string) (*Claims, error) {
	payload, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return nil, errInvalidTokenFormat("payload is not base64url", err)
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, sserr.Wrap(err, sserr.CodeValidationFormat, "auth: token claims could not be parsed")
	}
	return &claims, nil
}

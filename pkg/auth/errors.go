package auth

import (
	"strings"

	sserr "github.com/StricklySoft/tokengate/pkg/errors"
)

// BearerPrefix is the case-sensitive scheme prefix of an Authorization
// header carrying a bearer token.
const BearerPrefix = "Bearer "

// HeaderAuthorization is the HTTP header (and lowercase gRPC metadata key)
// carrying the bearer token.
const HeaderAuthorization = "Authorization"

func errInvalidTokenFormat(msg string, cause error) *sserr.Error {
	if cause == nil {
		return sserr.New(sserr.CodeAuthenticationInvalid, "auth: invalid token format: "+msg)
	}
	return sserr.Wrap(cause, sserr.CodeAuthenticationInvalid, "auth: invalid token format: "+msg)
}

// IsInvalidTokenFormat reports whether err is a malformed-token failure:
// bad segment count or encoding, a missing issuer or key ID, or a key ID
// the issuer's key set does not contain.
func IsInvalidTokenFormat(err error) bool {
	return sserr.HasCode(err, sserr.CodeAuthenticationInvalid)
}

// IsMissingConfig reports whether err signals that the validator lacks
// configuration required by the token it was given.
func IsMissingConfig(err error) bool {
	return sserr.HasCode(err, sserr.CodeInternalConfiguration)
}

// ExtractBearerToken strips the "Bearer " prefix from an Authorization
// header value and trims surrounding whitespace. A header without the
// prefix, or with nothing after it, is an invalid token format.
func ExtractBearerToken(header string) (string, error) {
	rest, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok {
		return "", errInvalidTokenFormat("authorization header is not a bearer token", nil)
	}
	token := strings.TrimSpace(rest)
	if token == "" {
		return "", errInvalidTokenFormat("bearer token is empty", nil)
	}
	return token, nil
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sserr "github.com/StricklySoft/tokengate/pkg/errors"
)

// ---------------------------------------------------------------------------
// Stub TokenValidator
// ---------------------------------------------------------------------------

// stubValidator returns a fixed outcome and error and records the token
// it was asked about.
type stubValidator struct {
	outcome Outcome
	err     error
	seen    string
}

func (s *stubValidator) Validate(_ context.Context, token string) (Outcome, error) {
	s.seen = token
	return s.outcome, s.err
}

func validOutcome() Outcome {
	return Valid{Claims: &Claims{UserID: "u-1", Email: "a@example.com", ResourceAccess: []byte(`{"tms":{"roles":["admin"]}}`)}}
}

// ---------------------------------------------------------------------------
// HTTPMiddleware
// ---------------------------------------------------------------------------

func TestHTTPMiddleware_ValidStoresIdentity(t *testing.T) {
	t.Parallel()
	stub := &stubValidator{outcome: validOutcome()}

	var gotIdentity Identity
	var gotClaims *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity = MustIdentityFromContext(r.Context())
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	req.Header.Set(HeaderAuthorization, "Bearer  tok.en.value ")
	rec := httptest.NewRecorder()
	HTTPMiddleware(stub)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "tok.en.value", stub.seen)
	assert.Equal(t, Identity{ID: "u-1", Email: "a@example.com", Roles: []string{"admin"}}, gotIdentity)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "u-1", gotClaims.UserID)
}

func TestHTTPMiddleware_Rejections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		header     string
		outcome    Outcome
		err        error
		wantStatus int
		wantBody   string
	}{
		{"no header", "", nil, nil, http.StatusUnauthorized, "missing or invalid authorization header"},
		{"wrong scheme", "Basic abc", nil, nil, http.StatusUnauthorized, "missing or invalid authorization header"},
		{"expired", "Bearer t", Expired{}, nil, http.StatusUnauthorized, "token expired"},
		{"invalid", "Bearer t", Invalid{Reason: "crypto/rsa: verification error"}, nil, http.StatusUnauthorized, "invalid token"},
		{"unknown issuer", "Bearer t", UnknownIssuer{Issuer: "https://x"}, nil, http.StatusUnauthorized, "unknown token issuer"},
		{
			"malformed token", "Bearer t", nil,
			sserr.New(sserr.CodeAuthenticationInvalid, "bad segments"),
			http.StatusUnauthorized, "invalid token",
		},
		{
			"claims parse error", "Bearer t", nil,
			sserr.New(sserr.CodeValidationFormat, "bad claims"),
			http.StatusUnauthorized, "invalid token",
		},
		{
			"missing config", "Bearer t", nil,
			sserr.New(sserr.CodeInternalConfiguration, "no secret"),
			http.StatusInternalServerError, "authentication is temporarily unavailable",
		},
		{
			"key set unavailable", "Bearer t", nil,
			sserr.New(sserr.CodeUnavailableDependency, "jwks down"),
			http.StatusServiceUnavailable, "authentication is temporarily unavailable",
		},
		{
			"key set timeout", "Bearer t", nil,
			sserr.New(sserr.CodeTimeoutDependency, "jwks slow"),
			http.StatusGatewayTimeout, "authentication is temporarily unavailable",
		},
		{"foreign error", "Bearer t", nil, errors.New("boom"), http.StatusUnauthorized, "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			stub := &stubValidator{outcome: tt.outcome, err: tt.err}
			called := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

			req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
			if tt.header != "" {
				req.Header.Set(HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			HTTPMiddleware(stub)(next).ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody+"\n", rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "crypto/rsa", "reasons are never echoed")
			if tt.wantStatus == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

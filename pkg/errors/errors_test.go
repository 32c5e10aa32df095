package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_Category(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code Code
		want string
	}{
		{CodeValidationFormat, "VAL"},
		{CodeAuthenticationInvalid, "AUTH"},
		{CodeInternalConfiguration, "INT"},
		{CodeUnavailableDependency, "UNAVAIL"},
		{CodeTimeoutDependency, "TIMEOUT"},
		{Code("PLAIN"), "PLAIN"},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.code.Category())
		})
	}
}

func TestError_ErrorString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "AUTH_003: auth: bad token", New(CodeAuthenticationInvalid, "auth: bad token").Error())

	wrapped := Wrap(io.EOF, CodeUnavailableDependency, "auth: fetch failed")
	assert.Equal(t, "UNAVAIL_002: auth: fetch failed: EOF", wrapped.Error())
}

func TestWrap_NilReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Wrap(nil, CodeInternal, "unused"))
	assert.Nil(t, Wrapf(nil, CodeInternal, "unused %d", 1))
}

func TestError_UnwrapSupportsIs(t *testing.T) {
	t.Parallel()
	err := Wrapf(io.ErrUnexpectedEOF, CodeUnavailableDependency, "auth: read %s", "body")
	assert.True(t, stderrors.Is(err, io.ErrUnexpectedEOF))

	outer := fmt.Errorf("context: %w", err)
	e, ok := AsError(outer)
	require.True(t, ok)
	assert.Equal(t, CodeUnavailableDependency, e.Code)
}

func TestError_HTTPStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeAuthenticationExpired, http.StatusUnauthorized},
		{CodeInternalConfiguration, http.StatusInternalServerError},
		{CodeUnavailableDependency, http.StatusServiceUnavailable},
		{CodeTimeoutDependency, http.StatusGatewayTimeout},
		{Code("ODD_001"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus(), "code %s", tt.code)
	}
}

func TestError_WithDetailDoesNotMutate(t *testing.T) {
	t.Parallel()
	base := New(CodeAuthenticationInvalid, "auth: key not found").WithDetail("kid", "k1")
	derived := base.WithDetail("endpoint", "https://idp/jwks")

	assert.Equal(t, map[string]any{"kid": "k1"}, base.Details)
	assert.Equal(t, map[string]any{"kid": "k1", "endpoint": "https://idp/jwks"}, derived.Details)
}

func TestError_FormatPlusV(t *testing.T) {
	t.Parallel()
	err := Wrap(io.EOF, CodeUnavailable, "down").WithDetail("n", 1)
	out := fmt.Sprintf("%+v", err)
	assert.Contains(t, out, `Code: "UNAVAIL_001"`)
	assert.Contains(t, out, "Details: map[n:1]")
	assert.Contains(t, out, "Cause: EOF")
	assert.Equal(t, err.Error(), fmt.Sprintf("%v", err))
}

func TestChecks(t *testing.T) {
	t.Parallel()
	assert.True(t, IsAuthentication(New(CodeAuthenticationInvalid, "x")))
	assert.True(t, IsValidation(Validation("x")))
	assert.True(t, IsInternal(Internal("x")))
	assert.True(t, IsUnavailable(Unavailable("x")))
	assert.True(t, IsTimeout(New(CodeTimeoutDependency, "x")))
	assert.True(t, IsRetryable(New(CodeTimeoutDependency, "x")))
	assert.False(t, IsRetryable(Unauthorized("x")))
	assert.True(t, IsClientError(Validationf("bad %s", "x")))
	assert.True(t, IsServerError(New(CodeInternalConfiguration, "x")))
	assert.False(t, IsServerError(stderrors.New("plain")))
	assert.True(t, HasCode(New(CodeAuthenticationInvalid, "x"), CodeAuthenticationInvalid))
	assert.Equal(t, Code(""), GetCode(nil))
}

func TestFromError(t *testing.T) {
	t.Parallel()
	assert.Nil(t, FromError(nil))

	own := New(CodeValidation, "x")
	assert.Same(t, own, FromError(own))

	foreign := FromError(io.EOF)
	assert.Equal(t, CodeInternal, foreign.Code)
	assert.ErrorIs(t, foreign, io.EOF)
}

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StricklySoft/tokengate/internal/testutil"
	sserr "github.com/StricklySoft/tokengate/pkg/errors"
)

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"plain", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"trims", "Bearer   abc.def.ghi  ", "abc.def.ghi", false},
		{"empty header", "", "", true},
		{"prefix only", "Bearer ", "", true},
		{"whitespace token", "Bearer    ", "", true},
		{"lowercase scheme", "bearer abc", "", true},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", true},
		{"no space", "Bearerabc", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractBearerToken(tt.header)
			if tt.wantErr {
				testutil.AssertErrorCode(t, err, sserr.CodeAuthenticationInvalid)
				assert.True(t, IsInvalidTokenFormat(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	t.Parallel()
	assert.True(t, IsInvalidTokenFormat(errInvalidTokenFormat("x", nil)))
	assert.False(t, IsMissingConfig(errInvalidTokenFormat("x", nil)))
	assert.True(t, IsMissingConfig(sserr.New(sserr.CodeInternalConfiguration, "no secret")))
	assert.False(t, IsInvalidTokenFormat(nil))
}

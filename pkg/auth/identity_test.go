package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityFromClaims_IDPreference(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		claims Claims
		want   string
	}{
		{"userId wins over sub", Claims{UserID: "u-1", Subject: "s-1"}, "u-1"},
		{"sub when no userId", Claims{Subject: "s-1"}, "s-1"},
		{"empty when neither", Claims{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IdentityFromClaims(&tt.claims).ID)
		})
	}
}

func TestIdentityFromClaims_CopiesProfile(t *testing.T) {
	t.Parallel()
	id := IdentityFromClaims(&Claims{Subject: "s", Email: "a@example.com", Name: "Ada"})
	assert.Equal(t, Identity{ID: "s", Email: "a@example.com", Name: "Ada", Roles: []string{}}, id)
}

func TestClaims_Roles(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		access string
		want   []string
	}{
		{
			name:   "primary client only",
			access: `{"tms": {"roles": ["admin", "viewer"]}, "other": {"roles": ["x"]}}`,
			want:   []string{"admin", "viewer"},
		},
		{
			name:   "primary absent aggregates all clients in name order",
			access: `{"zeta": {"roles": ["z1"]}, "alpha": {"roles": ["a1", "a2"]}}`,
			want:   []string{"a1", "a2", "z1"},
		},
		{
			name:   "primary empty aggregates all clients",
			access: `{"tms": {"roles": []}, "billing": {"roles": ["payer"]}}`,
			want:   []string{"payer"},
		},
		{
			name:   "non-string roles are skipped",
			access: `{"tms": {"roles": ["admin", 3, null, {"r": 1}]}}`,
			want:   []string{"admin"},
		},
		{
			name:   "primary with only null roles aggregates all clients",
			access: `{"tms": {"roles": [null]}, "other": {"roles": ["x"]}}`,
			want:   []string{"x"},
		},
		{
			name:   "clients without a roles array are skipped",
			access: `{"a": {"scopes": ["s"]}, "b": "junk", "c": {"roles": "admin"}, "d": {"roles": ["d1"]}}`,
			want:   []string{"d1"},
		},
		{
			name:   "not an object",
			access: `["admin"]`,
			want:   []string{},
		},
		{
			name:   "absent",
			access: ``,
			want:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := &Claims{}
			if tt.access != "" {
				c.ResourceAccess = json.RawMessage(tt.access)
			}
			assert.Equal(t, tt.want, c.Roles())
		})
	}
}

func TestIdentity_HasRole(t *testing.T) {
	t.Parallel()
	id := Identity{Roles: []string{"admin", "viewer"}}
	assert.True(t, id.HasRole("viewer"))
	assert.False(t, id.HasRole("owner"))
}

func TestIdentity_JSON(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(Identity{ID: "u", Roles: []string{}})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"id": "u", "roles": []}`, string(data))
}

package auth

import (
	"encoding/json"
	"slices"
)

// PrimaryRoleClient is the resource_access client whose roles take
// precedence over every other client's.
const PrimaryRoleClient = "tms"

// Identity is the caller as seen by downstream handlers. It is derived
// from [Claims] on every validation and never stored.
type Identity struct {
	// ID is userId when present, otherwise sub, otherwise empty.
	ID    string   `json:"id"`
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles"`
}

// IdentityFromClaims projects claims onto an Identity.
func IdentityFromClaims(c *Claims) Identity {
	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	return Identity{
		ID:    id,
		Email: c.Email,
		Name:  c.Name,
		Roles: c.Roles(),
	}
}

// HasRole reports whether role is among the identity's roles.
func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// Roles extracts role names from resource_access. The roles of
// [PrimaryRoleClient] are returned alone when that client lists at least
// one; otherwise the roles of every client are concatenated in client-name
// order. Entries that are not strings are ignored. The result is never nil.
func (c *Claims) Roles() []string {
	roles := []string{}
	if len(c.ResourceAccess) == 0 {
		return roles
	}

	var clients map[string]json.RawMessage
	if err := json.Unmarshal(c.ResourceAccess, &clients); err != nil {
		return roles
	}

	if primary, ok := clients[PrimaryRoleClient]; ok {
		roles = appendClientRoles(roles, primary)
		if len(roles) > 0 {
			return roles
		}
	}

	names := make([]string, 0, len(clients))
	for name := range clients {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		roles = appendClientRoles(roles, clients[name])
	}
	return roles
}

func appendClientRoles(dst []string, client json.RawMessage) []string {
	var access struct {
		Roles []json.RawMessage `json:"roles"`
	}
	if err := json.Unmarshal(client, &access); err != nil {
		return dst
	}
	for _, r := range access.Roles {
		var role *string
		if json.Unmarshal(r, &role) == nil && role != nil {
			dst = append(dst, *role)
		}
	}
	return dst
}

package domain

import "strings"

// Role is a member of the closed set of account roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// roles lists every valid role in declaration order.
var roles = []Role{RoleAdmin, RoleUser}

// roleHierarchy maps a held role to every role it satisfies. The table is the
// precomputed closure and is never mutated.
var roleHierarchy = map[Role]map[Role]struct{}{
	RoleAdmin: {RoleAdmin: {}, RoleUser: {}},
	RoleUser:  {RoleUser: {}},
}

// Roles returns the valid roles.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// IsValidRole reports whether candidate names a known role.
func IsValidRole(candidate string) bool {
	_, ok := roleHierarchy[Role(candidate)]
	return ok
}

// ParseRole normalizes s (case-insensitive, trimmed) into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !IsValidRole(string(r)) {
		return "", false
	}
	return r, true
}

// Satisfies reports whether holding r grants required.
func (r Role) Satisfies(required Role) bool {
	_, ok := roleHierarchy[r][required]
	return ok
}

// AllowedRoles returns the closure set for r. Unknown roles grant nothing.
func AllowedRoles(r Role) []Role {
	set, ok := roleHierarchy[r]
	if !ok {
		return []Role{}
	}
	out := make([]Role, 0, len(set))
	for _, candidate := range roles {
		if _, ok := set[candidate]; ok {
			out = append(out, candidate)
		}
	}
	return out
}

// HasPermission reports whether any held role satisfies any required role.
func HasPermission(held, required []Role) bool {
	for _, h := range held {
		for _, req := range required {
			if h.Satisfies(req) {
				return true
			}
		}
	}
	return false
}

package domain

import "testing"

func TestHasPermission(t *testing.T) {
	cases := []struct {
		name     string
		held     []Role
		required []Role
		want     bool
	}{
		{"admin satisfies user", []Role{RoleAdmin}, []Role{RoleUser}, true},
		{"user does not satisfy admin", []Role{RoleUser}, []Role{RoleAdmin}, false},
		{"any required role is enough", []Role{RoleUser}, []Role{RoleAdmin, RoleUser}, true},
		{"reflexive", []Role{RoleAdmin}, []Role{RoleAdmin}, true},
		{"unknown held role grants nothing", []Role{"guest"}, []Role{RoleUser}, false},
		{"no held roles", nil, []Role{RoleUser}, false},
		{"no required roles", []Role{RoleAdmin}, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasPermission(tc.held, tc.required); got != tc.want {
				t.Fatalf("HasPermission(%v, %v) = %v, want %v", tc.held, tc.required, got, tc.want)
			}
		})
	}
}

func TestAllowedRoles(t *testing.T) {
	if got := AllowedRoles(RoleAdmin); len(got) != 2 || got[0] != RoleAdmin || got[1] != RoleUser {
		t.Fatalf("unexpected admin closure: %v", got)
	}
	if got := AllowedRoles(RoleUser); len(got) != 1 || got[0] != RoleUser {
		t.Fatalf("unexpected user closure: %v", got)
	}
	if got := AllowedRoles("guest"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil set for unknown role, got %v", got)
	}
}

func TestIsValidRoleAndParse(t *testing.T) {
	if !IsValidRole("admin") || !IsValidRole("user") {
		t.Fatalf("expected admin and user to be valid")
	}
	if IsValidRole("ADMIN") || IsValidRole("") {
		t.Fatalf("IsValidRole must be an exact membership test")
	}
	if r, ok := ParseRole(" ADMIN "); !ok || r != RoleAdmin {
		t.Fatalf("ParseRole normalisation failed: %q %v", r, ok)
	}
	if _, ok := ParseRole("root"); ok {
		t.Fatalf("expected root to be rejected")
	}
}

func TestRoleSatisfies(t *testing.T) {
	if !RoleAdmin.Satisfies(RoleUser) || RoleUser.Satisfies(RoleAdmin) {
		t.Fatalf("hierarchy mismatch")
	}
}

package handler

import (
	"strings"
	"testing"
)

func TestIsStrongPassword(t *testing.T) {
	cases := map[string]bool{
		"Str0ng!Passw0rd": true,
		"Aa1!aaaaaaaa":    true,
		"Aa1!aaaaaaa":     false,
		"alllower1!":      false,
		"ALLUPPER1!":      false,
		"NoDigits!!":      false,
		"NoSymbol12":      false,
		"":                false,
		"Aa1!éééééééé":    true,
		"Aa1!ééééééé":     false,
		"Aa1!éééééé":      false,
	}
	for pw, want := range cases {
		if got := IsStrongPassword(pw); got != want {
			t.Errorf("IsStrongPassword(%q) = %v, want %v", pw, got, want)
		}
	}
}

func TestValidator_MaxBytes(t *testing.T) {
	type body struct {
		Password string `validate:"maxbytes=72"`
	}
	v := NewValidator()

	if err := v.Validate(body{Password: strings.Repeat("a", 72)}); err != nil {
		t.Errorf("72 ascii bytes: unexpected error %v", err)
	}
	// 4 + 40*2 = 84 bytes but only 44 characters.
	err := v.Validate(body{Password: "Aa1!" + strings.Repeat("é", 40)})
	if err == nil {
		t.Fatal("84 byte password: expected error")
	}
	if !strings.Contains(err.Error(), "at most 72 bytes") {
		t.Errorf("error = %q", err.Error())
	}
}

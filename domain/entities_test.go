package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSelfServiceRole(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Role
	}{
		{name: "researcher", input: "RESEARCHER", expected: RoleResearcher},
		{name: "student", input: "STUDENT", expected: RoleStudent},
		{name: "lower case researcher", input: "researcher", expected: RoleResearcher},
		{name: "admin is downgraded", input: "ADMIN", expected: RoleStudent},
		{name: "empty defaults", input: "", expected: RoleStudent},
		{name: "unknown defaults", input: "LIBRARIAN", expected: RoleStudent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelfServiceRole(tt.input); got != tt.expected {
				t.Errorf("expected role %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleResearcher, RoleStudent} {
		if !r.Valid() {
			t.Errorf("expected %s to be valid", r)
		}
	}
	if Role("GUEST").Valid() {
		t.Error("expected GUEST to be invalid")
	}
}

func TestRoleSubject(t *testing.T) {
	if got := RoleSubject(RoleAdmin); got != "role_ADMIN" {
		t.Errorf("expected role_ADMIN, got %q", got)
	}
	if RoleSubject(RoleStudent) == RoleSubject(RoleResearcher) {
		t.Error("distinct roles must map to distinct subjects")
	}
}

func TestAccount_CanLogin(t *testing.T) {
	tests := []struct {
		name     string
		verified bool
		status   Status
		expected bool
	}{
		{name: "verified and active", verified: true, status: StatusActive, expected: true},
		{name: "unverified", verified: false, status: StatusActive, expected: false},
		{name: "suspended", verified: true, status: StatusSuspended, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{IsVerified: tt.verified, Status: tt.status}
			if a.CanLogin() != tt.expected {
				t.Errorf("expected CanLogin %v", tt.expected)
			}
		})
	}
}

func TestAccount_SanitizeOmitsSecrets(t *testing.T) {
	now := time.Now()
	account := &Account{
		ID:           7,
		Name:         "Alice",
		Username:     "alice",
		Email:        "alice@x.com",
		PasswordHash: "$2a$12$secret-hash",
		Role:         RoleStudent,
		Status:       StatusActive,
		Verification: &Challenge{Purpose: PurposeVerify, Hash: "$2a$10$otp-hash", ExpiresAt: now},
		Reset:        &Challenge{Purpose: PurposeReset, Hash: "$2a$10$reset-hash", ExpiresAt: now},
		Session:      ActiveSession{RefreshToken: "refresh.jwt.value"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	data, err := json.Marshal(account.Sanitize())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)

	for _, secret := range []string{"secret-hash", "otp-hash", "reset-hash", "refresh.jwt.value"} {
		if strings.Contains(body, secret) {
			t.Errorf("sanitized account leaks %q: %s", secret, body)
		}
	}
	for _, field := range []string{`"username":"alice"`, `"isVerified":false`, `"role":"STUDENT"`} {
		if !strings.Contains(body, field) {
			t.Errorf("expected %s in %s", field, body)
		}
	}
}

func TestAccount_SanitizeNil(t *testing.T) {
	var a *Account
	if a.Sanitize() != nil {
		t.Error("expected nil projection for nil account")
	}
}

func TestChallenge_Outstanding(t *testing.T) {
	var nilChallenge *Challenge
	if nilChallenge.Outstanding() {
		t.Error("nil challenge must not be outstanding")
	}
	if (&Challenge{}).Outstanding() {
		t.Error("empty challenge must not be outstanding")
	}
	if !(&Challenge{Hash: "h"}).Outstanding() {
		t.Error("hashed challenge must be outstanding")
	}
}

func TestNormalize(t *testing.T) {
	if got := NormalizeEmail("  Alice@X.com "); got != "alice@x.com" {
		t.Errorf("unexpected email %q", got)
	}
	if got := NormalizeUsername(" AliCe"); got != "alice" {
		t.Errorf("unexpected username %q", got)
	}
}

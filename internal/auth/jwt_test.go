package auth

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-0123456789abcdef"

func TestIssueAndVerifyRoundtrip(t *testing.T) {
	m := NewManager(testSecret, time.Hour)

	token, expiresAt, err := m.IssueSessionToken("user-1", "jane@example.com", "Jane Doe", "client")

	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	if until := time.Until(expiresAt); until < 59*time.Minute || until > time.Hour {
		t.Errorf("expiresAt %v not ~1h out", expiresAt)
	}

	claims, err := m.VerifySessionToken(token)

	if err != nil {
		t.Fatalf("VerifySessionToken: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", claims.UserID)
	}

	if claims.Email != "jane@example.com" {
		t.Errorf("Email = %q, want jane@example.com", claims.Email)
	}

	if claims.Name != "Jane Doe" {
		t.Errorf("Name = %q, want Jane Doe", claims.Name)
	}

	if claims.Role != "client" {
		t.Errorf("Role = %q, want client", claims.Role)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m := NewManager(testSecret, time.Hour)
	other := NewManager("a-completely-different-secret", time.Hour)

	token, _, err := m.IssueSessionToken("user-1", "jane@example.com", "Jane Doe", "client")

	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	if _, err := other.VerifySessionToken(token); err == nil {
		t.Error("expected verification to fail with a different secret")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewManager(testSecret, -time.Minute)

	token, _, err := m.IssueSessionToken("user-1", "jane@example.com", "Jane Doe", "client")

	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	if _, err := m.VerifySessionToken(token); err == nil {
		t.Error("expected verification to fail for an expired token")
	}
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	m := NewManager(testSecret, time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "two_segments", token: "aaaa.bbbb"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.VerifySessionToken(tt.token); err == nil {
				t.Errorf("expected failure for %q", tt.token)
			}
		})
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	m := NewManager(testSecret, time.Hour)

	token, _, err := m.IssueSessionToken("user-1", "jane@example.com", "Jane Doe", "client")

	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	// Flip a byte in the payload segment.
	parts := strings.Split(token, ".")

	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}

	payload := []byte(parts[1])
	payload[0] ^= 1
	parts[1] = string(payload)

	if _, err := m.VerifySessionToken(strings.Join(parts, ".")); err == nil {
		t.Error("expected verification to fail for a tampered payload")
	}
}

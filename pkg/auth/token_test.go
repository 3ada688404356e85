package auth

import (
	"errors"
	"testing"
	"time"

	"medbook/internal/domain"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m, err := NewTokenManager("secret", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	token, err := m.NewAccessToken(12, domain.UserRolePatient)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	id, role, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != 12 || role != domain.UserRolePatient {
		t.Fatalf("got %d %s", id, role)
	}
}

func TestTokenManager_Rejects(t *testing.T) {
	m, _ := NewTokenManager("secret", time.Minute)
	other, _ := NewTokenManager("other", time.Minute)

	foreign, _ := other.NewAccessToken(1, domain.UserRoleAdmin)

	expiredMgr, _ := NewTokenManager("secret", time.Minute)
	expiredMgr.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _ := expiredMgr.NewAccessToken(1, domain.UserRoleAdmin)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong key", foreign},
		{"expired", expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := m.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewTokenManager_EmptyKey(t *testing.T) {
	if _, err := NewTokenManager("", time.Minute); err == nil {
		t.Fatal("expected error")
	}
}

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bookbound/library/internal/core/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWT_SignVerify(t *testing.T) {
	signer := NewJWT(testSecret, time.Hour)

	token, err := signer.Sign(&domain.User{ID: 42, Email: "a@example.com", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	actor, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if actor.UserID != 42 || actor.Role != domain.RoleAdmin {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestJWT_Verify_Expired(t *testing.T) {
	signer := NewJWT(testSecret, time.Minute)
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := signer.Sign(&domain.User{ID: 1, Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	signer.now = time.Now
	if _, err := signer.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestJWT_Verify_Rejects(t *testing.T) {
	signer := NewJWT(testSecret, time.Hour)
	exp := time.Now().Add(time.Hour).Unix()

	other, _ := NewJWT("another-secret-another-secret-xx", time.Hour).Sign(&domain.User{ID: 1, Role: domain.RoleUser})
	systemRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "role": "SYSTEM", "exp": exp}).SignedString([]byte(testSecret))
	badSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "abc", "role": "USER", "exp": exp}).SignedString([]byte(testSecret))
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "1", "role": "USER", "exp": exp}).SignedString([]byte(testSecret))

	for name, token := range map[string]string{
		"wrong secret": other,
		"system role":  systemRole,
		"bad subject":  badSub,
		"wrong alg":    hs512,
		"garbage":      "not.a.token",
	} {
		if _, err := signer.Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestBcrypt_HashCompare(t *testing.T) {
	h, err := NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt returned error: %v", err)
	}
	hash, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash == "correct horse" {
		t.Fatalf("expected hashed password")
	}
	if err := h.Compare(hash, "correct horse"); err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if err := h.Compare(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch")
	}
}

func TestNewBcrypt_RejectsCost(t *testing.T) {
	if _, err := NewBcrypt(99); err == nil {
		t.Fatalf("expected error for cost out of range")
	}
	h, err := NewBcrypt(0)
	if err != nil || h.cost != DefaultCost {
		t.Fatalf("expected default cost, got %+v, %v", h, err)
	}
}

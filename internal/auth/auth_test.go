package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), 15*time.Minute)
	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	token, err := issuer.Mint(7, now)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	profileID, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if profileID != 7 {
		t.Errorf("profile id = %d, want 7", profileID)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), 15*time.Minute)

	token, err := issuer.Mint(7, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret-a"), 15*time.Minute)
	other := NewTokenIssuer([]byte("secret-b"), 15*time.Minute)

	token, err := issuer.Mint(7, time.Now())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestPINHashing(t *testing.T) {
	hash, err := HashPIN("1234")
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	if !VerifyPIN(hash, "1234") {
		t.Error("correct PIN rejected")
	}
	if VerifyPIN(hash, "4321") {
		t.Error("wrong PIN accepted")
	}
}

func TestParentModeContext(t *testing.T) {
	ctx := context.Background()
	if IsParentMode(ctx) {
		t.Error("bare context reports parent mode")
	}

	ctx = WithParentMode(ctx, 3)
	if !IsParentMode(ctx) {
		t.Error("parent-mode context not detected")
	}
	ac, ok := FromContext(ctx)
	if !ok || ac.ProfileID != 3 {
		t.Errorf("context = %+v ok=%v, want profile 3", ac, ok)
	}
}

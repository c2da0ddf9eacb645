package push

import (
	"encoding/base64"
	"testing"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Uncompressed P-256 point, base64url without padding.
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("second generation produced the same key")
	}
}

func TestServiceDisabledWithoutKeys(t *testing.T) {
	s := NewService("", "", nil, nil)
	if s.Enabled() {
		t.Error("service with empty keys reports enabled")
	}
	// Broadcast on a disabled service is a no-op and must not touch the
	// (nil) subscription store.
	s.Broadcast(1, Payload{Title: "Time's up"})
}

package auth

import (
	"strings"
	"testing"
)

func TestHasherRoundTrip(t *testing.T) {
	h, err := NewHasher(4)
	if err != nil {
		t.Fatalf("NewHasher() error: %v", err)
	}

	digest, err := h.Hash("AdminDominos2026")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	if digest == "AdminDominos2026" {
		t.Fatalf("digest must not equal plaintext")
	}
	if !h.Verify("AdminDominos2026", digest) {
		t.Fatalf("expected matching password to verify")
	}
	if h.Verify("AdminDominos2027", digest) {
		t.Fatalf("expected different password to fail")
	}
}

func TestHasherSaltsEachDigest(t *testing.T) {
	h, _ := NewHasher(4)
	a, _ := h.Hash("secret1")
	b, _ := h.Hash("secret1")
	if a == b {
		t.Fatalf("expected distinct digests for the same input")
	}
}

func TestHasherLongInputs(t *testing.T) {
	h, _ := NewHasher(4)
	base := strings.Repeat("ñ", 40)

	digest, err := h.Hash(base + "a")
	if err != nil {
		t.Fatalf("Hash() error on long input: %v", err)
	}
	if !h.Verify(base+"a", digest) {
		t.Fatalf("expected long input to verify")
	}
	if h.Verify(base+"b", digest) {
		t.Fatalf("expected inputs differing past 72 bytes to be distinct")
	}
}

func TestHasherMalformedDigest(t *testing.T) {
	h, _ := NewHasher(4)
	if h.Verify("secret1", "not-a-bcrypt-digest") {
		t.Fatalf("expected malformed digest to fail verification")
	}
	if h.Verify("secret1", "") {
		t.Fatalf("expected empty digest to fail verification")
	}
}

func TestNewHasherCost(t *testing.T) {
	h, err := NewHasher(0)
	if err != nil {
		t.Fatalf("NewHasher(0) error: %v", err)
	}
	if h.cost != DefaultBcryptCost {
		t.Fatalf("expected default cost %d, got %d", DefaultBcryptCost, h.cost)
	}
	if _, err := NewHasher(3); err == nil {
		t.Fatalf("expected error for cost below minimum")
	}
	if _, err := NewHasher(32); err == nil {
		t.Fatalf("expected error for cost above maximum")
	}
}

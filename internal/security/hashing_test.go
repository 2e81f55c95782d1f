package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCheck(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if strings.Contains(hash, "correct horse") {
		t.Error("hash must not contain the plaintext")
	}
	if !h.Check(hash, "correct horse") {
		t.Error("Check should accept the right password")
	}
	if h.Check(hash, "wrong horse") {
		t.Error("Check should reject a wrong password")
	}
}

func TestHasher_UnusableHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	for _, hash := range []string{"", "!", "!abc"} {
		if h.Check(hash, "") || h.Check(hash, "anything") {
			t.Errorf("Check(%q) should always fail", hash)
		}
	}
}

func TestHasher_Cost(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, bcrypt.DefaultCost},
		{2, bcrypt.MinCost},
		{12, 12},
		{40, bcrypt.MaxCost},
	}
	for _, tt := range tests {
		if got := NewHasher(tt.in).Cost; got != tt.want {
			t.Errorf("NewHasher(%d).Cost = %d, want %d", tt.in, got, tt.want)
		}
	}
}

package auth

import (
	"bytes"
	"errors"
	"testing"
)

// =========================================================================
// HELPER
// =========================================================================

// newTestPasswordService uses a tiny iteration count so tests run in
// milliseconds.
func newTestPasswordService() *PasswordService {
	return NewPasswordService(64)
}

// =========================================================================
// Hash TESTS
// =========================================================================

func TestHash_ReturnsKeyAndSalt(t *testing.T) {
	ps := newTestPasswordService()

	hash, salt, err := ps.Hash("my-secret-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if len(hash) != keySize {
		t.Errorf("len(hash) = %d, want %d", len(hash), keySize)
	}
	if len(salt) != saltSize {
		t.Errorf("len(salt) = %d, want %d", len(salt), saltSize)
	}
}

func TestHash_SamePasswordProducesDifferentSalts(t *testing.T) {
	ps := newTestPasswordService()

	hash1, salt1, _ := ps.Hash("same-password")
	hash2, salt2, _ := ps.Hash("same-password")

	if bytes.Equal(salt1, salt2) {
		t.Error("Hash() reused a salt (salt must be random)")
	}
	if bytes.Equal(hash1, hash2) {
		t.Error("Hash() produced identical keys for the same password")
	}
}

func TestHash_RejectsEmptyPassword(t *testing.T) {
	ps := newTestPasswordService()

	_, _, err := ps.Hash("")
	if !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("Hash(\"\") error = %v, want ErrEmptyPassword", err)
	}
}

func TestNewPasswordService_DefaultIterations(t *testing.T) {
	if got := NewPasswordService(0).iterations; got != DefaultIterations {
		t.Errorf("iterations = %d, want %d", got, DefaultIterations)
	}
}

// =========================================================================
// Verify TESTS
// =========================================================================

func TestVerify_CorrectPassword(t *testing.T) {
	ps := newTestPasswordService()

	hash, salt, err := ps.Hash("pw1")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !ps.Verify("pw1", hash, salt) {
		t.Error("Verify() = false for the correct password")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	ps := newTestPasswordService()

	hash, salt, _ := ps.Hash("pw1")
	if ps.Verify("pw2", hash, salt) {
		t.Error("Verify() = true for a wrong password")
	}
}

func TestVerify_WrongSalt(t *testing.T) {
	ps := newTestPasswordService()

	hash, _, _ := ps.Hash("pw1")
	_, otherSalt, _ := ps.Hash("pw1")
	if ps.Verify("pw1", hash, otherSalt) {
		t.Error("Verify() = true with another hash's salt")
	}
}

func TestVerify_EmptyStoredValues(t *testing.T) {
	ps := newTestPasswordService()

	if ps.Verify("pw1", nil, nil) {
		t.Error("Verify() = true with no stored hash")
	}
}

func TestVerify_IterationCountMatters(t *testing.T) {
	hash, salt, _ := NewPasswordService(64).Hash("pw1")
	if NewPasswordService(65).Verify("pw1", hash, salt) {
		t.Error("Verify() = true with a different iteration count")
	}
}

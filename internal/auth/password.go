package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor used in production.
	DefaultIterations = 210_000

	saltSize = 64
	keySize  = 64
)

// ErrEmptyPassword is returned by Hash for an empty plaintext.
var ErrEmptyPassword = errors.New("auth: password must not be empty")

// PasswordService derives and verifies password hashes. A user row stores
// both halves:
//
//	salt = 64 random bytes (crypto/rand)
//	hash = PBKDF2(HMAC-SHA512, password, salt, iterations, 64 bytes)
//
// The iteration count is injected so tests can run with a small one.
type PasswordService struct {
	iterations int
}

// NewPasswordService creates a PasswordService. A non-positive iteration
// count falls back to DefaultIterations.
func NewPasswordService(iterations int) *PasswordService {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &PasswordService{iterations: iterations}
}

// NewPasswordServiceForTest creates a PasswordService with a low iteration
// count. Use this in tests in other packages. Do NOT use in production.
func NewPasswordServiceForTest() *PasswordService {
	return &PasswordService{iterations: 1000}
}

// Hash derives a key for plaintext with a fresh random salt.
// Store both returned slices; Verify needs the salt back.
func (p *PasswordService) Hash(plaintext string) (hash, salt []byte, err error) {
	if plaintext == "" {
		return nil, nil, ErrEmptyPassword
	}

	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("auth: generating salt: %w", err)
	}

	return p.derive(plaintext, salt), salt, nil
}

// Verify recomputes the key with the stored salt and compares in constant
// time, so response timing does not reveal how many bytes matched.
func (p *PasswordService) Verify(plaintext string, hash, salt []byte) bool {
	if len(hash) == 0 || len(salt) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(p.derive(plaintext, salt), hash) == 1
}

func (p *PasswordService) derive(plaintext string, salt []byte) []byte {
	return pbkdf2.Key([]byte(plaintext), salt, p.iterations, keySize, sha512.New)
}

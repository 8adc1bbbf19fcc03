// Package auth issues and validates the credentials used by the API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /api/auth/login with username + password
//  2. Server verifies the password and returns an access token (JWT) and an
//     opaque refresh token
//  3. Every protected call sends "Authorization: Bearer <access token>";
//     RequireAuth validates it and stores the caller's identity in the context
//  4. When the access token expires, POST /api/auth/refresh trades the refresh
//     token for a new pair. The old refresh token is burned in the process.
//
// Access tokens are stateless: the signature and claims are enough to trust
// them. Refresh tokens are stateful: they live in the database so they can be
// used exactly once and revoked.
//
// JWT STRUCTURE:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS512","typ":"JWT"}
//	- Payload: sub, username, nickname, email, role, iss, aud, iat, exp
//	- Signature: HMAC-SHA512(header+"."+payload, key)
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/expense-ledger/internal/model"
)

// MinKeyLength is the shortest signing key accepted. HS512 wants at least
// as many key bytes as a SHA-256 digest; shorter keys are a startup error.
const MinKeyLength = 32

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour

	refreshTokenBytes = 64
)

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Key        string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService handles JWT creation/validation and refresh-token generation.
type TokenService struct {
	key        []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService validates cfg and returns a TokenService.
// Example key: JWT_KEY=$(openssl rand -hex 32)
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Key) < MinKeyLength {
		return nil, fmt.Errorf("auth: signing key must be at least %d bytes", MinKeyLength)
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("auth: issuer and audience are required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}

	return &TokenService{
		key:        []byte(cfg.Key),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// Claims is the access-token payload. "sub" holds the internal user id.
type Claims struct {
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }

// GenerateAccessToken signs an HS512 access token for user.
// A user without a role is issued the "User" role.
func (s *TokenService) GenerateAccessToken(user *model.User) (string, error) {
	now := s.now()

	role := user.Role
	if role == "" {
		role = model.RoleUser
	}

	c := Claims{
		Username: user.Username,
		Nickname: user.Nickname,
		Email:    user.Email,
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, c)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// ValidateAccessToken parses and verifies a JWT string.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid and the algorithm is HS512 (no "none", no RS/HS confusion)
//   - Token is not expired, and an expiry is present at all
//   - Issuer and audience match this service
func (s *TokenService) ValidateAccessToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}

	return c, nil
}

// GenerateRefreshToken returns a new opaque refresh token (64 random bytes,
// base64) and its expiry. Persisting it is the caller's job.
func (s *TokenService) GenerateRefreshToken() (string, time.Time, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, fmt.Errorf("auth: generating refresh token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), s.now().Add(s.refreshTTL), nil
}

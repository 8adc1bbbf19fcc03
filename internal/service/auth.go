package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/auth"
	"github.com/sakif/expense-ledger/internal/model"
	"github.com/sakif/expense-ledger/internal/repository"
)

// AuthService handles login and refresh-token rotation.
//
// REFRESH TOKEN LIFECYCLE:
//
//	Active ──refresh──▶ Used+Revoked   (terminal)
//	Active ──time────▶ Expired         (terminal, detected on use)
//	Active ──logout──▶ Revoked         (terminal)
//
// A refresh burns the presented token and issues a new one inside a single
// transaction, so a token can be exchanged at most once even under
// concurrent requests.
type AuthService struct {
	users     repository.UserRepository
	refresh   repository.TokenRepository
	tx        repository.Transactor
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthService(
	repos repository.Repositories,
	tx repository.Transactor,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     repos.Users,
		refresh:   repos.Tokens,
		tx:        tx,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		now:       time.Now,
	}
}

// LoginResult is returned by Login.
type LoginResult struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	Nickname     string `json:"nickname"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenPair is returned by Refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

var (
	errInvalidCredentials = apperror.Unauthorized("invalid username or password")
	errInvalidRefresh     = apperror.Unauthorized("invalid or expired refresh token")
)

// Login verifies the credentials and issues an access/refresh pair.
// An unknown username and a wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, errInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if !s.passwords.Verify(password, user.PasswordHash, user.PasswordSalt) {
		s.logger.Info("login rejected", slog.String("userID", user.ID))
		return nil, errInvalidCredentials
	}

	access, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	refresh, err := s.issueRefreshToken(ctx, s.refresh, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &LoginResult{
		UserID:       user.ID,
		Username:     user.Username,
		Nickname:     user.Nickname,
		Email:        user.Email,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Refresh exchanges an active refresh token for a new pair. Missing, used,
// revoked and expired tokens are all reported as the same Unauthorized error.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, errInvalidRefresh
	}

	var pair TokenPair
	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		current, err := r.Tokens.GetByToken(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return errInvalidRefresh
			}
			return err
		}
		if !current.Active(s.now()) {
			return errInvalidRefresh
		}

		won, err := r.Tokens.MarkUsed(ctx, current.ID)
		if err != nil {
			return err
		}
		if !won {
			return errInvalidRefresh
		}

		user, err := r.Users.GetByID(ctx, current.UserID)
		if err != nil {
			return err
		}

		next, err := s.issueRefreshToken(ctx, r.Tokens, user.ID)
		if err != nil {
			return err
		}

		access, err := s.tokens.GenerateAccessToken(user)
		if err != nil {
			return fmt.Errorf("service/auth: %w", err)
		}

		pair = TokenPair{AccessToken: access, RefreshToken: next}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: rotating refresh token: %w", err)
	}

	s.logger.Info("refresh token rotated")
	return &pair, nil
}

// Logout revokes a refresh token. Unknown or already-dead tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.refresh.Revoke(ctx, refreshToken); err != nil {
		return fmt.Errorf("service/auth: revoking refresh token: %w", err)
	}
	return nil
}

// ValidateToken validates an access token and returns its claims.
// Any failure is reported as Unauthorized.
func (s *AuthService) ValidateToken(accessToken string) (*auth.Claims, error) {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, apperror.Unauthorized("invalid access token")
	}
	return claims, nil
}

func (s *AuthService) issueRefreshToken(ctx context.Context, repo repository.TokenRepository, userID string) (string, error) {
	value, expiresAt, err := s.tokens.GenerateRefreshToken()
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}

	if err := repo.Create(ctx, &model.RefreshToken{
		Token:     value,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return "", fmt.Errorf("service/auth: storing refresh token: %w", err)
	}
	return value, nil
}

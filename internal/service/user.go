package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/auth"
	"github.com/sakif/expense-ledger/internal/model"
	"github.com/sakif/expense-ledger/internal/repository"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 3
	MaxNicknameLength = 50
	MaxEmailLength    = 254
)

// UserService manages accounts: registration and profile maintenance.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Username string     `json:"username"`
	Password string     `json:"password"`
	Nickname string     `json:"nickname"`
	Email    string     `json:"email"`
	Role     model.Role `json:"-"`
}

// ProfileInput updates a profile. Blank fields are left unchanged.
type ProfileInput struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user. Usernames are unique (case-sensitive); a taken
// name fails with Conflict. Role defaults to User.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength))
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return nil, apperror.ValidationFailed("username", "username must not contain whitespace")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	nickname, email, err := validateProfileFields(in.Nickname, in.Email)
	if err != nil {
		return nil, err
	}

	role := in.Role
	switch role {
	case "":
		role = model.RoleUser
	case model.RoleUser, model.RoleAdmin:
	default:
		return nil, apperror.ValidationFailed("role", fmt.Sprintf("unknown role %q", role))
	}

	hash, salt, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/user: %w", err)
	}

	user := &model.User{
		Username:     username,
		Nickname:     nickname,
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/user: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetForViewer returns the user with id if viewer is an admin or that user.
func (s *UserService) GetForViewer(ctx context.Context, viewer auth.Identity, id string) (*model.User, error) {
	if !viewer.IsAdmin() && viewer.UserID != id {
		return nil, apperror.Forbidden("you may only view your own profile")
	}
	return s.Get(ctx, id)
}

// UpdateProfile changes nickname, email and password. A new password is
// re-hashed with a fresh salt.
func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	nickname, email, err := validateProfileFields(in.Nickname, in.Email)
	if err != nil {
		return nil, err
	}
	if nickname != "" {
		user.Nickname = nickname
	}
	if email != "" {
		user.Email = email
	}
	if in.Password != "" {
		if err := validatePassword(in.Password); err != nil {
			return nil, err
		}
		hash, salt, err := s.passwords.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("service/user: %w", err)
		}
		user.PasswordHash, user.PasswordSalt = hash, salt
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating user %s: %w", id, err)
	}

	s.logger.Info("user profile updated", slog.String("userID", id))
	return user, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// validateProfileFields trims and checks the optional profile fields.
func validateProfileFields(nickname, email string) (string, string, error) {
	nickname = strings.TrimSpace(nickname)
	email = strings.TrimSpace(email)

	if utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return "", "", apperror.ValidationFailed("nickname",
			fmt.Sprintf("nickname must be %d characters or less", MaxNicknameLength))
	}
	if email != "" {
		at := strings.Index(email, "@")
		if at < 1 || at == len(email)-1 || len(email) > MaxEmailLength {
			return "", "", apperror.ValidationFailed("email", "email address is invalid")
		}
	}
	return nickname, email, nil
}

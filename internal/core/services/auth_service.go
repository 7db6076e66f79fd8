package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/streak"
)

type AuthService struct {
	users domain.UserRepository
}

func NewAuthService(users domain.UserRepository) *AuthService {
	return &AuthService{
		users: users,
	}
}

// RegisterInput may carry the day boundary the client already knows. An
// empty Timezone keeps UTC; a nil GraceHour keeps the default.
type RegisterInput struct {
	Email     string
	Password  string
	Timezone  string
	GraceHour *int
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	user, err := domain.NewUser(uuid.NewString(), input.Email)
	if err != nil {
		return nil, err
	}

	if input.Timezone != "" || input.GraceHour != nil {
		timezone := input.Timezone
		if timezone == "" {
			timezone = domain.DefaultTimezone
		}
		if err := user.SetProfile(timezone, pick(input.GraceHour, streak.DefaultGraceHour)); err != nil {
			return nil, err
		}
	}

	if err := user.SetPassword(input.Password); err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth service: create user: %w", err)
	}
	return user, nil
}

type LoginInput struct {
	Email    string
	Password string
}

// Login answers ErrInvalidCredentials for both an unknown email and a wrong
// password, after the same amount of bcrypt work.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.CheckAbsentPassword(input.Password)
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: load user: %w", err)
	}

	if err := user.CheckPassword(input.Password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

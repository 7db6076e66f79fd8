package services

import (
	"context"
	"fmt"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/domain"
)

type ProfileService struct {
	repo domain.UserRepository
}

func NewProfileService(repo domain.UserRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

type UpdateProfileInput struct {
	UserID    string
	Timezone  string
	GraceHour *int
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// Update changes the timezone and, when given, the grace hour. Stored
// streaks are refreshed lazily on the next entry change.
func (s *ProfileService) Update(ctx context.Context, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	timezone := mergeString(input.Timezone, user.Timezone)
	if err := user.SetProfile(timezone, pick(input.GraceHour, user.GraceHour)); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("profile service: failed to update profile: %w", err)
	}

	return user, nil
}

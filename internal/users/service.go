package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Onboard records the onboarding answers for the authenticated principal.
// It reports whether the user was created rather than updated.
func (s *Service) Onboard(ctx context.Context, user User) (User, bool, error) {
	if s == nil || s.Repo == nil {
		return User{}, false, errors.New("users service not configured")
	}
	user.ID = strings.TrimSpace(user.ID)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Name = strings.TrimSpace(user.Name)
	if user.ID == "" || user.Email == "" {
		return User{}, false, fmt.Errorf("%w: user id and email are required", ErrInvalidInput)
	}

	_, err := s.Repo.GetByID(ctx, user.ID)
	created := errors.Is(err, ErrNotFound)
	if err != nil && !created {
		return User{}, false, err
	}
	if err := s.Repo.Upsert(ctx, user); err != nil {
		return User{}, false, err
	}
	stored, err := s.Repo.GetByID(ctx, user.ID)
	if err != nil {
		return User{}, false, err
	}
	return stored, created, nil
}

// UpsertFromAuth persists the identity returned by an OAuth provider.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("%w: user id and email are required", ErrInvalidInput)
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return s.Repo.Upsert(ctx, user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID)
}

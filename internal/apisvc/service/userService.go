package service

import (
	"context"
	"strings"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/store"
)

type UserService struct {
	userStore *store.UserStore
}

func NewUserService(userStore *store.UserStore) *UserService {
	return &UserService{userStore: userStore}
}

func (s *UserService) CreateUser(ctx context.Context, email, displayName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("a valid email is required")
	}
	if strings.TrimSpace(displayName) == "" {
		return nil, apperr.Validation("displayName is required")
	}

	existing, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Validation("a user with email %s already exists", email)
	}

	return s.userStore.CreateUser(ctx, models.User{
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
	})
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user %d not found", id)
	}
	return u, nil
}

// GetOrCreateByEmail backs the magic-link flow: requesting a link for an
// unknown address registers the user on the spot.
func (s *UserService) GetOrCreateByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("a valid email is required")
	}

	u, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}

	name := email[:strings.Index(email, "@")]
	return s.userStore.CreateUser(ctx, models.User{Email: email, DisplayName: name})
}

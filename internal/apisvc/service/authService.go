package service

import (
	"context"
	"os"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/auth"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"
	log "github.com/sirupsen/logrus"
)

type AuthService struct {
	users  *UserService
	tokens *auth.TokenStore
	jwt    *auth.JWT
}

func NewAuthService(users *UserService, tokens *auth.TokenStore, jwt *auth.JWT) *AuthService {
	return &AuthService{users: users, tokens: tokens, jwt: jwt}
}

// MagicLinkResult echoes the token outside production so preview
// environments can complete the login loop without a mailer.
type MagicLinkResult struct {
	Sent  bool   `json:"sent"`
	Token string `json:"token,omitempty"`
}

// RequestMagicLink creates the user if this is their first visit and issues
// a single-use login token.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string) (*MagicLinkResult, error) {
	user, err := s.users.GetOrCreateByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Create(ctx, user.Email)
	if err != nil {
		return nil, err
	}

	log.Infof("magic link issued for %s", user.Email)

	result := &MagicLinkResult{Sent: true}
	if os.Getenv("APP_ENV") != "production" {
		result.Token = token.Token
	}
	return result, nil
}

// VerifyResult is the login response.
type VerifyResult struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user"`
}

// VerifyMagicLink consumes the token and mints the JWT pair.
func (s *AuthService) VerifyMagicLink(ctx context.Context, token string) (*VerifyResult, error) {
	if token == "" {
		return nil, apperr.Validation("token is required")
	}

	t, err := s.tokens.Consume(ctx, token)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.Unauthorized("invalid or expired magic link")
	}

	user, err := s.users.GetOrCreateByEmail(ctx, t.Email)
	if err != nil {
		return nil, err
	}

	pair, err := s.jwt.MintPair(user)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*VerifyResult, error) {
	userID, access, err := s.jwt.Refresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{AccessToken: access, User: user}, nil
}

package auth

import (
	"context"
	"os"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"
)

const (
	accessTokenTTL  = 1 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// TokenPair is what a successful magic-link verification returns.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// JWT mints and checks the HS256 tokens the verifier middleware consumes.
type JWT struct {
	tokenAuth *jwtauth.JWTAuth
}

func NewJWT() *JWT {
	jwtKey := os.Getenv("JWT_SECRET_KEY")
	return &JWT{tokenAuth: jwtauth.New("HS256", []byte(jwtKey), nil)}
}

// TokenAuth exposes the underlying auth for chi's Verifier middleware.
func (j *JWT) TokenAuth() *jwtauth.JWTAuth { return j.tokenAuth }

// MintPair issues an access and a refresh token for the user. The refresh
// token carries typ=refresh so it cannot be used as a bearer token.
func (j *JWT) MintPair(user *models.User) (*TokenPair, error) {
	now := time.Now()

	_, access, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": user.UserId,
		"email":   user.Email,
		"typ":     "access",
		"exp":     now.Add(accessTokenTTL).Unix(),
	})
	if err != nil {
		return nil, err
	}

	_, refresh, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": user.UserId,
		"typ":     "refresh",
		"exp":     now.Add(refreshTokenTTL).Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh checks a refresh token and issues a fresh access token for its
// user.
func (j *JWT) Refresh(refreshToken string) (int64, string, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, refreshToken)
	if err != nil {
		return 0, "", apperr.Unauthorized("invalid or expired refresh token")
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return 0, "", apperr.Unauthorized("invalid or expired refresh token")
	}

	if typ, _ := claims["typ"].(string); typ != "refresh" {
		return 0, "", apperr.Unauthorized("invalid or expired refresh token")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", apperr.Unauthorized("invalid or expired refresh token")
	}

	_, access, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": int64(userID),
		"typ":     "access",
		"exp":     time.Now().Add(accessTokenTTL).Unix(),
	})
	if err != nil {
		return 0, "", err
	}

	return int64(userID), access, nil
}

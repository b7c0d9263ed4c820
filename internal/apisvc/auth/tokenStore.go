package auth

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const magicLinkTTL = 15 * time.Minute

// MagicLinkToken is a single-use login token. Mongo's TTL index on
// expires_at garbage-collects tokens that were never used.
type MagicLinkToken struct {
	Token     string    `bson:"token"`
	Email     string    `bson:"email"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type TokenStore struct {
	collection *mongo.Collection
}

func NewTokenStore(db *mongo.Database) *TokenStore {
	return &TokenStore{collection: db.Collection("magic_link_tokens")}
}

// Create issues a fresh token for the email.
func (s *TokenStore) Create(ctx context.Context, email string) (*MagicLinkToken, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	token := &MagicLinkToken{
		Token:     id.String(),
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(magicLinkTTL),
	}

	if _, err := s.collection.InsertOne(ctx, token); err != nil {
		return nil, err
	}

	return token, nil
}

// Consume atomically looks up and deletes the token so it can only be used
// once. Returns nil when the token is unknown or already expired.
func (s *TokenStore) Consume(ctx context.Context, token string) (*MagicLinkToken, error) {
	filter := bson.M{
		"token":      token,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}

	t := &MagicLinkToken{}
	err := s.collection.FindOneAndDelete(ctx, filter).Decode(t)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return t, nil
}

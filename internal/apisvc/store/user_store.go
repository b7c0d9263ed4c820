package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

func (r *UserStore) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	query := `
        INSERT INTO users (email, display_name, status)
        VALUES ($1, $2, 'active')
        RETURNING user_id, email, display_name, status, created_at, updated_at;
    `

	u := &models.User{}
	err := r.db.QueryRow(ctx, query, user.Email, user.DisplayName).Scan(
		&u.UserId,
		&u.Email,
		&u.DisplayName,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	return u, nil
}

func (r *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
        SELECT user_id, email, display_name, status, created_at, updated_at
        FROM users
        WHERE user_id = $1
    `, id)

	u := &models.User{}
	err := row.Scan(
		&u.UserId,
		&u.Email,
		&u.DisplayName,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return u, nil
}

func (r *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
        SELECT user_id, email, display_name, status, created_at, updated_at
        FROM users
        WHERE email = $1
    `, email)

	u := &models.User{}
	err := row.Scan(
		&u.UserId,
		&u.Email,
		&u.DisplayName,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return u, nil
}

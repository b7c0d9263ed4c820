package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SportStore struct {
	db *pgxpool.Pool
}

func NewSportStore(db *pgxpool.Pool) *SportStore {
	return &SportStore{db: db}
}

func scanSport(row pgx.Row) (*models.Sport, error) {
	s := &models.Sport{}
	var schema []byte

	err := row.Scan(
		&s.ID,
		&s.Key,
		&s.Name,
		&schema,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(schema) > 0 {
		s.ScoringSchema = &models.ScoringSchema{}
		if err := json.Unmarshal(schema, s.ScoringSchema); err != nil {
			return nil, fmt.Errorf("bad scoring_schema for sport %s: %w", s.Key, err)
		}
	}

	return s, nil
}

func (s *SportStore) ListSports(ctx context.Context) ([]*models.Sport, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, key, name, scoring_schema, created_at, updated_at
		FROM sports
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sports []*models.Sport
	for rows.Next() {
		sp, err := scanSport(rows)
		if err != nil {
			return nil, err
		}
		sports = append(sports, sp)
	}

	return sports, rows.Err()
}

func (s *SportStore) GetByKey(ctx context.Context, key string) (*models.Sport, error) {
	sp, err := scanSport(s.db.QueryRow(ctx, `
		SELECT id, key, name, scoring_schema, created_at, updated_at
		FROM sports
		WHERE key = $1
	`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return sp, nil
}

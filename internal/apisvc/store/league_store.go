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

type LeagueStore struct {
	db *pgxpool.Pool
}

func NewLeagueStore(db *pgxpool.Pool) *LeagueStore {
	return &LeagueStore{db: db}
}

const leagueColumns = `
	id, name, commissioner_id, budget, min_managers, max_managers, club_slots,
	sport_key, invite_token, timer_seconds, anti_snipe_seconds,
	scoring_overrides, assets_selected, status, created_at, updated_at`

func scanLeague(row pgx.Row) (*models.League, error) {
	l := &models.League{}
	var overrides, selected []byte

	err := row.Scan(
		&l.ID,
		&l.Name,
		&l.CommissionerID,
		&l.Budget,
		&l.MinManagers,
		&l.MaxManagers,
		&l.ClubSlots,
		&l.SportKey,
		&l.InviteToken,
		&l.TimerSeconds,
		&l.AntiSnipeSeconds,
		&overrides,
		&selected,
		&l.Status,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(overrides) > 0 {
		l.ScoringOverrides = &models.ScoringSchema{}
		if err := json.Unmarshal(overrides, l.ScoringOverrides); err != nil {
			return nil, fmt.Errorf("bad scoring_overrides for league %d: %w", l.ID, err)
		}
	}
	if len(selected) > 0 {
		if err := json.Unmarshal(selected, &l.AssetsSelected); err != nil {
			return nil, fmt.Errorf("bad assets_selected for league %d: %w", l.ID, err)
		}
	}

	return l, nil
}

// CreateLeague inserts the league and its commissioner as first participant
// in one transaction.
func (s *LeagueStore) CreateLeague(ctx context.Context, l models.League, commissionerName string) (*models.League, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var selected []byte
	if l.AssetsSelected != nil {
		selected, err = json.Marshal(l.AssetsSelected)
		if err != nil {
			return nil, err
		}
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO leagues (
			name, commissioner_id, budget, min_managers, max_managers, club_slots,
			sport_key, invite_token, timer_seconds, anti_snipe_seconds,
			assets_selected, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'open')
		RETURNING `+leagueColumns,
		l.Name, l.CommissionerID, l.Budget, l.MinManagers, l.MaxManagers,
		l.ClubSlots, l.SportKey, l.InviteToken, l.TimerSeconds,
		l.AntiSnipeSeconds, selected,
	)

	created, err := scanLeague(row)
	if err != nil {
		return nil, fmt.Errorf("could not create league: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO participants (league_id, user_id, user_name, budget_remaining, total_spent, clubs_won)
		VALUES ($1, $2, $3, $4, 0, '[]')
	`, created.ID, l.CommissionerID, commissionerName, l.Budget)
	if err != nil {
		return nil, fmt.Errorf("could not add commissioner: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return created, nil
}

func (s *LeagueStore) GetByID(ctx context.Context, id int64) (*models.League, error) {
	l, err := scanLeague(s.db.QueryRow(ctx, `
		SELECT `+leagueColumns+`
		FROM leagues
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

func (s *LeagueStore) List(ctx context.Context) ([]*models.League, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+leagueColumns+`
		FROM leagues
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leagues []*models.League
	for rows.Next() {
		l, err := scanLeague(rows)
		if err != nil {
			return nil, err
		}
		leagues = append(leagues, l)
	}
	return leagues, rows.Err()
}

func (s *LeagueStore) ListByUser(ctx context.Context, userID int64) ([]*models.League, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+leagueColumns+`
		FROM leagues
		WHERE id IN (SELECT league_id FROM participants WHERE user_id = $1)
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leagues []*models.League
	for rows.Next() {
		l, err := scanLeague(rows)
		if err != nil {
			return nil, err
		}
		leagues = append(leagues, l)
	}
	return leagues, rows.Err()
}

func (s *LeagueStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM leagues WHERE id = $1`, id)
	return err
}

func (s *LeagueStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE leagues SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	return err
}

func (s *LeagueStore) UpdateScoringOverrides(ctx context.Context, id int64, schema *models.ScoringSchema) error {
	payload, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		UPDATE leagues SET scoring_overrides = $2, updated_at = now() WHERE id = $1
	`, id, payload)
	return err
}

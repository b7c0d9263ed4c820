package store

import (
	"context"
	"fmt"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FixtureStore struct {
	db *pgxpool.Pool
}

func NewFixtureStore(db *pgxpool.Pool) *FixtureStore {
	return &FixtureStore{db: db}
}

// UpsertFixture keys on (league_id, match_id) so re-importing a fixture CSV
// updates rather than duplicates.
func (s *FixtureStore) UpsertFixture(ctx context.Context, f *models.Fixture) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO fixtures (league_id, match_id, starts_at, home_team, away_team)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (league_id, match_id)
		DO UPDATE SET
			starts_at = EXCLUDED.starts_at,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			updated_at = now()
	`, f.LeagueID, f.MatchID, f.StartsAt, f.HomeTeam, f.AwayTeam)
	if err != nil {
		return fmt.Errorf("could not upsert fixture: %w", err)
	}
	return nil
}

func (s *FixtureStore) ListByLeague(ctx context.Context, leagueID int64) ([]*models.Fixture, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, league_id, match_id, starts_at, home_team, away_team, created_at, updated_at
		FROM fixtures
		WHERE league_id = $1
		ORDER BY starts_at, id
	`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixtures []*models.Fixture
	for rows.Next() {
		f := &models.Fixture{}
		err := rows.Scan(
			&f.ID,
			&f.LeagueID,
			&f.MatchID,
			&f.StartsAt,
			&f.HomeTeam,
			&f.AwayTeam,
			&f.CreatedAt,
			&f.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, rows.Err()
}

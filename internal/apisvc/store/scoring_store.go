package store

import (
	"context"
	"fmt"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ScoringStore struct {
	db *pgxpool.Pool
}

func NewScoringStore(db *pgxpool.Pool) *ScoringStore {
	return &ScoringStore{db: db}
}

// UpsertPerformance writes one scored CSV row. The unique index on
// (league_id, match_id, player_external_id) makes re-ingesting the same file
// idempotent: the row is overwritten, never double counted.
func (s *ScoringStore) UpsertPerformance(ctx context.Context, p *models.Performance) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO scoring_performances (
			league_id, match_id, player_external_id,
			runs, wickets, catches, stumpings, run_outs, points
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (league_id, match_id, player_external_id)
		DO UPDATE SET
			runs = EXCLUDED.runs,
			wickets = EXCLUDED.wickets,
			catches = EXCLUDED.catches,
			stumpings = EXCLUDED.stumpings,
			run_outs = EXCLUDED.run_outs,
			points = EXCLUDED.points,
			updated_at = now()
	`, p.LeagueID, p.MatchID, p.PlayerExternalID,
		p.Runs, p.Wickets, p.Catches, p.Stumpings, p.RunOuts, p.Points)
	if err != nil {
		return fmt.Errorf("could not upsert performance: %w", err)
	}
	return nil
}

// Leaderboard aggregates per-player totals across all ingested matches,
// joining asset names where the external id is known.
func (s *ScoringStore) Leaderboard(ctx context.Context, leagueID int64) ([]*models.LeaderboardEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT sp.league_id, sp.player_external_id,
		       COALESCE(a.name, ''), SUM(sp.points), MAX(sp.updated_at)
		FROM scoring_performances sp
		LEFT JOIN assets a
		  ON a.external_id = sp.player_external_id AND a.sport_key = 'cricket'
		WHERE sp.league_id = $1
		GROUP BY sp.league_id, sp.player_external_id, a.name
		ORDER BY SUM(sp.points) DESC, sp.player_external_id
	`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	for rows.Next() {
		e := &models.LeaderboardEntry{}
		err := rows.Scan(
			&e.LeagueID,
			&e.PlayerExternalID,
			&e.PlayerName,
			&e.TotalPoints,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TotalsForPlayers returns summed points keyed by external id, for standings.
func (s *ScoringStore) TotalsForPlayers(ctx context.Context, leagueID int64) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT player_external_id, SUM(points)::text
		FROM scoring_performances
		WHERE league_id = $1
		GROUP BY player_external_id
	`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]string)
	for rows.Next() {
		var id, points string
		if err := rows.Scan(&id, &points); err != nil {
			return nil, err
		}
		totals[id] = points
	}
	return totals, rows.Err()
}

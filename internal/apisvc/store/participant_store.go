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

type ParticipantStore struct {
	db *pgxpool.Pool
}

func NewParticipantStore(db *pgxpool.Pool) *ParticipantStore {
	return &ParticipantStore{db: db}
}

const participantColumns = `
	id, league_id, user_id, user_name, budget_remaining, total_spent, clubs_won,
	created_at, updated_at`

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	p := &models.Participant{}
	var clubs []byte

	err := row.Scan(
		&p.ID,
		&p.LeagueID,
		&p.UserID,
		&p.UserName,
		&p.BudgetRemaining,
		&p.TotalSpent,
		&clubs,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(clubs) > 0 {
		if err := json.Unmarshal(clubs, &p.ClubsWon); err != nil {
			return nil, fmt.Errorf("bad clubs_won for participant %d: %w", p.ID, err)
		}
	}

	return p, nil
}

func (s *ParticipantStore) ListByLeague(ctx context.Context, leagueID int64) ([]*models.Participant, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE league_id = $1
		ORDER BY id
	`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *ParticipantStore) GetByLeagueAndUser(ctx context.Context, leagueID, userID int64) (*models.Participant, error) {
	p, err := scanParticipant(s.db.QueryRow(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE league_id = $1 AND user_id = $2
	`, leagueID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ErrLeagueFull is returned when a join would exceed max_managers.
var ErrLeagueFull = errors.New("league is full")

// AddParticipantIfRoom joins a user to a league. The CTE locks the league row
// so a concurrent join cannot push membership past max_managers. It fails on
// the unique (league_id, user_id) constraint if the user already joined.
func (s *ParticipantStore) AddParticipantIfRoom(ctx context.Context, leagueID, userID int64, userName string, budget int64) (*models.Participant, error) {
	query := `
WITH locked_league AS (
  SELECT id, max_managers
  FROM leagues
  WHERE id = $1
  FOR UPDATE
)
INSERT INTO participants (league_id, user_id, user_name, budget_remaining, total_spent, clubs_won)
SELECT ll.id, $2, $3, $4, 0, '[]'
FROM locked_league ll
WHERE (SELECT COUNT(*) FROM participants WHERE league_id = ll.id) < ll.max_managers
RETURNING ` + participantColumns

	p, err := scanParticipant(s.db.QueryRow(ctx, query, leagueID, userID, userName, budget))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeagueFull
		}
		return nil, fmt.Errorf("could not join league: %w", err)
	}

	return p, nil
}

// Save writes back the mutable fields. Used when an open auction is
// discarded and every manager's budget and roster reset.
func (s *ParticipantStore) Save(ctx context.Context, p *models.Participant) error {
	clubs := []byte("[]")
	if p.ClubsWon != nil {
		var err error
		clubs, err = json.Marshal(p.ClubsWon)
		if err != nil {
			return err
		}
	}

	_, err := s.db.Exec(ctx, `
		UPDATE participants
		SET budget_remaining = $2, total_spent = $3, clubs_won = $4, updated_at = now()
		WHERE id = $1
	`, p.ID, p.BudgetRemaining, p.TotalSpent, clubs)
	return err
}

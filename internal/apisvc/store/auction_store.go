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

type AuctionStore struct {
	db *pgxpool.Pool
}

func NewAuctionStore(db *pgxpool.Pool) *AuctionStore {
	return &AuctionStore{db: db}
}

const auctionColumns = `
	id, league_id, status, club_queue, current_lot, current_club_id,
	timer_ends_at, paused_ms, bid_sequence, created_at, updated_at`

func scanAuction(row pgx.Row) (*models.Auction, error) {
	a := &models.Auction{}
	var queue []byte

	err := row.Scan(
		&a.ID,
		&a.LeagueID,
		&a.Status,
		&queue,
		&a.CurrentLot,
		&a.CurrentClubID,
		&a.TimerEndsAt,
		&a.PausedMs,
		&a.BidSequence,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(queue) > 0 {
		if err := json.Unmarshal(queue, &a.ClubQueue); err != nil {
			return nil, fmt.Errorf("bad club_queue for auction %d: %w", a.ID, err)
		}
	}

	return a, nil
}

// CreateAuction inserts a waiting auction. The CTE guard refuses when the
// league already has an auction that is not completed.
func (s *AuctionStore) CreateAuction(ctx context.Context, leagueID int64, clubQueue []int64) (*models.Auction, error) {
	queue, err := json.Marshal(clubQueue)
	if err != nil {
		return nil, err
	}

	query := `
WITH existing AS (
  SELECT id FROM auctions
  WHERE league_id = $1 AND status IN ('waiting', 'active', 'paused')
)
INSERT INTO auctions (league_id, status, club_queue, current_lot, current_club_id, paused_ms, bid_sequence)
SELECT $1, 'waiting', $2, 0, 0, 0, 0
WHERE NOT EXISTS (SELECT 1 FROM existing)
RETURNING ` + auctionColumns

	a, err := scanAuction(s.db.QueryRow(ctx, query, leagueID, queue))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAuctionExists
		}
		return nil, fmt.Errorf("could not create auction: %w", err)
	}

	return a, nil
}

var ErrAuctionExists = errors.New("league already has an open auction")

func (s *AuctionStore) GetByID(ctx context.Context, id int64) (*models.Auction, error) {
	a, err := scanAuction(s.db.QueryRow(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// GetLatestByLeague returns the league's most recent auction, open or
// completed, or nil when the league never auctioned.
func (s *AuctionStore) GetLatestByLeague(ctx context.Context, leagueID int64) (*models.Auction, error) {
	a, err := scanAuction(s.db.QueryRow(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE league_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, leagueID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// ListOpen returns every auction that is not completed, for actor restore at
// service boot.
func (s *AuctionStore) ListOpen(ctx context.Context) ([]*models.Auction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE status IN ('waiting', 'active', 'paused')
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*models.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

// SaveState writes back the mutable auction fields.
func (s *AuctionStore) SaveState(ctx context.Context, a *models.Auction) error {
	_, err := s.db.Exec(ctx, `
		UPDATE auctions
		SET status = $2, current_lot = $3, current_club_id = $4,
		    timer_ends_at = $5, paused_ms = $6, bid_sequence = $7,
		    updated_at = now()
		WHERE id = $1
	`, a.ID, a.Status, a.CurrentLot, a.CurrentClubID, a.TimerEndsAt, a.PausedMs, a.BidSequence)
	return err
}

func (s *AuctionStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM auctions WHERE id = $1`, id)
	return err
}

// SettleLot commits one lot resolution atomically: the lot result row, the
// winner's budget and roster (for sold lots), the advanced auction state and,
// when the auction completes, the league status.
func (s *AuctionStore) SettleLot(ctx context.Context, a *models.Auction, result *models.LotResult, winner *models.Participant, leagueStatus string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO auction_lots (auction_id, lot, club_id, status, winner_user_id, amount)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0), $6)
	`, result.AuctionID, result.Lot, result.ClubID, result.Status, result.WinnerUserID, result.Amount)
	if err != nil {
		return fmt.Errorf("could not record lot result: %w", err)
	}

	if winner != nil {
		clubs, err := json.Marshal(winner.ClubsWon)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE participants
			SET budget_remaining = $2, total_spent = $3, clubs_won = $4, updated_at = now()
			WHERE id = $1
		`, winner.ID, winner.BudgetRemaining, winner.TotalSpent, clubs)
		if err != nil {
			return fmt.Errorf("could not update winner: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE auctions
		SET status = $2, current_lot = $3, current_club_id = $4,
		    timer_ends_at = $5, paused_ms = $6, bid_sequence = $7,
		    updated_at = now()
		WHERE id = $1
	`, a.ID, a.Status, a.CurrentLot, a.CurrentClubID, a.TimerEndsAt, a.PausedMs, a.BidSequence)
	if err != nil {
		return fmt.Errorf("could not update auction: %w", err)
	}

	if leagueStatus != "" {
		_, err = tx.Exec(ctx, `
			UPDATE leagues SET status = $2, updated_at = now() WHERE id = $1
		`, a.LeagueID, leagueStatus)
		if err != nil {
			return fmt.Errorf("could not update league status: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListLotResults returns resolved lots for an auction in lot order.
func (s *AuctionStore) ListLotResults(ctx context.Context, auctionID int64) ([]*models.LotResult, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, auction_id, lot, club_id, status, COALESCE(winner_user_id, 0), amount, created_at
		FROM auction_lots
		WHERE auction_id = $1
		ORDER BY lot
	`, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.LotResult
	for rows.Next() {
		lr := &models.LotResult{}
		err := rows.Scan(
			&lr.ID,
			&lr.AuctionID,
			&lr.Lot,
			&lr.ClubID,
			&lr.Status,
			&lr.WinnerUserID,
			&lr.Amount,
			&lr.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, lr)
	}
	return results, rows.Err()
}

package store

import (
	"context"
	"fmt"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type BidStore struct {
	db *pgxpool.Pool
}

func NewBidStore(db *pgxpool.Pool) *BidStore {
	return &BidStore{db: db}
}

// InsertBid persists an accepted bid together with the auction's advanced
// bid_sequence, so the gap-free seq survives a restart.
func (s *BidStore) InsertBid(ctx context.Context, b *models.Bid) (*models.Bid, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO bids (auction_id, user_id, club_id, lot, amount, seq)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, b.AuctionID, b.UserID, b.ClubID, b.Lot, b.Amount, b.Seq)

	if err := row.Scan(&b.ID, &b.CreatedAt); err != nil {
		return nil, fmt.Errorf("could not insert bid: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE auctions SET bid_sequence = $2, updated_at = now() WHERE id = $1
	`, b.AuctionID, b.Seq)
	if err != nil {
		return nil, fmt.Errorf("could not advance bid sequence: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *BidStore) ListByAuction(ctx context.Context, auctionID int64) ([]*models.Bid, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, auction_id, user_id, club_id, lot, amount, seq, created_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY seq
	`, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*models.Bid
	for rows.Next() {
		b := &models.Bid{}
		err := rows.Scan(
			&b.ID,
			&b.AuctionID,
			&b.UserID,
			&b.ClubID,
			&b.Lot,
			&b.Amount,
			&b.Seq,
			&b.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// HighestForLot returns the top bid of one lot, or nil when the lot has no
// bids yet. Used when restoring an auction actor after a restart.
func (s *BidStore) HighestForLot(ctx context.Context, auctionID int64, lot int) (*models.Bid, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, auction_id, user_id, club_id, lot, amount, seq, created_at
		FROM bids
		WHERE auction_id = $1 AND lot = $2
		ORDER BY amount DESC, seq ASC
		LIMIT 1
	`, auctionID, lot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	b := &models.Bid{}
	err = rows.Scan(
		&b.ID,
		&b.AuctionID,
		&b.UserID,
		&b.ClubID,
		&b.Lot,
		&b.Amount,
		&b.Seq,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

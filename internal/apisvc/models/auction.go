package models

import "time"

const (
	AuctionWaiting   = "waiting"
	AuctionActive    = "active"
	AuctionPaused    = "paused"
	AuctionCompleted = "completed"
)

// Lot result statuses, see auction_lots.
const (
	LotPending = "pending"
	LotSold    = "sold"
	LotUnsold  = "unsold"
)

type Auction struct {
	ID            int64      `json:"id"`
	LeagueID      int64      `json:"league_id"`
	Status        string     `json:"status"`
	ClubQueue     []int64    `json:"club_queue"`
	CurrentLot    int        `json:"current_lot"` // 0 before begin, 1-based after
	CurrentClubID int64      `json:"current_club_id"`
	TimerEndsAt   *time.Time `json:"timer_ends_at,omitempty"`
	PausedMs      int64      `json:"paused_ms,omitempty"` // remaining lot time frozen on pause
	BidSequence   int64      `json:"bid_sequence"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Bid struct {
	ID        int64     `json:"id"`
	AuctionID int64     `json:"auction_id"`
	UserID    int64     `json:"user_id"`
	ClubID    int64     `json:"club_id"`
	Lot       int       `json:"lot"`
	Amount    int64     `json:"amount"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// LotResult records how one lot ended. Winner fields are zero for unsold lots.
type LotResult struct {
	ID           int64     `json:"id"`
	AuctionID    int64     `json:"auction_id"`
	Lot          int       `json:"lot"`
	ClubID       int64     `json:"club_id"`
	Status       string    `json:"status"` // 'sold' or 'unsold'
	WinnerUserID int64     `json:"winner_user_id,omitempty"`
	Amount       int64     `json:"amount,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

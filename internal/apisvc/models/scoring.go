package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Performance is one ingested CSV row, scored. The unique constraint on
// (league_id, match_id, player_external_id) makes re-ingestion idempotent.
type Performance struct {
	ID               int64           `json:"id"`
	LeagueID         int64           `json:"league_id"`
	MatchID          string          `json:"match_id"`
	PlayerExternalID string          `json:"player_external_id"`
	Runs             int64           `json:"runs"`
	Wickets          int64           `json:"wickets"`
	Catches          int64           `json:"catches"`
	Stumpings        int64           `json:"stumpings"`
	RunOuts          int64           `json:"run_outs"`
	Points           decimal.Decimal `json:"points"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// LeaderboardEntry is a per-player aggregate over all ingested matches.
type LeaderboardEntry struct {
	LeagueID         int64           `json:"league_id"`
	PlayerExternalID string          `json:"player_external_id"`
	PlayerName       string          `json:"player_name,omitempty"`
	TotalPoints      decimal.Decimal `json:"total_points"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

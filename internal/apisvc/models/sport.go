package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Milestone is a fixed bonus awarded when a single-match stat reaches a
// threshold, e.g. halfCentury at 50 runs.
type Milestone struct {
	Enabled   bool            `json:"enabled"`
	Points    decimal.Decimal `json:"points"`
	Threshold int64           `json:"threshold"`
}

// ScoringSchema is either a sport's default scoring or a league override.
// Rules map stat names (run, wicket, catch, stumping, runOut) to points per
// unit of that stat.
type ScoringSchema struct {
	Rules      map[string]decimal.Decimal `json:"rules"`
	Milestones map[string]Milestone       `json:"milestones,omitempty"`
}

type Sport struct {
	ID            int64          `json:"id"`
	Key           string         `json:"key"` // 'football', 'cricket'
	Name          string         `json:"name"`
	ScoringSchema *ScoringSchema `json:"scoring_schema,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

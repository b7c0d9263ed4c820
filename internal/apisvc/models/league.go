package models

import "time"

// League statuses mirror what clients see in league_status_changed events.
const (
	LeagueStatusOpen      = "open"    // collecting managers
	LeagueStatusAuction   = "auction" // an auction is waiting/active/paused
	LeagueStatusActive    = "active"  // rosters settled, scoring in play
)

type League struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	CommissionerID   int64          `json:"commissioner_id"`
	Budget           int64          `json:"budget"` // pounds per manager
	MinManagers      int            `json:"min_managers"`
	MaxManagers      int            `json:"max_managers"`
	ClubSlots        int            `json:"club_slots"`
	SportKey         string         `json:"sport_key"`
	InviteToken      string         `json:"invite_token,omitempty"`
	TimerSeconds     int            `json:"timer_seconds"`
	AntiSnipeSeconds int            `json:"anti_snipe_seconds"`
	ScoringOverrides *ScoringSchema `json:"scoring_overrides,omitempty"` // cricket only
	AssetsSelected   []int64        `json:"assets_selected,omitempty"`
	Status           string         `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

package models

import "time"

// AssetMeta carries sport specific attributes that have no column of their
// own (cricket franchise and playing role).
type AssetMeta struct {
	Franchise string `json:"franchise,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Asset is a biddable club or player, depending on the sport.
type Asset struct {
	ID         int64     `json:"id"`
	SportKey   string    `json:"sport_key"`
	Name       string    `json:"name"`
	UefaID     string    `json:"uefa_id,omitempty"`     // football clubs
	Country    string    `json:"country,omitempty"`     // football clubs
	ExternalID string    `json:"external_id,omitempty"` // cricket players
	Meta       AssetMeta `json:"meta,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

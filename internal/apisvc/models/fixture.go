package models

import "time"

type Fixture struct {
	ID        int64     `json:"id"`
	LeagueID  int64     `json:"league_id"`
	MatchID   string    `json:"match_id"`
	StartsAt  time.Time `json:"starts_at"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

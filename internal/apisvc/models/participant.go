package models

import "time"

// Participant is one manager inside a league. BudgetRemaining always equals
// the league budget minus TotalSpent; both are updated together when a lot
// is won.
type Participant struct {
	ID              int64     `json:"id"`
	LeagueID        int64     `json:"league_id"`
	UserID          int64     `json:"user_id"`
	UserName        string    `json:"user_name"`
	BudgetRemaining int64     `json:"budget_remaining"`
	TotalSpent      int64     `json:"total_spent"`
	ClubsWon        []int64   `json:"clubs_won"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

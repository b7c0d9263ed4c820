package service

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/store"
)

var requiredFixtureColumns = []string{"matchId", "startsAt", "homeTeam", "awayTeam"}

type FixtureService struct {
	fixtureStore *store.FixtureStore
	leagueStore  *store.LeagueStore
}

func NewFixtureService(fixtureStore *store.FixtureStore, leagueStore *store.LeagueStore) *FixtureService {
	return &FixtureService{fixtureStore: fixtureStore, leagueStore: leagueStore}
}

func (s *FixtureService) List(ctx context.Context, leagueID int64) ([]*models.Fixture, error) {
	league, err := s.leagueStore.GetByID(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if league == nil {
		return nil, apperr.NotFound("league %d not found", leagueID)
	}
	return s.fixtureStore.ListByLeague(ctx, leagueID)
}

// ImportResult summarises one fixture CSV import.
type ImportResult struct {
	RowsImported int `json:"rows_imported"`
}

// ImportCSV upserts fixture rows keyed by (league, matchId); re-importing
// updates kickoff times instead of duplicating rows.
func (s *FixtureService) ImportCSV(ctx context.Context, leagueID, userID int64, file io.Reader) (*ImportResult, error) {
	league, err := s.leagueStore.GetByID(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if league == nil {
		return nil, apperr.NotFound("league %d not found", leagueID)
	}
	if league.CommissionerID != userID {
		return nil, apperr.Forbidden("only the league commissioner can import fixtures")
	}

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperr.Validation("CSV file is empty or unreadable")
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range requiredFixtureColumns {
		if _, ok := col[required]; !ok {
			return nil, apperr.Validation("CSV missing required column: %s", required)
		}
	}

	imported := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.Validation("line %d: malformed CSV row", line)
		}

		startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(record[col["startsAt"]]))
		if err != nil {
			return nil, apperr.Validation("line %d: startsAt must be RFC3339", line)
		}

		fixture := &models.Fixture{
			LeagueID: leagueID,
			MatchID:  strings.TrimSpace(record[col["matchId"]]),
			StartsAt: startsAt,
			HomeTeam: strings.TrimSpace(record[col["homeTeam"]]),
			AwayTeam: strings.TrimSpace(record[col["awayTeam"]]),
		}
		if fixture.MatchID == "" {
			return nil, apperr.Validation("line %d: matchId is required", line)
		}

		if err := s.fixtureStore.UpsertFixture(ctx, fixture); err != nil {
			return nil, err
		}
		imported++
	}

	return &ImportResult{RowsImported: imported}, nil
}

package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/store"
	"github.com/shopspring/decimal"
)

// The five base stats every cricket scoring rule set must cover.
var baseRules = []string{"run", "wicket", "catch", "stumping", "runOut"}

// Which stat each milestone bonus keys on.
var milestoneStats = map[string]string{
	"halfCentury":    "run",
	"century":        "run",
	"fiveWicketHaul": "wicket",
}

var requiredCSVColumns = []string{
	"matchId", "playerExternalId", "runs", "wickets", "catches", "stumpings", "runOuts",
}

type ScoringService struct {
	scoringStore *store.ScoringStore
	leagueStore  *store.LeagueStore
	sportStore   *store.SportStore
}

func NewScoringService(scoringStore *store.ScoringStore, leagueStore *store.LeagueStore, sportStore *store.SportStore) *ScoringService {
	return &ScoringService{
		scoringStore: scoringStore,
		leagueStore:  leagueStore,
		sportStore:   sportStore,
	}
}

// statValue pulls the stat a rule or milestone refers to out of a performance.
func statValue(p *models.Performance, stat string) int64 {
	switch stat {
	case "run":
		return p.Runs
	case "wicket":
		return p.Wickets
	case "catch":
		return p.Catches
	case "stumping":
		return p.Stumpings
	case "runOut":
		return p.RunOuts
	}
	return 0
}

// ComputePoints applies a scoring schema to one match performance:
// rule points per stat unit plus each enabled milestone bonus whose
// threshold the performance reaches.
func ComputePoints(schema *models.ScoringSchema, p *models.Performance) decimal.Decimal {
	points := decimal.Zero
	if schema == nil {
		return points
	}

	for stat, perUnit := range schema.Rules {
		v := statValue(p, stat)
		if v != 0 {
			points = points.Add(perUnit.Mul(decimal.NewFromInt(v)))
		}
	}

	for name, m := range schema.Milestones {
		if !m.Enabled {
			continue
		}
		stat, ok := milestoneStats[name]
		if !ok {
			continue
		}
		if statValue(p, stat) >= m.Threshold {
			points = points.Add(m.Points)
		}
	}

	return points
}

// schemaForLeague resolves the effective rule set: league overrides win,
// otherwise the sport default applies.
func (s *ScoringService) schemaForLeague(ctx context.Context, league *models.League) (*models.ScoringSchema, error) {
	if league.ScoringOverrides != nil {
		return league.ScoringOverrides, nil
	}

	sport, err := s.sportStore.GetByKey(ctx, league.SportKey)
	if err != nil {
		return nil, err
	}
	if sport == nil || sport.ScoringSchema == nil {
		return nil, apperr.Validation("sport %s has no scoring schema", league.SportKey)
	}
	return sport.ScoringSchema, nil
}

// IngestResult summarises one CSV ingestion.
type IngestResult struct {
	RowsIngested int `json:"rows_ingested"`
}

// Ingest scores a cricket performance CSV and upserts every row. Rows are
// keyed by (league, match, player), so feeding the same file twice leaves
// the leaderboard unchanged.
func (s *ScoringService) Ingest(ctx context.Context, leagueID int64, file io.Reader) (*IngestResult, error) {
	league, err := s.leagueStore.GetByID(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if league == nil {
		return nil, apperr.NotFound("league %d not found", leagueID)
	}
	if league.SportKey != "cricket" {
		return nil, apperr.Validation("scoring ingestion is only available for cricket leagues")
	}

	schema, err := s.schemaForLeague(ctx, league)
	if err != nil {
		return nil, err
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
	for _, required := range requiredCSVColumns {
		if _, ok := col[required]; !ok {
			return nil, apperr.Validation("CSV missing required column: %s", required)
		}
	}

	readStat := func(record []string, name string, line int) (int64, error) {
		raw := strings.TrimSpace(record[col[name]])
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, apperr.Validation("line %d: %s is not a number", line, name)
		}
		return v, nil
	}

	ingested := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.Validation("line %d: malformed CSV row", line)
		}

		perf := &models.Performance{
			LeagueID:         leagueID,
			MatchID:          strings.TrimSpace(record[col["matchId"]]),
			PlayerExternalID: strings.TrimSpace(record[col["playerExternalId"]]),
		}
		if perf.MatchID == "" || perf.PlayerExternalID == "" {
			return nil, apperr.Validation("line %d: matchId and playerExternalId are required", line)
		}

		if perf.Runs, err = readStat(record, "runs", line); err != nil {
			return nil, err
		}
		if perf.Wickets, err = readStat(record, "wickets", line); err != nil {
			return nil, err
		}
		if perf.Catches, err = readStat(record, "catches", line); err != nil {
			return nil, err
		}
		if perf.Stumpings, err = readStat(record, "stumpings", line); err != nil {
			return nil, err
		}
		if perf.RunOuts, err = readStat(record, "runOuts", line); err != nil {
			return nil, err
		}

		perf.Points = ComputePoints(schema, perf)

		if err := s.scoringStore.UpsertPerformance(ctx, perf); err != nil {
			return nil, err
		}
		ingested++
	}

	return &IngestResult{RowsIngested: ingested}, nil
}

func (s *ScoringService) Leaderboard(ctx context.Context, leagueID int64) ([]*models.LeaderboardEntry, error) {
	league, err := s.leagueStore.GetByID(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if league == nil {
		return nil, apperr.NotFound("league %d not found", leagueID)
	}
	return s.scoringStore.Leaderboard(ctx, leagueID)
}

// ParseOverrides validates a raw scoring-overrides body. All five base rules
// must be present and numeric; milestone `enabled` must be boolean with
// numeric points and threshold. Partial rule sets are rejected rather than
// merged with the sport defaults.
func ParseOverrides(raw []byte) (*models.ScoringSchema, error) {
	var body struct {
		Rules      map[string]json.RawMessage `json:"rules"`
		Milestones map[string]json.RawMessage `json:"milestones"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, apperr.Validation("scoring overrides must be a JSON object")
	}
	if body.Rules == nil {
		return nil, apperr.Validation("Invalid or missing rule set")
	}

	schema := &models.ScoringSchema{
		Rules: make(map[string]decimal.Decimal, len(baseRules)),
	}

	for _, name := range baseRules {
		rawVal, ok := body.Rules[name]
		if !ok {
			return nil, apperr.Validation("Invalid or missing rule: %s", name)
		}
		if !isJSONNumber(rawVal) {
			return nil, apperr.Validation("Invalid or missing rule: %s must be numeric", name)
		}
		var v decimal.Decimal
		if err := json.Unmarshal(rawVal, &v); err != nil {
			return nil, apperr.Validation("Invalid or missing rule: %s must be numeric", name)
		}
		schema.Rules[name] = v
	}
	for name := range body.Rules {
		if _, ok := schema.Rules[name]; !ok {
			return nil, apperr.Validation("Invalid or missing rule: unknown rule %s", name)
		}
	}

	if len(body.Milestones) > 0 {
		schema.Milestones = make(map[string]models.Milestone, len(body.Milestones))
		for name, rawMilestone := range body.Milestones {
			if _, ok := milestoneStats[name]; !ok {
				return nil, apperr.Validation("unknown milestone: %s", name)
			}

			var m struct {
				Enabled   json.RawMessage `json:"enabled"`
				Points    json.RawMessage `json:"points"`
				Threshold json.RawMessage `json:"threshold"`
			}
			if err := json.Unmarshal(rawMilestone, &m); err != nil {
				return nil, apperr.Validation("milestone %s must be an object", name)
			}

			var milestone models.Milestone
			if m.Enabled == nil || (!strings.EqualFold(string(m.Enabled), "true") && !strings.EqualFold(string(m.Enabled), "false")) {
				return nil, apperr.Validation("milestone %s: enabled must be boolean", name)
			}
			milestone.Enabled = string(m.Enabled) == "true"

			if m.Points == nil || !isJSONNumber(m.Points) {
				return nil, apperr.Validation("milestone %s: points must be numeric", name)
			}
			if err := json.Unmarshal(m.Points, &milestone.Points); err != nil {
				return nil, apperr.Validation("milestone %s: points must be numeric", name)
			}

			if m.Threshold == nil || !isJSONNumber(m.Threshold) {
				return nil, apperr.Validation("milestone %s: threshold must be numeric", name)
			}
			if err := json.Unmarshal(m.Threshold, &milestone.Threshold); err != nil {
				return nil, apperr.Validation("milestone %s: threshold must be numeric", name)
			}

			schema.Milestones[name] = milestone
		}
	}

	return schema, nil
}

// UpdateOverrides applies a validated override set to a cricket league.
func (s *ScoringService) UpdateOverrides(ctx context.Context, leagueID, userID int64, raw []byte) (*models.ScoringSchema, error) {
	league, err := s.leagueStore.GetByID(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if league == nil {
		return nil, apperr.NotFound("league %d not found", leagueID)
	}
	if league.CommissionerID != userID {
		return nil, apperr.Forbidden("only the league commissioner can change scoring overrides")
	}
	if league.SportKey != "cricket" {
		return nil, apperr.Validation("scoring overrides are only available for cricket leagues")
	}

	schema, err := ParseOverrides(raw)
	if err != nil {
		return nil, err
	}

	if err := s.leagueStore.UpdateScoringOverrides(ctx, leagueID, schema); err != nil {
		return nil, err
	}

	return schema, nil
}

func isJSONNumber(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}


package service

import (
	"testing"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cricketSchema() *models.ScoringSchema {
	return &models.ScoringSchema{
		Rules: map[string]decimal.Decimal{
			"run":      decimal.NewFromInt(1),
			"wicket":   decimal.NewFromInt(25),
			"catch":    decimal.NewFromInt(10),
			"stumping": decimal.NewFromInt(15),
			"runOut":   decimal.NewFromInt(10),
		},
		Milestones: map[string]models.Milestone{
			"halfCentury":    {Enabled: true, Points: decimal.NewFromInt(20), Threshold: 50},
			"century":        {Enabled: true, Points: decimal.NewFromInt(50), Threshold: 100},
			"fiveWicketHaul": {Enabled: true, Points: decimal.NewFromInt(50), Threshold: 5},
		},
	}
}

func TestComputePoints(t *testing.T) {
	schema := cricketSchema()

	cases := []struct {
		name string
		perf models.Performance
		want string
	}{
		{
			name: "all rounder with half century bonus",
			perf: models.Performance{Runs: 75, Wickets: 3, Catches: 1, Stumpings: 1},
			want: "195", // 75 + 75 + 10 + 15 + 20
		},
		{
			name: "century stacks with half century",
			perf: models.Performance{Runs: 100},
			want: "170", // 100 + 20 + 50
		},
		{
			name: "five wicket haul",
			perf: models.Performance{Wickets: 5},
			want: "175", // 125 + 50
		},
		{
			name: "threshold not reached",
			perf: models.Performance{Runs: 49},
			want: "49",
		},
		{
			name: "blank performance",
			perf: models.Performance{},
			want: "0",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputePoints(schema, &tc.perf)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestComputePointsDisabledMilestone(t *testing.T) {
	schema := cricketSchema()
	m := schema.Milestones["halfCentury"]
	m.Enabled = false
	schema.Milestones["halfCentury"] = m

	got := ComputePoints(schema, &models.Performance{Runs: 60})
	assert.Equal(t, "60", got.String())
}

func TestComputePointsFractionalRules(t *testing.T) {
	schema := &models.ScoringSchema{
		Rules: map[string]decimal.Decimal{
			"run": decimal.RequireFromString("0.5"),
		},
	}

	got := ComputePoints(schema, &models.Performance{Runs: 33})
	assert.Equal(t, "16.5", got.String())
}

func TestComputePointsNilSchema(t *testing.T) {
	got := ComputePoints(nil, &models.Performance{Runs: 10})
	assert.True(t, got.IsZero())
}

func TestParseOverridesAcceptsFullRuleSet(t *testing.T) {
	raw := []byte(`{
		"rules": {"run": 2, "wicket": 30, "catch": 10, "stumping": 15, "runOut": 12.5},
		"milestones": {
			"halfCentury": {"enabled": true, "points": 25, "threshold": 50},
			"fiveWicketHaul": {"enabled": false, "points": 60, "threshold": 5}
		}
	}`)

	schema, err := ParseOverrides(raw)
	require.NoError(t, err)

	assert.Equal(t, "2", schema.Rules["run"].String())
	assert.Equal(t, "12.5", schema.Rules["runOut"].String())

	require.Contains(t, schema.Milestones, "halfCentury")
	assert.True(t, schema.Milestones["halfCentury"].Enabled)
	assert.Equal(t, int64(50), schema.Milestones["halfCentury"].Threshold)
	assert.False(t, schema.Milestones["fiveWicketHaul"].Enabled)
}

func TestParseOverridesRejectsPartialRuleSet(t *testing.T) {
	raw := []byte(`{"rules": {"run": 2, "wicket": 30}}`)

	_, err := ParseOverrides(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid or missing rule")
	assert.Contains(t, err.Error(), "catch")
}

func TestParseOverridesRejectsNonNumericRule(t *testing.T) {
	raw := []byte(`{"rules": {"run": "two", "wicket": 30, "catch": 10, "stumping": 15, "runOut": 10}}`)

	_, err := ParseOverrides(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid or missing rule")
}

func TestParseOverridesRejectsQuotedNumber(t *testing.T) {
	// "2" is a string, not a number, even though it parses as a decimal
	raw := []byte(`{"rules": {"run": "2", "wicket": 30, "catch": 10, "stumping": 15, "runOut": 10}}`)

	_, err := ParseOverrides(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid or missing rule")
}

func TestParseOverridesRejectsUnknownRule(t *testing.T) {
	raw := []byte(`{"rules": {"run": 1, "wicket": 25, "catch": 10, "stumping": 15, "runOut": 10, "sixes": 4}}`)

	_, err := ParseOverrides(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown rule")
}

func TestParseOverridesRejectsNonBooleanEnabled(t *testing.T) {
	raw := []byte(`{
		"rules": {"run": 1, "wicket": 25, "catch": 10, "stumping": 15, "runOut": 10},
		"milestones": {"halfCentury": {"enabled": "yes", "points": 25, "threshold": 50}}
	}`)

	_, err := ParseOverrides(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enabled must be boolean")
}

func TestParseOverridesRejectsUnknownMilestone(t *testing.T) {
	raw := []byte(`{
		"rules": {"run": 1, "wicket": 25, "catch": 10, "stumping": 15, "runOut": 10},
		"milestones": {"doubleCentury": {"enabled": true, "points": 100, "threshold": 200}}
	}`)

	_, err := ParseOverrides(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown milestone")
}

func TestParseOverridesRejectsMissingRules(t *testing.T) {
	_, err := ParseOverrides([]byte(`{"milestones": {}}`))
	require.Error(t, err)

	_, err = ParseOverrides([]byte(`not json`))
	require.Error(t, err)
}

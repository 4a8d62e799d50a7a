package model

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRangeLabel(t *testing.T) {
	tests := []struct {
		label   string
		lo, hi  float64
		wantErr bool
	}{
		{label: "10 - 20", lo: 10, hi: 20},
		{label: "5-5", lo: 5, hi: 5},
		{label: " 0 - 2.5 ", lo: 0, hi: 2.5},
		{label: "-5 - 0", lo: -5, hi: 0},
		{label: "ten - 20", wantErr: true},
		{label: "10 - ", wantErr: true},
		{label: "1020", wantErr: true},
		{label: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			lo, hi, err := ParseRangeLabel(tt.label)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

func TestBidBucketJSON(t *testing.T) {
	var b BidBucket
	require.NoError(t, json.Unmarshal([]byte(`{"label":"10 - 20","bids":7}`), &b))
	assert.Equal(t, BidBucket{Min: 10, Max: 20, Bids: 7}, b)
	assert.Equal(t, "10 - 20", b.Label())

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"label":"10 - 20","bids":7}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"label":"lots","bids":7}`), &b))
}

func TestNumberOfBidsJSON(t *testing.T) {
	tests := []struct {
		in   string
		want NumberOfBids
	}{
		{in: `12`, want: NumberOfBids{Count: 12}},
		{in: `0`, want: NumberOfBids{}},
		{in: `"7"`, want: NumberOfBids{Count: 7}},
		{in: `"You're the 1st bid"`, want: NumberOfBids{First: true}},
		{in: `null`, want: NumberOfBids{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n NumberOfBids
			require.NoError(t, json.Unmarshal([]byte(tt.in), &n))
			assert.Equal(t, tt.want, n)
		})
	}

	out, err := json.Marshal(NumberOfBids{First: true})
	require.NoError(t, err)
	assert.Equal(t, `"You're the 1st bid"`, string(out))
	assert.Equal(t, FirstBidSentinel, NumberOfBids{First: true}.String())
	assert.Equal(t, "3", NumberOfBids{Count: 3}.String())
}

func TestWeek(t *testing.T) {
	assert.True(t, Week(2000).IsAuction())
	assert.False(t, Week(7).IsAuction())
	assert.Equal(t, FAABBudget, Week(7).MaxBid(LeagueSettings{Budget: 500}))
	assert.Equal(t, 500, Week(1000).MaxBid(LeagueSettings{Budget: 500}))
	assert.Equal(t, 200, Week(1000).MaxBid(LeagueSettings{}))
	assert.Equal(t, MaxBudget, Week(1000).MaxBid(LeagueSettings{Budget: 2000000000}))
	assert.Equal(t, MinBudget, Week(1000).MaxBid(LeagueSettings{Budget: 10}))
}

func TestLeagueBudgetBounds(t *testing.T) {
	tests := []struct {
		budget  int
		wantErr bool
	}{
		{budget: MinBudget},
		{budget: 200},
		{budget: MaxBudget},
		{budget: 0, wantErr: true},
		{budget: MinBudget - 1, wantErr: true},
		{budget: MaxBudget + 1, wantErr: true},
		{budget: 2000000000, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.budget), func(t *testing.T) {
			ls := BaselineLeague
			ls.Budget = tt.budget
			err := ls.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLeagueSettings(t *testing.T) {
	assert.True(t, BaselineLeague.IsBaseline())
	assert.NoError(t, BaselineLeague.Validate())
	assert.Error(t, LeagueSettings{TeamCount: 12, Budget: 200, Scoring: "points"}.Validate())
	assert.Equal(t, BaselineLeague, LeagueSettings{}.WithDefaults())

	sc, err := ParseScoring(" Full-PPR ")
	require.NoError(t, err)
	assert.Equal(t, ScoringFullPPR, sc)

	assert.Equal(t, RB, ParsePosition(""))
	assert.Equal(t, QB, ParsePosition(" qb"))
	assert.False(t, ParsePosition("flex").Known())
}

func TestPreferences(t *testing.T) {
	p := DefaultPreferences()
	assert.True(t, p.Reveal(3))
	assert.False(t, p.Reveal(3))
	assert.True(t, p.IsRevealed(3))

	c := p.Clone()
	c.Reveal(4)
	assert.False(t, p.IsRevealed(4))

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"leagueSettings":{"teamCount":12,"scoring":"half-ppr","budget":200,"isSuperflex":false},"visible":[3]}`, string(out))
}

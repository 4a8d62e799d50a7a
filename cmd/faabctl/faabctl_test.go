package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ts4z/faablab/board"
	"github.com/ts4z/faablab/fakes"
	"github.com/ts4z/faablab/model"
)

func TestParseBucket(t *testing.T) {
	tests := []struct {
		in      string
		want    model.BidBucket
		wantErr bool
	}{
		{in: "0 - 10:40", want: model.BidBucket{Min: 0, Max: 10, Bids: 40}},
		{in: "10 - 20: 35", want: model.BidBucket{Min: 10, Max: 20, Bids: 35}},
		{in: "30 - 50:0", want: model.BidBucket{Min: 30, Max: 50, Bids: 0}},
		{in: "0 - 10", wantErr: true},
		{in: "0 - 10:many", wantErr: true},
		{in: "0 - 10:-1", wantErr: true},
		{in: "ten:4", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseBucket(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWeek(t *testing.T) {
	w, err := parseWeek("7")
	require.NoError(t, err)
	assert.Equal(t, model.Week(7), w)

	for _, bad := range []string{"0", "-1", "seven", ""} {
		_, err := parseWeek(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseAge(t *testing.T) {
	d, err := parseAge("90d")
	require.NoError(t, err)
	assert.Equal(t, 90*24*time.Hour, d)

	d, err = parseAge("36h")
	require.NoError(t, err)
	assert.Equal(t, 36*time.Hour, d)

	_, err = parseAge("0s")
	assert.Error(t, err)
	_, err = parseAge("soon")
	assert.Error(t, err)
}

func TestLeagueFlags(t *testing.T) {
	ls, err := leagueFlags{teams: 10, scoring: "Full-PPR", budget: 100, superflex: true}.settings()
	require.NoError(t, err)
	assert.Equal(t, model.LeagueSettings{TeamCount: 10, Scoring: model.ScoringFullPPR, Budget: 100, IsSuperflex: true}, ls)

	_, err = leagueFlags{teams: 12, scoring: "points", budget: 200}.settings()
	assert.Error(t, err)
	_, err = leagueFlags{teams: 0, scoring: "half-ppr", budget: 200}.settings()
	assert.Error(t, err)
}

func demoBoard(t *testing.T, week model.Week) *board.Board {
	t.Helper()
	return board.Build(fakes.DemoWeek(week), board.Options{Settings: model.BaselineLeague, RevealAll: true})
}

func TestRenderFormats(t *testing.T) {
	b := demoBoard(t, 3)
	require.NotEmpty(t, b.Cards)

	var out bytes.Buffer
	require.NoError(t, render(&out, "json", viewBoard(b), nil))
	var jv boardView
	require.NoError(t, json.Unmarshal(out.Bytes(), &jv))
	assert.Equal(t, 3, jv.Week)
	assert.Len(t, jv.Cards, len(b.Cards))
	assert.Equal(t, "%", jv.Currency)

	out.Reset()
	require.NoError(t, render(&out, "yaml", viewBoard(b), nil))
	var yv boardView
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &yv))
	assert.Equal(t, jv.Cards[0].Name, yv.Cards[0].Name)
	assert.Contains(t, out.String(), "target_id:")

	out.Reset()
	called := false
	require.NoError(t, render(&out, "", nil, func() error { called = true; return nil }))
	assert.True(t, called)

	assert.Error(t, render(&out, "xml", nil, nil))
}

func TestBoardTable(t *testing.T) {
	b := demoBoard(t, 2000)
	var out bytes.Buffer
	require.NoError(t, writeBoardTable(&out, b, 80))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "Week 2000 ($200 Budget | 12 Team | Half PPR)", lines[0])
	assert.Contains(t, lines[2], "RECOMMENDED")
	assert.Len(t, lines, 3+len(b.Cards))
	assert.Contains(t, out.String(), "$")
}

func TestTopTable(t *testing.T) {
	b := demoBoard(t, 3)
	top := board.TopByPosition(b.Cards)
	var out bytes.Buffer
	require.NoError(t, writeTopTable(&out, b, top))
	for _, pos := range board.TopPositions {
		assert.Contains(t, out.String(), string(pos))
	}
	assert.Len(t, viewTop(top), len(board.TopPositions))
}

func run(t *testing.T, fn func(*cobra.Command, []string) error, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, fn(cmd, args))
	return out.String()
}

func TestConvertCommand(t *testing.T) {
	league = leagueFlags{teams: 12, scoring: "half-ppr", budget: 400}
	position = "RB"
	got := run(t, convertBid, "to", "100")
	assert.Contains(t, got, "is $50.00 at baseline")

	got = run(t, convertBid, "from", "50")
	assert.Contains(t, got, "is $100.00 in this league")

	cmd := &cobra.Command{}
	assert.Error(t, convertBid(cmd, []string{"sideways", "10"}))
	assert.Error(t, convertBid(cmd, []string{"to", "-4"}))
}

func TestWinprobCommand(t *testing.T) {
	buckets = []string{"0 - 10:40", "10 - 20:35", "20 - 30:15", "30 - 50:10"}
	maxBid = 100
	got := run(t, runWinprob, "12")
	assert.Contains(t, got, "wins 47% of the time")
	assert.Contains(t, got, "Recommended:")
	assert.Contains(t, got, "Slider")

	cmd := &cobra.Command{}
	for _, m := range []int{0, model.MaxBudget + 1, 2000000000} {
		maxBid = m
		assert.Error(t, runWinprob(cmd, []string{"12"}), m)
	}
	maxBid = 100
}

func TestKeysCommand(t *testing.T) {
	got := run(t, generateKeys)
	var cfg map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(got), &cfg))
	assert.NotEmpty(t, cfg["cookie_hash_key"])
	assert.NotEmpty(t, cfg["cookie_block_key"])
}

package model

import (
	"fmt"
	"strings"
)

// Scoring is the league's reception scoring system.
type Scoring string

const (
	ScoringStandard Scoring = "standard"
	ScoringHalfPPR  Scoring = "half-ppr"
	ScoringFullPPR  Scoring = "full-ppr"
)

// Scorings lists the scoring systems in the order the settings form shows them.
var Scorings = []Scoring{ScoringStandard, ScoringHalfPPR, ScoringFullPPR}

// TeamCounts lists the team counts offered by the settings form.  Other
// positive values are accepted, they just convert as if they were baseline.
var TeamCounts = []int{8, 10, 12, 14, 16}

func (s Scoring) Label() string {
	switch s {
	case ScoringStandard:
		return "Standard"
	case ScoringHalfPPR:
		return "Half PPR"
	case ScoringFullPPR:
		return "Full PPR"
	default:
		return string(s)
	}
}

func ParseScoring(s string) (Scoring, error) {
	sc := Scoring(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Scorings {
		if sc == known {
			return sc, nil
		}
	}
	return "", fmt.Errorf("unknown scoring system %q", s)
}

// Position is a roster position tag.
type Position string

const (
	QB  Position = "QB"
	RB  Position = "RB"
	WR  Position = "WR"
	TE  Position = "TE"
	K   Position = "K"
	DST Position = "DST"
)

// Positions lists the known positions in display order.
var Positions = []Position{QB, RB, WR, TE, K, DST}

// ParsePosition normalizes a position string.  An empty position means RB.
// Unknown positions are returned as-is (upper-cased); converters treat them
// neutrally.
func ParsePosition(s string) Position {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return RB
	}
	return Position(s)
}

func (p Position) Known() bool {
	for _, known := range Positions {
		if p == known {
			return true
		}
	}
	return false
}

// LeagueSettings describes the user's league format.  It's a value; nothing
// in the engine mutates it.
type LeagueSettings struct {
	TeamCount   int     `json:"teamCount"`
	Scoring     Scoring `json:"scoring"`
	Budget      int     `json:"budget"`
	IsSuperflex bool    `json:"isSuperflex"`
}

// Auction budgets outside this range are rejected.  The slider scans every
// whole amount up to the budget, so the cap also bounds that work.
const (
	MinBudget = 50
	MaxBudget = 500
)

// BaselineLeague is the format all historical bids are stored in.
var BaselineLeague = LeagueSettings{
	TeamCount:   12,
	Scoring:     ScoringHalfPPR,
	Budget:      200,
	IsSuperflex: false,
}

func (ls LeagueSettings) IsBaseline() bool {
	return ls == BaselineLeague
}

// Validate rejects settings the settings form should never produce.  The
// converter itself tolerates anything.
func (ls LeagueSettings) Validate() error {
	if ls.TeamCount <= 0 {
		return fmt.Errorf("team count must be positive, got %d", ls.TeamCount)
	}
	if ls.Budget < MinBudget || ls.Budget > MaxBudget {
		return fmt.Errorf("budget must be between %d and %d, got %d", MinBudget, MaxBudget, ls.Budget)
	}
	if _, err := ParseScoring(string(ls.Scoring)); err != nil {
		return err
	}
	return nil
}

// WithDefaults fills zero fields from the baseline league.
func (ls LeagueSettings) WithDefaults() LeagueSettings {
	if ls.TeamCount == 0 {
		ls.TeamCount = BaselineLeague.TeamCount
	}
	if ls.Scoring == "" {
		ls.Scoring = BaselineLeague.Scoring
	}
	if ls.Budget == 0 {
		ls.Budget = BaselineLeague.Budget
	}
	return ls
}

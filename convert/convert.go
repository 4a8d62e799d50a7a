// Package convert moves bid amounts between a user's league format and the
// baseline league (12 teams, half PPR, $200, no superflex) that historical
// bids are stored in.
//
// Every factor is "multiply to get the user's value": going to baseline
// divides, coming from baseline multiplies.  Anything unrecognized gets a
// factor of 1, so odd settings degrade to "treat as baseline".
package convert

import (
	"fmt"
	"math"

	"github.com/ts4z/faablab/model"
)

var teamCountFactors = map[int]float64{
	8:  0.75,
	10: 0.85,
	12: 1.00,
	14: 1.15,
	16: 1.25,
}

var scoringFactors = map[model.Scoring]map[model.Position]float64{
	model.ScoringStandard: {
		model.QB:  1.00,
		model.RB:  1.15,
		model.WR:  0.85,
		model.TE:  0.90,
		model.K:   1.00,
		model.DST: 1.00,
	},
	model.ScoringHalfPPR: {
		model.QB:  1.00,
		model.RB:  1.00,
		model.WR:  1.00,
		model.TE:  1.00,
		model.K:   1.00,
		model.DST: 1.00,
	},
	model.ScoringFullPPR: {
		model.QB:  1.00,
		model.RB:  0.88,
		model.WR:  1.12,
		model.TE:  1.08,
		model.K:   1.00,
		model.DST: 1.00,
	},
}

const (
	SuperflexQBFactor    = 2.85
	SuperflexOtherFactor = 0.87
)

func TeamCountFactor(teamCount int) float64 {
	if f, ok := teamCountFactors[teamCount]; ok {
		return f
	}
	return 1.0
}

func ScoringFactor(scoring model.Scoring, pos model.Position) float64 {
	if f, ok := scoringFactors[scoring][pos]; ok {
		return f
	}
	return 1.0
}

// budgetFactor is user budget over baseline budget.  Non-positive budgets
// would divide by zero going to baseline, so they count as baseline.
func budgetFactor(budget int) float64 {
	if budget <= 0 {
		return 1.0
	}
	return float64(budget) / float64(model.BaselineLeague.Budget)
}

func SuperflexFactor(isSuperflex bool, pos model.Position) float64 {
	switch {
	case !isSuperflex:
		return 1.0
	case pos == model.QB:
		return SuperflexQBFactor
	default:
		return SuperflexOtherFactor
	}
}

// Factor is the composite multiplier from baseline to the user's format.
func Factor(ls model.LeagueSettings, pos model.Position) float64 {
	pos = normalize(pos)
	return TeamCountFactor(ls.TeamCount) *
		ScoringFactor(ls.Scoring, pos) *
		budgetFactor(ls.Budget) *
		SuperflexFactor(ls.IsSuperflex, pos)
}

func normalize(pos model.Position) model.Position {
	if pos == "" {
		return model.RB
	}
	return pos
}

// ToBaseline converts a bid in the user's format to baseline units, rounded
// to a whole number.  Zero means "no bid" and is returned untouched.
func ToBaseline(bid float64, ls model.LeagueSettings, pos model.Position) float64 {
	if bid == 0 {
		return bid
	}
	pos = normalize(pos)
	v := bid
	v /= TeamCountFactor(ls.TeamCount)
	v /= ScoringFactor(ls.Scoring, pos)
	v /= budgetFactor(ls.Budget)
	v /= SuperflexFactor(ls.IsSuperflex, pos)
	return math.Round(v)
}

// FromBaseline is the inverse of ToBaseline.
func FromBaseline(bid float64, ls model.LeagueSettings, pos model.Position) float64 {
	if bid == 0 {
		return bid
	}
	pos = normalize(pos)
	v := bid
	v *= TeamCountFactor(ls.TeamCount)
	v *= ScoringFactor(ls.Scoring, pos)
	v *= budgetFactor(ls.Budget)
	v *= SuperflexFactor(ls.IsSuperflex, pos)
	return math.Round(v)
}

// ConvertHistogram rewrites bucket bounds from baseline into the user's
// format.  Counts don't depend on currency and are kept; the baseline bounds
// are kept in OriginalMin/OriginalMax.
func ConvertHistogram(buckets []model.BidBucket, ls model.LeagueSettings, pos model.Position) []model.ProcessedBucket {
	out := make([]model.ProcessedBucket, len(buckets))
	for i, b := range buckets {
		out[i] = model.ProcessedBucket{
			BidBucket: model.BidBucket{
				Min:  FromBaseline(b.Min, ls, pos),
				Max:  FromBaseline(b.Max, ls, pos),
				Bids: b.Bids,
			},
			OriginalMin: b.Min,
			OriginalMax: b.Max,
		}
	}
	return out
}

// ConvertStats converts the summary scalars.  A nil input yields zeroed
// stats, which is what a card with no data displays.
func ConvertStats(st *model.SummaryStats, ls model.LeagueSettings, pos model.Position) model.SummaryStats {
	if st == nil {
		return model.SummaryStats{}
	}
	return model.SummaryStats{
		AverageBid:    FromBaseline(st.AverageBid, ls, pos),
		MedianBid:     FromBaseline(st.MedianBid, ls, pos),
		MostCommonBid: FromBaseline(st.MostCommonBid, ls, pos),
		NumberOfBids:  st.NumberOfBids,
	}
}

// DisplayFormat describes the league, e.g. "$200 Budget | 12 Team | Half PPR".
func DisplayFormat(ls model.LeagueSettings) string {
	s := fmt.Sprintf("$%d Budget | %d Team | %s", ls.Budget, ls.TeamCount, scoringLabel(ls.Scoring))
	if ls.IsSuperflex {
		s += " | Superflex"
	}
	return s
}

// Anything that isn't standard or half reads as full PPR.
func scoringLabel(s model.Scoring) string {
	switch s {
	case model.ScoringStandard, model.ScoringHalfPPR:
		return s.Label()
	default:
		return model.ScoringFullPPR.Label()
	}
}

// Placeholder is the hint text for the bid input in auction weeks.
func Placeholder(ls model.LeagueSettings) string {
	return fmt.Sprintf("Your bid out of $%d", ls.Budget)
}

// Package winprob turns a histogram of historical bids into decision data:
// per-bucket win probabilities and strategy tiers, slider bounds, a default
// slider position and a recommended bucket.
//
// Everything here is a pure function of its arguments.  Inputs are assumed to
// be sorted ascending by Min; nothing is validated beyond guarding the
// divisions.  Amounts are in whatever currency the buckets are in.
package winprob

import (
	"math"

	"github.com/ts4z/faablab/model"
)

const (
	// NoDataProbability is reported for any amount when there are no bids to
	// compare against.
	NoDataProbability = 1

	budgetCeiling      = 50
	recommendedCeiling = 80
	recommendedTarget  = 65

	sliderFloorProbability   = 1
	sliderCeilingProbability = 99
	defaultSliderProbability = 50

	sweetSpotLow  = 70
	sweetSpotHigh = 85
)

func percent(part, total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * part / total))
}

// Derive fills WinProbability and BidPercentage in place.  A bucket's win
// probability is the share of bids strictly below its lower bound, i.e. the
// chance a bid at exactly Min beats the field.  With no bids at all every
// number is zero.
func Derive(buckets []model.ProcessedBucket) {
	total := 0
	for _, b := range buckets {
		total += b.Bids
	}
	below := 0
	for i := range buckets {
		buckets[i].WinProbability = percent(float64(below), float64(total))
		buckets[i].BidPercentage = percent(float64(buckets[i].Bids), float64(total))
		below += buckets[i].Bids
	}
}

// DeriveWinProbabilities wraps raw buckets and derives their probabilities.
func DeriveWinProbabilities(buckets []model.BidBucket) []model.ProcessedBucket {
	out := Wrap(buckets)
	Derive(out)
	return out
}

// Wrap makes unconverted processed buckets, original bounds equal to the
// current ones.
func Wrap(buckets []model.BidBucket) []model.ProcessedBucket {
	out := make([]model.ProcessedBucket, len(buckets))
	for i, b := range buckets {
		out[i] = model.ProcessedBucket{
			BidBucket:   b,
			OriginalMin: b.Min,
			OriginalMax: b.Max,
		}
	}
	return out
}

func tier(p int) model.Strategy {
	switch {
	case p < budgetCeiling:
		return model.StrategyBudget
	case p < recommendedCeiling:
		return model.StrategyRecommended
	default:
		return model.StrategySafe
	}
}

// AssignStrategy tags every bucket by threshold.  If that leaves nothing
// Recommended, the bucket nearest 65% (first one on a tie) is promoted, so a
// non-empty histogram always has a recommendation.
func AssignStrategy(buckets []model.ProcessedBucket) {
	recommended := false
	for i := range buckets {
		buckets[i].Strategy = tier(buckets[i].WinProbability)
		if buckets[i].Strategy == model.StrategyRecommended {
			recommended = true
		}
	}
	if recommended || len(buckets) == 0 {
		return
	}
	closest := 0
	for i := range buckets {
		if distance(buckets[i].WinProbability) < distance(buckets[closest].WinProbability) {
			closest = i
		}
	}
	buckets[closest].Strategy = model.StrategyRecommended
}

func distance(p int) int {
	d := p - recommendedTarget
	if d < 0 {
		return -d
	}
	return d
}

// Process derives probabilities and strategies in place.
func Process(buckets []model.ProcessedBucket) {
	Derive(buckets)
	AssignStrategy(buckets)
}

// CalculateWinProbability estimates the percent of historical bids that a
// bid of amount would beat.  Buckets entirely at or below amount count in
// full; the bucket amount falls inside counts in proportion to how far into
// it amount is.
func CalculateWinProbability(amount float64, buckets []model.ProcessedBucket) int {
	total := 0
	for _, b := range buckets {
		total += b.Bids
	}
	if total == 0 {
		return NoDataProbability
	}

	below := 0.0
	for _, b := range buckets {
		switch {
		case b.Max <= amount:
			below += float64(b.Bids)
		case b.Min < amount && amount < b.Max:
			below += float64(b.Bids) * (amount - b.Min) / (b.Max - b.Min)
		}
	}
	return min(100, max(0, percent(below, float64(total))))
}

// SliderRange finds the bids worth offering: from just above the highest bid
// that still almost always loses (≤1%) to the lowest bid that almost always
// wins (≥99%).  When the histogram doesn't produce a sensible range the
// slider spans the whole budget.
func SliderRange(buckets []model.ProcessedBucket, maxBudget int) model.SliderRange {
	full := model.SliderRange{Min: 1, Max: max(1, maxBudget)}
	if len(buckets) == 0 {
		return full
	}

	lo, hi := 1, maxBudget
	for bid := maxBudget; bid >= 1; bid-- {
		if CalculateWinProbability(float64(bid), buckets) <= sliderFloorProbability {
			lo = bid + 1
			break
		}
	}
	for bid := 1; bid <= maxBudget; bid++ {
		if CalculateWinProbability(float64(bid), buckets) >= sliderCeilingProbability {
			hi = bid
			break
		}
	}
	if lo >= hi {
		return full
	}
	return model.SliderRange{Min: lo, Max: hi}
}

// DefaultSliderValue is the cheapest bid in range with at least an even
// chance, or the middle of the range if there isn't one.
func DefaultSliderValue(buckets []model.ProcessedBucket, r model.SliderRange) int {
	if len(buckets) > 0 {
		for bid := r.Min; bid <= r.Max; bid++ {
			if CalculateWinProbability(float64(bid), buckets) >= defaultSliderProbability {
				return bid
			}
		}
	}
	return int(math.Round(float64(r.Min+r.Max) / 2))
}

// RecommendedBid returns the first bucket in the 70-85% sweet spot, falling
// back to the top bucket.  It returns false only for an empty histogram.
func RecommendedBid(buckets []model.ProcessedBucket) (model.ProcessedBucket, bool) {
	if len(buckets) == 0 {
		return model.ProcessedBucket{}, false
	}
	for _, b := range buckets {
		if b.WinProbability >= sweetSpotLow && b.WinProbability <= sweetSpotHigh {
			return b, true
		}
	}
	return buckets[len(buckets)-1], true
}

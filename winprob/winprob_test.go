package winprob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts4z/faablab/model"
)

func buckets(specs ...[3]float64) []model.BidBucket {
	out := make([]model.BidBucket, len(specs))
	for i, s := range specs {
		out[i] = model.BidBucket{Min: s[0], Max: s[1], Bids: int(s[2])}
	}
	return out
}

func processed(specs ...[3]float64) []model.ProcessedBucket {
	p := Wrap(buckets(specs...))
	Process(p)
	return p
}

func scenarioA() []model.ProcessedBucket {
	return processed(
		[3]float64{0, 10, 40},
		[3]float64{10, 20, 40},
		[3]float64{20, 30, 20},
	)
}

func strategies(p []model.ProcessedBucket) []model.Strategy {
	out := make([]model.Strategy, len(p))
	for i := range p {
		out[i] = p[i].Strategy
	}
	return out
}

func TestScenarioAWinProbabilities(t *testing.T) {
	p := scenarioA()
	require.Len(t, p, 3)
	assert.Equal(t, 0, p[0].WinProbability)
	assert.Equal(t, 40, p[1].WinProbability)
	assert.Equal(t, 80, p[2].WinProbability)

	assert.Equal(t, 40, p[0].BidPercentage)
	assert.Equal(t, 40, p[1].BidPercentage)
	assert.Equal(t, 20, p[2].BidPercentage)

	// This histogram's worked example reads Budget/Recommended/Safe, which
	// the thresholds can't produce; the thresholds win.  0 and 40 are both
	// under the Budget ceiling, so nothing lands in the Recommended band and
	// 80 (nearest to 65) gets promoted.
	assert.Equal(t, []model.Strategy{
		model.StrategyBudget,
		model.StrategyBudget,
		model.StrategyRecommended,
	}, strategies(p))
}

func TestAssignStrategyThresholds(t *testing.T) {
	tests := []struct {
		name  string
		probs []int
		want  []model.Strategy
	}{
		{
			name:  "all three bands present",
			probs: []int{0, 49, 50, 79, 80, 100},
			want: []model.Strategy{
				model.StrategyBudget, model.StrategyBudget,
				model.StrategyRecommended, model.StrategyRecommended,
				model.StrategySafe, model.StrategySafe,
			},
		},
		{
			name:  "jump over the band promotes the closest",
			probs: []int{0, 30, 90},
			want:  []model.Strategy{model.StrategyBudget, model.StrategyBudget, model.StrategyRecommended},
		},
		{
			name:  "tie goes to the first",
			probs: []int{0, 45, 85},
			want:  []model.Strategy{model.StrategyBudget, model.StrategyRecommended, model.StrategySafe},
		},
		{
			name:  "single bucket",
			probs: []int{0},
			want:  []model.Strategy{model.StrategyRecommended},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := make([]model.ProcessedBucket, len(tt.probs))
			for i, wp := range tt.probs {
				p[i].WinProbability = wp
			}
			AssignStrategy(p)
			assert.Equal(t, tt.want, strategies(p))
		})
	}
}

func TestAssignStrategyEmpty(t *testing.T) {
	assert.NotPanics(t, func() { AssignStrategy(nil) })
}

func TestWinProbabilityMonotonic(t *testing.T) {
	histograms := [][]model.ProcessedBucket{
		scenarioA(),
		processed([3]float64{0, 5, 0}, [3]float64{5, 10, 3}, [3]float64{10, 15, 0}, [3]float64{15, 20, 7}),
		processed([3]float64{0, 1, 1}),
		processed([3]float64{0, 10, 0}, [3]float64{10, 20, 0}),
		processed([3]float64{0, 2, 1}, [3]float64{2, 4, 1}, [3]float64{4, 6, 1}, [3]float64{6, 8, 1000}),
	}
	for i, p := range histograms {
		require.NotEmpty(t, p)
		assert.Equal(t, 0, p[0].WinProbability, "histogram %d", i)
		for j := 1; j < len(p); j++ {
			assert.GreaterOrEqual(t, p[j].WinProbability, p[j-1].WinProbability, "histogram %d bucket %d", i, j)
		}
		for _, b := range p {
			assert.GreaterOrEqual(t, b.WinProbability, 0)
			assert.LessOrEqual(t, b.WinProbability, 100)
		}
	}
}

func TestRecommendedCoverage(t *testing.T) {
	histograms := [][]model.ProcessedBucket{
		scenarioA(),
		processed([3]float64{0, 10, 99}, [3]float64{10, 20, 1}),
		processed([3]float64{0, 10, 1}, [3]float64{10, 20, 99}),
		processed([3]float64{0, 10, 5}),
		processed([3]float64{0, 10, 0}, [3]float64{10, 20, 0}),
	}
	for i, p := range histograms {
		found := false
		for _, b := range p {
			if b.Strategy == model.StrategyRecommended {
				found = true
			}
		}
		assert.True(t, found, "histogram %d has no recommendation", i)
	}
}

func TestCalculateWinProbability(t *testing.T) {
	p := scenarioA()
	tests := []struct {
		amount float64
		want   int
	}{
		{-5, 0},
		{0, 0},
		{5, 20},
		{10, 40},
		{15, 60},
		{20, 80},
		{25, 90},
		{30, 100},
		{500, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateWinProbability(tt.amount, p), "amount %v", tt.amount)
	}
}

func TestCalculateWinProbabilityBounds(t *testing.T) {
	p := processed([3]float64{3, 7, 2}, [3]float64{7, 7, 5}, [3]float64{7, 40, 9})
	for amount := -10.0; amount <= 60; amount += 0.5 {
		got := CalculateWinProbability(amount, p)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 100)
	}
}

func TestZeroHistogramIsSafe(t *testing.T) {
	p := processed([3]float64{0, 10, 0}, [3]float64{10, 20, 0}, [3]float64{20, 30, 0})
	for _, b := range p {
		assert.Equal(t, 0, b.WinProbability)
		assert.Equal(t, 0, b.BidPercentage)
	}
	for _, amount := range []float64{0, 1, 15, 30, 1000} {
		assert.Equal(t, NoDataProbability, CalculateWinProbability(amount, p))
	}
	assert.Equal(t, model.SliderRange{Min: 1, Max: 200}, SliderRange(p, 200))
	assert.Equal(t, 101, DefaultSliderValue(p, model.SliderRange{Min: 1, Max: 200}))

	rec, ok := RecommendedBid(p)
	assert.True(t, ok)
	assert.Equal(t, 20.0, rec.Min)
}

func TestEmptyHistogram(t *testing.T) {
	var p []model.ProcessedBucket
	Process(p)
	assert.Equal(t, NoDataProbability, CalculateWinProbability(10, p))
	assert.Equal(t, model.SliderRange{Min: 1, Max: 100}, SliderRange(p, 100))
	assert.Equal(t, 51, DefaultSliderValue(p, model.SliderRange{Min: 1, Max: 100}))
	_, ok := RecommendedBid(p)
	assert.False(t, ok)
	assert.Empty(t, DeriveWinProbabilities(nil))
}

func TestSliderRange(t *testing.T) {
	p := scenarioA()
	// p(1) = 4, so nothing at or below 1% in [1,30]; p(30) = 100 and
	// p(29) = 98, so 30 is the first ≥99.
	assert.Equal(t, model.SliderRange{Min: 1, Max: 30}, SliderRange(p, 100))

	shifted := processed([3]float64{20, 30, 50}, [3]float64{30, 40, 50})
	// p(20) = 0, p(21) = 5
	assert.Equal(t, model.SliderRange{Min: 21, Max: 40}, SliderRange(shifted, 200))
}

func TestSliderRangeDegenerateFallsBack(t *testing.T) {
	tests := []struct {
		name      string
		p         []model.ProcessedBucket
		maxBudget int
	}{
		{
			name:      "spread far wider than the budget",
			p:         processed([3]float64{0, 250, 10}, [3]float64{250, 500, 10}, [3]float64{500, 750, 10}, [3]float64{750, 1000, 10}),
			maxBudget: 5,
		},
		{
			name:      "everything in one unit-wide bucket",
			p:         processed([3]float64{50, 51, 12}),
			maxBudget: 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, model.SliderRange{Min: 1, Max: tt.maxBudget}, SliderRange(tt.p, tt.maxBudget))
		})
	}
}

func TestDefaultSliderValue(t *testing.T) {
	p := scenarioA()
	r := SliderRange(p, 100)
	// p(12) = 48, p(13) = 52
	assert.Equal(t, 13, DefaultSliderValue(p, r))

	// Range entirely below the even-money point: midpoint.
	assert.Equal(t, 6, DefaultSliderValue(p, model.SliderRange{Min: 1, Max: 10}))
}

func TestRecommendedBid(t *testing.T) {
	p := processed(
		[3]float64{0, 10, 60},
		[3]float64{10, 20, 15},
		[3]float64{20, 30, 10},
		[3]float64{30, 40, 15},
	)
	// win probabilities 0, 60, 75, 85
	rec, ok := RecommendedBid(p)
	require.True(t, ok)
	assert.Equal(t, 75, rec.WinProbability)
	assert.Equal(t, 20.0, rec.Min)

	rec, ok = RecommendedBid(scenarioA())
	require.True(t, ok)
	assert.Equal(t, 80, rec.WinProbability)

	none := processed([3]float64{0, 10, 10}, [3]float64{10, 20, 90})
	rec, ok = RecommendedBid(none)
	require.True(t, ok)
	assert.Equal(t, 10.0, rec.Min, "falls back to the last bucket")
}

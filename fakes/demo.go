package fakes

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/ts4z/faablab/model"
)

type demoPlayer struct {
	name     string
	team     string
	position model.Position
	// hype scales how many people bid and how much.
	hype float64
}

var demoRoster = []demoPlayer{
	{"Puka Nacua", "LAR", model.WR, 1.0},
	{"Jaylen Warren", "PIT", model.RB, 0.8},
	{"Sam LaPorta", "DET", model.TE, 0.7},
	{"Joshua Dobbs", "ARI", model.QB, 0.5},
	{"Zack Moss", "IND", model.RB, 0.9},
	{"Tank Dell", "HOU", model.WR, 0.75},
	{"Tyjae Spears", "TEN", model.RB, 0.45},
	{"Jake Ferguson", "DAL", model.TE, 0.35},
	{"Gardner Minshew", "IND", model.QB, 0.3},
	{"Rashid Shaheed", "NO", model.WR, 0.4},
	{"Jason Sanders", "MIA", model.K, 0.1},
	{"Cleveland Browns", "CLE", model.DST, 0.2},
	{"Kendre Miller", "NO", model.RB, 0.0},
}

// NewDemoWeekStorage serves made-up data for any week.
func NewDemoWeekStorage() *WeekStorage {
	s := NewWeekStorage()
	s.Generate = DemoWeek
	return s
}

// DemoWeek makes up a plausible week.  The same week always comes out the
// same.  FAAB weeks bid in percent; auction weeks bid in baseline dollars.
func DemoWeek(week model.Week) *model.WeekData {
	wd := &model.WeekData{
		Week:       week,
		Histograms: map[int64]*model.BidHistogram{},
	}
	width, buckets := 5.0, 10
	if week.IsAuction() {
		width, buckets = 10.0, 8
	}

	for i, dp := range demoRoster {
		id := int64(week)*100 + int64(i) + 1
		wd.Players = append(wd.Players, &model.Player{
			ID:       id,
			TargetID: int64(week)*1000 + int64(i) + 1,
			Name:     dp.name,
			Team:     dp.team,
			Position: dp.position,
		})
		rng := rand.New(rand.NewPCG(uint64(week), uint64(i)))
		wd.Histograms[id] = demoHistogram(rng, dp.hype, width, buckets)
	}
	return wd
}

// demoHistogram draws bids from a rough bell around a hype-dependent center.
func demoHistogram(rng *rand.Rand, hype, width float64, n int) *model.BidHistogram {
	h := &model.BidHistogram{}
	for i := range n {
		h.Buckets = append(h.Buckets, model.BidBucket{Min: float64(i) * width, Max: float64(i+1) * width})
	}
	count := int(math.Round(hype * 150 * (0.75 + rng.Float64()/2)))
	if count == 0 {
		h.Stats = &model.SummaryStats{NumberOfBids: model.NumberOfBids{First: true}}
		return h
	}

	top := width * float64(n)
	center := top * (0.1 + 0.35*hype)
	bids := make([]float64, 0, count)
	for range count {
		v := math.Round(rng.NormFloat64()*center/2.5 + center)
		v = max(0, min(top-1, v))
		bids = append(bids, v)
		h.Buckets[int(v/width)].Bids++
	}
	h.Stats = summarize(bids)
	return h
}

func summarize(bids []float64) *model.SummaryStats {
	sorted := slices.Clone(bids)
	slices.Sort(sorted)

	sum := 0.0
	counts := map[float64]int{}
	mode, modeCount := 0.0, 0
	for _, v := range sorted {
		sum += v
		counts[v]++
		if counts[v] > modeCount {
			mode, modeCount = v, counts[v]
		}
	}
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}
	return &model.SummaryStats{
		AverageBid:    math.Round(10*sum/float64(len(sorted))) / 10,
		MedianBid:     median,
		MostCommonBid: mode,
		NumberOfBids:  model.NumberOfBids{Count: len(sorted)},
	}
}

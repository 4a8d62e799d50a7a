// Package board assembles a week's worth of targets and bid histograms into
// cards ready to render: converted to the viewer's league format in auction
// weeks, run through the win probability engine, sorted and filtered.
package board

import (
	"cmp"
	"slices"
	"strings"

	"github.com/ts4z/faablab/convert"
	"github.com/ts4z/faablab/model"
	"github.com/ts4z/faablab/winprob"
)

// FAABPlaceholder is the bid input hint for FAAB weeks.
const FAABPlaceholder = "% of initial FAAB"

// Card is one target with everything needed to show it.
type Card struct {
	Player   *model.Player `json:"player"`
	Revealed bool          `json:"revealed"`
	HasData  bool          `json:"hasData"`

	// Stats are in the viewer's units; OriginalStats are as stored, and only
	// set when they differ.
	Stats         model.SummaryStats  `json:"stats"`
	OriginalStats *model.SummaryStats `json:"originalStats,omitempty"`

	Buckets               []model.ProcessedBucket `json:"buckets"`
	Slider                model.SliderRange       `json:"slider"`
	DefaultBid            int                     `json:"defaultBid"`
	DefaultWinProbability int                     `json:"defaultWinProbability"`
	Recommended           *model.ProcessedBucket  `json:"recommended,omitempty"`
}

// WinProbability is the chance a bid of amount wins, in the card's units.
func (c *Card) WinProbability(amount float64) int {
	return winprob.CalculateWinProbability(amount, c.Buckets)
}

// NumberOfBids is the count used for sorting; the first-bid sentinel is zero.
func (c *Card) NumberOfBids() int {
	return c.Stats.NumberOfBids.Count
}

// Board is a rendered week.
type Board struct {
	Week          model.Week           `json:"week"`
	IsAuction     bool                 `json:"isAuction"`
	Settings      model.LeagueSettings `json:"leagueSettings"`
	DisplayFormat string               `json:"displayFormat,omitempty"`
	Placeholder   string               `json:"placeholder"`
	Currency      string               `json:"currency"`
	MaxBid        int                  `json:"maxBid"`
	Cards         []*Card              `json:"cards"`
}

// Options control how a board is built.
type Options struct {
	Settings model.LeagueSettings
	// IsRevealed reports whether the viewer has already bid on a target.
	// Nil means nothing is revealed.
	IsRevealed func(targetID int64) bool
	// RevealAll shows every card regardless, as for weeks already played.
	RevealAll bool
}

// Build makes a sorted board for wd.  Players without a histogram still get
// a card; it has no buckets and HasData is false.
func Build(wd *model.WeekData, opts Options) *Board {
	ls := opts.Settings.WithDefaults()
	b := &Board{
		Week:      wd.Week,
		IsAuction: wd.Week.IsAuction(),
		Settings:  ls,
		MaxBid:    wd.Week.MaxBid(ls),
		Cards:     make([]*Card, 0, len(wd.Players)),
	}
	if b.IsAuction {
		b.DisplayFormat = convert.DisplayFormat(ls)
		b.Placeholder = convert.Placeholder(ls)
		b.Currency = "$"
	} else {
		b.Placeholder = FAABPlaceholder
		b.Currency = "%"
	}

	for _, p := range wd.Players {
		if p == nil {
			continue
		}
		revealed := opts.RevealAll || (opts.IsRevealed != nil && opts.IsRevealed(p.TargetID))
		b.Cards = append(b.Cards, buildCard(p, wd.Histogram(p.ID), b, revealed))
	}
	Sort(b.Cards)
	return b
}

func buildCard(p *model.Player, h *model.BidHistogram, b *Board, revealed bool) *Card {
	c := &Card{Player: p, Revealed: revealed}
	var raw []model.BidBucket
	var stats *model.SummaryStats
	if h != nil {
		raw = h.Buckets
		stats = h.Stats
	}
	c.HasData = len(raw) > 0

	if b.IsAuction {
		c.Buckets = convert.ConvertHistogram(raw, b.Settings, p.Position)
		c.Stats = convert.ConvertStats(stats, b.Settings, p.Position)
		if stats != nil && *stats != c.Stats {
			orig := *stats
			c.OriginalStats = &orig
		}
	} else {
		c.Buckets = winprob.Wrap(raw)
		if stats != nil {
			c.Stats = *stats
		}
	}

	winprob.Process(c.Buckets)
	c.Slider = winprob.SliderRange(c.Buckets, b.MaxBid)
	c.DefaultBid = winprob.DefaultSliderValue(c.Buckets, c.Slider)
	c.DefaultWinProbability = winprob.CalculateWinProbability(float64(c.DefaultBid), c.Buckets)
	if rec, ok := winprob.RecommendedBid(c.Buckets); ok {
		c.Recommended = &rec
	}
	return c
}

// Sort orders cards by number of bids, most first, then by target id.
func Sort(cards []*Card) {
	slices.SortStableFunc(cards, func(a, b *Card) int {
		if c := cmp.Compare(b.NumberOfBids(), a.NumberOfBids()); c != 0 {
			return c
		}
		return cmp.Compare(a.Player.TargetID, b.Player.TargetID)
	})
}

// Query narrows a board.  Zero values match everything.
type Query struct {
	Search   string
	Position model.Position
}

func (q Query) matches(c *Card) bool {
	if q.Position != "" && c.Player.Position != q.Position {
		return false
	}
	if q.Search != "" && !strings.Contains(strings.ToLower(c.Player.Name), strings.ToLower(q.Search)) {
		return false
	}
	return true
}

// Filter returns the cards matching q, preserving order.
func Filter(cards []*Card, q Query) []*Card {
	out := make([]*Card, 0, len(cards))
	for _, c := range cards {
		if q.matches(c) {
			out = append(out, c)
		}
	}
	return out
}

// Filtered returns a shallow copy of the board with only matching cards.
func (b *Board) Filtered(q Query) *Board {
	cpy := *b
	cpy.Cards = Filter(b.Cards, q)
	return &cpy
}

// TopPositions are the positions the top targets page shows.
var TopPositions = []model.Position{model.QB, model.RB, model.WR, model.TE}

// TopTarget is the most-bid card at one position; Card is nil if the week
// has nobody there.
type TopTarget struct {
	Position model.Position `json:"position"`
	Card     *Card          `json:"card,omitempty"`
}

// TopByPosition picks the first card per TopPositions entry.  Cards must
// already be sorted.
func TopByPosition(cards []*Card) []TopTarget {
	out := make([]TopTarget, 0, len(TopPositions))
	for _, pos := range TopPositions {
		tt := TopTarget{Position: pos}
		for _, c := range cards {
			if c.Player.Position == pos {
				tt.Card = c
				break
			}
		}
		out = append(out, tt)
	}
	return out
}

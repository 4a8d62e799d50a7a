package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/ts4z/faablab/board"
	"github.com/ts4z/faablab/model"
	"github.com/ts4z/faablab/textutil"
)

const defaultWidth = 100

type bucketView struct {
	Range          string `json:"range" yaml:"range"`
	Bids           int    `json:"bids" yaml:"bids"`
	WinProbability int    `json:"winProbability" yaml:"win_probability"`
	Strategy       string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
}

type cardView struct {
	TargetID    int64        `json:"targetId" yaml:"target_id"`
	Name        string       `json:"name" yaml:"name"`
	Team        string       `json:"team" yaml:"team"`
	Position    string       `json:"position" yaml:"position"`
	Bids        string       `json:"bids" yaml:"bids"`
	Average     float64      `json:"averageBid" yaml:"average_bid"`
	Median      float64      `json:"medianBid" yaml:"median_bid"`
	MostCommon  float64      `json:"mostCommonBid" yaml:"most_common_bid"`
	Recommended string       `json:"recommended,omitempty" yaml:"recommended,omitempty"`
	Buckets     []bucketView `json:"buckets,omitempty" yaml:"buckets,omitempty"`
}

type boardView struct {
	Week     int        `json:"week" yaml:"week"`
	Auction  bool       `json:"auction" yaml:"auction"`
	Format   string     `json:"format,omitempty" yaml:"format,omitempty"`
	Currency string     `json:"currency" yaml:"currency"`
	MaxBid   int        `json:"maxBid" yaml:"max_bid"`
	Cards    []cardView `json:"cards" yaml:"cards"`
}

type topView struct {
	Position string    `json:"position" yaml:"position"`
	Card     *cardView `json:"card,omitempty" yaml:"card,omitempty"`
}

func viewCard(c *board.Card) cardView {
	cv := cardView{
		TargetID:   c.Player.TargetID,
		Name:       c.Player.Name,
		Team:       c.Player.Team,
		Position:   string(c.Player.Position),
		Bids:       c.Stats.NumberOfBids.String(),
		Average:    c.Stats.AverageBid,
		Median:     c.Stats.MedianBid,
		MostCommon: c.Stats.MostCommonBid,
	}
	if c.Recommended != nil {
		cv.Recommended = c.Recommended.Label()
	}
	for _, b := range c.Buckets {
		cv.Buckets = append(cv.Buckets, bucketView{
			Range:          b.Label(),
			Bids:           b.Bids,
			WinProbability: b.WinProbability,
			Strategy:       string(b.Strategy),
		})
	}
	return cv
}

func viewBoard(b *board.Board) *boardView {
	bv := &boardView{
		Week:     int(b.Week),
		Auction:  b.IsAuction,
		Format:   b.DisplayFormat,
		Currency: b.Currency,
		MaxBid:   b.MaxBid,
		Cards:    make([]cardView, 0, len(b.Cards)),
	}
	for _, c := range b.Cards {
		bv.Cards = append(bv.Cards, viewCard(c))
	}
	return bv
}

func viewTop(top []board.TopTarget) []topView {
	out := make([]topView, 0, len(top))
	for _, tt := range top {
		tv := topView{Position: string(tt.Position)}
		if tt.Card != nil {
			cv := viewCard(tt.Card)
			tv.Card = &cv
		}
		out = append(out, tv)
	}
	return out
}

// render writes v as JSON or YAML, or calls table for the default format.
func render(out io.Writer, format string, v any, table func() error) error {
	switch strings.ToLower(format) {
	case "", "table":
		return table()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("output must be table, json or yaml, got %q", format)
	}
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// nameWidth leaves the name column whatever the fixed columns don't use.
func nameWidth(width int) int {
	const fixed = 60
	if width-fixed < 12 {
		return 12
	}
	return width - fixed
}

func writeBoardTable(out io.Writer, b *board.Board, width int) error {
	if b.DisplayFormat != "" {
		fmt.Fprintf(out, "Week %d (%s)\n\n", b.Week, b.DisplayFormat)
	} else {
		fmt.Fprintf(out, "Week %d\n\n", b.Week)
	}
	nw := nameWidth(width)

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tNAME\tTEAM\tPOS\tBIDS\tAVG\tMEDIAN\tRECOMMENDED")
	for _, c := range b.Cards {
		rec := "-"
		if c.Recommended != nil {
			rec = fmt.Sprintf("%s (%d%%)", c.Recommended.Label(), c.Recommended.WinProbability)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Player.TargetID,
			textutil.Truncate(c.Player.Name, nw),
			c.Player.Team,
			c.Player.Position,
			c.Stats.NumberOfBids,
			textutil.Money(b.Currency, c.Stats.AverageBid),
			textutil.Money(b.Currency, c.Stats.MedianBid),
			rec)
	}
	return w.Flush()
}

func writeTopTable(out io.Writer, b *board.Board, top []board.TopTarget) error {
	fmt.Fprintf(out, "Top targets, week %d\n\n", b.Week)
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tNAME\tTEAM\tBIDS\tRECOMMENDED")
	for _, tt := range top {
		if tt.Card == nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\n", tt.Position)
			continue
		}
		c := tt.Card
		rec := "-"
		if c.Recommended != nil {
			rec = c.Recommended.Label()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", tt.Position, c.Player.Name, c.Player.Team, c.Stats.NumberOfBids, rec)
	}
	return w.Flush()
}

func writeBucketTable(out io.Writer, buckets []model.ProcessedBucket) error {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "RANGE\tBIDS\tSHARE\tWIN\tSTRATEGY\t")
	for _, b := range buckets {
		fmt.Fprintf(w, "%s\t%d\t%d%%\t%d%%\t%s\t\n", b.Label(), b.Bids, b.BidPercentage, b.WinProbability, b.Strategy)
	}
	return w.Flush()
}

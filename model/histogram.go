package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FirstBidSentinel is what the data service sends for numberOfBids when
// nobody has bid on a player yet.
const FirstBidSentinel = "You're the 1st bid"

// BidBucket is one bar of a bid histogram, covering [Min, Max).
type BidBucket struct {
	Min  float64
	Max  float64
	Bids int
}

// Label renders the bucket the way the data service labels it.
func (b BidBucket) Label() string {
	return fmt.Sprintf("%s - %s", formatBound(b.Min), formatBound(b.Max))
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

type wireBucket struct {
	Label string `json:"label"`
	Bids  int    `json:"bids"`
}

func (b BidBucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(&wireBucket{Label: b.Label(), Bids: b.Bids})
}

func (b *BidBucket) UnmarshalJSON(data []byte) error {
	var w wireBucket
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	lo, hi, err := ParseRangeLabel(w.Label)
	if err != nil {
		return err
	}
	*b = BidBucket{Min: lo, Max: hi, Bids: w.Bids}
	return nil
}

// ParseRangeLabel parses labels like "10 - 20" (or "10-20").
func ParseRangeLabel(label string) (float64, float64, error) {
	s := strings.TrimSpace(label)
	// Skip a leading sign so "-5 - 0" isn't split on the wrong dash.
	idx := strings.Index(s[min(1, len(s)):], "-")
	if idx < 0 {
		return 0, 0, fmt.Errorf("bucket label %q has no range separator", label)
	}
	idx += min(1, len(s))
	lo, err := strconv.ParseFloat(strings.TrimSpace(s[:idx]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bucket label %q: bad lower bound: %w", label, err)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(s[idx+1:]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bucket label %q: bad upper bound: %w", label, err)
	}
	return lo, hi, nil
}

// TotalBids sums the bucket counts.
func TotalBids(buckets []BidBucket) int {
	total := 0
	for _, b := range buckets {
		total += b.Bids
	}
	return total
}

// NumberOfBids is either a count or the "first bid" sentinel.
//
// Count is always usable for arithmetic; it's zero when First is set.
type NumberOfBids struct {
	Count int
	First bool
}

func (n NumberOfBids) String() string {
	if n.First {
		return FirstBidSentinel
	}
	return strconv.Itoa(n.Count)
}

func (n NumberOfBids) MarshalJSON() ([]byte, error) {
	if n.First {
		return json.Marshal(FirstBidSentinel)
	}
	return json.Marshal(n.Count)
}

func (n *NumberOfBids) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = NumberOfBids{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if c, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*n = NumberOfBids{Count: c}
			return nil
		}
		// Anything non-numeric is the sentinel; the service has only ever sent one.
		*n = NumberOfBids{First: true}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("numberOfBids: %w", err)
	}
	*n = NumberOfBids{Count: int(f)}
	return nil
}

// SummaryStats are the scalar stats the service sends alongside a histogram.
// Values are in baseline units as stored.
type SummaryStats struct {
	AverageBid    float64      `json:"averageBid"`
	MedianBid     float64      `json:"medianBid"`
	MostCommonBid float64      `json:"mostCommonBid"`
	NumberOfBids  NumberOfBids `json:"numberOfBids"`
}

// BidHistogram is everything known about bidding on one player for a week.
type BidHistogram struct {
	Buckets []BidBucket
	Stats   *SummaryStats
}

// Strategy is the recommendation tier for a bucket.
type Strategy string

const (
	StrategyBudget      Strategy = "Budget"
	StrategyRecommended Strategy = "Recommended"
	StrategySafe        Strategy = "Safe"
)

// ProcessedBucket is a bucket with derived numbers attached.  These are
// computed per request and never stored.
type ProcessedBucket struct {
	BidBucket
	// OriginalMin and OriginalMax hold baseline bounds when the bucket has
	// been converted to a user's league format; otherwise they equal Min/Max.
	OriginalMin    float64
	OriginalMax    float64
	WinProbability int
	BidPercentage  int
	Strategy       Strategy
}

// Midpoint is where a chart would center the bar.
func (pb ProcessedBucket) Midpoint() float64 {
	return (pb.Min + pb.Max) / 2
}

// SliderRange bounds the interactive bid slider, inclusive.
type SliderRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type wireProcessedBucket struct {
	Label          string   `json:"label"`
	OriginalLabel  string   `json:"originalLabel,omitempty"`
	Min            float64  `json:"min"`
	Max            float64  `json:"max"`
	Bids           int      `json:"bids"`
	WinProbability int      `json:"winProbability"`
	BidPercentage  int      `json:"bidPercentage"`
	Strategy       Strategy `json:"strategy"`
}

// MarshalJSON keeps the derived fields; without it the embedded bucket's
// encoder would win and drop them.
func (pb ProcessedBucket) MarshalJSON() ([]byte, error) {
	w := &wireProcessedBucket{
		Label:          pb.Label(),
		Min:            pb.Min,
		Max:            pb.Max,
		Bids:           pb.Bids,
		WinProbability: pb.WinProbability,
		BidPercentage:  pb.BidPercentage,
		Strategy:       pb.Strategy,
	}
	if pb.OriginalMin != pb.Min || pb.OriginalMax != pb.Max {
		w.OriginalLabel = BidBucket{Min: pb.OriginalMin, Max: pb.OriginalMax}.Label()
	}
	return json.Marshal(w)
}

package webapp

import (
	"encoding/json"
	"fmt"

	"github.com/ts4z/faablab/model"
	"github.com/ts4z/faablab/textutil"
)

// money formats an amount in the board's currency: "$12" or "12%".
func money(currency string, v any) string {
	switch v := v.(type) {
	case int:
		return textutil.Money(currency, float64(v))
	case float64:
		return textutil.Money(currency, v)
	default:
		return fmt.Sprint(v)
	}
}

// toJSON is for data attributes; html/template escapes the result.
func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// sliderBucket is what faablab.js needs to recompute a win probability as
// the user drags the slider.
type sliderBucket struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Bids int     `json:"bids"`
}

func sliderData(buckets []model.ProcessedBucket) []sliderBucket {
	out := make([]sliderBucket, len(buckets))
	for i, b := range buckets {
		out[i] = sliderBucket{Min: b.Min, Max: b.Max, Bids: b.Bids}
	}
	return out
}

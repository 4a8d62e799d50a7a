package textutil

import (
	"fmt"
	"math"
)

// Money formats an amount in a board's currency, rounded to a whole unit:
// "$12" for auction dollars, "12%" for a share of FAAB.
func Money(currency string, v float64) string {
	n := int(math.Round(v))
	if currency == "%" {
		return fmt.Sprintf("%d%%", n)
	}
	return fmt.Sprintf("%s%d", currency, n)
}

// Plural formats a count with the right noun: "1 bid", "3 bids".
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

// Truncate cuts s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		currency string
		v        float64
		expected string
	}{
		{"$", 12, "$12"},
		{"$", 12.6, "$13"},
		{"$", 0, "$0"},
		{"%", 40, "40%"},
		{"%", 2.4, "2%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Money(tt.currency, tt.v))
	}
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "1 bid", Plural(1, "bid", "bids"))
	assert.Equal(t, "0 bids", Plural(0, "bid", "bids"))
	assert.Equal(t, "12 bids", Plural(12, "bid", "bids"))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{name: "short", input: "Bijan", n: 10, expected: "Bijan"},
		{name: "exact", input: "Puka Nacua", n: 10, expected: "Puka Nacua"},
		{name: "long", input: "Amon-Ra St. Brown", n: 10, expected: "Amon-Ra S…"},
		{name: "runes", input: "Ja'Marr Chäse", n: 9, expected: "Ja'Marr …"},
		{name: "no room", input: "x", n: 0, expected: "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.input, tt.n))
		})
	}
}

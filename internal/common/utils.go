package common

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// RoundHalfAwayFromZero rounds v to the given number of decimal places.
// Ties are decided on the shortest decimal form of v, so 14.45 rounds to 14.5
// even though its binary value sits just below the tie.
func RoundHalfAwayFromZero(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	if places < 0 {
		places = 0
	}

	out, _ := decimal.NewFromFloat(v).Round(int32(places)).Float64()
	if out == 0 {
		return 0
	}
	return out
}

// RoundToInt rounds a temperature to a whole degree, half away from zero.
func RoundToInt(v float64) int {
	return int(RoundHalfAwayFromZero(v, 0))
}

// QueryLen is the length of a search query as the user sees it.
func QueryLen(q string) int {
	return utf8.RuneCountInString(strings.TrimSpace(q))
}

// NormalizeQuery folds a query into a cache key.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

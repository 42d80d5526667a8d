// Package utils provides small shared helpers.
package utils

import (
	"math"
	"strconv"
)

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

// FormatDecimal renders v rounded to the given number of decimal places,
// without trailing zeros, for exchange payloads.
func FormatDecimal(v float64, places int) string {
	return strconv.FormatFloat(RoundTo(v, places), 'f', -1, 64)
}

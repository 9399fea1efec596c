// Package format holds the number formatting shared by chart rendering
// and Telegram captions.
package format

import (
	"strconv"
	"strings"
)

// Number renders a price compactly: at most maxDecimals decimals with
// trailing zeros stripped, so 1.0 becomes "1" and 0.45943 becomes
// "0.4594".
func Number(value float64, maxDecimals int) string {
	if value == 0 {
		return "0"
	}
	s := strconv.FormatFloat(value, 'f', maxDecimals, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}

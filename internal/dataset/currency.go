package dataset

import (
	"math"
	"strconv"
	"strings"
)

// ParseCurrency reads a revenue cell such as "$1,234.56". Blank cells and
// the sheet placeholders "-" and "x" are 0, and so is anything that still
// fails to parse. It never returns an error: one malformed cell must not
// abort a sync.
func ParseCurrency(cell string) float64 {
	value, _ := ParseAmount(cell)
	return value
}

// ParseAmount is ParseCurrency that also reports whether the cell held a
// number at all.
func ParseAmount(cell string) (float64, bool) {
	text := strings.TrimSpace(cell)
	if isBlankAmount(text) {
		return 0, false
	}

	text = strings.ReplaceAll(text, "$", "")
	text = strings.ReplaceAll(text, ",", "")
	text = strings.TrimSpace(text)
	if isBlankAmount(text) {
		return 0, false
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

func isBlankAmount(text string) bool {
	switch strings.ToLower(text) {
	case "", "-", "x":
		return true
	}
	return false
}

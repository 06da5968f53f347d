package grid

import (
	"regexp"
	"strings"
)

// headerScanWidth is how many leading cells of a row are checked for the
// "Website" header token.
const headerScanWidth = 5

var domainPattern = regexp.MustCompile(`(?i)^[a-z0-9][-a-z0-9]*\.[a-z]{2,}$`)

// FindHeaderRow locates the real header row of a sheet that carries
// metadata rows above it. The first row with "Website" in one of its first
// five cells wins. Failing that, a data row is recognised by a numeric rank
// in column 0 and a domain in column 1, and the row above it is the header.
// Otherwise row 0 is assumed.
func FindHeaderRow(g Grid) int {
	for rowIdx, row := range g {
		limit := len(row)
		if limit > headerScanWidth {
			limit = headerScanWidth
		}
		if _, ok := EntityColumn(row[:limit]); ok {
			return rowIdx
		}
	}

	for rowIdx, row := range g {
		if len(row) < 2 {
			continue
		}
		first := strings.TrimSpace(row[0])
		second := strings.TrimSpace(row[1])
		if isDigits(first) && domainPattern.MatchString(second) {
			if rowIdx == 0 {
				return 0
			}
			return rowIdx - 1
		}
	}

	return 0
}

// TrimToHeader drops the rows above FindHeaderRow.
func TrimToHeader(g Grid) Grid {
	idx := FindHeaderRow(g)
	if idx == 0 {
		return g
	}
	return g[idx:]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

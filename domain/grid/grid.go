// Package grid holds the header-plus-rows table that every component passes
// around: row 0 is the header, every other row is data.
package grid

import (
	"strings"
)

// EntityHeader is the header text of the entity-identifier column.
const EntityHeader = "website"

// DefaultEntityColumn is assumed when no header cell reads "Website".
// Sheets have drifted their header text before; the fixed position keeps
// those syncs running at the cost of trusting the layout.
const DefaultEntityColumn = 1

// Grid is an ordered sequence of rows of string cells. Rows may be ragged.
type Grid [][]string

// HasData reports whether g has a header and at least one data row.
func (g Grid) HasData() bool {
	return len(g) >= 2
}

// Header returns row 0, or nil for an empty grid.
func (g Grid) Header() []string {
	if len(g) == 0 {
		return nil
	}
	return g[0]
}

// Rows returns the data rows.
func (g Grid) Rows() [][]string {
	if len(g) < 2 {
		return nil
	}
	return g[1:]
}

// Width is the header length.
func (g Grid) Width() int {
	return len(g.Header())
}

// Clone returns a deep copy so callers may mutate the result freely.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// IsRectangular reports whether every row has exactly Width cells.
func (g Grid) IsRectangular() bool {
	width := g.Width()
	for _, row := range g {
		if len(row) != width {
			return false
		}
	}
	return true
}

// EntityColumn finds the column whose header reads "Website", ignoring case
// and surrounding whitespace.
func EntityColumn(header []string) (int, bool) {
	for idx, cell := range header {
		if strings.EqualFold(strings.TrimSpace(cell), EntityHeader) {
			return idx, true
		}
	}
	return 0, false
}

// EntityColumnOrDefault is EntityColumn with the DefaultEntityColumn fallback.
func EntityColumnOrDefault(header []string) int {
	if idx, ok := EntityColumn(header); ok {
		return idx
	}
	return DefaultEntityColumn
}

// NormalizeEntity is the join form of an entity cell.
func NormalizeEntity(cell string) string {
	return strings.ToLower(strings.TrimSpace(cell))
}

// EntityKey reads the entity key of row at col. Rows too short to hold the
// column, empty keys and repeated header tokens are rejected.
func EntityKey(row []string, col int) (string, bool) {
	if col < 0 || col >= len(row) {
		return "", false
	}
	key := NormalizeEntity(row[col])
	if key == "" || key == EntityHeader {
		return "", false
	}
	return key, true
}

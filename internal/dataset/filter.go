package dataset

import (
	"dashsync/domain/grid"
)

// FilterByEntities keeps the header and the rows whose entity key is in
// keys, in their original order. A grid without a "Website" header is
// returned unchanged; there is no positional fallback here.
func FilterByEntities(g grid.Grid, keys PrioritySet) grid.Grid {
	if len(g) == 0 {
		return g
	}
	col, ok := grid.EntityColumn(g.Header())
	if !ok {
		return g
	}

	filtered := grid.Grid{g.Header()}
	for _, row := range g.Rows() {
		key, ok := grid.EntityKey(row, col)
		if !ok {
			continue
		}
		if keys.Contains(key) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

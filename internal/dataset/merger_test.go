package dataset

import (
	"fmt"
	"testing"

	"dashsync/domain/grid"
	"dashsync/domain/period"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cell looks up the value of an entity/column pair in a merged grid.
func cell(t *testing.T, g grid.Grid, entity, column string) string {
	t.Helper()
	col := -1
	for idx, h := range g.Header() {
		if h == column {
			col = idx
		}
	}
	require.GreaterOrEqual(t, col, 0, "column %q missing from %v", column, g.Header())
	entityCol := grid.EntityColumnOrDefault(g.Header())
	for _, row := range g.Rows() {
		if key, ok := grid.EntityKey(row, entityCol); ok && key == entity {
			return row[col]
		}
	}
	t.Fatalf("entity %q missing", entity)
	return ""
}

func TestMergeScenario(t *testing.T) {
	existing := grid.Grid{{"Website", "Jan 2024"}, {"a.com", "10"}}
	fresh := grid.Grid{{"Website", "Feb 2024"}, {"a.com", "20"}, {"b.com", "5"}}

	merged := Merge(existing, fresh)

	assert.Equal(t, grid.Grid{
		{"Website", "Jan 2024", "Feb 2024"},
		{"a.com", "10", "20"},
		{"b.com", "", "5"},
	}, merged)
}

func TestMergeWithoutExistingReturnsFresh(t *testing.T) {
	fresh := grid.Grid{{"Website", "Feb 2024"}, {"a.com", "20"}}

	assert.Equal(t, fresh, Merge(nil, fresh))
	assert.Equal(t, fresh, Merge(grid.Grid{{"Website", "Jan 2024"}}, fresh))
}

func TestMergeWithoutFreshKeepsExisting(t *testing.T) {
	existing := grid.Grid{{"Website", "Jan 2024"}, {"a.com", "10"}}

	assert.Equal(t, existing, Merge(existing, nil))
	assert.Equal(t, existing, Merge(existing, grid.Grid{{"Website", "Feb 2024"}}))
}

func TestMergePreservesHistoricalColumns(t *testing.T) {
	existing := grid.Grid{
		{"Website", "Jan 2023", "Feb 2023"},
		{"a.com", "1", "2"},
		{"b.com", "3", "4"},
	}
	fresh := grid.Grid{
		{"Website", "Feb 2023", "Mar 2023"},
		{"a.com", "20", "30"},
		{"b.com", "40", "50"},
	}

	merged := Merge(existing, fresh)

	assert.Contains(t, merged.Header(), "Jan 2023")
	assert.Equal(t, "1", cell(t, merged, "a.com", "Jan 2023"))
	assert.Equal(t, "3", cell(t, merged, "b.com", "Jan 2023"))
}

func TestMergeFreshWinsOnOverlap(t *testing.T) {
	existing := grid.Grid{{"Website", "Mar 2024"}, {"a.com", "100"}}
	fresh := grid.Grid{{"Website", "Mar 2024"}, {"a.com", "250"}}

	merged := Merge(existing, fresh)

	assert.Equal(t, "250", cell(t, merged, "a.com", "Mar 2024"))
	assert.Len(t, merged.Header(), 2)
}

func TestMergeEntityUnion(t *testing.T) {
	existing := grid.Grid{{"Website", "Jan 2024"}, {"a.com", "10"}}
	fresh := grid.Grid{{"Website", "Feb 2024"}, {"b.com", "5"}}

	merged := Merge(existing, fresh)

	require.Len(t, merged.Rows(), 2)
	assert.Equal(t, []string{"a.com", "10", ""}, merged[1])
	assert.Equal(t, []string{"b.com", "", "5"}, merged[2])
}

func TestMergeStructuralColumnsComeFromFresh(t *testing.T) {
	existing := grid.Grid{
		{"#", "Website", "Niche", "Jan 2024"},
		{"1", "a.com", "old-niche", "10"},
		{"2", "gone.com", "gone-niche", "7"},
	}
	fresh := grid.Grid{
		{"#", "Website", "Niche", "Notes", "Feb 2024"},
		{"1", "a.com", "tech", "new", "20"},
	}

	merged := Merge(existing, fresh)

	assert.Equal(t, []string{"#", "Website", "Niche", "Notes", "Jan 2024", "Feb 2024"}, merged.Header())
	assert.Equal(t, []string{"1", "a.com", "tech", "new", "10", "20"}, merged[1])
	// gone.com keeps its history and key, but none of its old structural values.
	assert.Equal(t, []string{"", "gone.com", "", "", "7", ""}, merged[2])
}

func TestMergeFreshHeaderTextWins(t *testing.T) {
	existing := grid.Grid{{"Website", "jan  2024"}, {"a.com", "10"}}
	fresh := grid.Grid{{"Website", "Jan 2024"}, {"b.com", "5"}}

	merged := Merge(existing, fresh)

	assert.Equal(t, []string{"Website", "Jan 2024"}, merged.Header())
	assert.Equal(t, "10", cell(t, merged, "a.com", "Jan 2024"))
	assert.Equal(t, "5", cell(t, merged, "b.com", "Jan 2024"))
}

func TestMergeSortsPeriodColumns(t *testing.T) {
	existing := grid.Grid{
		{"Website", "Mar 5 - 2024", "Feb 3", "Jan 2024"},
		{"a.com", "1", "2", "3"},
	}
	fresh := grid.Grid{
		{"Website", "Niche", "Dec 2023", "Mar 1 - 2024"},
		{"a.com", "tech", "4", "5"},
	}

	merged := Merge(existing, fresh)

	assert.Equal(t, []string{"Website", "Niche", "Dec 2023", "Jan 2024", "Mar 1 - 2024", "Mar 5 - 2024", "Feb 3"}, merged.Header())

	var prev period.SortKey
	for i, h := range merged.Header()[2:] {
		key := period.SortKeyOf(h)
		if i > 0 {
			assert.False(t, key.Less(prev), "%q sorts before its predecessor", h)
		}
		prev = key
	}
}

func TestMergeRowsSortedByEntityKey(t *testing.T) {
	existing := grid.Grid{{"Website", "Jan 2024"}, {"zeta.com", "1"}, {"Alpha.com", "2"}}
	fresh := grid.Grid{{"Website", "Jan 2024"}, {"mid.com", "3"}}

	merged := Merge(existing, fresh)

	var keys []string
	for _, row := range merged.Rows() {
		keys = append(keys, grid.NormalizeEntity(row[0]))
	}
	assert.Equal(t, []string{"alpha.com", "mid.com", "zeta.com"}, keys)
}

func TestMergeIsRectangularWithRaggedInput(t *testing.T) {
	existing := grid.Grid{
		{"Website", "Jan 2024", "Feb 2024"},
		{"a.com"},
		{"b.com", "1", "2", "extra", "cells"},
		{},
	}
	fresh := grid.Grid{
		{"#", "Website", "Mar 2024"},
		{"1"},
		{"2", "c.com"},
		{"3", "a.com", "9"},
	}

	merged := Merge(existing, fresh)

	assert.True(t, merged.IsRectangular())
	assert.Len(t, merged.Rows(), 3)
	assert.Equal(t, "", cell(t, merged, "a.com", "Jan 2024"))
	assert.Equal(t, "9", cell(t, merged, "a.com", "Mar 2024"))
	assert.Equal(t, "2", cell(t, merged, "b.com", "Feb 2024"))
}

func TestMergeSkipsBlankAndHeaderKeys(t *testing.T) {
	existing := grid.Grid{{"Website", "Jan 2024"}, {"", "1"}, {"WEBSITE", "2"}, {"a.com", "3"}}
	fresh := grid.Grid{{"Website", "Feb 2024"}, {"  ", "4"}, {"a.com", "5"}}

	merged := Merge(existing, fresh)

	require.Len(t, merged.Rows(), 1)
	assert.Equal(t, []string{"a.com", "3", "5"}, merged[1])
}

func TestMergeDuplicateKeysLastRowWinsPerColumn(t *testing.T) {
	existing := grid.Grid{{"Website", "Jan 2024"}, {"a.com", "1"}}
	fresh := grid.Grid{
		{"Website", "Feb 2024", "Mar 2024"},
		{"a.com", "2", "3"},
		{"A.com ", "20"},
	}

	merged := Merge(existing, fresh)

	require.Len(t, merged.Rows(), 1)
	assert.Equal(t, "1", cell(t, merged, "a.com", "Jan 2024"))
	assert.Equal(t, "20", cell(t, merged, "a.com", "Feb 2024"))
	assert.Equal(t, "3", cell(t, merged, "a.com", "Mar 2024"))
}

func TestMergeFallsBackToSecondColumnForEntity(t *testing.T) {
	existing := grid.Grid{{"#", "Domain", "Jan 2024"}, {"1", "a.com", "10"}}
	fresh := grid.Grid{{"#", "Domain", "Feb 2024"}, {"1", "a.com", "20"}}

	merged := Merge(existing, fresh)

	assert.Equal(t, grid.Grid{
		{"#", "Domain", "Jan 2024", "Feb 2024"},
		{"1", "a.com", "10", "20"},
	}, merged)
}

func TestMergeIdempotentOnSameGrid(t *testing.T) {
	g := grid.Grid{
		{"#", "Website", "Niche", "Jan 2024", "Feb 2024"},
		{"1", "a.com", "tech", "1", "2"},
		{"2", "b.com", "food", "3", ""},
		{"3", "c.com", "", "", "6"},
	}

	merged := Merge(g, g)

	assert.Equal(t, g, merged)
}

func TestMergeOfMergeIsStable(t *testing.T) {
	existing := grid.Grid{{"Website", "Jan 2024"}, {"a.com", "10"}}
	fresh := grid.Grid{{"Website", "Feb 2024"}, {"a.com", "20"}, {"b.com", "5"}}

	once := Merge(existing, fresh)
	twice := Merge(once, fresh)

	assert.Equal(t, once, twice)
}

func TestMergerReportsStatistics(t *testing.T) {
	existing := grid.Grid{
		{"Website", "Jan 2024", "Feb 2024"},
		{"a.com", "1", "2"},
		{"old.com", "3", "4"},
	}
	fresh := grid.Grid{
		{"Website", "Niche", "Feb 2024", "Mar 2024"},
		{"a.com", "tech", "5", "6"},
		{"new.com", "food", "7", "8"},
		{"new2.com", "food", "9", "10"},
	}

	merged, result := NewMerger(nil).MergeGrids(existing, fresh)

	assert.Equal(t, 4, result.RowCount)
	assert.Equal(t, 5, result.ColumnCount)
	assert.Equal(t, 3, result.PeriodColumns)
	assert.Equal(t, 1, result.HistoricalColumns)
	assert.Equal(t, 1, result.RetainedEntities)
	assert.Equal(t, 2, result.AddedEntities)
	assert.False(t, result.UsedExisting)
	assert.Len(t, merged, 5)

	_, result = NewMerger(nil).MergeGrids(existing, nil)
	assert.True(t, result.UsedExisting)
	assert.Equal(t, 2, result.RowCount)
}

func TestMergeLargeGridRectangular(t *testing.T) {
	existing := grid.Grid{{"Website", "Jan 2024", "Feb 2024"}}
	fresh := grid.Grid{{"Website", "Feb 2024", "Mar 2024"}}
	for i := 0; i < 300; i++ {
		existing = append(existing, []string{fmt.Sprintf("site%03d.com", i), "1", "2"})
		if i%2 == 0 {
			fresh = append(fresh, []string{fmt.Sprintf("site%03d.com", i+150), "3"})
		}
	}

	merged := Merge(existing, fresh)

	assert.True(t, merged.IsRectangular())
	assert.Equal(t, 375, len(merged.Rows()))
}

// Package dataset merges wide, date-columned spreadsheet tables and derives
// the priority-domain subset from revenue.
//
// A wide table has one row per website and one column per month or dated
// snapshot. Sheets drop old columns over time, so every sync merges the
// freshly fetched table into the previously persisted one:
//
//   - structural columns (anything that is not a period) come from the new
//     table, in its order
//   - period columns are the union of both tables, sorted chronologically
//   - new values win where both tables hold a cell for the same website and
//     period; old values survive everywhere else
//   - websites seen in either table are kept, sorted by key
package dataset

import (
	"sort"
	"time"

	"dashsync/domain/grid"
	"dashsync/domain/period"

	"go.uber.org/zap"
)

// MergeResult describes what a merge did, for logging and the run report
type MergeResult struct {
	RowCount          int           `json:"row_count"`
	ColumnCount       int           `json:"column_count"`
	PeriodColumns     int           `json:"period_columns"`
	HistoricalColumns int           `json:"historical_columns"`
	RetainedEntities  int           `json:"retained_entities"`
	AddedEntities     int           `json:"added_entities"`
	UsedExisting      bool          `json:"used_existing"`
	ExecutionTime     time.Duration `json:"execution_time"`
}

// Merger merges persisted and freshly fetched wide tables
type Merger struct {
	logger *zap.Logger
}

// NewMerger creates a new merger
func NewMerger(logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{logger: logger}
}

// MergeGrids merges fresh into existing and reports what changed.
func (m *Merger) MergeGrids(existing, fresh grid.Grid) (grid.Grid, MergeResult) {
	start := time.Now()
	merged, result := mergeWide(existing, fresh)
	result.ExecutionTime = time.Since(start)

	m.logger.Debug("merged wide table",
		zap.Int("existing_rows", len(existing.Rows())),
		zap.Int("fresh_rows", len(fresh.Rows())),
		zap.Int("rows", result.RowCount),
		zap.Int("columns", result.ColumnCount),
		zap.Int("historical_columns", result.HistoricalColumns),
		zap.Int("retained_entities", result.RetainedEntities),
		zap.Int("added_entities", result.AddedEntities),
		zap.Bool("used_existing", result.UsedExisting))

	return merged, result
}

// Merge combines a persisted table with a freshly fetched one. If existing
// has no data rows, fresh is returned unchanged; if fresh has none, existing
// is returned unchanged so a broken fetch never loses history.
func Merge(existing, fresh grid.Grid) grid.Grid {
	merged, _ := mergeWide(existing, fresh)
	return merged
}

// periodColumn is one period column of the merged header.
type periodColumn struct {
	text string
	key  period.SortKey
}

func mergeWide(existing, fresh grid.Grid) (grid.Grid, MergeResult) {
	if !existing.HasData() {
		return fresh, summarize(fresh, MergeResult{})
	}
	if !fresh.HasData() {
		return existing, summarize(existing, MergeResult{UsedExisting: true})
	}

	existingHeader := existing.Header()
	freshHeader := fresh.Header()
	existingEntityCol := grid.EntityColumnOrDefault(existingHeader)
	freshEntityCol := grid.EntityColumnOrDefault(freshHeader)

	// Structural columns: the fresh header's non-period cells, by position.
	var header []string
	structuralIndex := make(map[int]int)
	for idx, cell := range freshHeader {
		if period.IsPeriodColumn(cell) {
			continue
		}
		structuralIndex[idx] = len(header)
		header = append(header, cell)
	}

	// Period columns: union keyed by normalized text; fresh text wins.
	columns := make(map[string]*periodColumn)
	var order []string
	register := func(cell string) {
		key := period.NormalizeKey(cell)
		if col, ok := columns[key]; ok {
			col.text = cell
			col.key = period.SortKeyOf(cell)
			return
		}
		columns[key] = &periodColumn{text: cell, key: period.SortKeyOf(cell)}
		order = append(order, key)
	}
	freshPeriods := make(map[string]bool)
	for _, cell := range existingHeader {
		if period.IsPeriodColumn(cell) {
			register(cell)
		}
	}
	for _, cell := range freshHeader {
		if period.IsPeriodColumn(cell) {
			register(cell)
			freshPeriods[period.NormalizeKey(cell)] = true
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return columns[order[i]].key.Less(columns[order[j]].key)
	})

	periodIndex := make(map[string]int, len(order))
	for _, key := range order {
		periodIndex[key] = len(header)
		header = append(header, columns[key].text)
	}

	mergedEntityCol := -1
	if idx, ok := structuralIndex[freshEntityCol]; ok {
		mergedEntityCol = idx
	}

	table := make(map[string][]string)
	rowFor := func(key string) []string {
		row, ok := table[key]
		if !ok {
			row = make([]string, len(header))
			table[key] = row
		}
		return row
	}

	// Existing rows contribute period values only.
	existingKeys := make(map[string]bool)
	existingPeriods := columnMapping(existingHeader, periodIndex)
	for _, src := range existing.Rows() {
		key, ok := grid.EntityKey(src, existingEntityCol)
		if !ok {
			continue
		}
		existingKeys[key] = true
		row := rowFor(key)
		if mergedEntityCol >= 0 && row[mergedEntityCol] == "" {
			row[mergedEntityCol] = src[existingEntityCol]
		}
		for _, pair := range existingPeriods {
			if pair.src < len(src) {
				row[pair.dst] = src[pair.src]
			}
		}
	}

	// Fresh rows overlay everything they carry.
	freshKeys := make(map[string]bool)
	freshPeriodCols := columnMapping(freshHeader, periodIndex)
	for _, src := range fresh.Rows() {
		key, ok := grid.EntityKey(src, freshEntityCol)
		if !ok {
			continue
		}
		freshKeys[key] = true
		row := rowFor(key)
		for srcIdx, dstIdx := range structuralIndex {
			if srcIdx < len(src) {
				row[dstIdx] = src[srcIdx]
			}
		}
		for _, pair := range freshPeriodCols {
			if pair.src < len(src) {
				row[pair.dst] = src[pair.src]
			}
		}
	}

	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	merged := make(grid.Grid, 0, len(keys)+1)
	merged = append(merged, header)
	for _, key := range keys {
		merged = append(merged, table[key])
	}

	result := MergeResult{}
	for key := range columns {
		if !freshPeriods[key] {
			result.HistoricalColumns++
		}
	}
	for key := range existingKeys {
		if !freshKeys[key] {
			result.RetainedEntities++
		}
	}
	for key := range freshKeys {
		if !existingKeys[key] {
			result.AddedEntities++
		}
	}
	return merged, summarize(merged, result)
}

// columnMapping maps the period columns of a source header to merged
// column positions. Later duplicates of the same period overwrite earlier
// ones when rows are copied in ascending source order.
func columnMapping(header []string, periodIndex map[string]int) []columnPair {
	var pairs []columnPair
	for idx, cell := range header {
		if !period.IsPeriodColumn(cell) {
			continue
		}
		if dst, ok := periodIndex[period.NormalizeKey(cell)]; ok {
			pairs = append(pairs, columnPair{src: idx, dst: dst})
		}
	}
	return pairs
}

type columnPair struct {
	src int
	dst int
}

func summarize(g grid.Grid, result MergeResult) MergeResult {
	result.RowCount = len(g.Rows())
	result.ColumnCount = g.Width()
	for _, cell := range g.Header() {
		if period.IsPeriodColumn(cell) {
			result.PeriodColumns++
		}
	}
	return result
}

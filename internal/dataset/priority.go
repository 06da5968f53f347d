package dataset

import (
	"sort"
	"time"

	"dashsync/domain/grid"
	"dashsync/domain/period"

	"go.uber.org/zap"
)

// DefaultPriorityTopN is how many entities each revenue window contributes.
const DefaultPriorityTopN = 100

// UnmatchedPaymentsKey is the revenue sheet's catch-all row for payments
// not attributed to a website.
const UnmatchedPaymentsKey = "unmatched payments"

// PrioritySet is a set of entity keys.
type PrioritySet map[string]struct{}

// Contains reports whether key is in the set.
func (s PrioritySet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// Len returns the number of keys.
func (s PrioritySet) Len() int {
	return len(s)
}

// Keys returns the keys in ascending order.
func (s PrioritySet) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// EntityTotals are the revenue windows of one revenue row.
type EntityTotals struct {
	Key             string
	Lifetime        float64
	LastThreeMonths float64
	CurrentMonth    float64
}

// PrioritySelector ranks websites by revenue and picks the priority set
type PrioritySelector struct {
	topN   int
	logger *zap.Logger
}

// NewPrioritySelector creates a selector keeping topN entities per window.
// A non-positive topN uses DefaultPriorityTopN.
func NewPrioritySelector(topN int, logger *zap.Logger) *PrioritySelector {
	if topN <= 0 {
		topN = DefaultPriorityTopN
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrioritySelector{topN: topN, logger: logger}
}

// ComputePriority returns the union of the top 100 websites by lifetime,
// last-three-months and current-month revenue.
func ComputePriority(revenue grid.Grid, now time.Time) PrioritySet {
	return NewPrioritySelector(DefaultPriorityTopN, nil).Select(revenue, now)
}

// Select returns the union of the top-N entities for each revenue window.
func (s *PrioritySelector) Select(revenue grid.Grid, now time.Time) PrioritySet {
	totals := s.Totals(revenue, now)

	set := make(PrioritySet)
	windows := []struct {
		name  string
		value func(EntityTotals) float64
	}{
		{"lifetime", func(t EntityTotals) float64 { return t.Lifetime }},
		{"last_3_months", func(t EntityTotals) float64 { return t.LastThreeMonths }},
		{"current_month", func(t EntityTotals) float64 { return t.CurrentMonth }},
	}
	for _, w := range windows {
		top := TopEntities(totals, s.topN, w.value)
		for _, t := range top {
			set[t.Key] = struct{}{}
		}
		s.logger.Debug("ranked revenue window", zap.String("window", w.name), zap.Int("selected", len(top)))
	}

	s.logger.Info("computed priority domains",
		zap.Int("entities", len(totals)),
		zap.Int("priority_domains", set.Len()))
	return set
}

// Totals computes the revenue windows of every qualifying row, in row order.
// A grid without a usable entity column yields no totals.
func (s *PrioritySelector) Totals(revenue grid.Grid, now time.Time) []EntityTotals {
	if !revenue.HasData() {
		return nil
	}
	header := revenue.Header()
	entityCol := grid.EntityColumnOrDefault(header)
	if entityCol >= len(header) {
		return nil
	}

	buckets := monthBuckets(header, now)
	bucketCols := make([]int, 0, len(buckets))
	for _, col := range buckets {
		bucketCols = append(bucketCols, col)
	}
	sort.Ints(bucketCols)
	current := period.MonthOf(now)
	recent := []period.YearMonth{current.AddMonths(-1), current.AddMonths(-2), current.AddMonths(-3)}

	var totals []EntityTotals
	for _, row := range revenue.Rows() {
		key, ok := grid.EntityKey(row, entityCol)
		if !ok || key == UnmatchedPaymentsKey {
			continue
		}

		t := EntityTotals{Key: key}
		for _, col := range bucketCols {
			t.Lifetime += cellAmount(row, col)
		}
		for _, ym := range recent {
			if col, ok := buckets[ym]; ok {
				t.LastThreeMonths += cellAmount(row, col)
			}
		}
		if col, ok := buckets[current]; ok {
			t.CurrentMonth = cellAmount(row, col)
		}
		totals = append(totals, t)
	}
	return totals
}

// TopEntities returns at most n totals ordered by value descending. Ties
// keep their input order.
func TopEntities(totals []EntityTotals, n int, value func(EntityTotals) float64) []EntityTotals {
	ranked := append([]EntityTotals(nil), totals...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return value(ranked[i]) > value(ranked[j])
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// monthBuckets maps each calendar month to the header column holding it.
// Dated columns are classified first, in header order, so a later column
// for the same month replaces an earlier one; "Current" columns are
// classified last and always own the invocation month.
func monthBuckets(header []string, now time.Time) map[period.YearMonth]int {
	buckets := make(map[period.YearMonth]int)
	for idx, cell := range header {
		if ym, ok := period.Bucket(cell); ok {
			buckets[ym] = idx
		}
	}
	current := period.MonthOf(now)
	for idx, cell := range header {
		if period.IsCurrentAlias(cell) {
			buckets[current] = idx
		}
	}
	return buckets
}

func cellAmount(row []string, col int) float64 {
	if col < 0 || col >= len(row) {
		return 0
	}
	return ParseCurrency(row[col])
}

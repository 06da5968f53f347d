package dataset

import (
	"fmt"
	"testing"
	"time"

	"dashsync/domain/grid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func revenueFixture() grid.Grid {
	return grid.Grid{
		{"#", "Website", "Nov 2023", "Dec 2023", "Jan 2024", "Feb 2024", "Current"},
		{"1", "a.com", "$1,000", "", "", "", ""},
		{"2", "b.com", "", "", "$50", "", "-"},
		{"3", "c.com", "", "", "", "", "$30"},
		{"4", "d.com", "10", "10", "10", "10", "10"},
		{"5", "Unmatched Payments", "99999", "99999", "99999", "99999", "99999"},
		{"6", "", "500", "500", "500", "500", "500"},
	}
}

var march2024 = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func TestPriorityTotals(t *testing.T) {
	totals := NewPrioritySelector(10, nil).Totals(revenueFixture(), march2024)

	require.Len(t, totals, 4)
	byKey := make(map[string]EntityTotals)
	for _, total := range totals {
		byKey[total.Key] = total
	}

	assert.InDelta(t, 1000, byKey["a.com"].Lifetime, 1e-9)
	assert.InDelta(t, 0, byKey["a.com"].LastThreeMonths, 1e-9)
	assert.InDelta(t, 50, byKey["b.com"].LastThreeMonths, 1e-9)
	assert.InDelta(t, 30, byKey["c.com"].CurrentMonth, 1e-9)
	assert.InDelta(t, 50, byKey["d.com"].Lifetime, 1e-9)
	assert.InDelta(t, 30, byKey["d.com"].LastThreeMonths, 1e-9)
	assert.InDelta(t, 10, byKey["d.com"].CurrentMonth, 1e-9)
	assert.NotContains(t, byKey, UnmatchedPaymentsKey)
}

func TestPrioritySelectUnionOfWindows(t *testing.T) {
	set := NewPrioritySelector(1, nil).Select(revenueFixture(), march2024)

	assert.Equal(t, []string{"a.com", "b.com", "c.com"}, set.Keys())
}

func TestPriorityLastThreeMonthsWrapsYear(t *testing.T) {
	revenue := grid.Grid{
		{"Website", "Sep 2023", "Oct 2023", "Nov 2023", "Dec 2023", "Jan 2024"},
		{"a.com", "100", "1", "2", "3", "7"},
	}
	january := time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)

	totals := NewPrioritySelector(1, nil).Totals(revenue, january)

	require.Len(t, totals, 1)
	assert.InDelta(t, 6, totals[0].LastThreeMonths, 1e-9)
	assert.InDelta(t, 7, totals[0].CurrentMonth, 1e-9)
	assert.InDelta(t, 113, totals[0].Lifetime, 1e-9)
}

func TestPriorityCurrentOverridesDatedMonth(t *testing.T) {
	revenue := grid.Grid{
		{"Website", "Mar 2024", "Current"},
		{"a.com", "999", "5"},
	}

	totals := NewPrioritySelector(1, nil).Totals(revenue, march2024)

	require.Len(t, totals, 1)
	assert.InDelta(t, 5, totals[0].CurrentMonth, 1e-9)
}

func TestPriorityUsesUTCMonth(t *testing.T) {
	revenue := grid.Grid{
		{"Website", "Feb 2024", "Mar 2024"},
		{"a.com", "1", "2"},
	}
	// Still February in UTC.
	local := time.Date(2024, time.March, 1, 5, 0, 0, 0, time.FixedZone("AEDT", 11*3600))

	totals := NewPrioritySelector(1, nil).Totals(revenue, local)

	require.Len(t, totals, 1)
	assert.InDelta(t, 1, totals[0].CurrentMonth, 1e-9)
}

func TestPrioritySetBoundedByThreeWindows(t *testing.T) {
	revenue := grid.Grid{{"Website", "Dec 2023", "Jan 2024", "Feb 2024", "Current"}}
	for i := 0; i < 500; i++ {
		revenue = append(revenue, []string{
			fmt.Sprintf("site%03d.com", i),
			fmt.Sprint(i),
			fmt.Sprint((i * 7) % 500),
			fmt.Sprint(500 - i),
			fmt.Sprint((i * 13) % 500),
		})
	}

	set := ComputePriority(revenue, march2024)

	assert.LessOrEqual(t, set.Len(), 3*DefaultPriorityTopN)
	assert.GreaterOrEqual(t, set.Len(), DefaultPriorityTopN)
	assert.Equal(t, set, ComputePriority(revenue, march2024))
}

func TestPriorityWithoutEntityColumn(t *testing.T) {
	assert.Zero(t, ComputePriority(grid.Grid{{"Website"}}, march2024).Len())
	assert.Zero(t, ComputePriority(grid.Grid{{"Only"}, {"a.com"}}, march2024).Len())
	assert.Zero(t, ComputePriority(nil, march2024).Len())
}

func TestTopEntitiesStableOnTies(t *testing.T) {
	totals := []EntityTotals{
		{Key: "z.com", Lifetime: 5},
		{Key: "a.com", Lifetime: 5},
		{Key: "m.com", Lifetime: 9},
		{Key: "b.com", Lifetime: 1},
	}

	top := TopEntities(totals, 3, func(t EntityTotals) float64 { return t.Lifetime })

	require.Len(t, top, 3)
	assert.Equal(t, "m.com", top[0].Key)
	assert.Equal(t, "z.com", top[1].Key)
	assert.Equal(t, "a.com", top[2].Key)
	assert.Equal(t, "z.com", totals[0].Key, "input must not be reordered")
}

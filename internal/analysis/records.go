// Package analysis measures how well website traffic explains revenue,
// using the merged revenue and traffic tables the sync publishes.
package analysis

import (
	"sort"
	"strings"
	"time"

	"dashsync/domain/grid"
	"dashsync/domain/period"
	"dashsync/internal/dataset"
)

// RevenueRecord is one site's revenue for one calendar month.
type RevenueRecord struct {
	Site    string
	Niche   string
	Month   period.YearMonth
	Revenue float64
}

// TrafficRecord is one traffic snapshot of a site.
type TrafficRecord struct {
	Site   string
	Date   time.Time
	Visits float64
}

// RevenueRecords flattens a revenue grid into long form. Only "Mon YYYY"
// columns count; blank and unparsable cells are skipped, zeros are kept.
func RevenueRecords(g grid.Grid) []RevenueRecord {
	if !g.HasData() {
		return nil
	}
	header := g.Header()
	siteCol := grid.EntityColumnOrDefault(header)
	nicheCol := columnIndex(header, "niche")

	type monthCol struct {
		idx   int
		month period.YearMonth
	}
	var cols []monthCol
	for idx, cell := range header {
		if ym, ok := period.MonthColumn(cell); ok {
			cols = append(cols, monthCol{idx: idx, month: ym})
		}
	}

	var records []RevenueRecord
	for _, row := range g.Rows() {
		site, ok := grid.EntityKey(row, siteCol)
		if !ok || site == "-" || site == dataset.UnmatchedPaymentsKey {
			continue
		}
		niche := "Unknown"
		if nicheCol >= 0 && nicheCol < len(row) && strings.TrimSpace(row[nicheCol]) != "" {
			niche = strings.TrimSpace(row[nicheCol])
		}
		for _, col := range cols {
			if col.idx >= len(row) {
				continue
			}
			value, ok := dataset.ParseAmount(row[col.idx])
			if !ok {
				continue
			}
			records = append(records, RevenueRecord{Site: site, Niche: niche, Month: col.month, Revenue: value})
		}
	}
	return records
}

// TrafficRecords flattens a traffic grid into long form. Only dated
// snapshot columns count and only positive visit counts are kept.
func TrafficRecords(g grid.Grid) []TrafficRecord {
	if !g.HasData() {
		return nil
	}
	header := g.Header()
	siteCol := grid.EntityColumnOrDefault(header)

	type dateCol struct {
		idx  int
		date time.Time
	}
	var cols []dateCol
	for idx, cell := range header {
		if d, ok := period.SnapshotDate(cell); ok {
			cols = append(cols, dateCol{idx: idx, date: d})
		}
	}

	var records []TrafficRecord
	for _, row := range g.Rows() {
		site, ok := grid.EntityKey(row, siteCol)
		if !ok {
			continue
		}
		for _, col := range cols {
			if col.idx >= len(row) {
				continue
			}
			visits, ok := dataset.ParseAmount(row[col.idx])
			if !ok || visits <= 0 {
				continue
			}
			records = append(records, TrafficRecord{Site: site, Date: col.date, Visits: visits})
		}
	}
	return records
}

// trafficIndex holds each site's snapshots in date order.
type trafficIndex map[string][]TrafficRecord

func indexTraffic(records []TrafficRecord) trafficIndex {
	idx := make(trafficIndex)
	for _, r := range records {
		idx[r.Site] = append(idx[r.Site], r)
	}
	for site := range idx {
		snaps := idx[site]
		sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Date.Before(snaps[j].Date) })
	}
	return idx
}

func columnIndex(header []string, name string) int {
	for idx, cell := range header {
		if strings.EqualFold(strings.TrimSpace(cell), name) {
			return idx
		}
	}
	return -1
}

package analysis

import (
	"time"

	"dashsync/domain/period"

	"github.com/montanaflynn/stats"
)

// Method is a way of estimating a month's traffic from snapshots.
type Method int

const (
	SameMonthLatest Method = iota
	SameMonthAverage
	Lagged30
	Lagged60
)

// Methods lists every estimation method in report order.
var Methods = []Method{SameMonthLatest, SameMonthAverage, Lagged30, Lagged60}

// maxLagDistance is how far the closest snapshot may sit from a lag target.
const maxLagDistance = 30 * 24 * time.Hour

func (m Method) String() string {
	switch m {
	case SameMonthLatest:
		return "Same-Month Latest"
	case SameMonthAverage:
		return "Same-Month Avg"
	case Lagged30:
		return "30-Day Lagged"
	case Lagged60:
		return "60-Day Lagged"
	}
	return "Unknown"
}

// Observation pairs one month of revenue with each traffic estimate.
type Observation struct {
	Site    string
	Niche   string
	Month   period.YearMonth
	Revenue float64
	traffic [4]float64
	present [4]bool
}

// Traffic returns the estimate for m and whether one exists.
func (o Observation) Traffic(m Method) (float64, bool) {
	return o.traffic[m], o.present[m]
}

func (o *Observation) set(m Method, value float64) {
	o.traffic[m] = value
	o.present[m] = true
}

// Align attaches traffic estimates to revenue records. Months before the
// earliest traffic snapshot are dropped since no method can cover them.
func Align(revenue []RevenueRecord, traffic []TrafficRecord) []Observation {
	if len(revenue) == 0 || len(traffic) == 0 {
		return nil
	}
	idx := indexTraffic(traffic)

	earliest := traffic[0].Date
	for _, t := range traffic[1:] {
		if t.Date.Before(earliest) {
			earliest = t.Date
		}
	}
	firstMonth := period.MonthOf(earliest)

	observations := make([]Observation, 0, len(revenue))
	for _, r := range revenue {
		if r.Month.Before(firstMonth) {
			continue
		}
		obs := Observation{Site: r.Site, Niche: r.Niche, Month: r.Month, Revenue: r.Revenue}
		snaps := idx[r.Site]
		if v, ok := sameMonthLatest(snaps, r.Month); ok {
			obs.set(SameMonthLatest, v)
		}
		if v, ok := sameMonthAverage(snaps, r.Month); ok {
			obs.set(SameMonthAverage, v)
		}
		if v, ok := lagged(snaps, r.Month, 30); ok {
			obs.set(Lagged30, v)
		}
		if v, ok := lagged(snaps, r.Month, 60); ok {
			obs.set(Lagged60, v)
		}
		observations = append(observations, obs)
	}
	return observations
}

func inMonth(snaps []TrafficRecord, month period.YearMonth) []TrafficRecord {
	start, end := month.Start(), month.End()
	var out []TrafficRecord
	for _, s := range snaps {
		if !s.Date.Before(start) && !s.Date.After(end) {
			out = append(out, s)
		}
	}
	return out
}

func sameMonthLatest(snaps []TrafficRecord, month period.YearMonth) (float64, bool) {
	within := inMonth(snaps, month)
	if len(within) == 0 {
		return 0, false
	}
	return within[len(within)-1].Visits, true
}

func sameMonthAverage(snaps []TrafficRecord, month period.YearMonth) (float64, bool) {
	within := inMonth(snaps, month)
	if len(within) == 0 {
		return 0, false
	}
	visits := make(stats.Float64Data, len(within))
	for i, s := range within {
		visits[i] = s.Visits
	}
	mean, err := visits.Mean()
	if err != nil {
		return 0, false
	}
	return mean, true
}

// lagged returns the snapshot closest to the month's last day minus days,
// if one lies within maxLagDistance of it. Ties go to the earlier snapshot.
func lagged(snaps []TrafficRecord, month period.YearMonth, days int) (float64, bool) {
	if len(snaps) == 0 {
		return 0, false
	}
	target := month.End().AddDate(0, 0, -days)

	best := -1
	var bestDist time.Duration
	for i, s := range snaps {
		dist := s.Date.Sub(target)
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if bestDist > maxLagDistance {
		return 0, false
	}
	return snaps[best].Visits, true
}

package analysis

import (
	"math"
	"sort"
	"time"

	"dashsync/domain/grid"
	"dashsync/internal/dataset"
	"dashsync/internal/errors"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
)

var (
	// DefaultSegments are the revenue-rank cut-offs correlations are reported for.
	DefaultSegments = []int{10, 50, 100, 250}
	// DefaultConcentration are the portfolio sizes whose revenue share is reported.
	DefaultConcentration = []int{10, 25, 50, 100}
)

const efficiencyListSize = 10

// unrankedSite is the rank reported for sites absent from the revenue ranking.
const unrankedSite = 999

// MethodResult is one method's correlation within a segment.
type MethodResult struct {
	Method      Method      `json:"-"`
	Label       string      `json:"method"`
	Correlation Correlation `json:"correlation"`
}

// SegmentResult holds the correlations for the top-N sites by revenue.
type SegmentResult struct {
	Size    int            `json:"size"`
	Methods []MethodResult `json:"methods"`
}

// Best returns the method with the largest |Pearson r|, or false when no
// method had enough data.
func (s SegmentResult) Best() (MethodResult, bool) {
	var best MethodResult
	found := false
	for _, m := range s.Methods {
		if !m.Correlation.Valid() {
			continue
		}
		if !found || math.Abs(m.Correlation.Pearson) > math.Abs(best.Correlation.Pearson) {
			best, found = m, true
		}
	}
	return best, found
}

// Completeness counts observations with an estimate for one method.
type Completeness struct {
	Method Method
	Valid  int
	Total  int
}

// Percent is Valid as a share of Total.
func (c Completeness) Percent() float64 {
	if c.Total == 0 {
		return 0
	}
	return 100 * float64(c.Valid) / float64(c.Total)
}

// SiteEfficiency is a site's revenue per unit of average traffic.
type SiteEfficiency struct {
	Rank          int
	Site          string
	Niche         string
	Revenue       float64
	AverageVisits float64
	// PerVisit is NaN when the site has no traffic average.
	PerVisit float64
}

// ConcentrationShare is the revenue held by the top N sites.
type ConcentrationShare struct {
	Top     int
	Revenue float64
	Percent float64
}

// Report is the full traffic/revenue analysis.
type Report struct {
	GeneratedAt      time.Time
	RevenueRecords   int
	TrafficRecords   int
	SitesWithRevenue int
	SitesWithTraffic int
	SitesWithBoth    int
	Observations     int
	Completeness     []Completeness
	Segments         []SegmentResult
	// MethodAverages is the mean |Pearson r| of each method across segments.
	MethodAverages map[Method]float64
	MostEfficient  []SiteEfficiency
	LeastEfficient []SiteEfficiency
	Concentration  []ConcentrationShare
	TotalRevenue   float64
}

// Winner returns the method with the highest average |Pearson r|.
func (r *Report) Winner() (Method, float64, bool) {
	var winner Method
	best := math.Inf(-1)
	for _, m := range Methods {
		avg, ok := r.MethodAverages[m]
		if !ok || math.IsNaN(avg) {
			continue
		}
		if avg > best {
			winner, best = m, avg
		}
	}
	return winner, best, !math.IsInf(best, -1)
}

// LagConfirmed reports whether either lagged method beat same-month latest.
func (r *Report) LagConfirmed() bool {
	latest, ok := r.MethodAverages[SameMonthLatest]
	if !ok || math.IsNaN(latest) {
		return false
	}
	return r.MethodAverages[Lagged30] > latest || r.MethodAverages[Lagged60] > latest
}

// Options tunes an analysis run
type Options struct {
	Segments      []int
	Concentration []int
	// Now resolves the revenue sheet's "Current" column when ranking.
	Now time.Time
}

// Analyzer correlates traffic estimates with revenue
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{logger: logger}
}

// Analyze runs the whole analysis over a merged revenue grid and a merged
// traffic grid.
func (a *Analyzer) Analyze(revenue, traffic grid.Grid, opts Options) (*Report, error) {
	if len(opts.Segments) == 0 {
		opts.Segments = DefaultSegments
	}
	if len(opts.Concentration) == 0 {
		opts.Concentration = DefaultConcentration
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	revenueRecords := RevenueRecords(revenue)
	if len(revenueRecords) == 0 {
		return nil, errors.InvalidInput("revenue table has no monthly revenue")
	}
	trafficRecords := TrafficRecords(traffic)
	if len(trafficRecords) == 0 {
		return nil, errors.InvalidInput("traffic table has no dated snapshots")
	}

	ranking := revenueRanking(revenue, opts.Now)
	observations := Align(revenueRecords, trafficRecords)

	report := &Report{
		GeneratedAt:    opts.Now,
		RevenueRecords: len(revenueRecords),
		TrafficRecords: len(trafficRecords),
		Observations:   len(observations),
		MethodAverages: make(map[Method]float64, len(Methods)),
	}
	report.SitesWithRevenue, report.SitesWithTraffic, report.SitesWithBoth = siteCoverage(revenueRecords, trafficRecords)
	report.Completeness = completeness(observations)

	for _, size := range opts.Segments {
		report.Segments = append(report.Segments, segmentResult(observations, ranking, size))
	}
	for _, m := range Methods {
		var values stats.Float64Data
		for _, seg := range report.Segments {
			for _, mr := range seg.Methods {
				if mr.Method == m && mr.Correlation.Valid() {
					values = append(values, math.Abs(mr.Correlation.Pearson))
				}
			}
		}
		avg, err := values.Mean()
		if err != nil {
			avg = math.NaN()
		}
		report.MethodAverages[m] = avg
	}

	sites := siteSummaries(observations, ranking)
	report.MostEfficient, report.LeastEfficient = efficiency(sites)
	report.TotalRevenue, report.Concentration = concentration(sites, opts.Concentration)

	a.logger.Info("traffic/revenue analysis complete",
		zap.Int("revenue_records", report.RevenueRecords),
		zap.Int("traffic_records", report.TrafficRecords),
		zap.Int("observations", report.Observations),
		zap.Int("sites_with_both", report.SitesWithBoth))
	return report, nil
}

// revenueRanking orders sites by lifetime revenue, 1-based.
func revenueRanking(revenue grid.Grid, now time.Time) map[string]int {
	selector := dataset.NewPrioritySelector(0, nil)
	totals := selector.Totals(revenue, now)
	ranked := dataset.TopEntities(totals, len(totals), func(t dataset.EntityTotals) float64 { return t.Lifetime })

	ranking := make(map[string]int, len(ranked))
	for i, t := range ranked {
		if _, seen := ranking[t.Key]; !seen {
			ranking[t.Key] = i + 1
		}
	}
	return ranking
}

func siteCoverage(revenue []RevenueRecord, traffic []TrafficRecord) (int, int, int) {
	withRevenue := make(map[string]bool)
	for _, r := range revenue {
		withRevenue[r.Site] = true
	}
	withTraffic := make(map[string]bool)
	for _, t := range traffic {
		withTraffic[t.Site] = true
	}
	both := 0
	for site := range withRevenue {
		if withTraffic[site] {
			both++
		}
	}
	return len(withRevenue), len(withTraffic), both
}

func completeness(observations []Observation) []Completeness {
	out := make([]Completeness, 0, len(Methods))
	for _, m := range Methods {
		c := Completeness{Method: m, Total: len(observations)}
		for _, o := range observations {
			if _, ok := o.Traffic(m); ok {
				c.Valid++
			}
		}
		out = append(out, c)
	}
	return out
}

func segmentResult(observations []Observation, ranking map[string]int, size int) SegmentResult {
	seg := SegmentResult{Size: size}
	for _, m := range Methods {
		var x, y []float64
		for _, o := range observations {
			rank, ok := ranking[o.Site]
			if !ok || rank > size {
				continue
			}
			if visits, ok := o.Traffic(m); ok {
				x = append(x, visits)
				y = append(y, o.Revenue)
			}
		}
		seg.Methods = append(seg.Methods, MethodResult{Method: m, Label: m.String(), Correlation: Correlate(x, y)})
	}
	return seg
}

// siteSummaries totals revenue and averages same-month traffic per site,
// ordered by revenue rank.
func siteSummaries(observations []Observation, ranking map[string]int) []SiteEfficiency {
	type acc struct {
		niche   string
		revenue float64
		visits  stats.Float64Data
	}
	bySite := make(map[string]*acc)
	var order []string
	for _, o := range observations {
		a, ok := bySite[o.Site]
		if !ok {
			a = &acc{niche: o.Niche}
			bySite[o.Site] = a
			order = append(order, o.Site)
		}
		a.revenue += o.Revenue
		if v, ok := o.Traffic(SameMonthAverage); ok {
			a.visits = append(a.visits, v)
		}
	}

	sites := make([]SiteEfficiency, 0, len(order))
	for _, site := range order {
		a := bySite[site]
		rank, ok := ranking[site]
		if !ok {
			rank = unrankedSite
		}
		s := SiteEfficiency{Rank: rank, Site: site, Niche: a.niche, Revenue: a.revenue, AverageVisits: math.NaN(), PerVisit: math.NaN()}
		if mean, err := a.visits.Mean(); err == nil {
			s.AverageVisits = mean
			if mean > 0 {
				s.PerVisit = a.revenue / mean
			}
		}
		sites = append(sites, s)
	}
	sort.SliceStable(sites, func(i, j int) bool { return sites[i].Rank < sites[j].Rank })
	return sites
}

func efficiency(sites []SiteEfficiency) (most, least []SiteEfficiency) {
	var valid []SiteEfficiency
	for _, s := range sites {
		if !math.IsNaN(s.PerVisit) {
			valid = append(valid, s)
		}
	}

	most = append([]SiteEfficiency(nil), valid...)
	sort.SliceStable(most, func(i, j int) bool { return most[i].PerVisit > most[j].PerVisit })
	least = append([]SiteEfficiency(nil), valid...)
	sort.SliceStable(least, func(i, j int) bool { return least[i].PerVisit < least[j].PerVisit })

	if len(most) > efficiencyListSize {
		most = most[:efficiencyListSize]
	}
	if len(least) > efficiencyListSize {
		least = least[:efficiencyListSize]
	}
	return most, least
}

func concentration(sites []SiteEfficiency, sizes []int) (float64, []ConcentrationShare) {
	revenues := make([]float64, 0, len(sites))
	total := 0.0
	for _, s := range sites {
		revenues = append(revenues, s.Revenue)
		total += s.Revenue
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(revenues)))

	shares := make([]ConcentrationShare, 0, len(sizes))
	for _, n := range sizes {
		share := ConcentrationShare{Top: n}
		for i := 0; i < n && i < len(revenues); i++ {
			share.Revenue += revenues[i]
		}
		if total != 0 {
			share.Percent = 100 * share.Revenue / total
		}
		shares = append(shares, share)
	}
	return total, shares
}

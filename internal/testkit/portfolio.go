package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"dashsync/domain/grid"
)

// PortfolioConfig configures the synthetic website portfolio
type PortfolioConfig struct {
	Sites             int       `json:"sites"`
	Months            int       `json:"months"`
	EndMonth          time.Time `json:"end_month"`
	SnapshotsPerMonth int       `json:"snapshots_per_month"`
	// RevenuePerVisit scales monthly revenue from the month's last traffic snapshot.
	RevenuePerVisit float64 `json:"revenue_per_visit"`
	// BlankRate is the share of revenue cells left as "-".
	BlankRate float64 `json:"blank_rate"`
	Seed      int64   `json:"seed"`
}

// DefaultPortfolioConfig returns sensible defaults for portfolio generation
func DefaultPortfolioConfig() PortfolioConfig {
	return PortfolioConfig{
		Sites:             50,
		Months:            6,
		EndMonth:          time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		SnapshotsPerMonth: 2,
		RevenuePerVisit:   0.05,
		BlankRate:         0.05,
		Seed:              42,
	}
}

var niches = []string{"finance", "travel", "health", "tech", "home", "pets"}

type portfolioSite struct {
	domain string
	niche  string
	scale  float64
}

// PortfolioGenerator produces revenue and traffic sheets for the same set
// of websites, with revenue roughly proportional to traffic.
type PortfolioGenerator struct {
	config  PortfolioConfig
	sites   []portfolioSite
	months  []time.Time
	revenue grid.Grid
	traffic grid.Grid
}

// NewPortfolioGenerator creates a generator; output depends only on config.
func NewPortfolioGenerator(config PortfolioConfig) *PortfolioGenerator {
	if config.SnapshotsPerMonth < 1 {
		config.SnapshotsPerMonth = 1
	}
	if config.SnapshotsPerMonth > 4 {
		config.SnapshotsPerMonth = 4
	}
	g := &PortfolioGenerator{config: config}
	rng := rand.New(rand.NewSource(config.Seed))

	for i := 0; i < config.Sites; i++ {
		g.sites = append(g.sites, portfolioSite{
			domain: fmt.Sprintf("site%03d.com", i+1),
			niche:  niches[rng.Intn(len(niches))],
			// Log-normal spread so a few sites dominate.
			scale: math.Exp(8 + 1.2*rng.NormFloat64()),
		})
	}
	end := time.Date(config.EndMonth.Year(), config.EndMonth.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := config.Months - 1; i >= 0; i-- {
		g.months = append(g.months, end.AddDate(0, -i, 0))
	}

	g.build(rng)
	return g
}

func (g *PortfolioGenerator) build(rng *rand.Rand) {
	revenueHeader := []string{"#", "Website", "Niche"}
	trafficHeader := []string{"Website"}
	for _, m := range g.months {
		revenueHeader = append(revenueHeader, m.Format("Jan 2006"))
		for s := 0; s < g.config.SnapshotsPerMonth; s++ {
			day := 1 + 7*s
			trafficHeader = append(trafficHeader, fmt.Sprintf("%s %d - %d", m.Format("Jan"), day, m.Year()))
		}
	}
	g.revenue = grid.Grid{revenueHeader}
	g.traffic = grid.Grid{trafficHeader}

	for i, site := range g.sites {
		revenueRow := []string{strconv.Itoa(i + 1), site.domain, site.niche}
		trafficRow := []string{site.domain}
		for range g.months {
			var last float64
			for s := 0; s < g.config.SnapshotsPerMonth; s++ {
				last = math.Round(site.scale * (0.8 + 0.4*rng.Float64()))
				trafficRow = append(trafficRow, strconv.FormatFloat(last, 'f', 0, 64))
			}
			if rng.Float64() < g.config.BlankRate {
				revenueRow = append(revenueRow, "-")
				continue
			}
			amount := last * g.config.RevenuePerVisit * (0.7 + 0.6*rng.Float64())
			revenueRow = append(revenueRow, FormatDollars(amount))
		}
		g.revenue = append(g.revenue, revenueRow)
		g.traffic = append(g.traffic, trafficRow)
	}
}

// Revenue returns the revenue sheet: "#", "Website", "Niche", then one
// "Mon YYYY" column per month.
func (g *PortfolioGenerator) Revenue() grid.Grid {
	return g.revenue.Clone()
}

// Traffic returns the traffic sheet with dated "Mon D - YYYY" snapshots.
func (g *PortfolioGenerator) Traffic() grid.Grid {
	return g.traffic.Clone()
}

// Domains lists the generated websites in row order.
func (g *PortfolioGenerator) Domains() []string {
	out := make([]string, len(g.sites))
	for i, site := range g.sites {
		out[i] = site.domain
	}
	return out
}

// FormatDollars renders an amount the way the revenue sheet does: "$1,234.56".
func FormatDollars(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	text := strconv.FormatFloat(amount, 'f', 2, 64)
	whole, frac := text[:len(text)-3], text[len(text)-3:]

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + frac
}

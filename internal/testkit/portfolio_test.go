package testkit

import (
	"testing"

	"dashsync/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioShape(t *testing.T) {
	cfg := DefaultPortfolioConfig()
	gen := NewPortfolioGenerator(cfg)

	revenue := gen.Revenue()
	traffic := gen.Traffic()

	require.Len(t, revenue, cfg.Sites+1)
	require.Len(t, traffic, cfg.Sites+1)
	assert.Equal(t, []string{"#", "Website", "Niche", "Oct 2023", "Nov 2023", "Dec 2023", "Jan 2024", "Feb 2024", "Mar 2024"}, revenue.Header())
	assert.Equal(t, "Oct 1 - 2023", traffic.Header()[1])
	assert.Equal(t, "Mar 8 - 2024", traffic.Header()[len(traffic.Header())-1])
	assert.True(t, revenue.IsRectangular())
	assert.True(t, traffic.IsRectangular())
	assert.Equal(t, "site001.com", gen.Domains()[0])
}

func TestPortfolioDeterministic(t *testing.T) {
	a := NewPortfolioGenerator(DefaultPortfolioConfig())
	b := NewPortfolioGenerator(DefaultPortfolioConfig())

	assert.Equal(t, a.Revenue(), b.Revenue())
	assert.Equal(t, a.Traffic(), b.Traffic())
}

func TestFormatDollarsParses(t *testing.T) {
	assert.Equal(t, "$0.50", FormatDollars(0.5))
	assert.Equal(t, "$999.00", FormatDollars(999))
	assert.Equal(t, "$1,234.56", FormatDollars(1234.56))
	assert.Equal(t, "$1,234,567.89", FormatDollars(1234567.891))
	assert.Equal(t, "-$12.00", FormatDollars(-12))

	assert.InDelta(t, 1234567.89, dataset.ParseCurrency(FormatDollars(1234567.891)), 1e-9)
}

package analysis

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"dashsync/adapters/excel"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"
)

const rule = "======================================================================"

// WriteText prints the report as plain-text tables.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder

	section(&b, "TRAFFIC-REVENUE STATISTICAL ANALYSIS")
	fmt.Fprintf(&b, "Revenue records:   %d\n", r.RevenueRecords)
	fmt.Fprintf(&b, "Traffic records:   %d\n", r.TrafficRecords)
	fmt.Fprintf(&b, "Sites with revenue: %d\n", r.SitesWithRevenue)
	fmt.Fprintf(&b, "Sites with traffic: %d\n", r.SitesWithTraffic)
	fmt.Fprintf(&b, "Sites with both:    %d\n", r.SitesWithBoth)
	fmt.Fprintf(&b, "Combined records:   %d\n", r.Observations)

	b.WriteString("\nData completeness:\n")
	completenessTable := uitable.New()
	completenessTable.AddRow("METHOD", "VALID", "SHARE")
	for _, c := range r.Completeness {
		completenessTable.AddRow(c.Method.String(), c.Valid, fmt.Sprintf("%.1f%%", c.Percent()))
	}
	b.WriteString(completenessTable.String())
	b.WriteString("\n")

	section(&b, "CORRELATION ANALYSIS: Traffic vs Revenue")
	b.WriteString("Pearson correlation (r) by segment and method:\n")
	b.WriteString(r.correlationTable(func(c Correlation) float64 { return c.Pearson }).String())
	b.WriteString("\n\nSpearman correlation (rho) by segment and method:\n")
	b.WriteString(r.correlationTable(func(c Correlation) float64 { return c.Spearman }).String())
	b.WriteString("\n")

	section(&b, "BEST TRAFFIC METHOD BY SEGMENT")
	for _, seg := range r.Segments {
		best, ok := seg.Best()
		if !ok {
			fmt.Fprintf(&b, "Top %d: not enough data\n", seg.Size)
			continue
		}
		fmt.Fprintf(&b, "Top %d: %s (r = %.4f, p = %.4f, n = %d)\n",
			seg.Size, best.Label, best.Correlation.Pearson, best.Correlation.PearsonP, best.Correlation.N)
	}

	section(&b, "HYPOTHESIS: lagged traffic correlates better")
	for _, m := range Methods {
		fmt.Fprintf(&b, "%-18s avg |r| = %s\n", m.String(), number(r.MethodAverages[m], 4))
	}
	if winner, avg, ok := r.Winner(); ok {
		fmt.Fprintf(&b, "Winner: %s (avg |r| = %.4f)\n", winner, avg)
	}
	if r.LagConfirmed() {
		b.WriteString("Confirmed: lagged traffic correlates more strongly than same-month traffic.\n")
	} else {
		b.WriteString("Not confirmed: same-month traffic correlates as well or better.\n")
	}

	section(&b, "REVENUE EFFICIENCY")
	b.WriteString("Most efficient (highest revenue per traffic unit):\n")
	b.WriteString(efficiencyTable(r.MostEfficient).String())
	b.WriteString("\n\nLeast efficient (monetization opportunities):\n")
	b.WriteString(efficiencyTable(r.LeastEfficient).String())
	b.WriteString("\n")

	section(&b, "PORTFOLIO CONCENTRATION")
	concentrationTable := uitable.New()
	concentrationTable.RightAlign(1)
	concentrationTable.RightAlign(2)
	concentrationTable.AddRow("SITES", "REVENUE", "SHARE")
	for _, c := range r.Concentration {
		concentrationTable.AddRow(fmt.Sprintf("Top %d", c.Top), dollars(c.Revenue), fmt.Sprintf("%.1f%%", c.Percent))
	}
	b.WriteString(concentrationTable.String())
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n%s\n%s\n%s\n", rule, title, rule)
}

func (r *Report) correlationTable(value func(Correlation) float64) *uitable.Table {
	table := uitable.New()
	header := []interface{}{"SEGMENT"}
	for _, m := range Methods {
		header = append(header, m.String())
	}
	table.AddRow(header...)
	for _, seg := range r.Segments {
		row := []interface{}{fmt.Sprintf("Top %d", seg.Size)}
		for _, mr := range seg.Methods {
			row = append(row, number(value(mr.Correlation), 4))
		}
		table.AddRow(row...)
	}
	return table
}

func efficiencyTable(sites []SiteEfficiency) *uitable.Table {
	table := uitable.New()
	table.RightAlign(2)
	table.RightAlign(3)
	table.RightAlign(4)
	table.AddRow("RANK", "WEBSITE", "REVENUE", "AVG TRAFFIC", "PER VISIT")
	for _, s := range sites {
		table.AddRow(s.Rank, s.Site, dollars(s.Revenue), humanize.Comma(int64(math.Round(s.AverageVisits))), number(s.PerVisit, 2))
	}
	return table
}

// Sheets lays the report out as workbook sheets for xlsx export.
func (r *Report) Sheets() []excel.Sheet {
	correlations := excel.Sheet{Name: "Correlations", Rows: [][]string{
		{"Segment", "Method", "Pearson r", "Pearson p", "Spearman r", "Spearman p", "N"},
	}}
	for _, seg := range r.Segments {
		for _, mr := range seg.Methods {
			c := mr.Correlation
			correlations.Rows = append(correlations.Rows, []string{
				fmt.Sprintf("Top %d", seg.Size), mr.Label,
				number(c.Pearson, 6), number(c.PearsonP, 6),
				number(c.Spearman, 6), number(c.SpearmanP, 6),
				strconv.Itoa(c.N),
			})
		}
	}

	efficiencySheet := func(name string, sites []SiteEfficiency) excel.Sheet {
		sheet := excel.Sheet{Name: name, Rows: [][]string{{"Rank", "Website", "Niche", "Revenue", "Avg Traffic", "Revenue per Visit"}}}
		for _, s := range sites {
			sheet.Rows = append(sheet.Rows, []string{
				strconv.Itoa(s.Rank), s.Site, s.Niche,
				number(s.Revenue, 2), number(s.AverageVisits, 0), number(s.PerVisit, 4),
			})
		}
		return sheet
	}

	conc := excel.Sheet{Name: "Concentration", Rows: [][]string{{"Top", "Revenue", "Share %"}}}
	for _, c := range r.Concentration {
		conc.Rows = append(conc.Rows, []string{strconv.Itoa(c.Top), number(c.Revenue, 2), number(c.Percent, 2)})
	}

	completenessSheet := excel.Sheet{Name: "Completeness", Rows: [][]string{{"Method", "Valid", "Total", "Share %"}}}
	for _, c := range r.Completeness {
		completenessSheet.Rows = append(completenessSheet.Rows, []string{
			c.Method.String(), strconv.Itoa(c.Valid), strconv.Itoa(c.Total), number(c.Percent(), 1),
		})
	}

	return []excel.Sheet{
		correlations,
		efficiencySheet("Most Efficient", r.MostEfficient),
		efficiencySheet("Least Efficient", r.LeastEfficient),
		conc,
		completenessSheet,
	}
}

// number formats v with the given precision, or "n/a" for NaN.
func number(v float64, precision int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

func dollars(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}

package api

import (
	"fmt"
	"sort"
	"strings"

	"dashsync/internal/synclog"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderReportMarkdown summarizes a run log as markdown.
func RenderReportMarkdown(log *synclog.RunLog) string {
	var b strings.Builder

	b.WriteString("# Dashboard Sync Report\n\n")
	fmt.Fprintf(&b, "- **Last sync:** %s\n", log.LastSync.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- **Status:** %s\n", log.Status)
	fmt.Fprintf(&b, "- **Duration:** %.1fs\n", log.DurationSeconds)
	fmt.Fprintf(&b, "- **Priority domains:** %d\n", log.PriorityDomainCount)
	if log.RunID != "" {
		fmt.Fprintf(&b, "- **Run:** `%s`\n", log.RunID)
	}

	names := make([]string, 0, len(log.Metadata))
	for name := range log.Metadata {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		b.WriteString("\n## Files\n\n")
		b.WriteString("| File | Rows | Columns | Size | Latest period | Last updated |\n")
		b.WriteString("|---|---:|---:|---:|---|---|\n")
		for _, name := range names {
			meta := log.Metadata[name]
			fmt.Fprintf(&b, "| %s | %d | %d | %s | %s | %s |\n",
				cell(name), meta.Rows, meta.Columns, humanBytes(log.FileSizes[name]),
				cell(meta.LatestPeriod), cell(meta.LastUpdated))
		}
	}

	if len(log.Changes) > 0 {
		b.WriteString("\n## Changes\n\n")
		b.WriteString("| File | Rows | Columns | Latest period |\n")
		b.WriteString("|---|---:|---:|---|\n")
		for _, ch := range log.Changes {
			fmt.Fprintf(&b, "| %s | %d (%+d) | %d (%+d) | %s |\n",
				cell(ch.File), ch.Rows, ch.RowDelta, ch.Columns, ch.ColumnDelta, cell(ch.LatestPeriod))
		}
	}

	if len(log.Errors) > 0 {
		b.WriteString("\n## Errors\n\n")
		for _, e := range log.Errors {
			fmt.Fprintf(&b, "- %s\n", strings.ReplaceAll(e, "\n", " "))
		}
	}

	if len(log.History) > 0 {
		b.WriteString("\n## History\n\n")
		b.WriteString("| Time | Status | Duration | Priority domains | Data changed |\n")
		b.WriteString("|---|---|---:|---:|---|\n")
		for _, h := range log.History {
			changed := "no"
			if h.DataChanged {
				changed = "yes"
			}
			fmt.Fprintf(&b, "| %s | %s | %.1fs | %d | %s |\n",
				h.Timestamp.Format("2006-01-02 15:04"), h.Status, h.DurationSeconds, h.PriorityDomainCount, changed)
		}
	}

	return b.String()
}

// RenderReportHTML renders the run report as a complete HTML page.
func RenderReportHTML(log *synclog.RunLog) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(RenderReportMarkdown(log)))

	renderer := html.NewRenderer(html.RendererOptions{
		Title: "Dashboard Sync Report",
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.Render(doc, renderer)
}

func cell(text string) string {
	if text == "" {
		return "-"
	}
	return strings.ReplaceAll(text, "|", `\|`)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

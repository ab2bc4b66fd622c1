package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/shopscan/internal/model"
)

// MarkdownWriter outputs crawl results in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full crawl result in Markdown format.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeHealth(md, result)
	w.writeProducts(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteProducts outputs only the product page list in Markdown format.
func (w *MarkdownWriter) WriteProducts(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Product Pages: " + result.Domain)
	md.PlainText("")
	w.writeProductList(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CrawlResult) {
	md.H1("Shopscan Report")
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Domain", "`" + result.Domain + "`"},
			{"Crawl Date", result.StartTime.Format("2006-01-02 15:04:05 MST")},
			{"Duration", result.Duration().String()},
			{"URLs Crawled", strconv.Itoa(result.TotalURLsCrawled)},
			{"Product Pages", strconv.Itoa(result.ProductCount())},
		},
	})
	md.PlainText("")
}

// writeHealth writes the crawl health section.
func (w *MarkdownWriter) writeHealth(md *markdown.Markdown, result *model.CrawlResult) {
	h := result.CrawlHealth

	md.H2("Crawl Health")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Failure Kind", "Count"},
		Rows: [][]string{
			{"Timeouts", strconv.Itoa(h.TimeoutErrors)},
			{"Network", strconv.Itoa(h.NetworkErrors)},
			{"Blocked", strconv.Itoa(h.BlockedCount)},
			{"**Total**", "**" + strconv.Itoa(h.TotalFailures()) + "**"},
		},
	})
	md.PlainText("")

	if h.LastError != "" {
		md.PlainTextf("Last error: `%s`", truncateString(h.LastError, 120))
		md.PlainText("")
	}

	// Add pie chart if there were failures
	if h.TotalFailures() > 0 {
		w.writePieChart(md, h)
	}

	// Add alert based on failure profile
	w.writeAlert(md, h)
}

// writePieChart writes a mermaid pie chart for the failure distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, h model.CrawlHealth) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Fetch Failure Distribution"),
		piechart.WithShowData(true),
	)

	if h.TimeoutErrors > 0 {
		chart.LabelAndIntValue("Timeouts", uint64(h.TimeoutErrors))
	}
	if h.NetworkErrors > 0 {
		chart.LabelAndIntValue("Network", uint64(h.NetworkErrors))
	}
	if h.BlockedCount > 0 {
		chart.LabelAndIntValue("Blocked", uint64(h.BlockedCount))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the failure counters.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, h model.CrawlHealth) {
	switch {
	case h.BlockedCount > 0:
		md.Warningf(
			"The site blocked %d request(s). Results may be incomplete; consider a longer request delay or the browser fetcher.",
			h.BlockedCount,
		)
	case h.TotalFailures() > 0:
		md.Note(fmt.Sprintf(
			"%d fetch(es) failed during the crawl. The affected pages were skipped.",
			h.TotalFailures(),
		))
	default:
		md.Tip("All fetches completed without failures.")
	}
	md.PlainText("")
}

// writeProducts writes the discovered product pages section.
func (w *MarkdownWriter) writeProducts(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Product Pages")
	md.PlainText("")
	w.writeProductList(md, result)
}

// writeProductList writes the product URLs as a bullet list.
func (w *MarkdownWriter) writeProductList(md *markdown.Markdown, result *model.CrawlResult) {
	if !result.HasProducts() {
		md.PlainText("No product pages discovered.")
		md.PlainText("")
		return
	}

	items := make([]string, len(result.ProductURLs))
	for i, u := range result.ProductURLs {
		items[i] = "`" + u + "`"
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [shopscan](https://github.com/nao1215/shopscan)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

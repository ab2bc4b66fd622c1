package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/shopscan/internal/model"
)

// maxListedProducts caps the product list in non-verbose console output.
// Large catalogs would otherwise flood the terminal; the JSON documents
// always carry the full list.
const maxListedProducts = 20

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no content are shown.
	showEmpty bool

	// verbose lists every product URL instead of capping the list.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with the full product list.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl result in human-readable format.
func (w *SimpleWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeHealth(&sb, result)
	w.writeProducts(&sb, result)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteProducts outputs the product URLs one per line, with no decoration.
// This is the pipe-friendly view.
func (w *SimpleWriter) WriteProducts(result *model.CrawlResult) (int, error) {
	var sb strings.Builder
	for _, u := range result.ProductURLs {
		sb.WriteString(u)
		sb.WriteString("\n")
	}
	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          SHOPSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Domain:         %s\n", result.Domain))
	sb.WriteString(fmt.Sprintf("Crawl Date:     %s\n", result.StartTime.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:       %s\n", result.Duration()))
	sb.WriteString(fmt.Sprintf("URLs Crawled:   %d\n", result.TotalURLsCrawled))
	sb.WriteString(fmt.Sprintf("Product Pages:  %d\n", result.ProductCount()))
	sb.WriteString("\n")
}

// writeHealth writes the crawl health section.
func (w *SimpleWriter) writeHealth(sb *strings.Builder, result *model.CrawlResult) {
	h := result.CrawlHealth
	if h.Clean() && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CRAWL HEALTH\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if h.Clean() {
		sb.WriteString("  No failures recorded\n")
	} else {
		sb.WriteString(fmt.Sprintf("  TIMEOUTS: %d\n", h.TimeoutErrors))
		sb.WriteString(fmt.Sprintf("  NETWORK:  %d\n", h.NetworkErrors))
		sb.WriteString(fmt.Sprintf("  BLOCKED:  %d\n", h.BlockedCount))
		if h.LastError != "" {
			sb.WriteString(fmt.Sprintf("  Last error:          %s\n", h.LastError))
		}
		if h.LastSuccessfulURL != "" {
			sb.WriteString(fmt.Sprintf("  Last successful URL: %s\n", h.LastSuccessfulURL))
		}
	}
	sb.WriteString("\n")
}

// writeProducts writes the discovered product pages section.
func (w *SimpleWriter) writeProducts(sb *strings.Builder, result *model.CrawlResult) {
	if !result.HasProducts() && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PRODUCT PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if !result.HasProducts() {
		sb.WriteString("  No product pages discovered\n\n")
		return
	}

	listed := result.ProductURLs
	var hidden int
	if !w.verbose && len(listed) > maxListedProducts {
		hidden = len(listed) - maxListedProducts
		listed = listed[:maxListedProducts]
	}

	for _, u := range listed {
		sb.WriteString(fmt.Sprintf("  [+] %s\n", u))
	}
	if hidden > 0 {
		sb.WriteString(fmt.Sprintf("  ... and %d more (see the JSON report or use --verbose)\n", hidden))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by shopscan\n")
	sb.WriteString("https://github.com/nao1215/shopscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

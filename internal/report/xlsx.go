package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/shopscan/internal/model"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the generated workbook.
const (
	summarySheet  = "Summary"
	productsSheet = "Products"
)

// XLSXWriter outputs crawl results as an Excel workbook.
// This format is designed for people who triage product lists in a
// spreadsheet: merchandisers, SEO analysts, catalog teams.
type XLSXWriter struct {
	baseWriter
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
func NewXLSXWriter(output io.Writer) *XLSXWriter {
	return &XLSXWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full crawl result as a two-sheet workbook:
// a Summary sheet with run statistics and a Products sheet with one row
// per discovered product URL.
func (w *XLSXWriter) Write(result *model.CrawlResult) (int, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // In-memory workbook; nothing to release on error

	if err := w.addSummarySheet(f, result); err != nil {
		return 0, fmt.Errorf("failed to build summary sheet: %w", err)
	}
	if err := w.addProductsSheet(f, result); err != nil {
		return 0, fmt.Errorf("failed to build products sheet: %w", err)
	}
	if err := w.finishWorkbook(f, summarySheet); err != nil {
		return 0, err
	}

	n, err := f.WriteTo(w.output)
	return int(n), err
}

// WriteProducts outputs a workbook containing only the Products sheet.
func (w *XLSXWriter) WriteProducts(result *model.CrawlResult) (int, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // In-memory workbook; nothing to release on error

	if err := w.addProductsSheet(f, result); err != nil {
		return 0, fmt.Errorf("failed to build products sheet: %w", err)
	}
	if err := w.finishWorkbook(f, productsSheet); err != nil {
		return 0, err
	}

	n, err := f.WriteTo(w.output)
	return int(n), err
}

// addSummarySheet fills the Summary sheet with run statistics.
func (w *XLSXWriter) addSummarySheet(f *excelize.File, result *model.CrawlResult) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	h := result.CrawlHealth
	rows := [][2]string{
		{"Property", "Value"},
		{"Domain", result.Domain},
		{"Crawl Date", result.StartTime.Format("2006-01-02 15:04:05 MST")},
		{"Duration", result.Duration().String()},
		{"URLs Crawled", strconv.Itoa(result.TotalURLsCrawled)},
		{"Product Pages", strconv.Itoa(result.ProductCount())},
		{"Timeout Errors", strconv.Itoa(h.TimeoutErrors)},
		{"Network Errors", strconv.Itoa(h.NetworkErrors)},
		{"Blocked Requests", strconv.Itoa(h.BlockedCount)},
		{"Last Error", h.LastError},
		{"Last Successful URL", h.LastSuccessfulURL},
	}

	for i, row := range rows {
		cellA, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		cellB, err := excelize.CoordinatesToCellName(2, i+1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, cellA, row[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, cellB, row[1]); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 22); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "B", "B", 60)
}

// addProductsSheet fills the Products sheet with one row per product URL.
func (w *XLSXWriter) addProductsSheet(f *excelize.File, result *model.CrawlResult) error {
	if _, err := f.NewSheet(productsSheet); err != nil {
		return err
	}

	if err := f.SetCellValue(productsSheet, "A1", "No."); err != nil {
		return err
	}
	if err := f.SetCellValue(productsSheet, "B1", "Product URL"); err != nil {
		return err
	}

	for i, u := range result.ProductURLs {
		cellA, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cellB, err := excelize.CoordinatesToCellName(2, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(productsSheet, cellA, i+1); err != nil {
			return err
		}
		if err := f.SetCellValue(productsSheet, cellB, u); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(productsSheet, "A", "A", 8); err != nil {
		return err
	}
	return f.SetColWidth(productsSheet, "B", "B", 90)
}

// finishWorkbook removes the default sheet and activates the given one.
func (w *XLSXWriter) finishWorkbook(f *excelize.File, active string) error {
	// excelize workbooks start with a default "Sheet1" we never use.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(active)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	return nil
}

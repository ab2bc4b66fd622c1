package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/shopscan/internal/config"
	"github.com/nao1215/shopscan/internal/database"
	"github.com/nao1215/shopscan/internal/model"
	"github.com/spf13/cobra"
)

// Constants for catalog change direction.
const (
	catalogDirectionGrew      = "grew"
	catalogDirectionShrank    = "shrank"
	catalogDirectionChurned   = "churned"
	catalogDirectionUnchanged = "unchanged"
)

// NewDiffCmd creates the diff command.
// This command compares crawl results with historical data stored in the database.
func NewDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [shop-domain]",
		Short: "Compare crawl results with historical data",
		Long: `Diff displays differences between the current and previous crawl results.

This command retrieves historical crawl data from the database and shows:
- Product pages that appeared since the previous crawl
- Product pages that disappeared
- Changes in catalog size and crawl health

The comparison requires at least two crawls in the database for the specified
shop domain. Use 'shopscan crawl' to perform crawls and save results.

Examples:
  # Compare the latest two crawls of a shop
  shopscan diff shop.example.com

  # Compare with a specific historical crawl by ID
  shopscan diff --with-crawl-id 5 shop.example.com

  # Compare with the first crawl after a specific date
  shopscan diff --since "2026-01-01" shop.example.com

  # Output comparison in JSON format
  shopscan diff --json shop.example.com

Use 'shopscan history' to see crawled shops and their crawl IDs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDiffCmd,
	}

	// Comparison target flags
	cmd.Flags().Int64P("with-crawl-id", "i", 0,
		"Compare with a specific crawl by ID (use 'shopscan history <domain>' to see IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first crawl after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runDiffCmd executes the diff command.
func runDiffCmd(cmd *cobra.Command, args []string) error {
	// Validate arguments before opening the database.
	// This prevents database lock issues when validation fails.
	if len(args) == 0 {
		return errors.New("shop domain is required (use 'shopscan history' to see crawled shops)")
	}

	target, err := model.NewTarget(args[0])
	if err != nil {
		return fmt.Errorf("invalid shop URL %q: %w", args[0], err)
	}
	domain := target.Host()

	// Get output format flags
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	// Get comparison target flags
	withCrawlID, err := cmd.Flags().GetInt64("with-crawl-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	// Use XDG data directory for database
	dbDir := config.XDGDataDir()

	// Open database
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	return runDiff(context.Background(), db, domain, withCrawlID, sinceDate, jsonOutput, markdownOutput)
}

// runDiff performs the actual comparison between crawl records.
func runDiff(ctx context.Context, db *database.CrawlDB, domain string, withCrawlID int64, sinceDate string, jsonOutput, markdownOutput bool) error {
	// Get the crawl history, most recent first
	summaries, err := db.ListCrawls(ctx, domain, 0)
	if err != nil {
		return fmt.Errorf("failed to get crawl history: %w", err)
	}

	if len(summaries) == 0 {
		return fmt.Errorf("no crawl history found for %s", domain)
	}

	if len(summaries) < 2 && withCrawlID == 0 && sinceDate == "" {
		return fmt.Errorf("at least 2 crawls are required for comparison (found %d)", len(summaries))
	}

	// The latest crawl is always the current one
	currentID := summaries[0].ID
	var previousID int64

	if withCrawlID > 0 {
		previousID = withCrawlID
	} else if sinceDate != "" {
		// Parse the date and find the first (oldest) crawl at or after it
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Summaries are sorted newest first, so iterate in reverse to find
		// the oldest crawl at or after the date
		found := false
		for i := len(summaries) - 1; i >= 0; i-- {
			s := summaries[i]
			if s.StartTime.After(parsedDate) || s.StartTime.Equal(parsedDate) {
				previousID = s.ID
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("no crawls found since %s", sinceDate)
		}
		// If the only match is the current crawl, there is nothing to compare
		if previousID == currentID {
			return fmt.Errorf("only one crawl found since %s; at least 2 crawls are required for comparison", sinceDate)
		}
	} else {
		// Default: compare with the previous crawl
		previousID = summaries[1].ID
	}

	previous, err := db.GetCrawl(ctx, previousID)
	if err != nil {
		return fmt.Errorf("failed to get crawl with ID %d: %w", previousID, err)
	}
	// Validate that the crawl ID belongs to the same shop
	if previous.Domain != domain {
		return fmt.Errorf("crawl ID %d belongs to %s, not %s", previousID, previous.Domain, domain)
	}

	current, err := db.GetCrawl(ctx, currentID)
	if err != nil {
		return fmt.Errorf("failed to get crawl with ID %d: %w", currentID, err)
	}

	// Generate comparison result
	diff := diffCrawls(previous, current, previousID, currentID)

	// Output the result
	if jsonOutput {
		return outputDiffJSON(diff)
	}
	if markdownOutput {
		return outputDiffMarkdown(diff)
	}
	return outputDiffText(diff)
}

// DiffResult holds the result of comparing two crawl records.
type DiffResult struct {
	// Domain is the crawled shop hostname.
	Domain string `json:"domain"`

	// PreviousCrawl contains metadata about the previous crawl.
	PreviousCrawl CrawlMetadata `json:"previous_crawl"`

	// CurrentCrawl contains metadata about the current crawl.
	CurrentCrawl CrawlMetadata `json:"current_crawl"`

	// AddedProducts are product URLs present in the current crawl but not
	// in the previous one, sorted lexicographically.
	AddedProducts []string `json:"added_products,omitempty"`

	// RemovedProducts are product URLs present in the previous crawl but
	// not in the current one, sorted lexicographically.
	RemovedProducts []string `json:"removed_products,omitempty"`

	// UnchangedCount is the number of product URLs present in both crawls.
	UnchangedCount int `json:"unchanged_count"`

	// CatalogChange describes the overall change between the crawls.
	CatalogChange CatalogChange `json:"catalog_change"`
}

// CrawlMetadata contains metadata about a crawl for comparison display.
type CrawlMetadata struct {
	// ID is the crawl's identifier in the history database.
	ID int64 `json:"id"`

	// StartTime is when the crawl was performed.
	StartTime time.Time `json:"start_time"`

	// TotalURLsCrawled is the number of unique URLs visited.
	TotalURLsCrawled int `json:"total_urls_crawled"`

	// ProductCount is the number of product URLs discovered.
	ProductCount int `json:"product_count"`

	// TotalFailures is the sum of the crawl's failure counters.
	TotalFailures int `json:"total_failures"`
}

// CatalogChange describes the change in the product catalog between crawls.
type CatalogChange struct {
	// Direction is "grew", "shrank", "churned", or "unchanged".
	// "churned" means the catalog size held steady while individual
	// products were swapped out.
	Direction string `json:"direction"`

	// ProductDelta is the change in discovered product count.
	ProductDelta int `json:"product_delta"`

	// URLDelta is the change in total URLs crawled.
	URLDelta int `json:"url_delta"`

	// FailureDelta is the change in total crawl failures.
	FailureDelta int `json:"failure_delta"`
}

// diffCrawls compares two crawl records and generates a comparison result.
func diffCrawls(previous, current *model.CrawlResult, previousID, currentID int64) *DiffResult {
	result := &DiffResult{
		Domain:        current.Domain,
		PreviousCrawl: crawlMetadata(previous, previousID),
		CurrentCrawl:  crawlMetadata(current, currentID),
	}

	// Build product URL sets for comparison
	previousProducts := make(map[string]bool, len(previous.ProductURLs))
	for _, u := range previous.ProductURLs {
		previousProducts[u] = true
	}
	currentProducts := make(map[string]bool, len(current.ProductURLs))
	for _, u := range current.ProductURLs {
		currentProducts[u] = true
	}

	// Find added products (in current but not in previous)
	for u := range currentProducts {
		if !previousProducts[u] {
			result.AddedProducts = append(result.AddedProducts, u)
		}
	}

	// Find removed products (in previous but not in current)
	for u := range previousProducts {
		if !currentProducts[u] {
			result.RemovedProducts = append(result.RemovedProducts, u)
		} else {
			result.UnchangedCount++
		}
	}

	// Map iteration order is random, so sort for stable output
	sort.Strings(result.AddedProducts)
	sort.Strings(result.RemovedProducts)

	result.CatalogChange = calculateCatalogChange(result)

	return result
}

// crawlMetadata extracts display metadata from a crawl record.
func crawlMetadata(r *model.CrawlResult, id int64) CrawlMetadata {
	return CrawlMetadata{
		ID:               id,
		StartTime:        r.StartTime,
		TotalURLsCrawled: r.TotalURLsCrawled,
		ProductCount:     r.ProductCount(),
		TotalFailures:    r.CrawlHealth.TotalFailures(),
	}
}

// calculateCatalogChange calculates the overall change between two crawls.
func calculateCatalogChange(result *DiffResult) CatalogChange {
	change := CatalogChange{
		ProductDelta: result.CurrentCrawl.ProductCount - result.PreviousCrawl.ProductCount,
		URLDelta:     result.CurrentCrawl.TotalURLsCrawled - result.PreviousCrawl.TotalURLsCrawled,
		FailureDelta: result.CurrentCrawl.TotalFailures - result.PreviousCrawl.TotalFailures,
	}

	switch {
	case change.ProductDelta > 0:
		change.Direction = catalogDirectionGrew
	case change.ProductDelta < 0:
		change.Direction = catalogDirectionShrank
	case len(result.AddedProducts) > 0 || len(result.RemovedProducts) > 0:
		change.Direction = catalogDirectionChurned
	default:
		change.Direction = catalogDirectionUnchanged
	}

	return change
}

// outputDiffJSON outputs the comparison result in JSON format.
func outputDiffJSON(result *DiffResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputDiffMarkdown outputs the comparison result in Markdown format.
func outputDiffMarkdown(result *DiffResult) error {
	fmt.Printf("# Crawl Comparison: %s\n\n", result.Domain)

	// Catalog change summary
	fmt.Println("## Summary")
	fmt.Printf("\n**Catalog:** %s\n\n", formatCatalogDirection(result.CatalogChange.Direction))

	// Crawl metadata table
	fmt.Println("| Metric | Previous | Current | Change |")
	fmt.Println("|--------|----------|---------|--------|")
	fmt.Printf("| Date | %s | %s | - |\n",
		result.PreviousCrawl.StartTime.Format("2006-01-02 15:04"),
		result.CurrentCrawl.StartTime.Format("2006-01-02 15:04"))
	fmt.Printf("| Crawl ID | %d | %d | - |\n",
		result.PreviousCrawl.ID,
		result.CurrentCrawl.ID)
	fmt.Printf("| Products | %d | %d | %s |\n",
		result.PreviousCrawl.ProductCount,
		result.CurrentCrawl.ProductCount,
		formatDelta(result.CatalogChange.ProductDelta))
	fmt.Printf("| URLs crawled | %d | %d | %s |\n",
		result.PreviousCrawl.TotalURLsCrawled,
		result.CurrentCrawl.TotalURLsCrawled,
		formatDelta(result.CatalogChange.URLDelta))
	fmt.Printf("| Failures | %d | %d | %s |\n",
		result.PreviousCrawl.TotalFailures,
		result.CurrentCrawl.TotalFailures,
		formatDelta(result.CatalogChange.FailureDelta))

	// New products
	if len(result.AddedProducts) > 0 {
		fmt.Printf("\n## New Products (%d)\n\n", len(result.AddedProducts))
		for _, u := range result.AddedProducts {
			fmt.Printf("- %s\n", u)
		}
	}

	// Removed products
	if len(result.RemovedProducts) > 0 {
		fmt.Printf("\n## Removed Products (%d)\n\n", len(result.RemovedProducts))
		for _, u := range result.RemovedProducts {
			fmt.Printf("- ~~%s~~\n", u)
		}
	}

	// Unchanged count
	if result.UnchangedCount > 0 {
		fmt.Printf("\n---\n\n*%d products unchanged*\n", result.UnchangedCount)
	}

	return nil
}

// outputDiffText outputs the comparison result in human-readable text format.
func outputDiffText(result *DiffResult) error {
	fmt.Printf("Crawl Comparison: %s\n", result.Domain)
	fmt.Println(strings.Repeat("=", 60))

	// Catalog change summary
	fmt.Printf("\nCatalog: %s\n", formatCatalogDirection(result.CatalogChange.Direction))

	// Crawl dates
	fmt.Printf("\nPrevious crawl: %s (ID %d)\n",
		result.PreviousCrawl.StartTime.Format("2006-01-02 15:04:05"), result.PreviousCrawl.ID)
	fmt.Printf("Current crawl:  %s (ID %d)\n",
		result.CurrentCrawl.StartTime.Format("2006-01-02 15:04:05"), result.CurrentCrawl.ID)

	// Summary table
	fmt.Println("\nCrawl Summary:")
	fmt.Printf("  %-14s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 48))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Products",
		result.PreviousCrawl.ProductCount, result.CurrentCrawl.ProductCount,
		formatDelta(result.CatalogChange.ProductDelta))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "URLs crawled",
		result.PreviousCrawl.TotalURLsCrawled, result.CurrentCrawl.TotalURLsCrawled,
		formatDelta(result.CatalogChange.URLDelta))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Failures",
		result.PreviousCrawl.TotalFailures, result.CurrentCrawl.TotalFailures,
		formatDelta(result.CatalogChange.FailureDelta))

	// New products
	if len(result.AddedProducts) > 0 {
		fmt.Printf("\nNew Products (%d):\n", len(result.AddedProducts))
		for _, u := range result.AddedProducts {
			fmt.Printf("  [+] %s\n", u)
		}
	}

	// Removed products
	if len(result.RemovedProducts) > 0 {
		fmt.Printf("\nRemoved Products (%d):\n", len(result.RemovedProducts))
		for _, u := range result.RemovedProducts {
			fmt.Printf("  [-] %s\n", u)
		}
	}

	// Unchanged count
	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d products\n", result.UnchangedCount)
	}

	return nil
}

// formatCatalogDirection formats the catalog change direction for display.
func formatCatalogDirection(direction string) string {
	switch direction {
	case catalogDirectionGrew:
		return "GREW (products added)"
	case catalogDirectionShrank:
		return "SHRANK (products removed)"
	case catalogDirectionChurned:
		return "CHURNED (same size, different products)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}

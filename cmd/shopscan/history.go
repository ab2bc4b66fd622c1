package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/shopscan/internal/config"
	"github.com/nao1215/shopscan/internal/database"
	"github.com/nao1215/shopscan/internal/model"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// This command lists crawl records stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [shop-domain]",
		Short: "List crawled shops and their crawl history",
		Long: `History lists crawl records stored in the local database.

Without arguments it lists all shops that have crawl records. With a shop
domain it lists that shop's crawl history: crawl IDs, dates, and result
counts. The IDs can be passed to 'shopscan diff --with-crawl-id'.

Examples:
  # List all crawled shops
  shopscan history

  # Show crawl history for a shop
  shopscan history shop.example.com

  # Show only the last 5 crawls
  shopscan history --limit 5 shop.example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of crawls to list (0 lists all)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	// Normalize the domain before opening the database so invalid input
	// fails without touching the database file.
	var domain string
	if len(args) > 0 {
		target, err := model.NewTarget(args[0])
		if err != nil {
			return fmt.Errorf("invalid shop URL %q: %w", args[0], err)
		}
		domain = target.Host()
	}

	// Use XDG data directory for database
	dbDir := config.XDGDataDir()

	// Open database
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if domain == "" {
		return listCrawledShops(ctx, db)
	}
	return listCrawlHistory(ctx, db, domain, limit)
}

// listCrawledShops lists all shops that have crawl records in the database.
func listCrawledShops(ctx context.Context, db *database.CrawlDB) error {
	domains, err := db.ListDomains(ctx)
	if err != nil {
		return fmt.Errorf("failed to list shops: %w", err)
	}

	if len(domains) == 0 {
		fmt.Println("No crawled shops found in the database.")
		fmt.Println("\nUse 'shopscan crawl <shop-url>' to crawl a shop.")
		return nil
	}

	fmt.Printf("Crawled shops (%d):\n\n", len(domains))
	for _, domain := range domains {
		fmt.Printf("  • %s\n", domain)
	}
	fmt.Println("\nUse 'shopscan history <domain>' to see crawl history for a shop.")

	return nil
}

// listCrawlHistory lists crawl records for a specific shop domain.
func listCrawlHistory(ctx context.Context, db *database.CrawlDB, domain string, limit int) error {
	crawls, err := db.ListCrawls(ctx, domain, limit)
	if err != nil {
		return fmt.Errorf("failed to get crawl history: %w", err)
	}

	if len(crawls) == 0 {
		fmt.Printf("No crawl history found for %s\n", domain)
		fmt.Println("\nUse 'shopscan crawl' to crawl this shop.")
		return nil
	}

	fmt.Printf("Crawl history for %s (%d crawls):\n\n", domain, len(crawls))
	fmt.Printf("  %-6s  %-20s  %8s  %9s  %9s\n", "ID", "Date", "URLs", "Products", "Failures")
	fmt.Println("  " + strings.Repeat("-", 60))

	for _, c := range crawls {
		failures := c.TimeoutErrors + c.NetworkErrors + c.BlockedCount
		fmt.Printf("  %-6d  %-20s  %8d  %9d  %9d\n",
			c.ID,
			c.StartTime.Format("2006-01-02 15:04:05"),
			c.TotalURLsCrawled,
			c.ProductCount,
			failures,
		)
	}

	fmt.Println("\nUse 'shopscan diff <domain>' to compare the latest two crawls.")
	fmt.Println("Use 'shopscan diff --with-crawl-id <id> <domain>' to compare with a specific crawl.")

	return nil
}

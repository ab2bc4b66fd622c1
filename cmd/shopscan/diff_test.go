package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/shopscan/internal/database"
	"github.com/nao1215/shopscan/internal/model"
)

// storedCrawl builds a crawl result for seeding the history database.
func storedCrawl(domain string, start time.Time, productURLs ...string) *model.CrawlResult {
	end := start.Add(3 * time.Second)
	return &model.CrawlResult{
		Domain:           domain,
		ProductURLs:      productURLs,
		TotalURLsCrawled: 20 + len(productURLs),
		StartTime:        start,
		EndTime:          end,
		DurationMS:       end.Sub(start).Milliseconds(),
	}
}

func TestNewDiffCmd(t *testing.T) {
	t.Parallel()

	cmd := NewDiffCmd()

	if cmd.Use != "diff [shop-domain]" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}

	// Verify flags exist with their short options
	flagsWithShort := map[string]string{
		"with-crawl-id": "i",
		"since":         "s",
		"json":          "j",
		"markdown":      "m",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}

	// Verify db-dir flag does NOT exist (uses XDG directory)
	if cmd.Flags().Lookup("db-dir") != nil {
		t.Error("db-dir flag should not exist")
	}

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty Short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty Long description")
		}
	})

	t.Run("accepts maximum 1 argument", func(t *testing.T) {
		t.Parallel()
		// cobra.MaximumNArgs(1) is used
		if cmd.Args == nil {
			t.Error("expected Args to be set")
		}
	})
}

func TestDiffCrawls(t *testing.T) {
	t.Parallel()

	t.Run("detects added and removed products", func(t *testing.T) {
		t.Parallel()

		previous := storedCrawl("shop.example.com", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
			"https://shop.example.com/products/apple",
			"https://shop.example.com/products/banana",
		)
		current := storedCrawl("shop.example.com", time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
			"https://shop.example.com/products/banana",
			"https://shop.example.com/products/cherry",
		)

		diff := diffCrawls(previous, current, 1, 2)

		if diff.Domain != "shop.example.com" {
			t.Errorf("expected domain 'shop.example.com', got %q", diff.Domain)
		}
		if len(diff.AddedProducts) != 1 || diff.AddedProducts[0] != "https://shop.example.com/products/cherry" {
			t.Errorf("unexpected added products: %v", diff.AddedProducts)
		}
		if len(diff.RemovedProducts) != 1 || diff.RemovedProducts[0] != "https://shop.example.com/products/apple" {
			t.Errorf("unexpected removed products: %v", diff.RemovedProducts)
		}
		if diff.UnchangedCount != 1 {
			t.Errorf("expected 1 unchanged product, got %d", diff.UnchangedCount)
		}
	})

	t.Run("records crawl metadata with IDs", func(t *testing.T) {
		t.Parallel()

		previous := storedCrawl("shop.example.com", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC), "https://shop.example.com/products/a")
		current := storedCrawl("shop.example.com", time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), "https://shop.example.com/products/a")

		diff := diffCrawls(previous, current, 7, 9)

		if diff.PreviousCrawl.ID != 7 {
			t.Errorf("expected previous ID 7, got %d", diff.PreviousCrawl.ID)
		}
		if diff.CurrentCrawl.ID != 9 {
			t.Errorf("expected current ID 9, got %d", diff.CurrentCrawl.ID)
		}
		if diff.PreviousCrawl.ProductCount != 1 {
			t.Errorf("expected previous product count 1, got %d", diff.PreviousCrawl.ProductCount)
		}
	})

	t.Run("sorts added and removed products", func(t *testing.T) {
		t.Parallel()

		previous := storedCrawl("shop.example.com", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
			"https://shop.example.com/products/zebra",
			"https://shop.example.com/products/mango",
		)
		current := storedCrawl("shop.example.com", time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
			"https://shop.example.com/products/kiwi",
			"https://shop.example.com/products/apple",
		)

		diff := diffCrawls(previous, current, 1, 2)

		if len(diff.AddedProducts) != 2 {
			t.Fatalf("expected 2 added products, got %d", len(diff.AddedProducts))
		}
		if diff.AddedProducts[0] != "https://shop.example.com/products/apple" {
			t.Errorf("expected sorted added products, got %v", diff.AddedProducts)
		}
		if len(diff.RemovedProducts) != 2 {
			t.Fatalf("expected 2 removed products, got %d", len(diff.RemovedProducts))
		}
		if diff.RemovedProducts[0] != "https://shop.example.com/products/mango" {
			t.Errorf("expected sorted removed products, got %v", diff.RemovedProducts)
		}
	})

	t.Run("identical crawls yield no changes", func(t *testing.T) {
		t.Parallel()

		previous := storedCrawl("shop.example.com", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
			"https://shop.example.com/products/a",
			"https://shop.example.com/products/b",
		)
		current := storedCrawl("shop.example.com", time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
			"https://shop.example.com/products/a",
			"https://shop.example.com/products/b",
		)

		diff := diffCrawls(previous, current, 1, 2)

		if len(diff.AddedProducts) != 0 {
			t.Errorf("expected no added products, got %v", diff.AddedProducts)
		}
		if len(diff.RemovedProducts) != 0 {
			t.Errorf("expected no removed products, got %v", diff.RemovedProducts)
		}
		if diff.UnchangedCount != 2 {
			t.Errorf("expected 2 unchanged products, got %d", diff.UnchangedCount)
		}
		if diff.CatalogChange.Direction != catalogDirectionUnchanged {
			t.Errorf("expected direction 'unchanged', got %q", diff.CatalogChange.Direction)
		}
	})
}

func TestCalculateCatalogChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		result        *DiffResult
		wantDirection string
		wantDelta     int
	}{
		{
			name: "grew when products added",
			result: &DiffResult{
				PreviousCrawl: CrawlMetadata{ProductCount: 2},
				CurrentCrawl:  CrawlMetadata{ProductCount: 5},
				AddedProducts: []string{"a", "b", "c"},
			},
			wantDirection: "grew",
			wantDelta:     3,
		},
		{
			name: "shrank when products removed",
			result: &DiffResult{
				PreviousCrawl:   CrawlMetadata{ProductCount: 5},
				CurrentCrawl:    CrawlMetadata{ProductCount: 4},
				RemovedProducts: []string{"a"},
			},
			wantDirection: "shrank",
			wantDelta:     -1,
		},
		{
			name: "churned when size holds but products swap",
			result: &DiffResult{
				PreviousCrawl:   CrawlMetadata{ProductCount: 3},
				CurrentCrawl:    CrawlMetadata{ProductCount: 3},
				AddedProducts:   []string{"new"},
				RemovedProducts: []string{"old"},
			},
			wantDirection: "churned",
			wantDelta:     0,
		},
		{
			name: "unchanged when nothing moves",
			result: &DiffResult{
				PreviousCrawl: CrawlMetadata{ProductCount: 3},
				CurrentCrawl:  CrawlMetadata{ProductCount: 3},
			},
			wantDirection: "unchanged",
			wantDelta:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			change := calculateCatalogChange(tt.result)
			if change.Direction != tt.wantDirection {
				t.Errorf("Direction: got %q, want %q", change.Direction, tt.wantDirection)
			}
			if change.ProductDelta != tt.wantDelta {
				t.Errorf("ProductDelta: got %d, want %d", change.ProductDelta, tt.wantDelta)
			}
		})
	}
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		delta int
		want  string
	}{
		{name: "positive delta", delta: 5, want: "+5"},
		{name: "negative delta", delta: -3, want: "-3"},
		{name: "zero delta", delta: 0, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := formatDelta(tt.delta)
			if got != tt.want {
				t.Errorf("formatDelta(%d) = %q, want %q", tt.delta, got, tt.want)
			}
		})
	}
}

func TestFormatCatalogDirection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		direction string
		want      string
	}{
		{"grew", "GREW (products added)"},
		{"shrank", "SHRANK (products removed)"},
		{"churned", "CHURNED (same size, different products)"},
		{"unchanged", "UNCHANGED"},
		{"unknown", "UNCHANGED"},
	}

	for _, tt := range tests {
		t.Run(tt.direction, func(t *testing.T) {
			t.Parallel()

			got := formatCatalogDirection(tt.direction)
			if got != tt.want {
				t.Errorf("formatCatalogDirection(%q) = %q, want %q", tt.direction, got, tt.want)
			}
		})
	}
}

func TestOutputDiffText(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	result := &DiffResult{
		Domain: "shop.example.com",
		PreviousCrawl: CrawlMetadata{
			ID:               1,
			StartTime:        time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
			TotalURLsCrawled: 40,
			ProductCount:     2,
		},
		CurrentCrawl: CrawlMetadata{
			ID:               2,
			StartTime:        time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
			TotalURLsCrawled: 45,
			ProductCount:     3,
		},
		AddedProducts: []string{
			"https://shop.example.com/products/cherry",
			"https://shop.example.com/products/date",
		},
		RemovedProducts: []string{
			"https://shop.example.com/products/apple",
		},
		UnchangedCount: 1,
		CatalogChange: CatalogChange{
			Direction:    "grew",
			ProductDelta: 1,
			URLDelta:     5,
		},
	}

	// Capture output
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := outputDiffText(result)

	w.Close()
	os.Stdout = oldStdout

	if err != nil {
		t.Fatalf("outputDiffText() error = %v", err)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	output := buf.String()

	// Verify key elements are present
	expectedStrings := []string{
		"shop.example.com",
		"GREW",
		"New Products (2)",
		"Removed Products (1)",
		"https://shop.example.com/products/cherry",
		"https://shop.example.com/products/apple",
		"Unchanged: 1 products",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("output missing expected string: %q", expected)
		}
	}
}

func TestOutputDiffJSON(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	result := &DiffResult{
		Domain: "shop.example.com",
		PreviousCrawl: CrawlMetadata{
			ID:        1,
			StartTime: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		},
		CurrentCrawl: CrawlMetadata{
			ID:        2,
			StartTime: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
		},
		CatalogChange: CatalogChange{Direction: "shrank"},
	}

	// Capture output
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := outputDiffJSON(result)

	w.Close()
	os.Stdout = oldStdout

	if err != nil {
		t.Fatalf("outputDiffJSON() error = %v", err)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	output := buf.String()

	// Verify it's valid JSON with expected fields
	if !strings.Contains(output, `"domain": "shop.example.com"`) {
		t.Error("JSON output missing domain field")
	}
	if !strings.Contains(output, `"direction": "shrank"`) {
		t.Error("JSON output missing catalog change direction")
	}
}

func TestOutputDiffMarkdown(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	result := &DiffResult{
		Domain: "shop.example.com",
		PreviousCrawl: CrawlMetadata{
			ID:           1,
			StartTime:    time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
			ProductCount: 2,
		},
		CurrentCrawl: CrawlMetadata{
			ID:           2,
			StartTime:    time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
			ProductCount: 3,
		},
		AddedProducts:   []string{"https://shop.example.com/products/cherry"},
		RemovedProducts: []string{"https://shop.example.com/products/apple"},
		UnchangedCount:  1,
		CatalogChange: CatalogChange{
			Direction:    "grew",
			ProductDelta: 1,
		},
	}

	// Capture output
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := outputDiffMarkdown(result)

	w.Close()
	os.Stdout = oldStdout

	if err != nil {
		t.Fatalf("outputDiffMarkdown() error = %v", err)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	output := buf.String()

	expectedStrings := []string{
		"# Crawl Comparison: shop.example.com",
		"| Metric | Previous | Current | Change |",
		"## New Products (1)",
		"## Removed Products (1)",
		"~~https://shop.example.com/products/apple~~",
		"*1 products unchanged*",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("output missing expected string: %q", expected)
		}
	}
}

func TestRunDiffIntegration(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	// Create temporary database
	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Add two crawl records
	previous := storedCrawl("shop.example.com", time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		"https://shop.example.com/products/apple",
	)
	current := storedCrawl("shop.example.com", time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC),
		"https://shop.example.com/products/apple",
		"https://shop.example.com/products/banana",
	)

	if _, err := db.SaveResult(ctx, previous); err != nil {
		t.Fatalf("failed to save previous crawl: %v", err)
	}
	if _, err := db.SaveResult(ctx, current); err != nil {
		t.Fatalf("failed to save current crawl: %v", err)
	}

	// Test comparison - capture output using pipe
	oldStdout := os.Stdout
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		t.Fatalf("failed to create pipe: %v", pipeErr)
	}
	os.Stdout = w

	// Run the function
	diffErr := runDiff(ctx, db, "shop.example.com", 0, "", false, false)

	// Close writer and restore stdout before reading
	w.Close()
	os.Stdout = oldStdout

	if diffErr != nil {
		t.Fatalf("runDiff() error = %v", diffErr)
	}

	// Read captured output
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	output := buf.String()

	// Verify comparison output
	if !strings.Contains(output, "shop.example.com") {
		t.Errorf("expected domain in output, got: %s", output)
	}
	if !strings.Contains(output, "New Products") {
		t.Errorf("expected 'New Products' section, got: %s", output)
	}
	if !strings.Contains(output, "GREW") {
		t.Errorf("expected catalog growth, got: %s", output)
	}
}

func TestRunDiffWithSinceDate(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	// Create temporary database
	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Add crawl records with different dates
	crawls := []*model.CrawlResult{
		storedCrawl("shop.example.com", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
			"https://shop.example.com/products/ancient"),
		storedCrawl("shop.example.com", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			"https://shop.example.com/products/spring"),
		storedCrawl("shop.example.com", time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
			"https://shop.example.com/products/summer"),
	}
	for _, c := range crawls {
		if _, err := db.SaveResult(ctx, c); err != nil {
			t.Fatalf("failed to save crawl: %v", err)
		}
	}

	// Compare against the oldest crawl at or after March
	oldStdout := os.Stdout
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		t.Fatalf("failed to create pipe: %v", pipeErr)
	}
	os.Stdout = w

	diffErr := runDiff(ctx, db, "shop.example.com", 0, "2026-02-01", false, false)

	w.Close()
	os.Stdout = oldStdout

	if diffErr != nil {
		t.Fatalf("runDiff() error = %v", diffErr)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	output := buf.String()

	// The March crawl should be the baseline, so its product is "removed"
	if !strings.Contains(output, "https://shop.example.com/products/spring") {
		t.Errorf("expected March crawl as baseline, got: %s", output)
	}
	if strings.Contains(output, "https://shop.example.com/products/ancient") {
		t.Errorf("January crawl should not appear, got: %s", output)
	}
}

func TestRunDiffWithCrawlID(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	// Create temporary database
	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Add three crawl records
	for i := range 3 {
		c := storedCrawl("shop.example.com",
			time.Date(2026, 4, 1+i, 10, 0, 0, 0, time.UTC),
			"https://shop.example.com/products/item",
		)
		if _, err := db.SaveResult(ctx, c); err != nil {
			t.Fatalf("failed to save crawl: %v", err)
		}
	}

	// Get the ID of the oldest crawl
	summaries, err := db.ListCrawls(ctx, "shop.example.com", 0)
	if err != nil {
		t.Fatalf("failed to list crawls: %v", err)
	}
	if len(summaries) < 2 {
		t.Fatalf("expected at least 2 crawl records, got %d", len(summaries))
	}
	oldestID := summaries[len(summaries)-1].ID

	// Test comparison with --with-crawl-id
	oldStdout := os.Stdout
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		t.Fatalf("failed to create pipe: %v", pipeErr)
	}
	os.Stdout = w

	diffErr := runDiff(ctx, db, "shop.example.com", oldestID, "", false, false)

	w.Close()
	os.Stdout = oldStdout

	if diffErr != nil {
		t.Fatalf("runDiff() error = %v", diffErr)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	output := buf.String()

	if !strings.Contains(output, "shop.example.com") {
		t.Errorf("expected domain in output, got: %s", output)
	}
}

func TestRunDiffWithJSONOutput(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	// Create temporary database
	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Add two crawl records
	for i := range 2 {
		c := storedCrawl("shop.example.com",
			time.Date(2026, 5, 1+i, 10, 0, 0, 0, time.UTC),
			"https://shop.example.com/products/item",
		)
		if _, err := db.SaveResult(ctx, c); err != nil {
			t.Fatalf("failed to save crawl: %v", err)
		}
	}

	// Test comparison with JSON output
	oldStdout := os.Stdout
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		t.Fatalf("failed to create pipe: %v", pipeErr)
	}
	os.Stdout = w

	diffErr := runDiff(ctx, db, "shop.example.com", 0, "", true, false)

	w.Close()
	os.Stdout = oldStdout

	if diffErr != nil {
		t.Fatalf("runDiff() error = %v", diffErr)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	output := buf.String()

	// Verify it's valid JSON
	if !strings.Contains(output, `"domain": "shop.example.com"`) {
		t.Errorf("expected JSON with domain field, got: %s", output)
	}
}

func TestRunDiffErrors(t *testing.T) {
	t.Parallel()

	t.Run("fails without crawl history", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		err = runDiff(context.Background(), db, "shop.example.com", 0, "", false, false)
		if err == nil {
			t.Error("expected error for missing history")
		}
		if !strings.Contains(err.Error(), "no crawl history") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("fails with a single crawl", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		ctx := context.Background()
		c := storedCrawl("shop.example.com", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
		if _, err := db.SaveResult(ctx, c); err != nil {
			t.Fatalf("failed to save crawl: %v", err)
		}

		err = runDiff(ctx, db, "shop.example.com", 0, "", false, false)
		if err == nil {
			t.Error("expected error for single crawl")
		}
		if !strings.Contains(err.Error(), "at least 2 crawls") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects crawl ID from another shop", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		ctx := context.Background()
		otherID, err := db.SaveResult(ctx, storedCrawl("other.example.com", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)))
		if err != nil {
			t.Fatalf("failed to save crawl: %v", err)
		}
		if _, err := db.SaveResult(ctx, storedCrawl("shop.example.com", time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC))); err != nil {
			t.Fatalf("failed to save crawl: %v", err)
		}

		err = runDiff(ctx, db, "shop.example.com", otherID, "", false, false)
		if err == nil {
			t.Error("expected error for foreign crawl ID")
		}
		if !strings.Contains(err.Error(), "belongs to") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects invalid since date", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		ctx := context.Background()
		if _, err := db.SaveResult(ctx, storedCrawl("shop.example.com", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))); err != nil {
			t.Fatalf("failed to save crawl: %v", err)
		}

		err = runDiff(ctx, db, "shop.example.com", 0, "January 1st", false, false)
		if err == nil {
			t.Error("expected error for invalid date")
		}
		if !strings.Contains(err.Error(), "invalid date format") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestRunDiffCmdRequiresDomain(t *testing.T) {
	t.Parallel()

	cmd := NewDiffCmd()
	cmd.SetArgs([]string{})

	// Validation happens before database open, so this works reliably
	err := cmd.Execute()

	if err == nil {
		t.Error("expected error when no domain provided")
	}
	if !strings.Contains(err.Error(), "shop domain is required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunDiffCmdInvalidDomain(t *testing.T) {
	t.Parallel()

	cmd := NewDiffCmd()
	cmd.SetArgs([]string{"ftp://shop.example.com"})

	// Validation happens before database open, so this works reliably
	err := cmd.Execute()

	if err == nil {
		t.Error("expected error for invalid shop URL")
	}
	if !strings.Contains(err.Error(), "invalid shop URL") {
		t.Errorf("unexpected error: %v", err)
	}
}

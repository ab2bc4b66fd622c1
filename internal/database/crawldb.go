package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/shopscan/internal/model"
)

// ErrNotFound is returned when a requested crawl record does not exist.
var ErrNotFound = errors.New("crawl record not found")

// storedTimeFormat is a fixed-width RFC3339 variant. Unlike RFC3339Nano it
// never trims trailing zeros, so stored timestamps sort lexicographically,
// which ORDER BY start_time relies on.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z"

// CrawlDB provides SQLite-based storage for crawl history.
// Every finished run is stored so that later runs of the same shop can be
// compared (the diff command) and past runs listed (the history command).
//
// Design decision: We use a single database file for all domains rather
// than separate files per domain. This simplifies cross-domain listing
// and backup/restore operations.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, "shopscan.db")

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		// Check if database file exists
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		// Ensure directory exists
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	// SQLite doesn't benefit from multiple connections for writes,
	// but multiple readers can improve performance
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	// Enable WAL mode if requested
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Create tables
	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per finished crawl run
	CREATE TABLE IF NOT EXISTS crawls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		total_urls_crawled INTEGER NOT NULL,
		product_count INTEGER NOT NULL,
		timeout_errors INTEGER NOT NULL DEFAULT 0,
		network_errors INTEGER NOT NULL DEFAULT 0,
		blocked_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		last_successful_url TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_crawls_domain ON crawls(domain);
	CREATE INDEX IF NOT EXISTS idx_crawls_start ON crawls(start_time);

	-- Product URLs of a run, in discovery order
	CREATE TABLE IF NOT EXISTS crawl_product_urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawl_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		UNIQUE(crawl_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_product_urls_crawl ON crawl_product_urls(crawl_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveResult stores a finished crawl result and its product URLs.
// The crawl row and its product URLs are written in one transaction so a
// partially stored run can never appear in history. Returns the new crawl ID.
func (cdb *CrawlDB) SaveResult(ctx context.Context, result *model.CrawlResult) (int64, error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	query := `
	INSERT INTO crawls (
		domain, start_time, end_time, duration_ms, total_urls_crawled,
		product_count, timeout_errors, network_errors, blocked_count,
		last_error, last_successful_url
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := tx.ExecContext(ctx, query,
		result.Domain,
		result.StartTime.UTC().Format(storedTimeFormat),
		result.EndTime.UTC().Format(storedTimeFormat),
		result.DurationMS,
		result.TotalURLsCrawled,
		len(result.ProductURLs),
		result.CrawlHealth.TimeoutErrors,
		result.CrawlHealth.NetworkErrors,
		result.CrawlHealth.BlockedCount,
		result.CrawlHealth.LastError,
		result.CrawlHealth.LastSuccessfulURL,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crawl: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get crawl ID: %w", err)
	}

	urlQuery := `INSERT INTO crawl_product_urls (crawl_id, position, url) VALUES (?, ?, ?)`
	for i, u := range result.ProductURLs {
		if _, err := tx.ExecContext(ctx, urlQuery, id, i, u); err != nil {
			return 0, fmt.Errorf("failed to insert product URL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl: %w", err)
	}

	return id, nil
}

// CrawlSummary contains summary information about a stored crawl run.
// This is used for displaying crawl history without loading the full
// product URL list.
type CrawlSummary struct {
	// ID is the unique identifier of the crawl in the database.
	ID int64

	// Domain is the crawled hostname.
	Domain string

	// StartTime is when the crawl started.
	StartTime time.Time

	// DurationMS is the crawl duration in milliseconds.
	DurationMS int64

	// TotalURLsCrawled is the number of unique URLs visited.
	TotalURLsCrawled int

	// ProductCount is the number of product URLs discovered.
	ProductCount int

	// TimeoutErrors, NetworkErrors, and BlockedCount are the frozen
	// failure counters of the run.
	TimeoutErrors int
	NetworkErrors int
	BlockedCount  int
}

// ListCrawls returns summaries of stored crawls, most recent first.
// An empty domain lists runs across all domains; limit <= 0 means no limit.
func (cdb *CrawlDB) ListCrawls(ctx context.Context, domain string, limit int) ([]CrawlSummary, error) {
	query := `
	SELECT id, domain, start_time, duration_ms, total_urls_crawled,
	       product_count, timeout_errors, network_errors, blocked_count
	FROM crawls
	WHERE 1=1
	`
	args := make([]interface{}, 0)

	if domain != "" {
		query += " AND domain = ?"
		args = append(args, domain)
	}

	query += " ORDER BY start_time DESC, id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawls: %w", err)
	}
	defer rows.Close()

	var results []CrawlSummary
	for rows.Next() {
		var s CrawlSummary
		var startTime string

		err := rows.Scan(
			&s.ID,
			&s.Domain,
			&startTime,
			&s.DurationMS,
			&s.TotalURLsCrawled,
			&s.ProductCount,
			&s.TimeoutErrors,
			&s.NetworkErrors,
			&s.BlockedCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl summary: %w", err)
		}

		s.StartTime = parseTimestamp(startTime)
		results = append(results, s)
	}

	return results, rows.Err()
}

// ListDomains returns all domains that have at least one stored crawl.
func (cdb *CrawlDB) ListDomains(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT domain FROM crawls
	ORDER BY domain
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, domain)
	}

	return domains, rows.Err()
}

// GetCrawl retrieves a stored crawl by its database ID, including the full
// product URL list. Returns ErrNotFound if no such crawl exists.
func (cdb *CrawlDB) GetCrawl(ctx context.Context, id int64) (*model.CrawlResult, error) {
	query := `
	SELECT domain, start_time, end_time, duration_ms, total_urls_crawled,
	       timeout_errors, network_errors, blocked_count,
	       last_error, last_successful_url
	FROM crawls
	WHERE id = ?
	`

	var result model.CrawlResult
	var startTime, endTime string

	err := cdb.db.QueryRowContext(ctx, query, id).Scan(
		&result.Domain,
		&startTime,
		&endTime,
		&result.DurationMS,
		&result.TotalURLsCrawled,
		&result.CrawlHealth.TimeoutErrors,
		&result.CrawlHealth.NetworkErrors,
		&result.CrawlHealth.BlockedCount,
		&result.CrawlHealth.LastError,
		&result.CrawlHealth.LastSuccessfulURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl: %w", err)
	}

	// Parse timestamps (SQLite may return different formats depending on version/configuration)
	result.StartTime = parseTimestamp(startTime)
	result.EndTime = parseTimestamp(endTime)

	urls, err := cdb.productURLs(ctx, id)
	if err != nil {
		return nil, err
	}
	result.ProductURLs = urls

	return &result, nil
}

// productURLs returns the product URLs of a crawl in discovery order.
func (cdb *CrawlDB) productURLs(ctx context.Context, crawlID int64) ([]string, error) {
	query := `
	SELECT url FROM crawl_product_urls
	WHERE crawl_id = ?
	ORDER BY position
	`

	rows, err := cdb.db.QueryContext(ctx, query, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product URLs: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan product URL: %w", err)
		}
		urls = append(urls, u)
	}

	return urls, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimeFormat,          // Format used by SaveResult
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	// Return zero time if no format matches
	// This is a fallback to avoid breaking functionality for edge cases
	return time.Time{}
}

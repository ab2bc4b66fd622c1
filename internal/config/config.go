package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are deliberately conservative: a discovery crawl should look
// like a careful visitor, not a vacuum cleaner.
const (
	// DefaultConcurrency is the number of pages fetched in parallel per
	// batch. Five concurrent requests is enough to keep a crawl moving
	// without tripping the rate limiters common on storefront CDNs.
	DefaultConcurrency = 5

	// DefaultMaxDepth is the link distance from the seed page. Product
	// detail pages on almost every storefront platform sit within three
	// clicks of the home page (home -> category -> listing -> product).
	DefaultMaxDepth = 3

	// DefaultBatchConcurrency is the number of domains crawled at once
	// when several shops are given. Each crawl dispatches its own
	// page-level concurrency on top of this, so it stays small.
	DefaultBatchConcurrency = 4

	// DefaultRequestDelay is the politeness pause between request batches.
	// 1 second is conservative and respectful of server resources.
	DefaultRequestDelay = 1 * time.Second

	// DefaultTimeout bounds a single page fetch. 30 seconds covers slow
	// storefronts and rendering time when the browser fetcher is in use.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxURLs caps how many URLs one crawl visits. This prevents
	// runaway crawling on large catalogs and infinitely-generating
	// listing pages (calendars, faceted search).
	DefaultMaxURLs = 100

	// DefaultUserAgent identifies shopscan in HTTP requests.
	// A descriptive User-Agent lets site operators identify crawler
	// traffic in their logs.
	DefaultUserAgent = "shopscan/1.0 (+https://github.com/nao1215/shopscan)"

	// DefaultMaxBodySize limits the response body size to read.
	// 5MB is plenty for HTML pages while preventing memory exhaustion
	// from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// AppName is the application name used for XDG directory paths.
	AppName = "shopscan"
)

// Config holds all configuration options for shopscan.
// This struct is populated from CLI flags and the optional config file and
// passed through the application via dependency injection rather than
// global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Concurrency is the number of fetches dispatched per crawl batch.
	// Higher values speed up crawls but increase the chance of being
	// rate limited or blocked.
	Concurrency int

	// BatchConcurrency is the number of domains crawled in parallel
	// when multiple shops are given on the command line.
	BatchConcurrency int

	// MaxDepth is the maximum link distance from the seed page.
	// Depth 0 means only the seed page itself.
	MaxDepth int

	// RequestDelay is the pause between request batches.
	// This is a politeness setting to avoid overwhelming storefronts.
	RequestDelay time.Duration

	// Timeout is the per-fetch deadline, covering connection, transfer,
	// and (for the browser fetcher) rendering.
	Timeout time.Duration

	// MaxURLs caps the total number of URLs visited per domain.
	MaxURLs int

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// Cookie is an optional Cookie header for sites that gate their
	// catalog behind a session or region selector.
	Cookie string

	// RequestsPerSecond rate limits fetches on top of the batch delay.
	// Zero disables the extra limiter.
	RequestsPerSecond float64

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated, not failed.
	MaxBodySize int64

	// UseBrowser switches fetching to headless Chrome, for storefronts
	// that only render their product links with JavaScript.
	UseBrowser bool

	// RespectRobots gates discovered links on the site's robots.txt.
	RespectRobots bool

	// ExtraPatterns are additional product-URL glob patterns from the
	// command line, applied on top of the built-in vocabulary and any
	// per-site patterns from the config file.
	ExtraPatterns []string

	// OutputDir is where result documents are written.
	// Empty means the current directory.
	OutputDir string

	// DataDir is the directory for the crawl history database.
	// Defaults to the XDG data directory.
	DataDir string

	// SaveToDB indicates whether crawl results are recorded in the
	// history database.
	SaveToDB bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// MarkdownReport additionally writes a Markdown summary per domain.
	MarkdownReport bool

	// XLSXReport additionally writes an Excel product workbook per domain.
	XLSXReport bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches ./shopscan.yml and the XDG config
	// directory.
	ConfigFilePath string

	// SiteConfigs holds per-site settings loaded from the config file.
	SiteConfigs *File

	// Targets is the list of shop URLs or domains to crawl.
	Targets []string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout,
// concurrency). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Concurrency:      DefaultConcurrency,
		BatchConcurrency: DefaultBatchConcurrency,
		MaxDepth:         DefaultMaxDepth,
		RequestDelay:     DefaultRequestDelay,
		Timeout:          DefaultTimeout,
		MaxURLs:          DefaultMaxURLs,
		UserAgent:        DefaultUserAgent,
		MaxBodySize:      DefaultMaxBodySize,
		RespectRobots:    true,
	}
}

// XDGDataDir returns the XDG data directory for shopscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/shopscan
// On macOS: ~/Library/Application Support/shopscan
// On Windows: %LOCALAPPDATA%\shopscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for shopscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/shopscan
// On macOS: ~/Library/Application Support/shopscan
// On Windows: %APPDATA%\shopscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one target to crawl
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	// Concurrency below 1 would mean no fetching at all
	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}

	// Depth 0 (seed only) is valid; negative depth is not
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	// At least the seed must be allowed to be visited
	if c.MaxURLs < 1 {
		return ErrInvalidMaxURLs
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// RequestDelay must be non-negative; use 0 for no delay
	if c.RequestDelay < 0 {
		return ErrInvalidRequestDelay
	}

	// A negative rate makes no sense; use 0 to disable the limiter
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}

	// MaxBodySize must be non-negative; use 0 for the default limit
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

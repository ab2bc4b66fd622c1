package fetch

import (
	"context"
	"time"
)

// Default adapter settings. These mirror the crawl config defaults so an
// adapter built from a zero Config still behaves sensibly.
const (
	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the crawler politely. Storefronts that
	// require a browser user-agent can override it per site.
	DefaultUserAgent = "shopscan/1.0 (+https://github.com/nao1215/shopscan)"

	// DefaultMaxBodyBytes caps how much of a page is read for link
	// extraction. Product listings fit comfortably; anything larger is
	// truncated, not failed.
	DefaultMaxBodyBytes = 5 * 1024 * 1024 // 5MB
)

// Config controls how an adapter performs fetches.
type Config struct {
	// Timeout is the per-fetch deadline. Zero means DefaultTimeout.
	Timeout time.Duration

	// UserAgent is sent with every request. Empty means DefaultUserAgent.
	UserAgent string

	// Headers are extra request headers, applied after the defaults.
	Headers map[string]string

	// Cookie is an optional Cookie header value for sites that gate
	// content behind a session.
	Cookie string

	// MaxBodyBytes caps response body reads. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// RequestsPerSecond rate limits the adapter across all fetches.
	// Zero disables the limiter; the scheduler's inter-batch delay is
	// usually enough pacing on its own.
	RequestsPerSecond float64
}

// withDefaults fills zero fields with the package defaults.
func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// Fetcher resolves a page URL to the raw outbound links found on it.
//
// Implementations honor the configured timeout and user-agent, return hrefs
// exactly as they appear in the page (possibly relative), and fail with a
// *Error carrying the failure kind. Close releases any resources held by
// the adapter and must be safe to call after a failed fetch.
type Fetcher interface {
	FetchLinks(ctx context.Context, pageURL string) ([]string, error)
	Close() error
}

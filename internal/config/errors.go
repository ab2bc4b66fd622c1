package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoTarget is returned when no shop URL or list file is specified.
	// This error occurs when neither --list nor a positional argument
	// provides a target.
	ErrNoTarget = errors.New("no target specified: provide a shop URL or use --list")

	// ErrInvalidConcurrency is returned when the concurrency is below 1.
	// A concurrency of zero would mean no fetches are ever dispatched.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be at least 1")

	// ErrInvalidMaxDepth is returned when the crawl depth is negative.
	// Use 0 to crawl only the seed page.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxURLs is returned when the URL cap is below 1.
	// At least the seed page must be allowed to be visited.
	ErrInvalidMaxURLs = errors.New("invalid max URLs: must be at least 1")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate fetch failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRequestDelay is returned when the request delay is negative.
	// A negative delay is invalid; use 0 for no delay between batches.
	ErrInvalidRequestDelay = errors.New("invalid request delay: must be non-negative")

	// ErrInvalidRate is returned when the requests-per-second rate is
	// negative. Use 0 to disable the rate limiter.
	ErrInvalidRate = errors.New("invalid requests per second: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)

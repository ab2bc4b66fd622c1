// Package log provides logging with automatic redaction of sensitive
// information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic masking of sensitive values (cookies, tokens, secrets)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Why redaction
//
// Site configurations may carry session cookies and API-auth headers so
// the crawler can reach login-gated storefronts. Debug logging of
// requests must not leak those values into logs that may be shared or
// stored. The RedactHandler masks them in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (passwords, tokens, keys)
//   - Session identifiers and authentication tokens
//
// Even in verbose mode, sensitive values are masked.
//
// # Usage
//
//	// Create a redacting logger
//	logger := log.NewRedactLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("request sent",
//	    "cookie", "session=abc123",  // Will be masked to "***REDACTED***"
//	    "url", "https://shop.example.com",
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
//
// The scheduler, pipeline steps, and fetch adapters all accept a
// *slog.Logger via functional options, so a single redacting logger
// covers the whole crawl.
package log

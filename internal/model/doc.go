// Package model defines the core data structures used throughout shopscan.
//
// This package contains the following main types:
//   - CrawlResult: The immutable snapshot produced at the end of a crawl run
//   - CrawlHealth: Failure counters accumulated while a crawl is running
//   - Target: A validated crawl target parsed from a command-line argument
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, database, report) need to use these
// types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model

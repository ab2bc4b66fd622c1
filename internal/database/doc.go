// Package database provides SQLite-based storage for shopscan crawl history.
//
// This package implements the CrawlDB, which stores:
//   - One record per finished crawl run (counters, timings, health)
//   - The product URLs discovered by each run, in discovery order
//
// The history and diff commands read this store back to list past runs and
// to compare a run's product set against its predecessor.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database

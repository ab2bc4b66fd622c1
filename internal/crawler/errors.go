package crawler

import "errors"

// Crawl lifecycle errors.
//
// Design decision: We define specific error values rather than wrapping all
// errors generically. Per-fetch failures are absorbed into the crawl health
// counters and never surface here; these errors only cover misuse of the
// scheduler itself.
var (
	// ErrInvalidSeed is returned when the seed cannot be parsed into a
	// crawlable URL with a hostname.
	ErrInvalidSeed = errors.New("invalid seed URL")

	// ErrAlreadyStarted is returned when Run is called on a scheduler that
	// has already run. One scheduler instance owns exactly one crawl.
	ErrAlreadyStarted = errors.New("crawl already started")
)

package model

// CrawlHealth holds the failure counters for a single crawl run.
//
// The scheduler owns the only mutable instance; it updates the counters when
// a fetch attempt completes and reads them between batches to decide whether
// the run should be abandoned. At the end of the run the instance is frozen
// into the CrawlResult snapshot.
type CrawlHealth struct {
	// TimeoutErrors counts fetch attempts that timed out. Retried attempts
	// count individually, so one URL can contribute more than one.
	TimeoutErrors int `json:"timeout_errors"`

	// NetworkErrors counts connection-level failures (DNS, refused, reset).
	NetworkErrors int `json:"network_errors"`

	// BlockedCount counts fetches rejected by the site (403, 429, bot walls).
	BlockedCount int `json:"blocked_count"`

	// LastError is the message of the most recent fetch failure, if any.
	LastError string `json:"last_error,omitempty"`

	// LastSuccessfulURL is the most recently fetched URL that succeeded.
	LastSuccessfulURL string `json:"last_successful_url,omitempty"`
}

// TotalFailures returns the sum of all failure counters.
func (h CrawlHealth) TotalFailures() int {
	return h.TimeoutErrors + h.NetworkErrors + h.BlockedCount
}

// Clean reports whether no failures were recorded at all.
func (h CrawlHealth) Clean() bool {
	return h.TotalFailures() == 0 && h.LastError == ""
}

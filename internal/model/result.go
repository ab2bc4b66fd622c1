package model

import "time"

// CrawlResult is the immutable summary of one crawl run over one domain.
// It is produced exactly once, when the run reaches a terminal state, and is
// the only artifact of the core crawl engine that outlives the run.
//
// Design decision: We do not record whether the run completed naturally or
// was aborted by a health threshold because:
// 1. An aborted run still yields a complete, well-formed result
// 2. The abort cause is already visible in the saturated CrawlHealth counter
// 3. Consumers (reports, history) treat both outcomes identically
type CrawlResult struct {
	// Domain is the hostname the crawl was seeded with.
	Domain string `json:"domain"`

	// ProductURLs are the canonical URLs classified as product pages, in
	// discovery order, each appearing at most once.
	ProductURLs []string `json:"product_urls"`

	// TotalURLsCrawled is the number of unique canonical URLs visited.
	TotalURLsCrawled int `json:"total_urls_crawled"`

	// StartTime is when the run entered the Running state.
	StartTime time.Time `json:"start_time"`

	// EndTime is when the run reached a terminal state.
	EndTime time.Time `json:"end_time"`

	// DurationMS is EndTime - StartTime in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// CrawlHealth is the frozen failure counters of the run.
	CrawlHealth CrawlHealth `json:"crawl_health"`
}

// Duration returns the run duration as a time.Duration.
func (r *CrawlResult) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// ProductCount returns the number of discovered product URLs.
func (r *CrawlResult) ProductCount() int {
	return len(r.ProductURLs)
}

// HasProducts returns true if at least one product URL was found.
func (r *CrawlResult) HasProducts() bool {
	return len(r.ProductURLs) > 0
}

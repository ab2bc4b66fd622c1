// Package fetch defines the boundary between the crawl engine and the page
// retrieval layer.
//
// The engine only needs one capability: given a URL, return the raw
// href-like strings found on the page, or fail with a classified error.
// Two adapters provide it:
//
//   - HTTPFetcher: a plain HTTP client with HTML parsing. Fast, cheap, and
//     sufficient for server-rendered storefronts.
//   - BrowserFetcher: a headless Chrome tab via chromedp, for storefronts
//     that only emit product links from JavaScript.
//
// Design decision: Adapters return a structured failure kind (Timeout,
// Network, Blocked, Other) inside fetch.Error instead of letting callers
// sniff error message substrings. The scheduler's retry and abort policy
// depends on the kind, and text matching against transport errors is too
// fragile to build policy on.
package fetch

package config

import (
	"sort"
	"strings"

	"github.com/nao1215/shopscan/internal/crawler"
)

// SiteConfig holds per-site crawl settings. A site entry tunes the crawl
// for one storefront family: its product URL shapes, the headers it wants
// to see, and how hard it may be crawled.
//
// Fields where zero is itself a meaningful setting (a depth of 0, a delay
// of 0, browser off) are pointers so that "not set" stays distinguishable
// from "set to zero".
type SiteConfig struct {
	// ProductPatterns are extra product-URL glob patterns for this site,
	// applied on top of the generic keyword vocabulary.
	ProductPatterns []crawler.Pattern `yaml:"product_patterns,omitempty"`

	// UserAgent overrides the global User-Agent for this site.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// MaxDepth overrides the global crawl depth for this site.
	MaxDepth *int `yaml:"max_depth,omitempty"`

	// Concurrency overrides the global per-batch concurrency.
	Concurrency int `yaml:"concurrency,omitempty"`

	// RequestDelayMS overrides the global inter-batch delay, in milliseconds.
	RequestDelayMS *int `yaml:"request_delay_ms,omitempty"`

	// TimeoutMS overrides the global per-fetch timeout, in milliseconds.
	TimeoutMS int `yaml:"timeout_ms,omitempty"`

	// MaxURLs overrides the global URL cap for this site.
	MaxURLs int `yaml:"max_urls,omitempty"`

	// UseBrowser overrides the global fetcher choice for this site.
	UseBrowser *bool `yaml:"use_browser,omitempty"`
}

// File represents the structure of the shopscan.yml configuration file.
type File struct {
	// Defaults contains settings applied to every crawled site unless
	// overridden by a matching site entry.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps domain substrings to their site-specific settings.
	// A key matches when it occurs anywhere in the target hostname, so
	// "myshopify.com" covers every storefront on that platform with a
	// single entry.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// Lookup returns the effective settings for a domain.
//
// Every site entry whose key is a substring of the domain contributes:
// product patterns accumulate across all matches, while scalar settings
// are overridden with the longest (most specific) matching key winning.
// Matching keys of equal length apply in lexicographic order so the
// result does not depend on map iteration order.
func (cf *File) Lookup(domain string) SiteConfig {
	result := cf.Defaults
	result.ProductPatterns = append([]crawler.Pattern(nil), cf.Defaults.ProductPatterns...)

	keys := make([]string, 0, len(cf.Sites))
	for key := range cf.Sites {
		if key != "" && strings.Contains(strings.ToLower(domain), strings.ToLower(key)) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})

	for _, key := range keys {
		site := cf.Sites[key]

		result.ProductPatterns = append(result.ProductPatterns, site.ProductPatterns...)
		if site.UserAgent != "" {
			result.UserAgent = site.UserAgent
		}
		if len(site.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string, len(site.Headers))
			}
			for k, v := range site.Headers {
				result.Headers[k] = v
			}
		}
		if site.Cookie != "" {
			result.Cookie = site.Cookie
		}
		if site.MaxDepth != nil {
			result.MaxDepth = site.MaxDepth
		}
		if site.Concurrency > 0 {
			result.Concurrency = site.Concurrency
		}
		if site.RequestDelayMS != nil {
			result.RequestDelayMS = site.RequestDelayMS
		}
		if site.TimeoutMS > 0 {
			result.TimeoutMS = site.TimeoutMS
		}
		if site.MaxURLs > 0 {
			result.MaxURLs = site.MaxURLs
		}
		if site.UseBrowser != nil {
			result.UseBrowser = site.UseBrowser
		}
	}

	return result
}

package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// productKeywords is the generic vocabulary of path fragments that identify
// product detail pages across most storefront platforms.
var productKeywords = []string{"product", "item", "pd", "details", "buy"}

// Pattern is a single product-URL matching rule.
type Pattern struct {
	// Pattern is a glob-style path expression.
	// Examples: "/p/*", "*.html", "/dp/*", "/goods-*"
	Pattern string `yaml:"pattern" json:"pattern"`

	// Priority orders patterns for future ranking and explainability.
	// Matching ignores it; any match suffices.
	Priority int `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// Classifier decides whether a URL points at a product detail page.
//
// A URL is a product URL when its lower-cased path contains one of the
// generic productKeywords, or when the path matches one of the configured
// patterns. Patterns typically come from the per-site config file, so that
// storefronts with unusual URL schemes ("/dp/B0..." on Amazon-likes) are
// still recognized.
//
// Classification is a pure function of the URL and the pattern set: no I/O,
// no state, safe for concurrent use.
type Classifier struct {
	patterns []Pattern
}

// NewClassifier creates a Classifier with the given extra patterns.
// A nil or empty slice means only the generic keyword vocabulary applies.
func NewClassifier(patterns []Pattern) *Classifier {
	return &Classifier{patterns: patterns}
}

// Patterns returns a copy of the configured pattern set.
func (c *Classifier) Patterns() []Pattern {
	out := make([]Pattern, len(c.patterns))
	copy(out, c.patterns)
	return out
}

// IsProduct reports whether rawURL looks like a product detail page.
// Unparsable URLs are never product URLs.
func (c *Classifier) IsProduct(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	path := strings.ToLower(u.Path)
	if path == "" {
		path = "/"
	}

	for _, keyword := range productKeywords {
		if strings.Contains(path, keyword) {
			return true
		}
	}

	for _, p := range c.patterns {
		if matchPattern(p.Pattern, path) {
			return true
		}
	}

	return false
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/p/*" matches "/p/blue-shirt", "/p/123"
//   - "*.html" matches "/catalog/item.html"
//   - "/dp/??????????" matches ASIN-style paths
func matchPattern(pattern, path string) bool {
	// For patterns like "/p/*", match "/p/anything" and "/p" itself.
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	// Extension patterns like "*.html" match on the path suffix.
	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Also try matching just the last segment for patterns without a slash.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}

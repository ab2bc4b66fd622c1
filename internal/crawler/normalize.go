package crawler

import (
	"net/url"
	"strings"
)

// trackingParamPrefixes are query parameter name prefixes stripped by Clean.
var trackingParamPrefixes = []string{"utm_"}

// trackingParamNames are exact query parameter names stripped by Clean.
var trackingParamNames = map[string]bool{
	"ref":     true,
	"fbclid":  true,
	"gclid":   true,
	"msclkid": true,
	"mc_cid":  true,
	"mc_eid":  true,
}

// Normalize converts a raw URL into the canonical form used as the dedup key.
//
// Canonicalization lower-cases the URL, makes it absolute (schemeless input
// is assumed to be https), drops the fragment, and strips a single trailing
// slash. Unparsable input is returned unchanged so that a bad link never
// fails the crawl; such values are filtered later by SameDomain and the
// scheme checks.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return raw
	}

	// Schemeless input like "shop.example.com/sale" parses as a bare path.
	if u.Host == "" {
		withScheme, err := url.Parse("https://" + trimmed)
		if err != nil || withScheme.Host == "" {
			return raw
		}
		u = withScheme
	}

	u.Fragment = ""

	return strings.TrimSuffix(strings.ToLower(u.String()), "/")
}

// SameDomain reports whether rawURL points at the given base host.
// Only hostnames are compared; scheme, port, and path are ignored.
// baseHost may be a bare hostname or a full URL. Unparsable input is false.
func SameDomain(rawURL, baseHost string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}

	base := baseHost
	if b, err := url.Parse(baseHost); err == nil && b.Hostname() != "" {
		base = b.Hostname()
	}

	return strings.EqualFold(u.Hostname(), base)
}

// Resolve turns a possibly-relative href into an absolute URL against base.
// On any parse failure the href is returned unchanged; the caller then drops
// it via SameDomain and validity checks.
func Resolve(href, base string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}

	r, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}

	return b.ResolveReference(r).String()
}

// Clean removes known tracking query parameters from a URL.
// All other parameters are preserved in their original order, which is why
// the query string is walked manually instead of going through url.Values.
func Clean(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return rawURL
	}

	pairs := strings.Split(u.RawQuery, "&")
	kept := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if isTrackingParam(key) {
			continue
		}
		kept = append(kept, pair)
	}

	if len(kept) == len(pairs) {
		return rawURL
	}

	u.RawQuery = strings.Join(kept, "&")
	return u.String()
}

// isTrackingParam reports whether a query parameter name is on the deny-list.
func isTrackingParam(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range trackingParamPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return trackingParamNames[lower]
}

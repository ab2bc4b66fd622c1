package fetch

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

// HTTPFetcher retrieves pages with a plain HTTP client and extracts anchor
// hrefs from the parsed HTML.
//
// Design decision: We parse with golang.org/x/net/html rather than regex
// because:
//  1. It correctly handles the malformed HTML common on storefronts
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
type HTTPFetcher struct {
	client  *http.Client
	cfg     Config
	limiter *rate.Limiter
}

// NewHTTPFetcher creates an HTTP fetch adapter.
func NewHTTPFetcher(cfg Config) *HTTPFetcher {
	cfg = cfg.withDefaults()

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	f := &HTTPFetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		cfg: cfg,
	}
	if cfg.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return f
}

// Client exposes the underlying HTTP client for reuse (eg. robots.txt fetches).
func (f *HTTPFetcher) Client() *http.Client {
	return f.client
}

// FetchLinks downloads pageURL and returns the raw href values of its
// anchor tags. Failures carry a *Error with the classified kind.
func (f *HTTPFetcher) FetchLinks(ctx context.Context, pageURL string) ([]string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, NewError(classifyTransportError(err), pageURL, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, NewError(KindOther, pageURL, err)
	}

	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range f.cfg.Headers {
		req.Header.Set(k, v)
	}
	if f.cfg.Cookie != "" {
		req.Header.Set("Cookie", f.cfg.Cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, NewError(classifyTransportError(err), pageURL, err)
	}
	defer resp.Body.Close()

	// 403 and 429 are bot walls and rate limits: the page exists, the
	// site just refused us. Any other non-2xx status counts as a network
	// failure; error pages are not worth link extraction.
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return nil, NewError(KindBlocked, pageURL, errors.New(resp.Status))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewError(KindNetwork, pageURL, errors.New(resp.Status))
	}

	body, err := f.decodeBody(resp)
	if err != nil {
		return nil, NewError(KindOther, pageURL, err)
	}

	links, err := extractHrefs(body)
	if err != nil {
		return nil, NewError(KindOther, pageURL, err)
	}
	return links, nil
}

// Close releases idle connections held by the client.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// decodeBody unwraps the content encoding, converts the page to UTF-8, and
// caps the read at MaxBodyBytes. Oversized pages are truncated rather than
// failed; a truncated HTML document still yields its early links.
func (f *HTTPFetcher) decodeBody(resp *http.Response) (io.Reader, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	limited := io.LimitReader(reader, f.cfg.MaxBodyBytes)
	decoded := decodeCharset(limited, resp.Header.Get("Content-Type"))

	// Drain into memory while the gzip/deflate closers are still open.
	body, err := io.ReadAll(decoded)
	if err != nil {
		return nil, err
	}
	return strings.NewReader(string(body)), nil
}

// decodeCharset converts legacy-encoded pages (Shift_JIS, GBK, ISO-8859-*)
// to UTF-8 so the HTML parser sees valid text. UTF-8 and unknown encodings
// pass through untouched.
func decodeCharset(r io.Reader, contentType string) io.Reader {
	buffered := bufio.NewReader(r)
	peek, _ := buffered.Peek(1024)

	_, name, _ := charset.DetermineEncoding(peek, contentType)
	if name == "" || strings.EqualFold(name, "utf-8") {
		return buffered
	}

	enc, err := htmlindex.Get(name)
	if err != nil || enc == nil {
		return buffered
	}
	return enc.NewDecoder().Reader(buffered)
}

// extractHrefs walks the parsed HTML and collects anchor href values.
// Values come back raw (possibly relative); resolution against the page URL
// is the caller's job. Pseudo-scheme hrefs that can never become crawlable
// links are dropped here.
func extractHrefs(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "a" || n.Data == "area") {
			if href := cleanHref(getAttr(n, "href")); href != "" {
				links = append(links, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// cleanHref trims an href and drops values that cannot be page links.
// Fragment-only hrefs point back at the page they live on.
func cleanHref(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(href, prefix) {
			return ""
		}
	}
	return href
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}

// classifyTransportError maps client and context errors onto failure kinds.
func classifyTransportError(err error) Kind {
	if err == nil {
		return KindOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindOther
	}
	// Everything else a client.Do can return is transport-level: DNS
	// failures, refused connections, resets, TLS handshake problems.
	return KindNetwork
}

package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// maxRobotsBytes caps the robots.txt read. Mirrors the 500KiB limit the
// major crawlers apply.
const maxRobotsBytes = 512 * 1024

// Guard answers "may I crawl this URL" for a single host.
//
// Design decision: The guard is fail-open on every error because:
//  1. Most storefronts have no robots.txt at all
//  2. A transient fetch error must not silently blank out a whole crawl
//  3. Sites that do care answer with a parsable file, which is honored
type Guard struct {
	// client performs the robots.txt fetch. Injected so the guard shares
	// the crawl's transport, proxy, and timeout settings.
	client *http.Client

	// robotsURL is the absolute robots.txt location for the host.
	robotsURL string

	// userAgent selects the rule group and identifies the fetch.
	userAgent string

	// once guards the single fetch.
	once sync.Once

	// group holds the matched rule group. Nil means allow everything.
	group *robotstxt.Group
}

// NewGuard creates a Guard for the host of baseURL. The robots.txt file is
// not fetched until the first Allowed call.
func NewGuard(client *http.Client, baseURL, userAgent string) (*Guard, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q has no scheme or host", baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Guard{
		client:    client,
		robotsURL: u.Scheme + "://" + u.Host + "/robots.txt",
		userAgent: userAgent,
	}, nil
}

// Allowed reports whether the URL may be crawled. The first call fetches
// and parses robots.txt; later calls only evaluate the cached rule group.
func (g *Guard) Allowed(rawURL string) bool {
	g.once.Do(g.load)
	if g.group == nil {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return g.group.Test(path)
}

// load fetches and parses robots.txt. Any failure leaves the group nil,
// which Allowed treats as "no restrictions".
func (g *Guard) load() {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, g.robotsURL, nil)
	if err != nil {
		return
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return
	}
	g.group = data.FindGroup(g.userAgent)
}

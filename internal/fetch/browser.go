package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

// BrowserFetcher renders pages in headless Chrome before extracting links.
// It exists for storefronts that assemble their product listings with
// JavaScript, where the server response contains no anchors at all.
//
// Design decision: One browser process serves all fetches, but every fetch
// runs in its own tab, because:
//  1. Launching Chrome per fetch costs seconds; a tab costs milliseconds
//  2. A stuck or crashed page cannot poison later fetches
//  3. The per-fetch timeout maps cleanly onto a per-tab context
type BrowserFetcher struct {
	// cfg holds the fetch settings after defaults were applied.
	cfg Config

	// allocCtx carries the shared browser allocator.
	allocCtx context.Context

	// allocStop terminates the browser process.
	allocStop context.CancelFunc

	// limiter paces fetches when RequestsPerSecond is set.
	limiter *rate.Limiter

	// closeOnce makes Close idempotent.
	closeOnce sync.Once
}

// NewBrowserFetcher creates a fetcher backed by a headless Chrome process.
// The browser is launched lazily on the first fetch; construction never
// fails. Callers must Close the fetcher to terminate the browser.
func NewBrowserFetcher(cfg Config) *BrowserFetcher {
	cfg = cfg.withDefaults()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocCtx, allocStop := chromedp.NewExecAllocator(context.Background(), opts...)

	f := &BrowserFetcher{
		cfg:       cfg,
		allocCtx:  allocCtx,
		allocStop: allocStop,
	}
	if cfg.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return f
}

// FetchLinks navigates a fresh tab to pageURL, waits for the document to
// become ready, and returns the hrefs present in the rendered DOM.
func (f *BrowserFetcher) FetchLinks(ctx context.Context, pageURL string) ([]string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, NewError(classifyBrowserError(err), pageURL, err)
		}
	}

	tabCtx, cancelTab := chromedp.NewContext(f.allocCtx)
	defer cancelTab()

	// The tab context descends from the allocator, not from the caller,
	// so caller cancellation is forwarded explicitly.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.cfg.Timeout)
	defer cancelTimeout()

	// Navigation has no return status in the DevTools protocol; the main
	// document's response event is the only place the HTTP status shows
	// up. First document response wins, so a late iframe cannot shadow
	// the page itself.
	var status atomic.Int64
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument {
				status.CompareAndSwap(0, resp.Response.Status)
			}
		}
	})

	actions := []chromedp.Action{network.Enable()}
	if len(f.cfg.Headers) > 0 || f.cfg.Cookie != "" {
		headers := network.Headers{}
		for k, v := range f.cfg.Headers {
			headers[k] = v
		}
		if f.cfg.Cookie != "" {
			headers["Cookie"] = f.cfg.Cookie
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}

	var html string
	actions = append(actions,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if code := status.Load(); code == http.StatusForbidden || code == http.StatusTooManyRequests {
			return nil, NewError(KindBlocked, pageURL, fmt.Errorf("status %d: %w", code, err))
		}
		return nil, NewError(classifyBrowserError(err), pageURL, err)
	}

	code := status.Load()
	if code == http.StatusForbidden || code == http.StatusTooManyRequests {
		return nil, NewError(KindBlocked, pageURL, fmt.Errorf("status %d", code))
	}
	if code != 0 && (code < 200 || code > 299) {
		return nil, NewError(KindNetwork, pageURL, fmt.Errorf("status %d", code))
	}

	if int64(len(html)) > f.cfg.MaxBodyBytes {
		html = html[:f.cfg.MaxBodyBytes]
	}

	links, err := extractRenderedHrefs(html)
	if err != nil {
		return nil, NewError(KindOther, pageURL, err)
	}
	return links, nil
}

// Close terminates the browser process. Safe to call more than once.
func (f *BrowserFetcher) Close() error {
	f.closeOnce.Do(func() {
		f.allocStop()
	})
	return nil
}

// extractRenderedHrefs pulls anchor hrefs out of rendered HTML.
func extractRenderedHrefs(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	links := make([]string, 0, 16)
	doc.Find("a[href], area[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if href = cleanHref(href); href != "" {
			links = append(links, href)
		}
	})
	return links, nil
}

// classifyBrowserError maps chromedp failures onto the fetch taxonomy.
// Chrome reports its own network failures only as "net::ERR_*" strings
// inside the error message, so those are matched by marker.
func classifyBrowserError(err error) Kind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindOther
	case strings.Contains(err.Error(), "net::ERR_TIMED_OUT"),
		strings.Contains(err.Error(), "net::ERR_CONNECTION_TIMED_OUT"):
		return KindTimeout
	case strings.Contains(err.Error(), "net::"):
		return KindNetwork
	default:
		return KindOther
	}
}

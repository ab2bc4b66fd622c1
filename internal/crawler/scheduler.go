package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/shopscan/internal/fetch"
	"github.com/nao1215/shopscan/internal/model"
)

// Halt thresholds. When any health counter reaches its limit the run
// aborts before the next batch is dispatched. In-flight fetches always
// run to completion, so the counters can land exactly on a limit but
// may also overshoot it by up to one batch.
const (
	// timeoutErrorLimit aborts the run after this many timed-out attempts.
	timeoutErrorLimit = 10

	// networkErrorLimit aborts the run after this many connection failures.
	networkErrorLimit = 8

	// blockedLimit aborts the run after this many 403/429-style refusals.
	// The limit is the lowest of the three: once a site starts blocking,
	// continuing mostly produces more blocks.
	blockedLimit = 5
)

// Retry policy for timed-out fetches. Only timeouts are retried: network
// failures are likely systemic, and retrying a block would look like
// exactly the bot behavior that triggered it.
const (
	// maxTimeoutRetries is the number of extra attempts after the first
	// timed-out fetch.
	maxTimeoutRetries = 2

	// defaultBackoffUnit scales the exponential retry sleep: attempt n
	// waits 2^n units (2s, then 4s at the default unit).
	defaultBackoffUnit = time.Second
)

// Gate decides whether a discovered link may enter the frontier.
// robots.Guard satisfies Gate; the zero configuration uses no gate.
type Gate interface {
	// Allowed reports whether the URL may be crawled.
	Allowed(rawURL string) bool
}

// Scheduler drives one breadth-first crawl of one domain.
//
// Design decision: A scheduler instance is single-use (Run can be called
// once) because:
//  1. Crawl state (visited set, health counters) is meaningless across runs
//  2. One-domain-one-scheduler keeps result aggregation trivial
//  3. Reuse bugs surface as ErrAlreadyStarted instead of silent corruption
type Scheduler struct {
	// fetcher retrieves pages and extracts their outbound links.
	fetcher fetch.Fetcher

	// classifier decides which URLs count as product detail pages.
	classifier *Classifier

	// gate filters discovered links before they are enqueued.
	// Nil means every same-domain link is eligible. The seed bypasses
	// the gate so that a blanket Disallow still yields one data point.
	gate Gate

	// logger receives progress and failure events.
	logger *slog.Logger

	// concurrency is the number of fetches dispatched per batch.
	concurrency int

	// maxDepth limits link distance from the seed. The seed is depth 0.
	// Items at exactly maxDepth are visited and classified but their
	// links are not followed.
	maxDepth int

	// maxURLs caps the visited-set size. The cap is checked between
	// batches, so the final count can exceed it by up to one batch.
	maxURLs int

	// requestDelay is the politeness pause between batches.
	requestDelay time.Duration

	// backoffUnit scales retry sleeps. Tests inject a small unit so
	// retry paths run in milliseconds.
	backoffUnit time.Duration

	// mutex protects state against concurrent State() readers.
	mutex sync.Mutex

	// state tracks the run lifecycle.
	state State

	// frontier is the ordered queue of crawl work.
	frontier *Frontier

	// visited holds canonical URLs already dispatched. Guarantees each
	// canonical URL is fetched at most once per run.
	visited map[string]bool

	// productURLs collects canonical URLs classified as products, in
	// dispatch order. The visited set makes entries unique.
	productURLs []string

	// health accumulates failure counters for the halt conditions.
	health model.CrawlHealth

	// domain is the seed hostname; only links on it are followed.
	domain string

	// startTime is stamped when Run begins.
	startTime time.Time

	// result is the immutable snapshot built by finalize.
	result *model.CrawlResult

	// finalizeOnce guarantees exactly one snapshot per run.
	finalizeOnce sync.Once
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConcurrency sets how many fetches run concurrently per batch.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n >= 1 {
			s.concurrency = n
		}
	}
}

// WithMaxDepth sets the maximum link distance from the seed.
// 0 = only the seed page, 1 = seed plus directly linked pages, etc.
func WithMaxDepth(depth int) Option {
	return func(s *Scheduler) {
		if depth >= 0 {
			s.maxDepth = depth
		}
	}
}

// WithMaxURLs caps the total number of URLs visited in one run.
// Values below 1 are ignored.
func WithMaxURLs(n int) Option {
	return func(s *Scheduler) {
		if n >= 1 {
			s.maxURLs = n
		}
	}
}

// WithRequestDelay sets the politeness pause between batches.
func WithRequestDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.requestDelay = d
		}
	}
}

// WithClassifier sets the product-URL classifier.
// The default classifier uses only the generic keyword vocabulary.
func WithClassifier(c *Classifier) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithGate sets a filter applied to discovered links at enqueue time.
// Used to honor robots.txt; the seed is never gated.
func WithGate(g Gate) Option {
	return func(s *Scheduler) {
		s.gate = g
	}
}

// WithLogger sets the logger for crawl progress events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBackoffUnit overrides the retry backoff unit.
// Primarily for tests, which shrink the unit so timeout-retry paths
// finish in milliseconds.
func WithBackoffUnit(unit time.Duration) Option {
	return func(s *Scheduler) {
		if unit > 0 {
			s.backoffUnit = unit
		}
	}
}

// NewScheduler creates a Scheduler that crawls through the given fetcher.
//
// Design decision: We require an external fetcher because:
//  1. HTTP versus headless-browser fetching is the caller's choice
//  2. The scheduler stays free of transport configuration
//  3. Tests drive the scheduler with scripted in-memory fetchers
func NewScheduler(fetcher fetch.Fetcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:      fetcher,
		classifier:   NewClassifier(nil),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency:  5,
		maxDepth:     3,
		maxURLs:      100,
		requestDelay: 1 * time.Second,
		backoffUnit:  defaultBackoffUnit,
		state:        StateIdle,
		frontier:     NewFrontier(),
		visited:      make(map[string]bool),
		productURLs:  make([]string, 0),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// setState transitions the lifecycle state.
func (s *Scheduler) setState(state State) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.state = state
}

// Run crawls the domain starting at seed and returns the result snapshot.
//
// The snapshot is produced on every exit path: natural completion, a
// saturated health counter, and context cancellation all yield a complete
// CrawlResult. Only context cancellation additionally returns an error;
// a health-triggered abort is visible through the counters alone.
func (s *Scheduler) Run(ctx context.Context, seed string) (result *model.CrawlResult, err error) {
	if s.State() != StateIdle {
		return nil, ErrAlreadyStarted
	}

	start := Normalize(Clean(seed))
	u, parseErr := url.Parse(start)
	if parseErr != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSeed, u.Scheme)
	}

	s.domain = u.Hostname()
	s.startTime = time.Now()
	s.setState(StateRunning)
	s.frontier.Push(Item{URL: start, Depth: 0})

	// The snapshot must exist on every exit path, including a panic in a
	// fetch task unwinding through here.
	defer func() {
		s.finalize()
		result = s.result
	}()

	err = s.loop(ctx)
	return result, err
}

// loop is the frontier loop. It runs on the single control goroutine;
// all shared state is mutated here, never inside fetch tasks.
func (s *Scheduler) loop(ctx context.Context) error {
	for {
		// Cancellation and halt conditions are checked only between
		// batches; in-flight fetches always run to completion.
		if err := ctx.Err(); err != nil {
			s.setState(StateAborted)
			s.logger.Warn("crawl canceled", "domain", s.domain, "visited", len(s.visited))
			return err
		}

		if reason := s.haltReason(); reason != "" {
			s.setState(StateAborted)
			s.logger.Warn("crawl aborted", "domain", s.domain, "reason", reason,
				"timeout_errors", s.health.TimeoutErrors,
				"network_errors", s.health.NetworkErrors,
				"blocked_count", s.health.BlockedCount)
			return nil
		}

		if s.frontier.IsEmpty() || len(s.visited) >= s.maxURLs {
			s.setState(StateCompleted)
			s.logger.Info("crawl completed", "domain", s.domain,
				"visited", len(s.visited), "products", len(s.productURLs))
			return nil
		}

		dispatched := s.runBatch(ctx)

		// Politeness pause, skipped when the batch made no requests.
		if dispatched > 0 && !s.frontier.IsEmpty() && s.requestDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.requestDelay):
			}
		}
	}
}

// runBatch dispatches one batch of fetches and folds their outcomes.
// It returns the number of items dispatched.
func (s *Scheduler) runBatch(ctx context.Context) int {
	// Mark items visited before dispatch. Duplicates pushed by earlier
	// batches fall out here, the single race-free point for the check.
	batch := s.frontier.TakeBatch(s.concurrency)
	dispatch := make([]Item, 0, len(batch))
	for _, item := range batch {
		if s.visited[item.URL] {
			continue
		}
		s.visited[item.URL] = true
		dispatch = append(dispatch, item)
	}
	if len(dispatch) == 0 {
		return 0
	}

	s.logger.Debug("dispatching batch", "size", len(dispatch),
		"depth", dispatch[0].Depth, "frontier", s.frontier.Len())

	// Each task writes only its own outcome slot; shared state is
	// untouched until the join below.
	outcomes := make([]outcome, len(dispatch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, item := range dispatch {
		g.Go(func() error {
			s.fetchItem(gctx, item, &outcomes[i])
			return nil
		})
	}
	_ = g.Wait()

	// Join point: fold outcomes in batch order on the control goroutine.
	for i := range outcomes {
		s.fold(&outcomes[i])
	}

	return len(dispatch)
}

// outcome is the write slot owned by one fetch task.
type outcome struct {
	// item is the dispatched work unit.
	item Item

	// fetched reports whether a fetch was attempted at all. Items at
	// maxDepth are classified without a request and leave this false.
	fetched bool

	// ok reports whether the final attempt succeeded.
	ok bool

	// links holds the raw outbound links of a successful fetch.
	links []string

	// failures holds one error per failed attempt, in order. A timed-out
	// fetch that succeeds on retry still reports its earlier timeouts.
	failures []error
}

// fetchItem runs one item's fetch, including the timeout retry loop.
// It mutates nothing but its own outcome slot.
func (s *Scheduler) fetchItem(ctx context.Context, item Item, out *outcome) {
	out.item = item

	// The deepest level is visited for classification, not expansion, so
	// there is no reason to spend a request on it.
	if item.Depth >= s.maxDepth {
		return
	}
	out.fetched = true

	for attempt := 0; ; attempt++ {
		links, err := s.fetcher.FetchLinks(ctx, item.URL)
		if err == nil {
			out.ok = true
			out.links = links
			return
		}

		out.failures = append(out.failures, err)
		if fetch.KindOf(err) != fetch.KindTimeout || attempt >= maxTimeoutRetries {
			return
		}

		// Exponential backoff before the next attempt: 2^n units.
		wait := time.Duration(1<<(attempt+1)) * s.backoffUnit
		s.logger.Debug("retrying after timeout", "url", item.URL,
			"attempt", attempt+1, "wait", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// fold merges one outcome into the crawl state. Classification always
// happens first, for every item including the seed, so that a product
// URL at the depth limit is still recorded.
func (s *Scheduler) fold(out *outcome) {
	if s.classifier.IsProduct(out.item.URL) {
		s.productURLs = append(s.productURLs, out.item.URL)
	}

	for _, failure := range out.failures {
		s.recordFailure(failure)
	}

	if !out.fetched {
		return
	}
	if !out.ok {
		return
	}

	s.health.LastSuccessfulURL = out.item.URL
	s.enqueueChildren(out.item, out.links)
}

// recordFailure folds one failed attempt into the health counters.
// Unclassified failures have no counter of their own; they surface
// through LastError and the log only.
func (s *Scheduler) recordFailure(err error) {
	switch fetch.KindOf(err) {
	case fetch.KindTimeout:
		s.health.TimeoutErrors++
	case fetch.KindNetwork:
		s.health.NetworkErrors++
	case fetch.KindBlocked:
		s.health.BlockedCount++
	}
	s.health.LastError = err.Error()
	s.logger.Debug("fetch failed", "kind", fetch.KindOf(err).String(), "error", err)
}

// enqueueChildren resolves, cleans, and filters the links of a fetched
// page, then pushes the survivors at depth+1.
func (s *Scheduler) enqueueChildren(parent Item, links []string) {
	depth := parent.Depth + 1
	for _, link := range links {
		canonical := Normalize(Clean(Resolve(link, parent.URL)))
		if !s.eligible(canonical) {
			continue
		}

		// Links landing exactly on the depth limit are only worth a
		// visit when they already look like products.
		if depth >= s.maxDepth && !s.classifier.IsProduct(canonical) {
			continue
		}

		if s.gate != nil && !s.gate.Allowed(canonical) {
			s.logger.Debug("link disallowed by robots.txt", "url", canonical)
			continue
		}

		s.frontier.Push(Item{URL: canonical, Depth: depth, Parent: parent.URL})
	}
}

// eligible reports whether a canonical URL may enter the frontier:
// parsable, http(s), on the crawl domain, and not yet visited.
func (s *Scheduler) eligible(canonical string) bool {
	u, err := url.Parse(canonical)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !SameDomain(canonical, s.domain) {
		return false
	}
	return !s.visited[canonical]
}

// haltReason returns a short description of the first saturated health
// counter, or "" when the run may continue.
func (s *Scheduler) haltReason() string {
	switch {
	case s.health.NetworkErrors >= networkErrorLimit:
		return "network error limit reached"
	case s.health.TimeoutErrors >= timeoutErrorLimit:
		return "timeout error limit reached"
	case s.health.BlockedCount >= blockedLimit:
		return "blocked request limit reached"
	default:
		return ""
	}
}

// finalize freezes the crawl state into the result snapshot.
// Guarded by sync.Once so that every exit path can call it safely.
func (s *Scheduler) finalize() {
	s.finalizeOnce.Do(func() {
		end := time.Now()
		urls := make([]string, len(s.productURLs))
		copy(urls, s.productURLs)

		s.result = &model.CrawlResult{
			Domain:           s.domain,
			ProductURLs:      urls,
			TotalURLsCrawled: len(s.visited),
			StartTime:        s.startTime,
			EndTime:          end,
			DurationMS:       end.Sub(s.startTime).Milliseconds(),
			CrawlHealth:      s.health,
		}
	})
}

// Package crawler provides the product-page discovery engine.
//
// # Architecture
//
// The package is designed around the Scheduler type, which drives a
// breadth-first crawl over one domain: it takes batches from the Frontier,
// dispatches fetches concurrently, applies per-item retry with backoff, and
// decides when the run must halt.
//
// Design decision: We implement our own crawl loop rather than using a
// third-party crawling framework because:
//  1. The batch/join concurrency discipline is the core of the tool and must
//     stay under our control
//  2. Failure accounting (timeout/network/blocked counters with abort
//     thresholds) does not map onto callback-style frameworks
//  3. The fetch layer is already abstracted behind the fetch.Fetcher
//     interface, which is the part a framework would otherwise provide
//
// # Components
//
//   - Normalize, Resolve, Clean, SameDomain: pure URL helpers
//   - Classifier: decides whether a URL looks like a product detail page
//   - Frontier: ordered work queue, deduplicated at dispatch time
//   - Scheduler: the crawl state machine (Idle, Running, Completed, Aborted)
//
// # Concurrency
//
// All shared crawl state (visited set, frontier, health counters, product
// list) is mutated only by the scheduler goroutine after a batch of fetches
// has been joined. Fetch tasks write their outcome into a per-task slot and
// never touch shared state, so the engine needs no locks and every item of
// batch k is visited-marked before any item of batch k+1 is dequeued.
//
// # Usage
//
//	sched := crawler.NewScheduler(fetcher, crawler.WithMaxDepth(3))
//	result, err := sched.Run(ctx, "https://shop.example.com")
package crawler

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchProcessor handles concurrent crawling of multiple domains.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-domain execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each domain.
	// We use a factory to ensure each crawl gets a fresh pipeline instance.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of domains crawled at once.
	// Each crawl additionally runs its own fetch concurrency, so this
	// stays deliberately small.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithBatchConcurrency sets the maximum number of concurrent domain crawls.
// Default is 4 if not specified.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each domain to create a fresh
// pipeline instance. This ensures that pipeline state doesn't leak between
// crawls and allows for per-crawl customization if needed.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls multiple domains concurrently, mutating the given
// jobs in place. It respects the configured concurrency limit and context
// cancellation.
//
// Each goroutine touches only its own job, so the jobs need no locking;
// callers read them after ProcessBatch returns.
//
// A failed crawl does not stop the batch: the error is recorded on its
// job and the remaining domains continue. The error return indicates
// cancellation of the batch as a whole.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []*Job) error {
	return bp.ProcessBatchWithCallback(ctx, jobs, nil)
}

// ProcessBatchWithCallback crawls multiple domains and calls a callback
// for each completed job. This is useful for streaming results.
//
// The callback receives the job and its index in the original slice. The
// callback is called from the goroutine that completed the crawl, so it
// must be safe for concurrent use if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	jobs []*Job,
	callback func(job *Job, index int),
) error {
	bp.logger.Info("starting batch crawl",
		"total_domains", len(jobs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				job.Err = ctx.Err()
				return ctx.Err()
			default:
			}

			bp.logger.Info("crawling domain",
				"domain", job.Target.Host(),
				"index", i+1,
				"total", len(jobs),
			)

			// Create and execute a fresh pipeline for this domain
			pipeline := bp.pipelineFactory()
			if err := pipeline.Execute(ctx, job); err != nil {
				bp.logger.Warn("crawl failed",
					"domain", job.Target.Host(),
					"error", err,
				)
				// Don't return the error to errgroup - we want the other
				// domains to continue. The error is recorded on the job.
			} else {
				bp.logger.Info("domain completed",
					"domain", job.Target.Host(),
				)
			}

			if callback != nil {
				callback(job, i)
			}

			return nil
		})
	}

	// Wait for all crawls to complete
	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch crawl complete",
		"total_domains", len(jobs),
		"elapsed", elapsed,
	)

	return err
}

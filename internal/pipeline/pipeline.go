package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/shopscan/internal/config"
	"github.com/nao1215/shopscan/internal/crawler"
	"github.com/nao1215/shopscan/internal/model"
)

// Job carries one domain's crawl through the pipeline steps.
// Steps read the target and configuration, and record their output on
// the job: the robots step attaches the gate, the crawl step attaches
// the result, the persist step attaches the database row ID.
//
// Design decision: Steps share a mutable Job rather than passing values
// between each other because:
// 1. Each step only needs the accumulated state, not its producer
// 2. The batch processor can hand the caller complete jobs afterwards
// 3. Partial state survives a failed step for error reporting
type Job struct {
	// Target is the validated crawl target.
	Target model.Target

	// Config is the effective configuration for this domain, with any
	// per-site overrides already merged in.
	Config *config.Config

	// Patterns are the product URL patterns for this domain. Empty means
	// the classifier's built-in keywords.
	Patterns []crawler.Pattern

	// Gate filters discovered links before they are enqueued.
	// Set by the robots step; nil means no filtering.
	Gate crawler.Gate

	// Result is the crawl outcome. Set by the crawl step.
	Result *model.CrawlResult

	// CrawlID is the history database row ID. Set by the persist step;
	// zero when persistence is disabled.
	CrawlID int64

	// PerformedSteps lists the names of steps that ran, in order.
	PerformedSteps []string

	// Err is the error from a failed step, if any.
	Err error
}

// NewJob creates a Job for the given target and effective configuration.
func NewJob(target model.Target, cfg *config.Config) *Job {
	return &Job{
		Target: target,
		Config: cfg,
	}
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the
// accumulated job state from previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. It's more extensible for future features (e.g., priority, dependencies)
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation, and the job to modify.
	// Returns an error if the step fails critically; non-critical errors
	// should be recorded in the job's crawl health and return nil.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
// This follows the functional options pattern for clean API design.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, a default logger is created.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and their errors
// are recorded on the job, but subsequent steps still execute.
//
// Design decision: This option exists because some failures (e.g., a
// full history database) shouldn't prevent writing the report files.
// However, the default is to stop on error because early failures often
// indicate fundamental problems (e.g., an unreachable domain).
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:           make([]Step, 0),
		continueOnError: false,
	}

	// Apply options
	for _, opt := range opts {
		opt(p)
	}

	// Set default logger if not provided
	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
// It respects context cancellation and logs each step's execution.
//
// Design decision: We check context.Done() before each step rather than
// during, because steps should handle their own timeouts. This allows
// graceful cleanup between steps while still respecting cancellation.
//
// Returns the first error encountered if continueOnError is false,
// or nil if all steps complete (errors are recorded on the job).
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	for _, step := range p.steps {
		// Check for cancellation before starting each step
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			job.Err = ctx.Err()
			return ctx.Err()
		default:
			// Continue with execution
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"domain", job.Target.Host(),
		)

		// Execute the step
		if err := step.Do(ctx, job); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"domain", job.Target.Host(),
				"error", err,
			)

			// Record the error on the job
			job.Err = err

			// Stop or continue based on configuration
			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"domain", job.Target.Host(),
			)
		}

		// Track which steps were performed
		job.PerformedSteps = append(job.PerformedSteps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

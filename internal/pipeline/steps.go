package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/nao1215/shopscan/internal/crawler"
	"github.com/nao1215/shopscan/internal/database"
	"github.com/nao1215/shopscan/internal/fetch"
	"github.com/nao1215/shopscan/internal/report"
	"github.com/nao1215/shopscan/internal/robots"
)

// RobotsStep prepares the robots.txt gate for the target domain.
// The gate is attached to the job so the crawl step can wire it into
// the scheduler; URLs the site's robots.txt disallows are then dropped
// before they enter the frontier.
//
// Design decision: Robots preparation is a separate step because:
// 1. It can be disabled independently of crawling (--no-robots)
// 2. The gate outlives a single fetch and belongs to the whole run
// 3. Skipping it is visible in the job's performed-steps trail
type RobotsStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// RobotsStepOption configures a RobotsStep.
type RobotsStepOption func(*RobotsStep)

// WithRobotsLogger sets a custom logger for the robots step.
func WithRobotsLogger(logger *slog.Logger) RobotsStepOption {
	return func(s *RobotsStep) {
		s.logger = logger
	}
}

// NewRobotsStep creates a new robots.txt preparation step.
func NewRobotsStep(opts ...RobotsStepOption) *RobotsStep {
	s := &RobotsStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *RobotsStep) Name() string {
	return "robots"
}

// Do executes the robots step. The robots.txt file itself is fetched
// lazily on the gate's first decision, so this step never blocks on the
// network.
func (s *RobotsStep) Do(_ context.Context, job *Job) error {
	if !job.Config.RespectRobots {
		s.logger.Debug("robots gate disabled", "domain", job.Target.Host())
		return nil
	}

	client := &http.Client{Timeout: job.Config.Timeout}
	guard, err := robots.NewGuard(client, job.Target.String(), job.Config.UserAgent)
	if err != nil {
		// Fail open: a gate we cannot build must not block the crawl.
		s.logger.Warn("robots gate unavailable",
			"domain", job.Target.Host(),
			"error", err,
		)
		return nil
	}

	job.Gate = guard
	return nil
}

// CrawlStep performs the breadth-first crawl of the target domain.
// It builds a fetch adapter from the job's configuration, runs the
// scheduler, and attaches the crawl result to the job.
//
// Design decision: The step constructs the fetcher itself rather than
// receiving one because:
// 1. The adapter choice (HTTP vs browser) is per-domain configuration
// 2. Adapter lifetime matches exactly one crawl; closing is local
// 3. The batch processor can run identical steps for different domains
type CrawlStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a new crawling step.
func NewCrawlStep(opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, job *Job) error {
	cfg := job.Config

	fetchCfg := fetch.Config{
		Timeout:           cfg.Timeout,
		UserAgent:         cfg.UserAgent,
		Headers:           cfg.Headers,
		Cookie:            cfg.Cookie,
		MaxBodyBytes:      cfg.MaxBodySize,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}

	var fetcher fetch.Fetcher = fetch.NewHTTPFetcher(fetchCfg)
	if cfg.UseBrowser {
		fetcher = fetch.NewBrowserFetcher(fetchCfg)
	}
	defer fetcher.Close() //nolint:errcheck // Close on a finished adapter cannot fail meaningfully

	schedOpts := []crawler.Option{
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxURLs(cfg.MaxURLs),
		crawler.WithRequestDelay(cfg.RequestDelay),
		crawler.WithLogger(s.logger),
	}
	if len(job.Patterns) > 0 {
		schedOpts = append(schedOpts, crawler.WithClassifier(crawler.NewClassifier(job.Patterns)))
	}
	if job.Gate != nil {
		schedOpts = append(schedOpts, crawler.WithGate(job.Gate))
	}

	scheduler := crawler.NewScheduler(fetcher, schedOpts...)

	result, err := scheduler.Run(ctx, job.Target.String())
	// A cancelled run still produces a partial result; keep it for
	// error reporting even when the step fails.
	job.Result = result
	if err != nil {
		return fmt.Errorf("crawl %s: %w", job.Target.Host(), err)
	}

	s.logger.Info("crawl completed",
		"domain", result.Domain,
		"urls_crawled", result.TotalURLsCrawled,
		"products", result.ProductCount(),
	)

	return nil
}

// PersistStep saves the crawl result to the history database.
// The history feeds the `history` and `diff` commands.
type PersistStep struct {
	// db is the crawl history store. Nil disables persistence.
	db *database.CrawlDB

	// logger for structured logging.
	logger *slog.Logger
}

// PersistStepOption configures a PersistStep.
type PersistStepOption func(*PersistStep)

// WithPersistLogger sets a custom logger for the persist step.
func WithPersistLogger(logger *slog.Logger) PersistStepOption {
	return func(s *PersistStep) {
		s.logger = logger
	}
}

// NewPersistStep creates a new history persistence step.
// Passing a nil database turns the step into a no-op.
func NewPersistStep(db *database.CrawlDB, opts ...PersistStepOption) *PersistStep {
	s := &PersistStep{
		db:     db,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do executes the persistence step.
func (s *PersistStep) Do(ctx context.Context, job *Job) error {
	if s.db == nil {
		s.logger.Debug("history database disabled", "domain", job.Target.Host())
		return nil
	}
	if job.Result == nil {
		s.logger.Debug("nothing to persist", "domain", job.Target.Host())
		return nil
	}

	id, err := s.db.SaveResult(ctx, job.Result)
	if err != nil {
		return fmt.Errorf("save crawl history: %w", err)
	}
	job.CrawlID = id

	s.logger.Debug("crawl history saved",
		"domain", job.Result.Domain,
		"crawl_id", id,
	)

	return nil
}

// ReportStep writes the result documents for the crawled domain.
// Every run produces `<host>.json` (the full result) and
// `<host>.products.json` (just the product URL array); Markdown and
// XLSX documents are optional extras.
type ReportStep struct {
	// outputDir is where the documents are written. Empty disables
	// file output entirely.
	outputDir string

	// version is stamped into the full JSON document.
	version string

	// markdown enables the `<host>.md` summary document.
	markdown bool

	// xlsx enables the `<host>.xlsx` product workbook.
	xlsx bool

	// logger for structured logging.
	logger *slog.Logger
}

// ReportStepOption configures a ReportStep.
type ReportStepOption func(*ReportStep)

// WithReportVersion sets the version stamped into the JSON document.
func WithReportVersion(version string) ReportStepOption {
	return func(s *ReportStep) {
		s.version = version
	}
}

// WithMarkdownReport enables the Markdown summary document.
func WithMarkdownReport(enabled bool) ReportStepOption {
	return func(s *ReportStep) {
		s.markdown = enabled
	}
}

// WithXLSXReport enables the XLSX product workbook.
func WithXLSXReport(enabled bool) ReportStepOption {
	return func(s *ReportStep) {
		s.xlsx = enabled
	}
}

// WithReportLogger sets a custom logger for the report step.
func WithReportLogger(logger *slog.Logger) ReportStepOption {
	return func(s *ReportStep) {
		s.logger = logger
	}
}

// NewReportStep creates a new document writing step.
// Passing an empty output directory turns the step into a no-op.
func NewReportStep(outputDir string, opts ...ReportStepOption) *ReportStep {
	s := &ReportStep{
		outputDir: outputDir,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do executes the report step.
func (s *ReportStep) Do(_ context.Context, job *Job) error {
	if s.outputDir == "" {
		s.logger.Debug("file output disabled", "domain", job.Target.Host())
		return nil
	}
	if job.Result == nil {
		s.logger.Debug("nothing to report", "domain", job.Target.Host())
		return nil
	}

	if err := os.MkdirAll(s.outputDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	host := job.Target.Host()

	// Full result document, wrapped with version metadata.
	fullPath := filepath.Join(s.outputDir, host+".json")
	if err := s.writeDocument(fullPath, func(f *os.File) error {
		w := report.NewFullJSONWriter(f, s.version, report.WithPrettyPrint())
		_, err := w.Write(job.Result)
		return err
	}); err != nil {
		return err
	}

	// Product URL array for piping into other tools.
	productsPath := filepath.Join(s.outputDir, host+".products.json")
	if err := s.writeDocument(productsPath, func(f *os.File) error {
		w := report.NewJSONWriter(f, report.WithPrettyPrint())
		_, err := w.WriteProducts(job.Result)
		return err
	}); err != nil {
		return err
	}

	if s.markdown {
		mdPath := filepath.Join(s.outputDir, host+".md")
		if err := s.writeDocument(mdPath, func(f *os.File) error {
			_, err := report.NewMarkdownWriter(f).Write(job.Result)
			return err
		}); err != nil {
			return err
		}
	}

	if s.xlsx {
		xlsxPath := filepath.Join(s.outputDir, host+".xlsx")
		if err := s.writeDocument(xlsxPath, func(f *os.File) error {
			_, err := report.NewXLSXWriter(f).Write(job.Result)
			return err
		}); err != nil {
			return err
		}
	}

	s.logger.Debug("reports written",
		"domain", host,
		"output_dir", s.outputDir,
	)

	return nil
}

// writeDocument creates the file with owner-only permissions and hands it
// to the given write function. Result documents can reveal what a user is
// monitoring, so they are not world readable.
func (s *ReportStep) writeDocument(path string, write func(f *os.File) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // path is built from the validated target host
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := write(f); err != nil {
		f.Close() //nolint:errcheck // the write error is the one that matters
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}

	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// DB is the crawl history store. Nil disables the persist step.
	DB *database.CrawlDB

	// OutputDir is where result documents are written. Empty disables
	// the report step's file output.
	OutputDir string

	// Version is stamped into the full JSON document.
	Version string

	// Markdown enables the Markdown summary document.
	Markdown bool

	// XLSX enables the XLSX product workbook.
	XLSX bool

	// Logger is passed to every step. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineDB sets the crawl history store for the persist step.
func WithPipelineDB(db *database.CrawlDB) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.DB = db
	}
}

// WithPipelineOutputDir sets the directory for result documents.
func WithPipelineOutputDir(dir string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.OutputDir = dir
	}
}

// WithPipelineVersion sets the version stamped into the JSON document.
func WithPipelineVersion(version string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Version = version
	}
}

// WithPipelineMarkdown enables the Markdown summary document.
func WithPipelineMarkdown(enabled bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Markdown = enabled
	}
}

// WithPipelineXLSX enables the XLSX product workbook.
func WithPipelineXLSX(enabled bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.XLSX = enabled
	}
}

// WithPipelineStepLogger sets the logger passed to every step.
func WithPipelineStepLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline creates a pipeline with all default steps configured:
// robots, crawl, persist, report. This is the standard pipeline for a
// full crawl-and-record run.
//
// Design decision: We provide a default pipeline because:
// 1. Most runs want the full sequence
// 2. Reduces boilerplate in the CLI
// 3. Ensures consistent step ordering
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineDB, etc).
// Steps whose dependency is absent (nil database, empty output
// directory, robots disabled in the job's config) skip themselves.
func DefaultPipeline(pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	cfg := &DefaultPipelineConfig{}
	for _, opt := range configOpts {
		opt(cfg)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := New(pipelineOpts...)

	// Add steps in logical order
	p.AddSteps(
		NewRobotsStep(WithRobotsLogger(logger)),
		NewCrawlStep(WithCrawlLogger(logger)),
		NewPersistStep(cfg.DB, WithPersistLogger(logger)),
		NewReportStep(cfg.OutputDir,
			WithReportVersion(cfg.Version),
			WithMarkdownReport(cfg.Markdown),
			WithXLSXReport(cfg.XLSX),
			WithReportLogger(logger),
		),
	)

	return p
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/shopscan/internal/config"
	"github.com/nao1215/shopscan/internal/crawler"
	"github.com/nao1215/shopscan/internal/database"
	"github.com/nao1215/shopscan/internal/log"
	"github.com/nao1215/shopscan/internal/model"
	"github.com/nao1215/shopscan/internal/pipeline"
	"github.com/nao1215/shopscan/internal/report"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [shop-url]",
		Short: "Crawl a shop and discover its product pages",
		Long: `Crawl visits an e-commerce site and discovers its product detail pages.

Starting from the shop's home page it follows same-domain links up to the
configured depth, classifies product URLs by their path shape, and writes
per-domain result documents: <host>.json with the full crawl result and
<host>.products.json with just the product URLs. Each run is also recorded
in the local history database for later comparison with 'shopscan diff'.

Examples:
  # Crawl a single shop
  shopscan crawl shop.example.com

  # Crawl multiple shops concurrently
  shopscan crawl shop1.example.com shop2.example.com shop3.example.com

  # Crawl shops listed in a file (one per line)
  shopscan crawl --list shops.txt

  # Add custom product URL patterns for an unusual storefront
  shopscan crawl --pattern "/goods/*" --pattern "/sku-*" shop.example.com

  # Render JavaScript-heavy storefronts with headless Chrome
  shopscan crawl --browser spa-shop.example.com

  # Also write Markdown and Excel reports
  shopscan crawl --markdown --xlsx shop.example.com

Configuration file (shopscan.yml) example:
  defaults:
    request_delay_ms: 1000
  sites:
    myshopify.com:
      product_patterns:
        - pattern: "/products/*"
    shop.example.com:
      cookie: "region=eu; currency=EUR"
      max_depth: 4`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of pages fetched in parallel per batch")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link depth from the seed page")
	cmd.Flags().IntP("max-urls", "p", config.DefaultMaxURLs,
		"Maximum number of URLs to visit per domain")
	cmd.Flags().DurationP("delay", "D", config.DefaultRequestDelay,
		"Pause between request batches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Float64("rate", 0,
		"Maximum requests per second (0 disables the extra limiter)")
	cmd.Flags().StringArrayP("pattern", "P", nil,
		"Additional product URL glob pattern (repeatable)")
	cmd.Flags().BoolP("browser", "B", false,
		"Render pages with headless Chrome (for JavaScript storefronts)")
	cmd.Flags().Bool("no-robots", false,
		"Ignore robots.txt exclusions")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchConcurrency,
		"Number of shops crawled concurrently")
	cmd.Flags().StringP("list", "l", "",
		"Read additional shop URLs from a file (one per line)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: shopscan.yml in current or XDG config directory)")

	// Output flags
	cmd.Flags().StringP("output-dir", "o", ".",
		"Directory for result documents (created if needed)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Additionally write a Markdown summary per domain")
	cmd.Flags().BoolP("xlsx", "x", false,
		"Additionally write an Excel product workbook per domain")
	cmd.Flags().Bool("no-save", false,
		"Skip recording the crawl in the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with secret redaction
	verbose := getVerboseFlag(cmd)
	logger := log.NewRedactLogger(os.Stderr, verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxURLs, err = cmd.Flags().GetInt("max-urls")
	if err != nil {
		return nil, err
	}

	cfg.RequestDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.RequestsPerSecond, err = cmd.Flags().GetFloat64("rate")
	if err != nil {
		return nil, err
	}

	cfg.ExtraPatterns, err = cmd.Flags().GetStringArray("pattern")
	if err != nil {
		return nil, err
	}

	cfg.UseBrowser, err = cmd.Flags().GetBool("browser")
	if err != nil {
		return nil, err
	}

	noRobots, err := cmd.Flags().GetBool("no-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobots = !noRobots

	cfg.BatchConcurrency, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.XLSXReport, err = cmd.Flags().GetBool("xlsx")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DataDir = config.XDGDataDir()

	// Positional arguments plus any list file entries
	cfg.Targets = append([]string(nil), args...)

	listPath, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}
	if listPath != "" {
		fromFile, err := readTargetList(listPath)
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, fromFile...)
	}

	return cfg, nil
}

// readTargetList reads shop URLs from a file, one per line.
// Blank lines and lines starting with "#" are skipped.
func readTargetList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open target list: %w", err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read target list: %w", err)
	}

	return targets, nil
}

// resolveTargets parses the raw target strings into crawl targets.
// Duplicate hosts are dropped because they would overwrite each other's
// result documents and history rows.
func resolveTargets(raw []string) ([]model.Target, error) {
	targets := make([]model.Target, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for _, r := range raw {
		t, err := model.NewTarget(r)
		if err != nil {
			return nil, fmt.Errorf("invalid shop URL %q: %w", r, err)
		}
		if seen[t.Host()] {
			continue
		}
		seen[t.Host()] = true
		targets = append(targets, t)
	}

	return targets, nil
}

// resolveTargetConfig builds the effective configuration for one target by
// applying per-site overrides from the config file on top of the global
// settings. Site entries are more specific than global flags, so they win.
// It also collects the product patterns for the target: per-site patterns
// plus any --pattern flags.
func resolveTargetConfig(cfg *config.Config, target model.Target) (*config.Config, []crawler.Pattern) {
	jobCfg := *cfg

	var site config.SiteConfig
	if cfg.SiteConfigs != nil {
		site = cfg.SiteConfigs.Lookup(target.Host())
	}

	if site.UserAgent != "" {
		jobCfg.UserAgent = site.UserAgent
	}
	if len(site.Headers) > 0 {
		headers := make(map[string]string, len(cfg.Headers)+len(site.Headers))
		for k, v := range cfg.Headers {
			headers[k] = v
		}
		for k, v := range site.Headers {
			headers[k] = v
		}
		jobCfg.Headers = headers
	}
	if site.Cookie != "" {
		jobCfg.Cookie = site.Cookie
	}
	if site.MaxDepth != nil {
		jobCfg.MaxDepth = *site.MaxDepth
	}
	if site.Concurrency > 0 {
		jobCfg.Concurrency = site.Concurrency
	}
	if site.RequestDelayMS != nil {
		jobCfg.RequestDelay = time.Duration(*site.RequestDelayMS) * time.Millisecond
	}
	if site.TimeoutMS > 0 {
		jobCfg.Timeout = time.Duration(site.TimeoutMS) * time.Millisecond
	}
	if site.MaxURLs > 0 {
		jobCfg.MaxURLs = site.MaxURLs
	}
	if site.UseBrowser != nil {
		jobCfg.UseBrowser = *site.UseBrowser
	}

	patterns := append([]crawler.Pattern(nil), site.ProductPatterns...)
	for _, p := range cfg.ExtraPatterns {
		patterns = append(patterns, crawler.Pattern{Pattern: p})
	}

	return &jobCfg, patterns
}

// createPipeline creates a crawl pipeline with the given dependencies.
// A nil db disables the persist step.
func createPipeline(logger *slog.Logger, cfg *config.Config, db *database.CrawlDB) *pipeline.Pipeline {
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineOutputDir(cfg.OutputDir),
		pipeline.WithPipelineVersion(getVersion()),
		pipeline.WithPipelineMarkdown(cfg.MarkdownReport),
		pipeline.WithPipelineXLSX(cfg.XLSXReport),
		pipeline.WithPipelineStepLogger(logger),
	}
	if db != nil {
		configOpts = append(configOpts, pipeline.WithPipelineDB(db))
	}

	return pipeline.DefaultPipeline(pipelineOpts, configOpts...)
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.Targets) == 0 {
		return config.ErrNoTarget
	}

	targets, err := resolveTargets(cfg.Targets)
	if err != nil {
		return err
	}

	logger.Info("starting crawl",
		"targets", len(targets),
		"batch", cfg.BatchConcurrency,
		"save", cfg.SaveToDB,
	)

	// Open the history database unless saving is disabled
	var db *database.CrawlDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DataDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		logger.Debug("history database opened", "dir", cfg.DataDir)
	}

	// One job per target, with per-site configuration resolved up front
	jobs := make([]*pipeline.Job, 0, len(targets))
	for _, t := range targets {
		jobCfg, patterns := resolveTargetConfig(cfg, t)
		job := pipeline.NewJob(t, jobCfg)
		job.Patterns = patterns
		jobs = append(jobs, job)
	}

	factory := func() *pipeline.Pipeline {
		return createPipeline(logger, cfg, db)
	}

	if len(jobs) == 1 {
		return runSingleCrawl(ctx, jobs[0], factory())
	}
	return runBatchCrawl(ctx, cfg, jobs, factory, logger)
}

// runSingleCrawl crawls one shop and prints its summary to stdout.
func runSingleCrawl(ctx context.Context, job *pipeline.Job, p *pipeline.Pipeline) error {
	fmt.Printf("Crawling %s...\n", job.Target.String())
	startTime := time.Now()

	if err := p.Execute(ctx, job); err != nil {
		return err
	}

	// The pipeline continues past step failures, so a failed crawl
	// surfaces on the job rather than from Execute.
	if job.Err != nil {
		fmt.Fprintf(os.Stderr, "Crawl error for %s: %v\n", job.Target.Host(), job.Err)
		return job.Err
	}

	elapsed := time.Since(startTime)
	fmt.Printf("Crawl completed in %s\n\n", elapsed.Round(time.Millisecond))

	if job.Result != nil {
		if _, err := report.NewSimpleWriter(os.Stdout).Write(job.Result); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	return nil
}

// runBatchCrawl crawls multiple shops concurrently using the batch
// processor, streaming one completion line per shop.
func runBatchCrawl(ctx context.Context, cfg *config.Config, jobs []*pipeline.Job, factory func() *pipeline.Pipeline, logger *slog.Logger) error {
	fmt.Printf("Crawling %d shops (concurrency: %d)...\n\n", len(jobs), cfg.BatchConcurrency)
	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		factory,
		pipeline.WithBatchConcurrency(cfg.BatchConcurrency),
		pipeline.WithBatchLogger(logger),
	)

	// Stream results as crawls complete
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, jobs, func(job *pipeline.Job, index int) {
		mu.Lock()
		defer mu.Unlock()

		if job.Err != nil {
			fmt.Printf("[%d/%d] %s: crawl failed: %v\n", index+1, len(jobs), job.Target.Host(), job.Err)
			return
		}

		products, visited := 0, 0
		if job.Result != nil {
			products = job.Result.ProductCount()
			visited = job.Result.TotalURLsCrawled
		}
		fmt.Printf("[%d/%d] %s: %d product pages (from %d URLs)\n",
			index+1, len(jobs), job.Target.Host(), products, visited)
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch crawl completed in %s\n", elapsed.Round(time.Millisecond))

	failed := 0
	for _, job := range jobs {
		if job.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		fmt.Printf("%d of %d crawls failed\n", failed, len(jobs))
	}

	return err
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/report"
	"github.com/aluiziolira/go-scrape-catalog/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	defaults := config.DefaultConfig()

	configFile := flag.String("config", "", "Optional YAML configuration file")
	baseURL := flag.String("base-url", defaults.BaseURL, "Catalog URL to crawl")
	maxPages := flag.Int("pages", defaults.MaxPages, "Maximum catalog pages to scrape (0 = all)")
	parallelism := flag.Int("parallel", defaults.Parallelism, "Number of concurrent page workers")
	topN := flag.Int("top", defaults.TopN, "Number of most expensive products to report")
	timeoutMs := flag.Int("timeout", int(defaults.Timeout/time.Millisecond), "Request timeout (milliseconds)")
	maxRetries := flag.Int("max-retries", defaults.MaxRetries, "Maximum retry attempts per page")
	retryBackoffMs := flag.Int("retry-backoff", int(defaults.RetryBackoff/time.Millisecond), "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", int(defaults.RetryBackoffMax/time.Millisecond), "Maximum retry backoff (milliseconds)")
	respectRobots := flag.Bool("respect-robots", defaults.RespectRobotsTxt, "Respect robots.txt directives")
	outputFile := flag.String("output", defaults.OutputFile, "Output file path")
	outputFormat := flag.String("format", defaults.OutputFormat, "Output format: csv, json, or dual")
	chartFile := flag.String("chart", defaults.ChartFile, "Top-N chart PNG path (default top_<N>_expensive_products_chart.png)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	cfg := config.DefaultConfig()
	if *configFile != "" {
		if err := cfg.LoadFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	// Only flags given on the command line override file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "base-url":
			cfg.BaseURL = *baseURL
		case "pages":
			cfg.MaxPages = *maxPages
		case "parallel":
			cfg.Parallelism = *parallelism
		case "top":
			cfg.TopN = *topN
		case "timeout":
			cfg.Timeout = time.Duration(*timeoutMs) * time.Millisecond
		case "max-retries":
			cfg.MaxRetries = *maxRetries
		case "retry-backoff":
			cfg.RetryBackoff = time.Duration(*retryBackoffMs) * time.Millisecond
		case "retry-backoff-max":
			cfg.RetryBackoffMax = time.Duration(*retryBackoffMaxMs) * time.Millisecond
		case "respect-robots":
			cfg.RespectRobotsTxt = *respectRobots
		case "output":
			cfg.OutputFile = *outputFile
		case "format":
			cfg.OutputFormat = *outputFormat
		case "chart":
			cfg.ChartFile = *chartFile
		case "v":
			cfg.Verbose = *verbose
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		}
	})
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("max_pages", cfg.MaxPages),
		slog.Int("workers", cfg.Parallelism),
		slog.Int("top_n", cfg.TopN),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsServer := startMetricsServer(cfg.MetricsAddr, s.Metrics)

	totalStart := time.Now()
	outcome, err := s.Run(ctx)
	if ctx.Err() != nil {
		slog.Warn("interrupted, reporting the pages finished before shutdown")
	}
	shutdownMetricsServer(metricsServer)
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		os.Exit(1)
	}
	scrapeTime := outcome.Duration()

	processStart := time.Now()
	summary := report.Build(outcome.Products, cfg.TopN)
	if err := writeProducts(cfg.OutputFormat, cfg.OutputFile, summary.Ranked); err != nil {
		slog.Error("writing products", slog.Any("error", err))
		os.Exit(1)
	}

	chart := report.BarChart{Path: cfg.ChartPath(), Width: cfg.ChartWidth, Height: cfg.ChartHeight}
	if err := chart.Render(report.ChartTitle(cfg.TopN), summary.Top); err != nil {
		if errors.Is(err, report.ErrNoBars) {
			slog.Warn("no products extracted, skipping chart")
		} else {
			slog.Error("rendering chart", slog.Any("error", err))
		}
	}
	processTime := time.Since(processStart)

	printSummary(outcome, summary, scrapeTime, processTime, time.Since(totalStart), cfg)
}

func writeProducts(format, filename string, products []models.Product) error {
	writer, err := report.NewOutputWriter(format, filename)
	if err != nil {
		return err
	}
	if err := writer.Write(products); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return writer.Validate()
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}
	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func shutdownMetricsServer(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func printSummary(outcome *models.ScrapeOutcome, summary report.Report, scrapeTime, processTime, totalTime time.Duration, cfg *config.Config) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Printf("Scraping time: %.2f seconds\n", scrapeTime.Seconds())
	fmt.Printf("Products extracted: %d\n", summary.Count)
	fmt.Printf("Processing time: %.2f seconds\n", processTime.Seconds())
	fmt.Printf("Pages: %d scraped, %d failed\n", outcome.Succeeded(), len(outcome.Failures))
	if outcome.Skipped > 0 {
		fmt.Printf("Pages skipped after interrupt: %d\n", outcome.Skipped)
	}
	for _, f := range outcome.Failures {
		fmt.Printf("  page %d: %v\n", f.Page+1, f.Err)
	}
	if len(outcome.ErrorsByType) > 0 {
		fmt.Printf("Error types: %v\n", outcome.ErrorsByType)
	}
	if summary.Incomplete > 0 {
		fmt.Printf("Incomplete products: %d\n", summary.Incomplete)
	}
	fmt.Printf("Average price: %.2f\n", summary.Average)
	fmt.Printf("Minimum price: %.2f\n", summary.Min)
	fmt.Printf("Maximum price: %.2f\n", summary.Max)
	if len(summary.Top) > 0 {
		fmt.Printf("Top %d most expensive:\n", cfg.TopN)
		for i, p := range summary.Top {
			fmt.Printf("  %d. %s  %.2f\n", i+1, p.Name, p.Price)
		}
	}
	fmt.Printf("Requests: %d (retries %d)\n", outcome.RequestCount, outcome.RetryCount)
	fmt.Printf("Output file: %s\n", report.OutputPath(cfg.OutputFormat, cfg.OutputFile))
	fmt.Printf("Total time: %.2f seconds\n", totalTime.Seconds())
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

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
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rsilveira/bookharvest/config"
	"github.com/rsilveira/bookharvest/fetch"
	"github.com/rsilveira/bookharvest/harvest"
	"github.com/rsilveira/bookharvest/metrics"
	"github.com/rsilveira/bookharvest/models"
)

func main() {
	defaultCfg := config.DefaultConfig()
	limitDefault := defaultCfg.CategoryLimit
	if value, ok, err := config.EnvInt("HARVEST_LIMIT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid HARVEST_LIMIT: %v\n", err)
		os.Exit(1)
	} else if ok {
		limitDefault = value
	}
	outputDefault := defaultCfg.OutputDir
	if value, ok := config.EnvString("HARVEST_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("HARVEST_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	limit := flag.Int("limit", limitDefault, "Number of categories to harvest (0 = all)")
	outputDir := flag.String("output", outputDefault, "Output directory for CSV stores and images")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Base URL of the catalog site")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "Request timeout (seconds)")
	maxRetries := flag.Int("max-retries", defaultCfg.MaxRetries, "Maximum retry attempts per URL")
	retryBackoffMs := flag.Int("retry-backoff", int(defaultCfg.RetryBackoff/time.Millisecond), "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", int(defaultCfg.RetryBackoffMax/time.Millisecond), "Maximum retry backoff (milliseconds)")
	imageMax := flag.Int("image-max", defaultCfg.ImageMaxWidth, "Maximum image dimension on either axis (pixels)")
	jpegQuality := flag.Int("jpeg-quality", defaultCfg.JPEGQuality, "JPEG re-encode quality (1-100)")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.BaseURL = *baseURL
	cfg.CategoryLimit = *limit
	cfg.OutputDir = *outputDir
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.MaxRetries = *maxRetries
	cfg.RetryBackoff = time.Duration(*retryBackoffMs) * time.Millisecond
	cfg.RetryBackoffMax = time.Duration(*retryBackoffMaxMs) * time.Millisecond
	cfg.ImageMaxWidth = *imageMax
	cfg.ImageMaxHeight = *imageMax
	cfg.JPEGQuality = *jpegQuality
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting harvest",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("limit", cfg.CategoryLimit),
		slog.String("output", cfg.OutputDir),
	)

	m := metrics.New()
	client, err := fetch.NewClient(cfg, m)
	if err != nil {
		slog.Error("initialising fetch client", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current item")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	startTime := time.Now()
	runner := harvest.NewRunner(cfg, client, m)
	summary, err := runner.Run(ctx)
	if err != nil {
		slog.Error("harvest failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(summary, time.Since(startTime), cfg.OutputDir)
	if summary.CategoriesFailed > 0 {
		os.Exit(1)
	}
}

func printSummary(summary *models.Summary, duration time.Duration, outputDir string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Harvest complete")
	fmt.Printf("  Categories:        %d\n", summary.Categories)
	fmt.Printf("  Categories failed: %d\n", summary.CategoriesFailed)
	fmt.Printf("  Items:             %d\n", summary.Items)
	fmt.Printf("  Items skipped:     %d\n", summary.ItemsSkipped)
	fmt.Printf("  Duplicate rows:    %d\n", summary.DuplicateRows)
	fmt.Printf("  Images stored:     %d\n", summary.ImagesStored)
	fmt.Printf("  Images failed:     %d\n", summary.ImagesFailed)
	if len(summary.SkippedURLs) > 0 {
		fmt.Printf("  Skipped URLs:      %v\n", summary.SkippedURLs)
	}
	fmt.Printf("  Duration:          %v\n", duration)
	fmt.Printf("  Output directory:  %s\n", outputDir)
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
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
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

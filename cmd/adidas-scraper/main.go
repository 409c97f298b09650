package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-adidas/config"
	"github.com/aluiziolira/go-scrape-adidas/dashboard"
	"github.com/aluiziolira/go-scrape-adidas/datadir"
	"github.com/aluiziolira/go-scrape-adidas/models"
	"github.com/aluiziolira/go-scrape-adidas/pipeline"
	"github.com/aluiziolira/go-scrape-adidas/report"
	"github.com/aluiziolira/go-scrape-adidas/scraper"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "adidas-scraper",
		Short: "Catalog scraper for shop.adidas.jp",
		Long: `adidas-scraper crawls the shop.adidas.jp catalog, follows each article
through its detail page, article API, size chart and review feed, and
exports the normalized records to JSONL, CSV, JSON and MongoDB sinks.`,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(cleanCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		limit        int
		mailOnFinish bool
		createViz    bool
		format       string
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl the catalog and export records",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogger()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if limit > 0 {
				cfg.Limit = limit
			}
			if format != "" {
				cfg.OutputFormat = strings.ToLower(format)
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			cfg.Verbose = cfg.Verbose || verbose
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			return runScrape(cfg, mailOnFinish, createViz)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum products to scrape (0 = all)")
	cmd.Flags().BoolVar(&mailOnFinish, "mail-on-finish", false, "email the completion report with the spreadsheet attached")
	cmd.Flags().BoolVar(&createViz, "create-viz", false, "render the latency dashboard as a static page")
	cmd.Flags().StringVar(&format, "format", "", "output format: jsonl, csv, json, or all")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")

	return cmd
}

func runScrape(cfg *config.Config, mailOnFinish, createViz bool) error {
	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.String("gender", cfg.Gender),
		slog.Int("limit", cfg.Limit),
		slog.Int("workers", cfg.Parallelism),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	writer, err := createWriter(cfg)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	p := pipeline.NewPipeline(writer)
	p.Start()

	stats, err := s.Run(ctx, p)
	if err != nil {
		return fmt.Errorf("scraping failed: %w", err)
	}

	if err := p.Close(); err != nil {
		return fmt.Errorf("pipeline shutdown failed: %w", err)
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	metrics := p.GetMetrics()
	if processed, ok := metrics["processed_products"].(int64); ok {
		stats.ItemScrapedCount = int(processed)
	}

	if _, err := scraper.WriteStats(cfg.DataRoot, stats); err != nil {
		slog.Error("persist run stats", slog.Any("error", err))
	}

	spreadsheetPath, err := report.GenerateSpreadsheet(cfg.DataRoot)
	if err != nil {
		slog.Error("generate spreadsheet", slog.Any("error", err))
		spreadsheetPath = ""
	}

	if createViz {
		if path, err := dashboard.Save(cfg.DataRoot); err != nil {
			slog.Error("render dashboard", slog.Any("error", err))
		} else {
			slog.Info("dashboard rendered", slog.String("path", path))
		}
	}

	if mailOnFinish {
		mailer := report.NewMailer(cfg)
		if err := mailer.SendCompletionReport("Adidas scrape finished", stats, spreadsheetPath); err != nil {
			slog.Error("send completion report", slog.Any("error", err))
		} else {
			slog.Info("completion report sent", slog.String("recipient", cfg.RecipientEmail))
		}
	}

	printSummary(stats, metrics, cfg.DataRoot)
	return nil
}

func cleanCmd() *cobra.Command {
	var backup bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogger()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			dest, err := datadir.Clean(cfg.DataRoot, backup)
			if err != nil {
				return err
			}
			if dest != "" {
				slog.Info("data directory backed up", slog.String("dest", dest))
			} else {
				slog.Info("data directory removed", slog.String("root", cfg.DataRoot))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&backup, "backup", false, "rename the data directory instead of deleting it")
	return cmd
}

func dashboardCmd() *cobra.Command {
	var (
		addr string
		save bool
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve or render the request-latency dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogger()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if save {
				path, err := dashboard.Save(cfg.DataRoot)
				if err != nil {
					return err
				}
				fmt.Printf("Report written to %s\n", path)
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return dashboard.NewServer(cfg.DataRoot, addr).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "dashboard listen address")
	cmd.Flags().BoolVar(&save, "save", false, "render a static report instead of serving")
	return cmd
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Email the completion report for the current day's run",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogger()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			stats, err := scraper.ReadStats(cfg.DataRoot)
			if err != nil {
				return fmt.Errorf("no run stats for today: %w", err)
			}

			spreadsheetPath := filepath.Join(cfg.DataRoot, "spreadsheets", datadir.Today(), "latest.xlsx")
			if _, err := os.Stat(spreadsheetPath); err != nil {
				spreadsheetPath = ""
			}

			mailer := report.NewMailer(cfg)
			if err := mailer.SendCompletionReport("Adidas scrape report", stats, spreadsheetPath); err != nil {
				return err
			}
			slog.Info("report sent", slog.String("recipient", cfg.RecipientEmail))
			return nil
		},
	}
}

func createWriter(cfg *config.Config) (pipeline.OutputWriter, error) {
	prefixes := pipeline.FilePrefixes()
	var sinks []pipeline.OutputWriter

	addFileSink := func(area, ext string, build func(dir string) (pipeline.OutputWriter, error)) error {
		dir, err := datadir.EnsureRunDir(filepath.Join(cfg.DataRoot, area), ext, prefixes)
		if err != nil {
			return err
		}
		sink, err := build(dir)
		if err != nil {
			return err
		}
		sinks = append(sinks, sink)
		return nil
	}

	format := cfg.OutputFormat
	if format == "jsonl" || format == "all" {
		if err := addFileSink("jsonlines", "jl", func(dir string) (pipeline.OutputWriter, error) {
			s, err := pipeline.NewJSONLSink(dir)
			return s, err
		}); err != nil {
			return nil, err
		}
	}
	if format == "csv" || format == "all" {
		if err := addFileSink("csv", "csv", func(dir string) (pipeline.OutputWriter, error) {
			s, err := pipeline.NewCSVSink(dir)
			return s, err
		}); err != nil {
			return nil, err
		}
	}
	if format == "json" || format == "all" {
		if err := addFileSink("json", "json", func(dir string) (pipeline.OutputWriter, error) {
			s, err := pipeline.NewArrayJSONSink(dir)
			return s, err
		}); err != nil {
			return nil, err
		}
	}

	if cfg.MongoURI != "" {
		sink, err := pipeline.NewMongoSink(cfg.MongoURI, cfg.MongoDatabase, time.Now())
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	if len(sinks) == 0 {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	multi, err := pipeline.NewMultiSink(sinks...)
	return multi, err
}

func printSummary(stats *models.RunStats, metrics map[string]interface{}, dataRoot string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	fmt.Printf("  Products:      %d\n", stats.ItemScrapedCount)
	successRate := 0.0
	if stats.RequestCount > 0 {
		successRate = float64(stats.SuccessCount) / float64(stats.RequestCount) * 100
	}
	fmt.Printf("  Success rate:  %.2f%%\n", successRate)
	fmt.Printf("  Errors:        %d\n", stats.ErrorCount)
	fmt.Printf("  Failed URLs:   %d\n", len(stats.FailedURLs))
	if len(stats.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", stats.ErrorsByType)
	}
	if byKind, ok := metrics["records_by_kind"].(map[string]int64); ok && len(byKind) > 0 {
		fmt.Printf("  Records:       %v\n", byKind)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %v\n", valErrors)
	}
	fmt.Printf("  Duration:      %.1fs\n", stats.ElapsedTimeSeconds)
	fmt.Printf("  Bytes in:      %d\n", stats.ResponseBytes)
	fmt.Printf("  Data root:     %s\n", dataRoot)
	fmt.Println(separator)
}

func setupLogger() {
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

	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

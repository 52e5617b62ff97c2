// Command arsoscrape downloads weather-station observations from the ARSO
// archive into CSV files, one per station category and period.
//
// Automatic stations are fetched half-monthly for every year in ARSO_YEARS;
// the other categories in ARSO_PERIOD_TYPES are fetched once over
// ARSO_PERIOD_FROM..ARSO_PERIOD_TO. Files land in ARSO_OUTPUT_DIR.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YuminosukeSato/treeprimer/internal/config"
	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"github.com/YuminosukeSato/treeprimer/pkg/log"
	"github.com/YuminosukeSato/treeprimer/scraper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadScrape()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("Failed to load config", log.ErrAttr(err))
		os.Exit(1)
	}
	if err := run(ctx, *cfg, os.Stderr); err != nil {
		errors.PrintTrace(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ScrapeConfig, stderr io.Writer) error {
	if err := log.SetupLogger(stderr, cfg.LogLevel); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("arsoscrape")

	from, to, err := cfg.Period()
	if err != nil {
		return err
	}
	jobs := scraper.MonthlyJobs(cfg.Years)
	types := make([]scraper.StationType, len(cfg.PeriodTypes))
	for i, t := range cfg.PeriodTypes {
		types[i] = scraper.StationType(t)
	}
	jobs = append(jobs, scraper.PeriodJobs(types, from, to)...)

	client := scraper.NewClient(
		scraper.WithBaseURL(cfg.BaseURL),
		scraper.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		scraper.WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		scraper.WithLogger(logger),
	)
	s := scraper.New(client, cfg.OutputDir,
		scraper.WithConcurrency(cfg.Concurrency),
		scraper.WithScraperLogger(logger))

	start := time.Now()
	logger.Info("Download started", "jobs", len(jobs), "output_dir", cfg.OutputDir)
	paths, err := s.Run(ctx, jobs)
	if err != nil {
		logger.Error("Download failed", err, "files", len(paths))
		return err
	}
	logger.Info("Download finished",
		"files", len(paths),
		log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

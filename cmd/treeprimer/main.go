// Command treeprimer loads a CSV dataset, trains a decision tree on a
// positional 70/30 split and prints actual/predicted pairs for the test rows.
//
// Configuration comes from defaults, an optional YAML file (-config or
// PRIMER_CONFIG_FILE) and PRIMER_* environment variables. Predictions go to
// stdout, logs to stderr. The process exits 0 even when the run fails.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/treeprimer/internal/config"
	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"github.com/YuminosukeSato/treeprimer/pkg/log"
	"github.com/YuminosukeSato/treeprimer/pipeline"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (overrides "+config.FileEnv+")")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run(ctx, *configPath, os.Stdout, os.Stderr)
}

// run は失敗しても戻り値を持たない。エラーはログとトレースに出すだけ。
func run(ctx context.Context, configPath string, stdout, stderr io.Writer) {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.New(slog.NewJSONHandler(stderr, nil)).Error("Failed to load config", log.ErrAttr(err))
		errors.PrintTrace(stderr, err)
		return
	}

	if err := log.SetupLogger(stderr, cfg.LogLevel); err != nil {
		errors.PrintTrace(stderr, err)
		return
	}
	errors.SetZerologWarnFunc(errors.ZerologWarnFunc(log.NewZerologLogger(stderr, cfg.LogLevel)))

	logger := log.GetLoggerWithName("treeprimer")
	err = errors.SafeExecute("treeprimer", func() error {
		_, err := pipeline.New(*cfg, pipeline.WithOutput(stdout)).Run(ctx)
		return err
	})
	if err != nil {
		logger.Error("Run failed", err, log.SourceKey, cfg.DataPath)
		errors.PrintTrace(stderr, err)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tracmailman/mailarchive/internal/archive"
	"github.com/tracmailman/mailarchive/internal/config"
	"github.com/tracmailman/mailarchive/internal/ingest"
	"github.com/tracmailman/mailarchive/internal/logging"
	"github.com/tracmailman/mailarchive/internal/search"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config JSON")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "Log format (text, json)")
	lists := flag.String("list", "", "Comma-separated list of mailing lists to index (default: all)")
	output := flag.String("output", "", "Override the SQLite index path")
	flag.Parse()

	logger := logging.BuildLogger(*logLevel, *logFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := index(ctx, logger, *configPath, *lists, *output); err != nil {
		logger.Error("index failed", "error", err)
		os.Exit(1)
	}
}

func index(ctx context.Context, logger *slog.Logger, configPath, listArg, output string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if output != "" {
		cfg.SQLiteIndex = output
	}
	if cfg.SQLiteIndex == "" {
		return errors.New("no sqlite index path configured")
	}

	lists, err := parseLists(listArg)
	if err != nil {
		return err
	}

	// Without a list filter the index is rebuilt from scratch, which also
	// drops lists that left the archive.
	indexer, err := search.NewSQLiteIndexer(cfg.SQLiteIndex, len(lists) == 0)
	if err != nil {
		return err
	}

	runner := &ingest.Runner{
		Store:   archive.NewStore(cfg.MailArchivePath, cfg.PrivateLists),
		Indexer: indexer,
		Logger:  logger,
	}
	if err := runner.Run(ctx, lists); err != nil {
		return err
	}

	total := 0
	for _, s := range runner.Statuses() {
		total += s.Indexed
	}
	logger.Info("done", "index", cfg.SQLiteIndex, "messages", total, "failures", len(runner.Failures()))
	return nil
}

var errInvalidList = errors.New("invalid list name")

func parseLists(arg string) ([]string, error) {
	if strings.TrimSpace(arg) == "" {
		return nil, nil
	}
	lists := strings.Split(arg, ",")
	for i := range lists {
		lists[i] = strings.TrimSpace(lists[i])
		if lists[i] == "" || strings.ContainsAny(lists[i], `/\`) {
			return nil, fmt.Errorf("%w: %q", errInvalidList, lists[i])
		}
	}
	return lists, nil
}

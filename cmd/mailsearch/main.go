package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/tracmailman/mailarchive/internal/archive"
	"github.com/tracmailman/mailarchive/internal/config"
	"github.com/tracmailman/mailarchive/internal/logging"
	"github.com/tracmailman/mailarchive/internal/search"
)

var (
	colorHeader  = color.New(color.FgHiMagenta, color.Bold)
	colorBold    = color.New(color.Bold)
	colorCyan    = color.New(color.FgCyan)
	colorWarning = color.New(color.FgYellow)
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config JSON")
	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	list := flag.String("list", search.AllLists, `Mailing list to search, or "all"`)
	query := flag.String("query", "", "Search query (required)")
	page := flag.String("page", "1", "Result page, 1-based")
	flag.Parse()

	if strings.TrimSpace(*query) == "" {
		fmt.Fprintf(os.Stderr, "Usage: mailsearch -query <words> [-list <name>] [-page <n>]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := logging.BuildLogger(*logLevel, "text")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	searcher, err := search.FromConfig(cfg, logger)
	if err != nil {
		logger.Error("open search backend", "backend", cfg.SearchBackend, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, cfg, searcher, *list, *query, *page); err != nil {
		colorWarning.Fprintf(os.Stderr, "%s\n", describe(err, *list))
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, cfg *config.Config, searcher search.Searcher, list, query, pageParam string) error {
	hits, err := searcher.Search(ctx, list, query)
	if err != nil {
		return err
	}
	hits = search.FilterPrivate(hits, list, cfg.PrivateLists)
	search.SortByNumber(hits)
	if len(hits) == 0 {
		colorWarning.Fprintf(w, "No results for %q.\n", query)
		return nil
	}

	p := search.Paginate(hits, search.ParsePage(pageParam), cfg.ArchiveRoot())
	printPage(w, cfg, query, p)
	return nil
}

func printPage(w io.Writer, cfg *config.Config, query string, p search.Page) {
	if len(p.Hits) == 0 {
		colorWarning.Fprintf(w, "No hits on page %d; %d results for %q in %d pages.\n",
			p.CurrentPage+1, p.NumHits, query, p.MaxPage)
		return
	}
	colorHeader.Fprintf(w, "Results %d-%d of %d for %q (page %d of %d)\n\n",
		p.FirstHit+1, p.LastHit, p.NumHits, query, p.CurrentPage+1, p.MaxPage)

	for _, h := range p.Hits {
		colorBold.Fprintf(w, "%3d. %s\n", h.Number, h.Title)
		if h.Path != "" {
			colorCyan.Fprintf(w, "     %s/%s\n", cfg.BasePath, h.Path)
		}
		if desc := archive.StripHTMLTags(h.Description); desc != "" {
			fmt.Fprintf(w, "     %s\n", desc)
		}
	}
}

func describe(err error, list string) string {
	var notFound *search.IndexNotFoundError
	var toolErr *search.ToolError
	var launchErr *search.LaunchError
	switch {
	case errors.As(err, &notFound):
		return fmt.Sprintf("Search index for %q not found. It is possible that this mailing list has never been used.", list)
	case errors.As(err, &toolErr):
		return fmt.Sprintf("Unknown error. Message was %q.", toolErr.Output)
	case errors.As(err, &launchErr):
		return fmt.Sprintf("Unable to run the search indexer: %v", launchErr.Err)
	default:
		return err.Error()
	}
}

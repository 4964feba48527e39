// Package ingest walks the archive tree and feeds every message page to a
// search indexer.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tracmailman/mailarchive/internal/archive"
	"github.com/tracmailman/mailarchive/internal/search"
)

const descriptionLength = 200

var messageFilePattern = regexp.MustCompile(`^([0-9]+)\.html$`)

// ListStatus is the progress of indexing one list.
type ListStatus struct {
	List    string
	Stage   string // "waiting", "indexing", "done", "error"
	Indexed int
	Errors  int
}

type Runner struct {
	Store   *archive.Store
	Indexer search.Indexer
	Logger  *slog.Logger

	mu       sync.Mutex
	statuses []ListStatus
	failures []string
}

// Run indexes the given lists, or every archive when lists is empty. Lists
// are processed concurrently; a failing message is recorded and skipped.
// The indexer is closed before Run returns.
func (r *Runner) Run(ctx context.Context, lists []string) error {
	if r.Store == nil || r.Indexer == nil {
		return errors.New("ingest runner missing dependencies")
	}

	listing, err := r.Store.Archives()
	if err != nil {
		_ = r.Indexer.Close()
		return err
	}
	entries := selectEntries(listing.All(), lists)
	if len(lists) > 0 && len(entries) != len(lists) {
		_ = r.Indexer.Close()
		return fmt.Errorf("unknown list in %v", lists)
	}

	r.statuses = make([]ListStatus, len(entries))
	for i, e := range entries {
		r.statuses[i] = ListStatus{List: e.Name, Stage: "waiting"}
	}

	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for i, entry := range entries {
		wg.Add(1)
		go func(idx int, e archive.Entry) {
			defer wg.Done()
			if err := r.runList(ctx, idx, e); err != nil {
				errOnce.Do(func() { firstErr = err })
				r.mu.Lock()
				r.statuses[idx].Stage = "error"
				r.mu.Unlock()
			}
		}(i, entry)
	}

	wg.Wait()

	if err := r.Indexer.Close(); err != nil {
		return fmt.Errorf("close indexer: %w", err)
	}

	if len(r.failures) > 0 && r.Logger != nil {
		r.Logger.Warn("indexing completed with failures", "count", len(r.failures))
	}

	return firstErr
}

// Statuses returns a snapshot of per-list progress.
func (r *Runner) Statuses() []ListStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ListStatus(nil), r.statuses...)
}

// Failures returns the recorded per-message failures.
func (r *Runner) Failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failures...)
}

func selectEntries(all []archive.Entry, lists []string) []archive.Entry {
	if len(lists) == 0 {
		return all
	}
	want := make(map[string]bool, len(lists))
	for _, l := range lists {
		want[l] = true
	}
	var out []archive.Entry
	for _, e := range all {
		if want[e.Name] {
			out = append(out, e)
		}
	}
	return out
}

func (r *Runner) runList(ctx context.Context, idx int, entry archive.Entry) error {
	visibility := archive.Public
	if entry.Private {
		visibility = archive.Private
	}
	listDir := filepath.Join(r.Store.Root, visibility, entry.Name)

	r.mu.Lock()
	r.statuses[idx].Stage = "indexing"
	r.mu.Unlock()
	if r.Logger != nil {
		r.Logger.Info("indexing list", "list", entry.Name, "dir", listDir)
	}

	if err := r.Indexer.ResetList(ctx, entry.Name); err != nil {
		return err
	}

	err := filepath.WalkDir(listDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			// Messages live at most one period directory deep.
			if path != listDir && filepath.Dir(path) != listDir {
				return filepath.SkipDir
			}
			return nil
		}
		m := messageFilePattern.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		number, err := strconv.Atoi(m[1])
		if err != nil {
			r.recordFailure(idx, path, err)
			return nil
		}
		if err := r.indexMessage(ctx, entry.Name, number, path); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.recordFailure(idx, path, err)
			return nil
		}
		r.mu.Lock()
		r.statuses[idx].Indexed++
		r.mu.Unlock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", entry.Name, err)
	}

	r.mu.Lock()
	r.statuses[idx].Stage = "done"
	s := r.statuses[idx]
	r.mu.Unlock()
	if r.Logger != nil {
		r.Logger.Info("list done", "list", entry.Name, "indexed", s.Indexed, "errors", s.Errors)
	}
	return nil
}

func (r *Runner) indexMessage(ctx context.Context, list string, number int, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open message: %w", err)
	}
	defer func() { _ = f.Close() }()

	msg, err := archive.ExtractMessage(f)
	if err != nil {
		return err
	}

	return r.Indexer.IndexMessage(ctx, search.Document{
		List:        list,
		Number:      number,
		Title:       msg.Title,
		Path:        path,
		Description: truncate(msg.Text, descriptionLength),
		Content:     msg.Text,
	})
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return strings.TrimSpace(s[:n])
}

func (r *Runner) recordFailure(idx int, path string, err error) {
	message := strings.TrimSpace(fmt.Sprintf("%s: %v", path, err))
	r.mu.Lock()
	r.failures = append(r.failures, message)
	r.statuses[idx].Errors++
	r.mu.Unlock()

	if r.Logger != nil {
		r.Logger.Warn("index failure", "path", path, "error", err)
	}
}

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

const (
	// swishFormat makes swish-e print one JSON object per hit. The \n is
	// passed literally; swish-e expands it.
	swishFormat = `{"title": "%t", "path": "%p", "description": "%d"}\n`

	indexMissingMarker = "Could not open the index file"
	noResultsMarker    = "err: no results"
)

var titlePattern = regexp.MustCompile(`^\[(.+?)\s(\d+)\].*`)

// SwishSearcher shells out to swish-e, one index file per list.
type SwishSearcher struct {
	Binary    string
	IndexFile func(list string) string
	Timeout   time.Duration
	Logger    *slog.Logger
}

func NewSwishSearcher(binary string, indexFile func(string) string, logger *slog.Logger) *SwishSearcher {
	return &SwishSearcher{Binary: binary, IndexFile: indexFile, Logger: logger}
}

// Command builds the swish-e invocation for a list and query.
func (s *SwishSearcher) Command(ctx context.Context, list, query string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, s.Binary,
		"-f", s.IndexFile(list),
		"-w", query,
		"-x", swishFormat,
	)
	cmd.WaitDelay = 5 * time.Second
	return cmd
}

func (s *SwishSearcher) Search(ctx context.Context, list, query string) ([]Hit, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmd := s.Command(ctx, list, query)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := decodeLatin1(stdout.Bytes())
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &LaunchError{Err: err}
		}
		errOutput := strings.TrimSpace(decodeLatin1(stderr.Bytes()))
		if strings.Contains(output, indexMissingMarker) || strings.Contains(errOutput, indexMissingMarker) {
			return nil, &IndexNotFoundError{List: list}
		}
		return nil, &ToolError{Output: strings.TrimSpace(output), Stderr: errOutput, Err: err}
	}

	if strings.Contains(output, noResultsMarker) {
		return nil, nil
	}
	return ParseOutput(output, s.Logger), nil
}

// ParseOutput turns swish-e output into hits. Only lines starting with
// "{" are considered; lines that are not valid JSON or whose title lacks
// the "[list N]" prefix are dropped. The result keeps output order.
func ParseOutput(output string, logger *slog.Logger) []Hit {
	var hits []Hit
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var hit Hit
		if err := json.Unmarshal([]byte(line), &hit); err != nil {
			if logger != nil {
				logger.Debug("skipping malformed indexer line", "line", line, "error", err)
			}
			continue
		}

		list, number, ok := ParseTitle(hit.Title)
		if !ok {
			continue
		}
		hit.List = list
		hit.Number = number
		hits = append(hits, hit)
	}
	return hits
}

// ParseTitle extracts the list name and message number from a subject of
// the form "[list 123] ...".
func ParseTitle(title string) (string, int, bool) {
	m := titlePattern.FindStringSubmatch(title)
	if m == nil {
		return "", 0, false
	}
	number, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], number, true
}

func decodeLatin1(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

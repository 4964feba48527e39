package main

import (
	"bytes"
	"context"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracmailman/mailarchive/internal/config"
	"github.com/tracmailman/mailarchive/internal/search"
)

type staticSearcher struct {
	hits []search.Hit
	err  error
}

func (s staticSearcher) Search(context.Context, string, string) ([]search.Hit, error) {
	return s.hits, s.err
}

func plainOutput(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestRunPrintsSortedHits(t *testing.T) {
	plainOutput(t)
	cfg := &config.Config{MailArchivePath: "/srv/mail", PrivateLists: []string{"board"}, BasePath: "/mailman"}
	searcher := staticSearcher{hits: []search.Hit{
		{Title: "[dev 9] later", Path: "/srv/mail/public/dev/9.html", Description: "<p>second</p>", List: "dev", Number: 9},
		{Title: "[board 1] hidden", Path: "/srv/mail/private/board/1.html", List: "board", Number: 1},
		{Title: "[dev 2] earlier", Path: "/srv/mail/public/dev/2.html", Description: "first", List: "dev", Number: 2},
	}}

	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), &buf, cfg, searcher, search.AllLists, "patch", ""))
	out := buf.String()

	assert.Contains(t, out, `Results 1-2 of 2 for "patch" (page 1 of 1)`)
	assert.NotContains(t, out, "hidden", "private list hits are filtered")
	assert.Contains(t, out, "/mailman/browser/public/dev/9.html")
	assert.NotContains(t, out, "<p>")

	earlier := strings.Index(out, "[dev 2] earlier")
	later := strings.Index(out, "[dev 9] later")
	require.True(t, earlier >= 0 && later >= 0, out)
	assert.Less(t, earlier, later, "hits are printed in list-number order")
}

func TestRunPageOutOfRange(t *testing.T) {
	plainOutput(t)
	cfg := &config.Config{MailArchivePath: "/srv/mail", BasePath: "/mailman"}
	searcher := staticSearcher{hits: []search.Hit{
		{Title: "[dev 1] only", Path: "/srv/mail/public/dev/1.html", List: "dev", Number: 1},
	}}

	for _, page := range []string{"7", strconv.Itoa(math.MaxInt)} {
		var buf bytes.Buffer
		require.NoError(t, run(context.Background(), &buf, cfg, searcher, "dev", "x", page))
		assert.Contains(t, buf.String(), `No hits on page `+page+`; 1 results for "x" in 1 pages.`)
		assert.NotContains(t, buf.String(), "[dev 1] only")
	}
}

func TestRunNoResults(t *testing.T) {
	plainOutput(t)
	cfg := &config.Config{MailArchivePath: "/srv/mail", BasePath: "/mailman"}

	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), &buf, cfg, staticSearcher{}, "dev", "nothing", ""))
	assert.Equal(t, "No results for \"nothing\".\n", buf.String())
}

func TestRunPropagatesErrors(t *testing.T) {
	cfg := &config.Config{MailArchivePath: "/srv/mail"}

	err := run(context.Background(), &bytes.Buffer{}, cfg, staticSearcher{err: &search.IndexNotFoundError{List: "ghost"}}, "ghost", "x", "")
	var notFound *search.IndexNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.True(t, strings.HasPrefix(describe(err, "ghost"), `Search index for "ghost" not found.`))
}

package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `# SWISH format: 2.4.7
# Search words: release
# Number of hits: 5
{"title": "[dev 12] Release schedule", "path": "/srv/archives/public/dev/000012.html", "description": "Shipping Friday"}
{"title": "[dev 3] Re: Release schedule", "path": "/srv/archives/public/dev/000003.html", "description": "Why Friday?"}
{"title": "No list prefix here", "path": "/srv/archives/public/dev/000004.html", "description": ""}
{"title": "[board 7] Budget", "path": "/srv/archives/private/board/000007.html", "description": "numbers"}
{"title": "[dev 9] broken "quote"", "path": "/x", "description": ""}
.
`

// fakeSwish writes a shell script standing in for swish-e. It picks its
// behaviour from the index file name passed with -f.
func fakeSwish(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	script := `#!/bin/sh
case "$2" in
*/missing-index.swish-e)
	echo "err: Could not open the index file '$2': No such file or directory"
	exit 255 ;;
*/broken-index.swish-e)
	echo "partial"
	echo "segmentation fault" >&2
	exit 1 ;;
*/empty-index.swish-e)
	echo "# Number of hits: 0"
	echo "err: no results"
	exit 0 ;;
*/latin-index.swish-e)
	printf '{"title": "[latin 1] caf\351", "path": "/p", "description": ""}\n'
	exit 0 ;;
esac
cat <<'OUT'
` + sampleOutput + `OUT
`
	bin := filepath.Join(dir, "swish-e")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, dir
}

func newFakeSearcher(t *testing.T) *SwishSearcher {
	bin, dir := fakeSwish(t)
	return NewSwishSearcher(bin, func(list string) string {
		return filepath.Join(dir, list+"-index.swish-e")
	}, nil)
}

func TestParseOutput(t *testing.T) {
	hits := ParseOutput(sampleOutput, nil)
	require.Len(t, hits, 3)

	assert.Equal(t, "dev", hits[0].List)
	assert.Equal(t, 12, hits[0].Number)
	assert.Equal(t, "/srv/archives/public/dev/000012.html", hits[0].Path)
	assert.Equal(t, "Shipping Friday", hits[0].Description)
	assert.Equal(t, 3, hits[1].Number)
	assert.Equal(t, "board", hits[2].List)
	for _, h := range hits {
		assert.NotEqual(t, "No list prefix here", h.Title)
	}
}

func TestParseOutputCountMatchesWellFormedLines(t *testing.T) {
	var b strings.Builder
	for i := 50; i > 0; i-- {
		fmt.Fprintf(&b, `{"title": "[dev %d] s", "path": "/p/%d", "description": ""}`+"\n", (i*37)%23, i)
	}
	hits := ParseOutput(b.String(), nil)
	require.Len(t, hits, 50)

	SortByNumber(hits)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Number, hits[i].Number)
	}
}

func TestParseTitle(t *testing.T) {
	list, n, ok := ParseTitle("[dev-announce 42] [PATCH] fix")
	require.True(t, ok)
	assert.Equal(t, "dev-announce", list)
	assert.Equal(t, 42, n)

	for _, title := range []string{"", "dev 42", "[dev] x", "[dev 4x] y", " [dev 1] leading space"} {
		_, _, ok := ParseTitle(title)
		assert.False(t, ok, title)
	}
}

func TestSwishCommandArguments(t *testing.T) {
	s := NewSwishSearcher("/usr/local/bin/swish-e", func(list string) string {
		return "/idx/" + list + "-index.swish-e"
	}, nil)
	cmd := s.Command(context.Background(), "dev", "release notes")
	assert.Equal(t, []string{
		"/usr/local/bin/swish-e",
		"-f", "/idx/dev-index.swish-e",
		"-w", "release notes",
		"-x", `{"title": "%t", "path": "%p", "description": "%d"}\n`,
	}, cmd.Args)
}

func TestSwishSearch(t *testing.T) {
	s := newFakeSearcher(t)
	hits, err := s.Search(context.Background(), "dev", "release")
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestSwishSearchIndexMissing(t *testing.T) {
	s := newFakeSearcher(t)
	_, err := s.Search(context.Background(), "missing", "release")

	var notFound *IndexNotFoundError
	require.True(t, errors.As(err, &notFound), "got %v", err)
	assert.Equal(t, "missing", notFound.List)
}

func TestSwishSearchToolFailure(t *testing.T) {
	s := newFakeSearcher(t)
	_, err := s.Search(context.Background(), "broken", "release")

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr), "got %v", err)
	assert.Equal(t, "partial", toolErr.Output, "only stdout reaches the user")
	assert.Equal(t, "segmentation fault", toolErr.Stderr)
}

func TestSwishSearchNoResults(t *testing.T) {
	s := newFakeSearcher(t)
	hits, err := s.Search(context.Background(), "empty", "release")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSwishSearchDecodesLatin1(t *testing.T) {
	s := newFakeSearcher(t)
	hits, err := s.Search(context.Background(), "latin", "cafe")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "[latin 1] café", hits[0].Title)
}

func TestSwishSearchLaunchFailure(t *testing.T) {
	s := NewSwishSearcher(filepath.Join(t.TempDir(), "no-such-binary"), func(string) string { return "x" }, nil)
	_, err := s.Search(context.Background(), "dev", "release")

	var launchErr *LaunchError
	assert.True(t, errors.As(err, &launchErr), "got %v", err)
}

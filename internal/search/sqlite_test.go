package search

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, docs ...Document) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index", "archive.db")
	indexer, err := NewSQLiteIndexer(path, true)
	require.NoError(t, err)
	for _, d := range docs {
		require.NoError(t, indexer.IndexMessage(context.Background(), d))
	}
	require.NoError(t, indexer.Close())
	return path
}

func TestSQLiteSearch(t *testing.T) {
	path := buildIndex(t,
		Document{List: "dev", Number: 12, Title: "[dev] Release schedule", Path: "/srv/archives/public/dev/000012.html", Description: "Shipping Friday", Content: "We ship the release on Friday"},
		Document{List: "dev", Number: 3, Title: "[dev] Kickoff", Path: "/srv/archives/public/dev/000003.html", Content: "planning the release"},
		Document{List: "board", Number: 7, Title: "[board] Budget", Path: "/srv/archives/private/board/000007.html", Content: "release of funds"},
		Document{List: "users", Number: 1, Title: "[users] Hello", Path: "/srv/archives/public/users/000001.html", Content: "unrelated"},
	)

	searcher, err := NewSQLiteSearcher(path)
	require.NoError(t, err)
	defer func() { _ = searcher.Close() }()
	ctx := context.Background()

	hits, err := searcher.Search(ctx, "dev", "release")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 3, hits[0].Number)
	assert.Equal(t, 12, hits[1].Number)
	assert.Equal(t, "dev", hits[1].List)
	assert.Equal(t, "Shipping Friday", hits[1].Description)

	all, err := searcher.Search(ctx, AllLists, "release")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Len(t, FilterPrivate(all, AllLists, []string{"board"}), 2)

	none, err := searcher.Search(ctx, "users", "release")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = searcher.Search(ctx, "nosuchlist", "release")
	var notFound *IndexNotFoundError
	assert.True(t, errors.As(err, &notFound), "got %v", err)
}

func TestNewSQLiteSearcherMissingFile(t *testing.T) {
	_, err := NewSQLiteSearcher(filepath.Join(t.TempDir(), "absent.db"))
	assert.Error(t, err)
}

func TestSanitizeQuery(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"  ":               "",
		"release":          `"release"*`,
		"release AND plan": `"release"* "plan"*`,
		"a@b.org":          `"a@b.org"*`,
		`"; DROP`:          `"DROP"*`,
		"OR NOT":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeQuery(in), in)
	}
}

func TestSQLiteIndexerResetList(t *testing.T) {
	path := buildIndex(t,
		Document{List: "dev", Number: 1, Title: "[dev] one", Path: "/a/public/dev/1.html", Content: "release"},
		Document{List: "users", Number: 1, Title: "[users] one", Path: "/a/public/users/1.html", Content: "release"},
	)
	ctx := context.Background()

	indexer, err := NewSQLiteIndexer(path, false)
	require.NoError(t, err)
	require.NoError(t, indexer.ResetList(ctx, "dev"))
	require.NoError(t, indexer.IndexMessage(ctx, Document{List: "dev", Number: 5, Title: "[dev] five", Path: "/a/public/dev/5.html", Content: "release"}))
	require.NoError(t, indexer.Close())

	searcher, err := NewSQLiteSearcher(path)
	require.NoError(t, err)
	defer func() { _ = searcher.Close() }()

	dev, err := searcher.Search(ctx, "dev", "release")
	require.NoError(t, err)
	require.Len(t, dev, 1)
	assert.Equal(t, 5, dev[0].Number)

	users, err := searcher.Search(ctx, "users", "release")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSQLiteIndexerRebuildDropsEverything(t *testing.T) {
	path := buildIndex(t,
		Document{List: "users", Number: 1, Title: "[users] one", Path: "/a/public/users/1.html", Content: "release"},
	)
	indexer, err := NewSQLiteIndexer(path, true)
	require.NoError(t, err)
	require.NoError(t, indexer.Close())

	searcher, err := NewSQLiteSearcher(path)
	require.NoError(t, err)
	defer func() { _ = searcher.Close() }()

	_, err = searcher.Search(context.Background(), "users", "release")
	var notFound *IndexNotFoundError
	assert.True(t, errors.As(err, &notFound), "got %v", err)
}

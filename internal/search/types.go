// Package search runs full-text queries against per-list archive indexes
// and turns the raw hits into sorted, paginated result pages.
package search

import (
	"context"
	"fmt"
)

// AllLists is the search_list value that searches every list at once.
const AllLists = "all"

// Hit is one search result. List and Number come from the "[list N]"
// prefix Mailman puts in archived subjects, or from the message file
// name for the SQLite backend.
type Hit struct {
	Title       string `json:"title"`
	Path        string `json:"path"`
	Description string `json:"description"`
	List        string `json:"list"`
	Number      int    `json:"list_number"`
}

// Searcher queries the index of one list (or AllLists).
type Searcher interface {
	Search(ctx context.Context, list, query string) ([]Hit, error)
}

// IndexNotFoundError means the list has no search index.
type IndexNotFoundError struct {
	List string
}

func (e *IndexNotFoundError) Error() string {
	return fmt.Sprintf("search index for %q not found", e.List)
}

// ToolError is a non-zero exit from the indexer. Output is what the tool
// printed on stdout, the only part shown to users; Stderr is kept for logs.
type ToolError struct {
	Output string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string { return fmt.Sprintf("indexer failed: %v", e.Err) }
func (e *ToolError) Unwrap() error { return e.Err }

// LaunchError means the indexer could not be started at all.
type LaunchError struct{ Err error }

func (e *LaunchError) Error() string { return fmt.Sprintf("start indexer: %v", e.Err) }
func (e *LaunchError) Unwrap() error { return e.Err }

// Document is one archived message handed to an Indexer.
type Document struct {
	List        string
	Number      int
	Title       string
	Path        string
	Description string
	Content     string
}

// Indexer abstracts index construction so the ingest package does not
// depend on a specific search implementation.
type Indexer interface {
	// ResetList drops what is indexed for list before it is walked again.
	ResetList(ctx context.Context, list string) error
	IndexMessage(ctx context.Context, doc Document) error
	Close() error
}

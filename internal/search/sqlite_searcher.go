package search

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// maxSQLiteHits caps one query; the swish backend has no such limit but
// every hit is sorted and paginated in memory either way.
const maxSQLiteHits = 5000

// SQLiteSearcher queries the FTS5 index written by SQLiteIndexer.
type SQLiteSearcher struct {
	db *sql.DB
}

// NewSQLiteSearcher opens an existing index. A missing index file is an
// error rather than an empty database.
func NewSQLiteSearcher(path string) (*SQLiteSearcher, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteSearcher{db: db}, nil
}

func (s *SQLiteSearcher) Close() error {
	return s.db.Close()
}

func (s *SQLiteSearcher) Search(ctx context.Context, list, queryString string) ([]Hit, error) {
	queryString = sanitizeQuery(queryString)
	if queryString == "" {
		return nil, nil
	}

	if list != AllLists {
		var n int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE list = ?`, list).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("count list messages: %w", err)
		}
		if n == 0 {
			return nil, &IndexNotFoundError{List: list}
		}
	}

	query := `SELECT m.title, m.path, m.description, m.list, m.number
		 FROM messages_fts f
		 JOIN messages m ON m.rowid = f.rowid
		 WHERE messages_fts MATCH ?`
	args := []any{queryString}

	if list != AllLists {
		query += ` AND m.list = ?`
		args = append(args, list)
	}

	query += ` ORDER BY m.number LIMIT ?`
	args = append(args, maxSQLiteHits)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Title, &h.Path, &h.Description, &h.List, &h.Number); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return hits, nil
}

func sanitizeQuery(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range q {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == ' ', r == '-', r == '_', r == '.', r == '@':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	q = strings.TrimSpace(b.String())
	if q == "" {
		return ""
	}

	terms := strings.Fields(q)
	for i, t := range terms {
		upper := strings.ToUpper(t)
		if upper == "AND" || upper == "OR" || upper == "NOT" {
			terms[i] = ""
			continue
		}
		terms[i] = `"` + t + `"` + "*"
	}

	var filtered []string
	for _, t := range terms {
		if t != "" {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		return ""
	}
	return strings.Join(filtered, " ")
}

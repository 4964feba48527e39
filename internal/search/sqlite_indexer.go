package search

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// messagesPerCommit bounds how many archive rows share one transaction.
const messagesPerCommit = 500

// SQLiteIndexer writes archive messages into the FTS5 index. All writes
// go through one connection; lists indexed concurrently share the open
// batch.
type SQLiteIndexer struct {
	mu      sync.Mutex
	db      *sql.DB
	batch   *sql.Tx
	pending int
}

// NewSQLiteIndexer opens the index at path. With rebuild set, every
// existing row is dropped first; otherwise rows of lists that are not
// reindexed survive.
func NewSQLiteIndexer(path string, rebuild bool) (*SQLiteIndexer, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if rebuild {
		if _, err := db.Exec(dropSchema); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("drop index: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteIndexer{db: db}, nil
}

// ResetList removes every indexed message of list so a rerun does not
// leave messages that vanished from the archive.
func (s *SQLiteIndexer) ResetList(ctx context.Context, list string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.currentBatch(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE list = ?`, list); err != nil {
		return fmt.Errorf("reset list %s: %w", list, err)
	}
	return nil
}

func (s *SQLiteIndexer) IndexMessage(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.currentBatch(ctx)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO messages (path, list, number, title, description, content) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.Path, doc.List, doc.Number, doc.Title, doc.Description, doc.Content)
	if err != nil {
		return fmt.Errorf("index message %s: %w", doc.Path, err)
	}

	s.pending++
	if s.pending >= messagesPerCommit {
		return s.commit()
	}
	return nil
}

// currentBatch returns the open transaction, starting one if needed.
// Callers hold s.mu.
func (s *SQLiteIndexer) currentBatch(ctx context.Context) (*sql.Tx, error) {
	if s.batch != nil {
		return s.batch, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	s.batch = tx
	return tx, nil
}

func (s *SQLiteIndexer) commit() error {
	if s.batch == nil {
		return nil
	}
	err := s.batch.Commit()
	s.batch = nil
	s.pending = 0
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *SQLiteIndexer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commit(); err != nil {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}

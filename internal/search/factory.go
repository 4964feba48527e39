package search

import (
	"log/slog"

	"github.com/tracmailman/mailarchive/internal/config"
)

// FromConfig builds the searcher selected by search_backend.
func FromConfig(cfg *config.Config, logger *slog.Logger) (Searcher, error) {
	if cfg.SearchBackend == config.BackendSQLite {
		s, err := NewSQLiteSearcher(cfg.SQLiteIndex)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s := NewSwishSearcher(cfg.SwishBinary, cfg.IndexFile, logger)
	s.Timeout = cfg.Timeout()
	return s, nil
}

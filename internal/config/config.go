package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	defaultConfigPath  = "/etc/mailarchive/config.json"
	defaultSwishBinary = "/usr/local/bin/swish-e"
	defaultBasePath    = "/mailman"
	defaultUserHeader  = "X-Remote-User"

	BackendSwish  = "swish"
	BackendSQLite = "sqlite"
)

// Config is the JSON configuration shared by the server, index and
// mailsearch binaries. It is loaded once at startup and handed to every
// handler by pointer; nothing in it is mutated after Load returns.
type Config struct {
	MailArchivePath string     `json:"mail_archive_path"`
	PrivateLists    []string   `json:"private_lists"`
	SearchIndexPath string     `json:"search_index_path"`
	SwishBinary     string     `json:"swish_binary"`
	SearchBackend   string     `json:"search_backend"`
	SQLiteIndex     string     `json:"sqlite_index"`
	SearchTimeout   int        `json:"search_timeout"`
	BasePath        string     `json:"base_path"`
	Auth            AuthConfig `json:"auth"`
}

// AuthConfig describes how the fronting tracker passes identity and which
// permissions each user holds.
type AuthConfig struct {
	UserHeader         string              `json:"user_header"`
	Permissions        map[string][]string `json:"permissions"`
	DefaultPermissions []string            `json:"default_permissions"`
}

func DefaultPath() string {
	if path := os.Getenv("MAILARCHIVE_CONFIG_FILE"); path != "" {
		return path
	}
	return defaultConfigPath
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SwishBinary == "" {
		c.SwishBinary = defaultSwishBinary
	}
	if c.SearchBackend == "" {
		c.SearchBackend = BackendSwish
	}
	if c.BasePath == "" {
		c.BasePath = defaultBasePath
	}
	c.BasePath = "/" + strings.Trim(c.BasePath, "/")
	if c.Auth.UserHeader == "" {
		c.Auth.UserHeader = defaultUserHeader
	}
	if c.SQLiteIndex == "" && c.SearchIndexPath != "" {
		c.SQLiteIndex = filepath.Join(c.SearchIndexPath, "archive.db")
	}
}

func (c *Config) Validate() error {
	if c.MailArchivePath == "" {
		return errors.New("config mail_archive_path is required")
	}
	for _, name := range c.PrivateLists {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "/\\") {
			return fmt.Errorf("config private_lists contains invalid list name %q", name)
		}
	}
	switch c.SearchBackend {
	case BackendSwish:
		if c.SearchIndexPath == "" {
			return errors.New("config search_index_path is required for the swish backend")
		}
	case BackendSQLite:
		if c.SQLiteIndex == "" {
			return errors.New("config sqlite_index or search_index_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("config search_backend %q is not one of %q, %q", c.SearchBackend, BackendSwish, BackendSQLite)
	}
	if c.BasePath == "/" {
		return errors.New("config base_path must not be the site root")
	}
	if c.SearchTimeout < 0 {
		return errors.New("config search_timeout must not be negative")
	}
	return nil
}

// ArchiveRoot returns the archive path with exactly one trailing slash.
func (c *Config) ArchiveRoot() string {
	return strings.TrimRight(c.MailArchivePath, "/") + "/"
}

// IndexFile returns the swish-e index file for a list.
func (c *Config) IndexFile(list string) string {
	return strings.TrimRight(c.SearchIndexPath, "/") + "/" + list + "-index.swish-e"
}

func (c *Config) IsPrivate(list string) bool {
	return slices.Contains(c.PrivateLists, list)
}

// Timeout is the search subprocess timeout; zero means none.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.SearchTimeout) * time.Second
}

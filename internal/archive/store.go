// Package archive reads a Pipermail archive tree laid out as
// <root>/{public,private}/<list>/... and turns its documents into
// page-ready fragments.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"
)

const (
	Public  = "public"
	Private = "private"
)

// Entry is one list archive directory.
type Entry struct {
	Name     string
	Private  bool
	Modified time.Time
}

// Listing is the result of enumerating both archive directories.
type Listing struct {
	Private []Entry
	Public  []Entry
}

// All returns the private and public entries combined and sorted by name.
func (l Listing) All() []Entry {
	all := make([]Entry, 0, len(l.Private)+len(l.Public))
	all = append(all, l.Private...)
	all = append(all, l.Public...)
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Names returns the sorted names of all entries.
func (l Listing) Names() []string {
	all := l.All()
	names := make([]string, len(all))
	for i, e := range all {
		names[i] = e.Name
	}
	return names
}

type Store struct {
	Root     string
	Excluded []string
}

func NewStore(root string, excluded []string) *Store {
	return &Store{Root: root, Excluded: excluded}
}

// Archives enumerates <root>/private then <root>/public. Lists named in
// Excluded and raw mailbox files are skipped, and a name found in both
// directories is reported once, as private. A missing directory is an
// error.
func (s *Store) Archives() (Listing, error) {
	var listing Listing

	private, err := s.readDir(Private)
	if err != nil {
		return Listing{}, err
	}
	seen := make(map[string]bool, len(private))
	for _, e := range private {
		if s.skip(e.Name) {
			continue
		}
		e.Private = true
		seen[e.Name] = true
		listing.Private = append(listing.Private, e)
	}

	public, err := s.readDir(Public)
	if err != nil {
		return Listing{}, err
	}
	for _, e := range public {
		if s.skip(e.Name) || seen[e.Name] {
			continue
		}
		listing.Public = append(listing.Public, e)
	}

	return listing, nil
}

func (s *Store) skip(name string) bool {
	return slices.Contains(s.Excluded, name) || strings.HasSuffix(name, "mbox")
}

func (s *Store) readDir(visibility string) ([]Entry, error) {
	dir := filepath.Join(s.Root, visibility)
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s archives: %w", visibility, err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		e := Entry{Name: de.Name()}
		if info, err := de.Info(); err == nil {
			e.Modified = info.ModTime()
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// ReadDocument loads the file a parsed document path refers to. The
// returned error matches fs.ErrNotExist when the file is absent or is a
// directory.
func (s *Store) ReadDocument(doc Document) ([]byte, error) {
	fullPath := filepath.Join(s.Root, filepath.FromSlash(doc.RelPath()))
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &os.PathError{Op: "read", Path: fullPath, Err: os.ErrNotExist}
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

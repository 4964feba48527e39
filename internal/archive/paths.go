package archive

import (
	"errors"
	"path"
	"regexp"
)

// ErrInvalidPath is returned for request paths outside the document
// allow-list.
var ErrInvalidPath = errors.New("path does not refer to a valid document")

var (
	// /<visibility>/<list>[/<period>]/<id>.<ext>
	documentPattern = regexp.MustCompile(`^/(public|private)/([^/.][^/]*)/(?:([0-9]{4}-[A-Za-z]+|[0-9]{4}q[1-4]|[0-9]{4}-Week-of-Mon-[0-9]{8}|[0-9]{8})/)?([^/.]+)\.(html|txt|txt\.gz)$`)
	messageIDPattern = regexp.MustCompile(`^[0-9]+$`)
	periodIDPattern  = regexp.MustCompile(`^([0-9]{4}-[A-Za-z]+|[0-9]{4}q[1-4]|[0-9]{4}-Week-of-Mon-[0-9]{8}|[0-9]{8})$`)
)

// indexIDs are the pages Pipermail generates per list or per period.
// "index" is the list's table of contents.
var indexIDs = map[string]bool{
	"index":   true,
	"thread":  true,
	"subject": true,
	"author":  true,
	"date":    true,
}

// IsIndexID reports whether id names a generated index page.
func IsIndexID(id string) bool {
	return indexIDs[id]
}

// Document is a validated reference to one file in the archive tree.
type Document struct {
	Visibility string
	List       string
	Period     string
	ID         string
	Ext        string
}

// ParseDocumentPath validates a browser sub-path such as
// /public/dev/2009-March/000123.html or /private/board/2009-March.txt.gz.
// Message and index ids are accepted for every extension; a bare period
// id is accepted only for the monthly text archives.
func ParseDocumentPath(p string) (Document, error) {
	m := documentPattern.FindStringSubmatch(p)
	if m == nil {
		return Document{}, ErrInvalidPath
	}
	doc := Document{
		Visibility: m[1],
		List:       m[2],
		Period:     m[3],
		ID:         m[4],
		Ext:        m[5],
	}

	switch {
	case messageIDPattern.MatchString(doc.ID), IsIndexID(doc.ID):
	case doc.Period == "" && doc.Ext != "html" && periodIDPattern.MatchString(doc.ID):
	default:
		return Document{}, ErrInvalidPath
	}
	return doc, nil
}

// RelPath is the document's slash-separated path below the archive root.
func (d Document) RelPath() string {
	return path.Join(d.Visibility, d.List, d.Period, d.ID+"."+d.Ext)
}

// IsIndex reports whether the document is a generated index page.
func (d Document) IsIndex() bool {
	return IsIndexID(d.ID)
}

// ContentType is the header used when the document is streamed raw.
func (d Document) ContentType() string {
	switch d.Ext {
	case "txt":
		return "text/plain"
	case "txt.gz":
		return "application/x-gzip"
	default:
		return "text/html; charset=utf-8"
	}
}

package search

import (
	"slices"
	"sort"
	"strconv"
	"strings"
)

// PerPage is the number of hits on one result page.
const PerPage = 20

// FilterPrivate drops hits from private lists when searching AllLists.
// Searches of a single list are returned unchanged.
func FilterPrivate(hits []Hit, searchList string, private []string) []Hit {
	if searchList != AllLists || len(private) == 0 {
		return hits
	}
	kept := hits[:0:0]
	for _, h := range hits {
		if slices.Contains(private, h.List) {
			continue
		}
		kept = append(kept, h)
	}
	return kept
}

// SortByNumber orders hits by ascending message number, keeping indexer
// order between equal numbers.
func SortByNumber(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Number < hits[j].Number })
}

// ParsePage converts the 1-based page query parameter into a 0-based page
// index. Missing, malformed and non-positive values select the first page.
func ParsePage(param string) int {
	n, err := strconv.Atoi(strings.TrimSpace(param))
	if err != nil || n < 1 {
		return 0
	}
	return n - 1
}

// PageHit is a hit as shown on a result page.
type PageHit struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Path        string `json:"path"`
	List        string `json:"list"`
	ListNumber  int    `json:"list_number"`
}

// Page is one window of a sorted hit list.
type Page struct {
	NumHits     int       `json:"num_hits"`
	CurrentPage int       `json:"current_page"`
	MaxPage     int       `json:"max_page"`
	FirstHit    int       `json:"first_hit"`
	LastHit     int       `json:"last_hit"`
	Hits        []PageHit `json:"hits"`
}

// Paginate returns the page'th (0-based) window of PerPage hits. Pages
// past the end are empty. Hit paths are rewritten relative to the browser
// route by removing archiveRoot.
func Paginate(hits []Hit, page int, archiveRoot string) Page {
	if page < 0 {
		page = 0
	}
	n := len(hits)
	maxPage := (n + PerPage - 1) / PerPage
	// Compare before multiplying: page comes from the query string and
	// page*PerPage can overflow.
	first := n
	if page < maxPage {
		first = page * PerPage
	}
	last := min(first+PerPage, n)

	p := Page{
		NumHits:     n,
		CurrentPage: page,
		MaxPage:     maxPage,
		FirstHit:    first,
		LastHit:     last,
		Hits:        make([]PageHit, 0, last-first),
	}
	for i, h := range hits[first:last] {
		p.Hits = append(p.Hits, PageHit{
			Number:      first + i + 1,
			Title:       h.Title,
			Description: h.Description,
			Path:        BrowserPath(archiveRoot, h.Path),
			List:        h.List,
			ListNumber:  h.Number,
		})
	}
	return p
}

// BrowserPath maps an absolute archive file path to a path relative to
// the search page ("browser/public/dev/000123.html"). Paths outside the
// archive root yield "".
func BrowserPath(archiveRoot, path string) string {
	root := strings.TrimRight(archiveRoot, "/") + "/"
	rel, ok := strings.CutPrefix(path, root)
	if !ok {
		return ""
	}
	rel = strings.TrimLeft(rel, "/")
	if rel == "" {
		return ""
	}
	return "browser/" + rel
}

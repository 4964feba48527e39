package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/tracmailman/mailarchive/internal/archive"
	"github.com/tracmailman/mailarchive/internal/auth"
	"github.com/tracmailman/mailarchive/internal/search"
)

const (
	loginWarning        = "Please log in"
	invalidPathWarning  = "The URL you requested does not refer to a valid document"
	privateListWarning  = "This list is private and not browsable. Please go through the standard Mailman interface."
	missingIndexWarning = "You requested a mail index page that could not be found. It is possible that there are currently no mail messages archived, so no index has been created."
	missingMsgWarning   = "The mail message that you requested cannot be found"
	noQueryWarning      = "Please enter a query."
	noListWarning       = "Please select a list to search from."
	unavailableWarning  = "Search is currently unavailable."
)

type archiveView struct {
	Name    string
	Private bool
	Href    string
	Updated string
}

type indexView struct {
	page
	searchForm
	MailArchives []archiveView
	Excluded     []string
}

func (s *Server) archiveViews(entries []archive.Entry) []archiveView {
	views := make([]archiveView, 0, len(entries))
	for _, e := range entries {
		visibility := archive.Public
		if e.Private {
			visibility = archive.Private
		}
		v := archiveView{
			Name:    e.Name,
			Private: e.Private,
			Href:    s.cfg.BasePath + "/browser/" + visibility + "/" + url.PathEscape(e.Name) + "/index.html",
		}
		if !e.Modified.IsZero() {
			v.Updated = humanize.Time(e.Modified)
		}
		views = append(views, v)
	}
	return views
}

// archivesUnreadable is the one fatal condition: the configured archive
// directories cannot be listed.
func (s *Server) archivesUnreadable(user auth.User, err error) response {
	s.logger.Error("list archives", "root", s.cfg.MailArchivePath, "error", err)
	return s.errorResponse(user, http.StatusInternalServerError, "Error",
		"The mailing list archives could not be read. Please contact the site administrator.")
}

func (s *Server) handleIndex(r *http.Request, user auth.User) response {
	view := indexView{page: s.newPage(user, "Mailing List Search")}
	view.SearchList = search.AllLists
	if !user.Authenticated {
		view.warn(loginWarning)
		return response{status: http.StatusUnauthorized, tmpl: s.index, view: view}
	}

	listing, err := s.store.Archives()
	if err != nil {
		return s.archivesUnreadable(user, err)
	}
	view.MailArchives = s.archiveViews(listing.All())
	view.Lists = listing.Names()
	if user.Has(auth.PermAdmin) {
		view.Excluded = s.cfg.PrivateLists
	}

	return response{tmpl: s.index, view: view}
}

type browserView struct {
	page
	searchForm
	List     string
	Contents template.HTML
}

func (s *Server) handleBrowser(r *http.Request, user auth.User) response {
	view := browserView{page: s.newPage(user, "Mailing List Archive Browser")}
	if !user.Authenticated {
		view.warn(loginWarning)
		return response{status: http.StatusUnauthorized, tmpl: s.browser, view: view}
	}

	rel := strings.TrimPrefix(r.URL.Path, s.cfg.BasePath+"/browser")
	doc, err := archive.ParseDocumentPath(rel)
	if err != nil {
		view.warn(invalidPathWarning)
		return response{status: http.StatusNotFound, tmpl: s.browser, view: view}
	}

	if s.cfg.IsPrivate(doc.List) {
		view.warn(privateListWarning)
		return response{status: http.StatusForbidden, tmpl: s.browser, view: view}
	}

	data, err := s.store.ReadDocument(doc)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if doc.IsIndex() {
				view.warn(missingIndexWarning)
			} else {
				view.warn(missingMsgWarning)
			}
			return response{status: http.StatusNotFound, tmpl: s.browser, view: view}
		}
		s.logger.Error("read document", "path", doc.RelPath(), "error", err)
		view.warn("The document you requested could not be read.")
		return response{status: http.StatusInternalServerError, tmpl: s.browser, view: view}
	}

	if doc.Ext != "html" {
		return response{contentType: doc.ContentType(), body: data}
	}

	contents, err := archive.ExtractBody(data)
	if err != nil {
		s.logger.Warn("extract document body", "path", doc.RelPath(), "error", err)
		view.warn("The document you requested could not be displayed.")
		return response{tmpl: s.browser, view: view}
	}
	view.List = doc.List
	view.Title += " - " + doc.List
	// Archive pages are produced by Pipermail on this host and are
	// trusted markup.
	view.Contents = template.HTML(contents)
	return response{tmpl: s.browser, view: view}
}

type pageLink struct {
	Number  int
	Href    string
	Current bool
}

type searchView struct {
	page
	searchForm
	Result    *search.Page
	PageLinks []pageLink
}

// searchOutcome is the result of running one query through the search
// pipeline; warning is set instead of page when there is nothing to show.
type searchOutcome struct {
	page    *search.Page
	warning string
	status  int
}

func (s *Server) runSearch(ctx context.Context, list, query, pageParam string) searchOutcome {
	if s.search == nil {
		return searchOutcome{warning: unavailableWarning, status: http.StatusServiceUnavailable}
	}

	hits, err := s.search.Search(ctx, list, query)
	if err != nil {
		var notFound *search.IndexNotFoundError
		var toolErr *search.ToolError
		var launchErr *search.LaunchError
		switch {
		case errors.As(err, &notFound):
			s.logger.Info("search index missing", "list", list)
			return searchOutcome{
				warning: fmt.Sprintf(`Search index for "%s" not found. It is possible that this mailing list has never been used. Browse "%s" on the main Mailing Lists page to confirm.`, list, list),
				status:  http.StatusNotFound,
			}
		case errors.As(err, &toolErr):
			s.logger.Warn("search tool failed", "list", list, "error", err, "output", toolErr.Output, "stderr", toolErr.Stderr)
			return searchOutcome{
				warning: fmt.Sprintf(`Unknown error. Message was "%s".`, toolErr.Output),
				status:  http.StatusBadGateway,
			}
		case errors.As(err, &launchErr):
			s.logger.Error("search tool could not be started", "error", err)
			return searchOutcome{
				warning: fmt.Sprintf(`Unable to run the search indexer. Message was "%s".`, launchErr.Err),
				status:  http.StatusBadGateway,
			}
		default:
			s.logger.Error("search failed", "list", list, "error", err)
			return searchOutcome{
				warning: fmt.Sprintf(`Unknown error. Message was "%s".`, err),
				status:  http.StatusInternalServerError,
			}
		}
	}

	hits = search.FilterPrivate(hits, list, s.cfg.PrivateLists)
	search.SortByNumber(hits)
	if len(hits) == 0 {
		return searchOutcome{warning: fmt.Sprintf(`No results for "%s".`, query), page: &search.Page{Hits: []search.PageHit{}}}
	}

	p := search.Paginate(hits, search.ParsePage(pageParam), s.cfg.ArchiveRoot())
	for i := range p.Hits {
		p.Hits[i].Description = archive.StripHTMLTags(p.Hits[i].Description)
	}
	return searchOutcome{page: &p}
}

func (s *Server) pageLinks(query, list string, p *search.Page) []pageLink {
	links := make([]pageLink, 0, p.MaxPage)
	for i := 1; i <= p.MaxPage; i++ {
		v := url.Values{}
		v.Set("query", query)
		v.Set("search_list", list)
		v.Set("page", strconv.Itoa(i))
		links = append(links, pageLink{
			Number:  i,
			Href:    s.cfg.BasePath + "/search?" + v.Encode(),
			Current: i-1 == p.CurrentPage,
		})
	}
	return links
}

func (s *Server) handleSearch(r *http.Request, user auth.User) response {
	view := searchView{page: s.newPage(user, "Mailing List Search")}
	view.SearchList = search.AllLists
	if !user.Authenticated {
		view.warn(loginWarning)
		return response{status: http.StatusUnauthorized, tmpl: s.searchPage, view: view}
	}

	listing, err := s.store.Archives()
	if err != nil {
		return s.archivesUnreadable(user, err)
	}
	view.Lists = listing.Names()

	q := r.URL.Query()
	query := q.Get("query")
	if strings.TrimSpace(query) == "" {
		view.warn(noQueryWarning)
		return response{tmpl: s.searchPage, view: view}
	}
	view.Query = query

	list := q.Get("search_list")
	if strings.TrimSpace(list) == "" {
		view.SearchList = ""
		view.warn(noListWarning)
		return response{tmpl: s.searchPage, view: view}
	}
	view.SearchList = list

	outcome := s.runSearch(r.Context(), list, query, q.Get("page"))
	if outcome.warning != "" {
		view.warn(outcome.warning)
	}
	if outcome.page != nil && outcome.page.NumHits > 0 {
		view.Result = outcome.page
		view.PageLinks = s.pageLinks(query, list, outcome.page)
		view.Title += ` - "` + query + `"`
	}
	return response{tmpl: s.searchPage, view: view}
}

type searchAPIResponse struct {
	Query      string       `json:"query"`
	SearchList string       `json:"search_list"`
	Warnings   []string     `json:"warnings,omitempty"`
	Result     *search.Page `json:"result,omitempty"`
}

func (s *Server) handleSearchAPI(r *http.Request, user auth.User) response {
	q := r.URL.Query()
	resp := searchAPIResponse{Query: q.Get("query"), SearchList: q.Get("search_list")}

	switch {
	case !user.Authenticated:
		resp.Warnings = []string{loginWarning}
		return response{status: http.StatusUnauthorized, jsonBody: resp}
	case strings.TrimSpace(resp.Query) == "":
		resp.Warnings = []string{noQueryWarning}
		return response{status: http.StatusBadRequest, jsonBody: resp}
	case strings.TrimSpace(resp.SearchList) == "":
		resp.Warnings = []string{noListWarning}
		return response{status: http.StatusBadRequest, jsonBody: resp}
	}

	outcome := s.runSearch(r.Context(), resp.SearchList, resp.Query, q.Get("page"))
	if outcome.warning != "" {
		resp.Warnings = []string{outcome.warning}
	}
	resp.Result = outcome.page
	return response{status: outcome.status, jsonBody: resp}
}

package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tracmailman/mailarchive/internal/archive"
	"github.com/tracmailman/mailarchive/internal/auth"
	"github.com/tracmailman/mailarchive/internal/config"
	"github.com/tracmailman/mailarchive/internal/search"
)

//go:embed templates/base.html templates/searchform.html templates/index.html templates/search.html templates/browser.html templates/error.html static/mailman.css
var webAssets embed.FS

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	auth       *auth.Authenticator
	store      *archive.Store
	search     search.Searcher
	index      *template.Template
	browser    *template.Template
	searchPage *template.Template
	errorPage  *template.Template
	assets     fs.FS
	assetsETag string
}

// response is what every route handler returns. Exactly one of body,
// jsonBody or tmpl is used, in that order.
type response struct {
	status      int
	contentType string
	body        []byte
	jsonBody    any
	tmpl        *template.Template
	view        any
}

// route binds a ServeMux pattern to a handler and the permission it
// requires.
type route struct {
	pattern string
	perm    string
	handle  func(r *http.Request, user auth.User) response
}

// mustStaticAssets returns the embedded static directory and its ETag.
// Both come from the binary, so failure is a build defect.
func mustStaticAssets() (fs.FS, string) {
	assets, err := fs.Sub(webAssets, "static")
	if err != nil {
		panic(err)
	}
	etag, err := assetsETag(assets)
	if err != nil {
		panic(err)
	}
	return assets, etag
}

func parsePage(files ...string) *template.Template {
	files = append([]string{"templates/base.html", "templates/searchform.html"}, files...)
	return template.Must(template.New("base").Funcs(templateFuncs).ParseFS(webAssets, files...))
}

// NewServer builds a server using the search backend named in cfg. If the
// backend cannot be opened, search requests render a warning.
func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	searcher, err := search.FromConfig(cfg, logger)
	if err != nil {
		logger.Warn("search backend unavailable", "backend", cfg.SearchBackend, "error", err)
		searcher = nil
	}
	return NewServerWithSearcher(cfg, logger, searcher)
}

func NewServerWithSearcher(cfg *config.Config, logger *slog.Logger, searcher search.Searcher) *Server {
	assets, etag := mustStaticAssets()
	return &Server{
		cfg:        cfg,
		logger:     logger,
		auth:       auth.New(cfg.Auth),
		store:      archive.NewStore(cfg.MailArchivePath, cfg.PrivateLists),
		search:     searcher,
		index:      parsePage("templates/index.html"),
		browser:    parsePage("templates/browser.html"),
		searchPage: parsePage("templates/search.html"),
		errorPage:  parsePage("templates/error.html"),
		assets:     assets,
		assetsETag: etag,
	}
}

func (s *Server) routes() []route {
	base := s.cfg.BasePath
	return []route{
		{pattern: "GET " + base, perm: auth.PermView, handle: s.handleIndex},
		{pattern: "GET " + base + "/browser/", perm: auth.PermView, handle: s.handleBrowser},
		{pattern: "GET " + base + "/search", perm: auth.PermView, handle: s.handleSearch},
		{pattern: "GET " + base + "/api/search", perm: auth.PermView, handle: s.handleSearchAPI},
	}
}

// Handler returns the full middleware-wrapped handler tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, rt := range s.routes() {
		mux.HandleFunc(rt.pattern, s.dispatch(rt))
	}
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.cfg.BasePath, http.StatusFound)
	})
	mux.Handle("GET /static/", assetHandler(s.assets, s.assetsETag))
	mux.HandleFunc("/", s.handleNotFound)

	return s.logRequests(gzipHandler(mux))
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("listening", "addr", addr, "base_path", s.cfg.BasePath, "search_backend", s.cfg.SearchBackend)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) dispatch(rt route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := s.auth.Identify(r)
		// Anonymous requests reach the handler, which asks them to log in.
		if rt.perm != "" && user.Authenticated && !user.Has(rt.perm) {
			s.write(w, r, s.forbidden(user, rt.perm))
			return
		}
		s.write(w, r, rt.handle(r, user))
	}
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, resp response) {
	status := resp.status
	if status == 0 {
		status = http.StatusOK
	}

	switch {
	case resp.body != nil:
		w.Header().Set("Content-Type", resp.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.body)))
		w.WriteHeader(status)
		_, _ = w.Write(resp.body)

	case resp.jsonBody != nil:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(resp.jsonBody); err != nil {
			s.logger.Error("encode error", "path", r.URL.Path, "error", err)
		}

	default:
		var buf bytes.Buffer
		if err := resp.tmpl.ExecuteTemplate(&buf, "base", resp.view); err != nil {
			s.logger.Error("render error", "path", r.URL.Path, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = buf.WriteTo(w)
	}
}

// page carries the fields every template's base layout reads.
type page struct {
	Title         string
	BasePath      string
	User          string
	Authenticated bool
	ShowNav       bool
	ActiveNav     string
	Warnings      []string
}

func (p *page) warn(msg string) {
	p.Warnings = append(p.Warnings, msg)
}

func (s *Server) newPage(user auth.User, title string) page {
	return page{
		Title:         title,
		BasePath:      s.cfg.BasePath,
		User:          user.Name,
		Authenticated: user.Authenticated,
		ShowNav:       user.Has(auth.PermView),
		ActiveNav:     "mailman",
	}
}

// searchForm feeds the shared search box.
type searchForm struct {
	Query      string
	SearchList string
	Lists      []string
}

type errorView struct {
	page
	searchForm
	Heading string
}

func (s *Server) errorResponse(user auth.User, status int, heading, warning string) response {
	view := errorView{page: s.newPage(user, heading), Heading: heading}
	view.warn(warning)
	return response{status: status, tmpl: s.errorPage, view: view}
}

func (s *Server) forbidden(user auth.User, perm string) response {
	return s.errorResponse(user, http.StatusForbidden, "Forbidden",
		perm+" privileges are required to perform this operation.")
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	user := s.auth.Identify(r)
	s.write(w, r, s.errorResponse(user, http.StatusNotFound, "Not Found", "No handler matched request to "+r.URL.Path))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

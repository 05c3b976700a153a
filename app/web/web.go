// Package web implements the web server for the montaj job ledger
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/cozummakina/montaj/app/enums"
	"github.com/cozummakina/montaj/app/ledger"
	"github.com/cozummakina/montaj/app/persistence"
)

//go:embed templates/*.html templates/partials/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

const (
	authCookie  = "montaj-auth"
	sortCookie  = "sort-order"
	maxBodySize = 10 * 1024 * 1024 // spreadsheet imports and large bulk edits
)

// Ledger defines the job ledger operations used by the web server
type Ledger interface {
	Capabilities() ledger.Capabilities
	CreateJob(ctx context.Context, access ledger.Access, req ledger.NewJob) (int64, error)
	ListJobs(ctx context.Context, order enums.SortOrder) ([]persistence.Job, error)
	ElapsedWait(job persistence.Job) string
	Groups(ctx context.Context, order enums.SortOrder) ([]ledger.GroupView, error)
	Customers(ctx context.Context) ([]string, error)
	SummaryByCustomer(ctx context.Context) ([]ledger.CustomerCount, error)
	Counts(ctx context.Context) (ledger.Counters, error)
	BulkUpdate(ctx context.Context, access ledger.Access, rows []ledger.RowEdit) (ledger.BulkResult, error)
	ExportAll(ctx context.Context) ([]persistence.Job, error)
	Restore(ctx context.Context, access ledger.Access, jobs []persistence.Job) error
	AddPersonnel(ctx context.Context, access ledger.Access, name string) error
	RemovePersonnel(ctx context.Context, access ledger.Access, name string) error
	Personnel(ctx context.Context) ([]string, error)
	PersonnelStats(ctx context.Context) ([]ledger.PersonnelStat, error)
}

// Server represents the web server
type Server struct {
	ledger         Ledger
	templates      map[string]*template.Template
	baseURL        string // base URL path for reverse proxy (e.g., /montaj), empty for root
	version        string
	passwordHash   string        // bcrypt hash of the admin password, empty disables admin login
	loginTTL       time.Duration // session TTL
	loginLimiter   *limiter.Limiter
	csrfProtection *http.CrossOriginProtection
	sessions       map[string]time.Time // session token -> expiration
	sessionsMu     sync.Mutex
	now            func() time.Time
}

// Config holds server configuration
type Config struct {
	Ledger       Ledger
	BaseURL      string        // base URL path for reverse proxy (e.g., /montaj), empty for root
	Version      string        // application version
	PasswordHash string        // bcrypt hash of the admin password (empty disables admin login)
	LoginTTL     time.Duration // session TTL, defaults to 24h if not set
	LoginRate    float64       // login attempts per second per ip, defaults to 1
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("web server initialization failed: ledger is required")
	}

	loginTTL := cfg.LoginTTL
	if loginTTL == 0 {
		loginTTL = 24 * time.Hour
	}
	loginRate := cfg.LoginRate
	if loginRate <= 0 {
		loginRate = 1
	}
	lmt := tollbooth.NewLimiter(loginRate, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
	lmt.SetMessage("Çok fazla deneme, lütfen biraz bekleyin")

	s := &Server{
		ledger:         cfg.Ledger,
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		version:        cfg.Version,
		passwordHash:   cfg.PasswordHash,
		loginTTL:       loginTTL,
		loginLimiter:   lmt,
		csrfProtection: http.NewCrossOriginProtection(),
		sessions:       make(map[string]time.Time),
		now:            time.Now,
	}

	templates, err := s.parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("web server initialization failed: failed to parse HTML templates: %w", err)
	}
	s.templates = templates
	return s, nil
}

// Run starts the web server, blocks until ctx is canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// handler returns the http.Handler with base URL wrapping applied
func (s *Server) handler() http.Handler {
	routes := s.routes()
	if s.baseURL == "" {
		return routes
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.baseURL, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.baseURL+"/", http.StatusMovedPermanently)
	})
	mux.Handle(s.baseURL+"/", http.StripPrefix(s.baseURL, routes))
	return mux
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("montaj", "cozummakina", s.version),
		rest.Ping,
		rest.SizeLimit(maxBodySize),
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
		s.authMiddleware,
	)

	router.HandleFunc("GET /login", s.handleLoginForm)
	router.With(s.csrfProtection.Handler, tollbooth.HTTPMiddleware(s.loginLimiter)).HandleFunc("POST /login", s.handleLogin)
	router.HandleFunc("GET /logout", s.handleLogout)

	router.HandleFunc("GET /{$}", s.handleDashboard)
	router.HandleFunc("GET /export", s.handleExport)

	// form endpoints of the dashboard
	router.Mount("/api").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.Use(s.csrfProtection.Handler)

		api.HandleFunc("POST /jobs", s.handleCreateJob)
		api.HandleFunc("POST /jobs/save", s.handleSaveJobs)
		api.HandleFunc("POST /personnel", s.handleAddPersonnel)
		api.HandleFunc("POST /personnel/delete", s.handleRemovePersonnel)
		api.HandleFunc("POST /sort-toggle", s.handleSortToggle)
		api.HandleFunc("POST /import", s.handleImport)
	})

	// JSON API for programmatic access
	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.Use(s.csrfProtection.Handler)

		api.HandleFunc("GET /jobs", s.handleAPIJobs)
		api.HandleFunc("POST /jobs", s.handleAPICreateJob)
		api.HandleFunc("POST /jobs/bulk", s.handleAPIBulk)
		api.HandleFunc("GET /summary", s.handleAPISummary)
		api.HandleFunc("GET /counts", s.handleAPICounts)
		api.HandleFunc("GET /personnel", s.handleAPIPersonnel)
		api.HandleFunc("GET /personnel/stats", s.handleAPIPersonnelStats)
		api.HandleFunc("POST /personnel", s.handleAPIAddPersonnel)
		api.HandleFunc("DELETE /personnel/{name}", s.handleAPIRemovePersonnel)
	})

	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("[ERROR] failed to create static file system: %v", err)
		router.Handle("GET /static/", http.FileServer(http.FS(staticFS)))
	} else {
		router.HandleFiles("/static/", http.FS(fsys))
	}

	return router
}

// render renders a template
func (s *Server) render(w http.ResponseWriter, page, tmplName string, data any) {
	s.renderStatus(w, http.StatusOK, page, tmplName, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, status int, page, tmplName string, data any) {
	tmpl, ok := s.templates[page]
	if !ok {
		log.Printf("[WARN] template %s not found", page)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, tmplName, data); err != nil {
		log.Printf("[WARN] failed to execute template: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[WARN] failed to write response: %v", err)
	}
}

// parseTemplates parses all templates
func (s *Server) parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	funcMap := template.FuncMap{
		"url":      s.url,
		"joinTeam": persistence.JoinTeam,
		"inTeam":   inTeam,
		"statuses": statusesFor,
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templatesFS,
		"templates/base.html", "templates/dashboard.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}
	templates["base.html"] = base

	login, err := template.New("login.html").Funcs(funcMap).ParseFS(templatesFS, "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse login template: %w", err)
	}
	templates["login"] = login

	return templates, nil
}

// getSortOrder gets the sort order from cookie, ascending by default
func (s *Server) getSortOrder(r *http.Request) enums.SortOrder {
	cookie, err := r.Cookie(sortCookie)
	if err != nil || cookie.Value == "" {
		return enums.SortOrderAsc
	}
	order, err := enums.ParseSortOrder(cookie.Value)
	if err != nil {
		log.Printf("[WARN] invalid sort order cookie %q: %v", cookie.Value, err)
		return enums.SortOrderAsc
	}
	return order
}

// setSortCookie sets the sort order cookie
func (s *Server) setSortCookie(w http.ResponseWriter, order enums.SortOrder) {
	http.SetCookie(w, &http.Cookie{
		Name:     sortCookie,
		Value:    order.String(),
		Path:     s.cookiePath(),
		MaxAge:   365 * 24 * 60 * 60, // 1 year
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// url prepends the base URL to a path for reverse proxy support
func (s *Server) url(path string) string {
	return s.baseURL + path
}

// cookiePath returns the cookie path with base URL support
func (s *Server) cookiePath() string {
	if s.baseURL == "" {
		return "/"
	}
	return s.baseURL + "/"
}

// template helpers

func inTeam(team []string, name string) bool {
	for _, n := range team {
		if n == name {
			return true
		}
	}
	return false
}

// statusesFor returns statuses selectable for the job type. The current status is always listed,
// so a form keeps it even when it can't be chosen anymore, e.g. finished demo jobs with demo disabled.
func statusesFor(t enums.JobType, demo bool, cur enums.Status) []enums.Status {
	var res []enums.Status
	for _, st := range enums.StatusValues {
		if st == cur || (st.ValidFor(t) && (st != enums.StatusFinished || demo)) {
			res = append(res, st)
		}
	}
	return res
}

package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"weekhours/internal/config"
	"weekhours/internal/everhour"
	"weekhours/internal/ledger"
	appLog "weekhours/internal/log"
	"weekhours/internal/model"
)

// Refresher produces a fresh set of events, typically by scraping the week
// view and parsing its chips.
type Refresher func(ctx context.Context) ([]model.ParsedEvent, error)

// Server provides the HTTP JSON API over the last parsed week.
type Server struct {
	cfg     *config.Config
	cfgPath string
	mux     *http.ServeMux

	refresh  Refresher
	everhour *everhour.Client
	ledger   *ledger.Store
	now      func() time.Time

	// refreshMu serializes scrapes; two Chromium instances cannot share
	// one profile dir.
	refreshMu sync.Mutex

	// cfgMu guards cfg.MeetingProjects, which auto-linking and
	// PUT /api/links update.
	cfgMu sync.Mutex

	eventsMu  sync.RWMutex
	events    []model.ParsedEvent
	updatedAt time.Time
}

// NewServer constructs a new Server. cfgPath, if set, is where updated
// meeting-to-project links are saved. refresh may be nil, in which case
// POST /api/refresh is unavailable.
func NewServer(cfg *config.Config, cfgPath string, refresh Refresher) *Server {
	s := &Server{
		cfg:      cfg,
		cfgPath:  cfgPath,
		mux:      http.NewServeMux(),
		refresh:  refresh,
		everhour: everhour.NewClient(cfg.EverhourToken, cfg.EverhourBaseURL),
		now:      time.Now,
		events:   []model.ParsedEvent{},
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// UseLedger records created Everhour entries in l, which enables removing
// them by title and GET /api/everhour.
func (s *Server) UseLedger(l *ledger.Store) {
	s.ledger = l
}

// SetEvents replaces the current week.
func (s *Server) SetEvents(events []model.ParsedEvent) {
	if events == nil {
		events = []model.ParsedEvent{}
	}
	s.eventsMu.Lock()
	s.events = events
	s.updatedAt = s.now()
	s.eventsMu.Unlock()
}

// Events returns the current week and when it was last set.
func (s *Server) Events() ([]model.ParsedEvent, time.Time) {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	return s.events, s.updatedAt
}

// Refresh runs the configured Refresher and stores its result.
func (s *Server) Refresh(ctx context.Context) error {
	if s.refresh == nil {
		return errNoRefresher
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	events, err := s.refresh(ctx)
	if err != nil {
		return err
	}
	s.SetEvents(events)
	appLog.Info("events refreshed", "count", len(events))
	return nil
}

var errNoRefresher = errors.New("web: no refresher configured")

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="weekhours", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve runs an HTTP server on cfg.Listen until ctx is cancelled, then
// shuts it down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/parse", s.handleParse)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /api/summary", s.handleSummary)
	s.mux.HandleFunc("GET /api/project-hours", s.handleProjectHours)
	s.mux.HandleFunc("GET /api/week", s.handleWeek)
	s.mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)
	s.mux.HandleFunc("GET /api/export.ics", s.handleExportICS)
	s.mux.HandleFunc("GET /api/links", s.handleLinks)
	s.mux.HandleFunc("PUT /api/links", s.handleSetLink)
	s.mux.HandleFunc("GET /api/everhour", s.handleEverhourList)
	s.mux.HandleFunc("POST /api/everhour", s.handleEverhourSend)
	s.mux.HandleFunc("DELETE /api/everhour", s.handleEverhourRemove)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

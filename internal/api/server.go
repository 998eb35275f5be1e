// Package api serves the admin portal over HTTP: a JSON API mirroring the
// component operations plus a server-rendered dashboard.
package api

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"siteadmin/internal/logging"
	"siteadmin/internal/portal"
	"siteadmin/internal/state"
)

// CookieName carries the tab session id
const CookieName = "tab_session"

//go:embed templates/*.html
var templateFS embed.FS

// Portal is what the server needs from the tab registry
type Portal interface {
	Tab(id string) *portal.Tab
	Ephemeral() *portal.Tab
	Register(t *portal.Tab)
}

// Server holds dependencies and provides HTTP handlers
type Server struct {
	portal    Portal
	templates *template.Template
	logger    *logging.Logger
	maxUpload int64
}

type tabKey struct{}

// tabContext is the tab serving one request. An unregistered tab belongs to
// a client without a live session and is dropped after the response.
type tabContext struct {
	tab        *portal.Tab
	registered bool
}

// NewServer creates a server and parses the embedded templates
func NewServer(p Portal, maxUploadMB int, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"ago": func(ms int64) string { return humanize.Time(time.UnixMilli(ms)) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}

	return &Server{
		portal:    p,
		templates: tmpl,
		logger:    logger,
		maxUpload: int64(maxUploadMB) << 20,
	}, nil
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.withTab)

	r.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	api.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users", s.handleAddUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{index}", s.handleRemoveUser).Methods(http.MethodDelete)

	api.HandleFunc("/chat", s.handleListChat).Methods(http.MethodGet)
	api.HandleFunc("/chat", s.handlePostChat).Methods(http.MethodPost)

	api.HandleFunc("/files", s.handleListFiles).Methods(http.MethodGet)
	api.HandleFunc("/files", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/files/{index}", s.handleRemoveFile).Methods(http.MethodDelete)
	api.HandleFunc("/files/{index}/download", s.handleDownload).Methods(http.MethodGet)

	api.HandleFunc("/activity", s.handleListActivity).Methods(http.MethodGet)
	api.HandleFunc("/activity", s.handleClearActivity).Methods(http.MethodDelete)

	api.HandleFunc("/theme", s.handleGetTheme).Methods(http.MethodGet)
	api.HandleFunc("/theme", s.handleSetTheme).Methods(http.MethodPost)

	return r
}

// withTab resolves the caller's tab from its cookie. Clients without a live
// tab get a throwaway one; it is only registered once a login succeeds.
func (s *Server) withTab(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := &tabContext{}
		if c, err := r.Cookie(CookieName); err == nil {
			tc.tab = s.portal.Tab(c.Value)
		}
		if tc.tab != nil {
			tc.registered = true
		} else {
			tc.tab = s.portal.Ephemeral()
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tabKey{}, tc)))
	})
}

// keepTab registers the request's tab if needed and hands its id to the client
func (s *Server) keepTab(w http.ResponseWriter, r *http.Request) {
	tc := r.Context().Value(tabKey{}).(*tabContext)
	if tc.registered {
		return
	}
	s.portal.Register(tc.tab)
	tc.registered = true
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tc.tab.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

func tabFrom(r *http.Request) *portal.Tab {
	return r.Context().Value(tabKey{}).(*tabContext).tab
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, state.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, state.ErrDuplicate), errors.Is(err, state.ErrInvariantViolation):
		return http.StatusConflict
	case errors.Is(err, state.ErrIndex):
		return http.StatusNotFound
	case errors.Is(err, state.ErrUnauthorized), errors.Is(err, state.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, state.ErrStorageQuotaExceeded):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

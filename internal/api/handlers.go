package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"siteadmin/internal/state"
	"siteadmin/internal/vault"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", state.ErrValidation)
	}
	return nil
}

func indexVar(r *http.Request) (int, error) {
	return state.ParseIndex(mux.Vars(r)["index"])
}

// handleSession reports who is logged in to this tab
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	tab := tabFrom(r)
	user, ok := tab.Session.CurrentUser()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loggedIn": ok,
		"user":     user,
		"revision": tab.Revision(),
		"theme":    tab.Theme.Get(r.Context()),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := tabFrom(r).Session.Login(r.Context(), req.Username, req.Password); err != nil {
		s.writeError(w, err)
		return
	}
	s.keepTab(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "user": req.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	tabFrom(r).Session.Logout(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tabFrom(r).Users.List(r.Context()))
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := tabFrom(r).Users.Add(r.Context(), req.Username, req.Password); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "success"})
}

func (s *Server) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	idx, err := indexVar(r)
	if err == nil {
		err = tabFrom(r).Users.Remove(r.Context(), idx)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleListChat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tabFrom(r).Chat.List(r.Context()))
}

func (s *Server) handlePostChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := tabFrom(r).Chat.Post(r.Context(), req.Text); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "success"})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tabFrom(r).Files.Entries(r.Context()))
}

// handleUpload accepts a multipart form with one or more "files" parts
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	tab := tabFrom(r)
	if !tab.Session.IsAuthenticated() {
		s.writeError(w, state.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.writeError(w, fmt.Errorf("%w: failed to parse form: %v", state.ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.writeError(w, fmt.Errorf("%w: no files in request", state.ErrValidation))
		return
	}

	descs := make([]vault.Descriptor, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			s.writeError(w, fmt.Errorf("failed to open %s: %w", h.Filename, err))
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.writeError(w, fmt.Errorf("failed to read %s: %w", h.Filename, err))
			return
		}
		descs = append(descs, vault.Descriptor{
			Name:    h.Filename,
			Size:    h.Size,
			Type:    h.Header.Get("Content-Type"),
			Content: content,
		})
	}

	res, err := tab.Files.Upload(r.Context(), descs)
	if err != nil {
		status := statusFor(err)
		writeJSON(w, status, map[string]interface{}{"error": err.Error(), "result": res})
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	idx, err := indexVar(r)
	if err == nil {
		err = tabFrom(r).Files.Remove(r.Context(), idx)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleDownload serves a stored file only when its data reference is valid
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	idx, err := indexVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	files := tabFrom(r).Files.List(r.Context())
	if err := state.CheckIndex(idx, len(files)); err != nil {
		s.writeError(w, err)
		return
	}

	file := files[idx]
	ref, ok := vault.DownloadTarget(file)
	if !ok {
		s.logger.Warn("Refusing download of %q: invalid data reference", file.Name)
		http.NotFound(w, r)
		return
	}
	mimeType, data, err := vault.DecodeDataURL(ref)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Write(data)
}

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tabFrom(r).Activity.List(r.Context()))
}

// handleClearActivity wipes the audit trail; the caller must confirm
func (s *Server) handleClearActivity(w http.ResponseWriter, r *http.Request) {
	tab := tabFrom(r)
	if !tab.Session.IsAuthenticated() {
		s.writeError(w, state.ErrUnauthorized)
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		s.writeError(w, fmt.Errorf("%w: clearing the activity log requires confirm=true", state.ErrValidation))
		return
	}
	if err := tab.Activity.Clear(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"theme": tabFrom(r).Theme.Get(r.Context())})
}

// handleSetTheme sets the given theme, or toggles when none is given
func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
	}

	prefs := tabFrom(r).Theme
	name := req.Theme
	var err error
	if name == "" {
		name, err = prefs.Toggle(r.Context())
	} else {
		err = prefs.Set(r.Context(), name)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": name})
}

// handleDashboard renders the whole portal state for this tab
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tab := tabFrom(r)
	user, loggedIn := tab.Session.CurrentUser()

	data := map[string]interface{}{
		"LoggedIn": loggedIn,
		"User":     user,
		"Theme":    tab.Theme.Get(ctx),
		"Revision": tab.Revision(),
		"Users":    tab.Users.List(ctx),
		"Chat":     tab.Chat.List(ctx),
		"Files":    tab.Files.Entries(ctx),
		"Activity": tab.Activity.List(ctx),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.logger.Error("Failed to render dashboard template: %v", err)
		http.Error(w, "Failed to render dashboard", http.StatusInternalServerError)
	}
}

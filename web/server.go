// Package web serves the single-session browser UI. Pages are rendered on
// the server; every action is a form POST answered with a redirect back to
// the shell.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/s0up4200/pikfront/app"
	"github.com/s0up4200/pikfront/backend"
	"github.com/s0up4200/pikfront/filter"
)

// maxFormBytes bounds the size of posted forms
const maxFormBytes = 1 << 20

// Option configures a Server
type Option func(*Server)

// WithFilters enables expression filtering of the task panel
func WithFilters(manager *filter.Manager) Option {
	return func(s *Server) {
		s.filters = manager
	}
}

// WithMetrics exposes handler at /metrics
func WithMetrics(handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = handler
	}
}

// WithRefreshInterval sets how often a logged-in page reloads itself
func WithRefreshInterval(interval time.Duration) Option {
	return func(s *Server) {
		s.refresh = interval
	}
}

// Server handles browser requests for one shared session
type Server struct {
	controller *app.Controller
	page       *Page
	filters    *filter.Manager
	metrics    http.Handler
	refresh    time.Duration
	logger     zerolog.Logger
}

// NewServer creates a server pushing controller output into page
func NewServer(controller *app.Controller, page *Page, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		controller: controller,
		page:       page,
		filters:    filter.NewManager(),
		logger:     logger.With().Str("component", "web").Logger(),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler with all routes registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /register", s.handleRegister)

	protected := map[string]http.HandlerFunc{
		"GET /fragments/{name}":     s.handleFragment,
		"POST /logout":              s.handleLogout,
		"POST /refresh":             s.handleRefresh,
		"POST /downloads":           s.handleDownload,
		"POST /tasks/filter":        s.handleTaskFilter,
		"POST /tasks/{id}/delete":   s.handleDeleteTask,
		"POST /tasks/{id}/retry":    s.handleRetryTask,
		"POST /files/open":          s.handleOpenFolder,
		"POST /files/crumb/{index}": s.handleCrumb,
		"POST /files/up":            s.handleGoUp,
		"POST /files/more":          s.handleLoadMore,
		"POST /files/trash":         s.handleTrash,
		"GET /files/{id}/url":       s.handleFileURL,
		"GET /files/{id}/download":  s.handleDownloadFile,
	}
	for pattern, handler := range protected {
		mux.Handle(pattern, s.requireLogin(handler))
	}

	return requestLogger(s.logger, mux)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully and
// stops polling
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener, shutdownTimeout)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, listener net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", listener.Addr().String()).Msg("Web UI listening")
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		s.controller.Session().Reset()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down web UI")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.controller.Session().Reset()
	if err != nil {
		return fmt.Errorf("web server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) requireLogin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.controller.Session().LoggedIn() {
			if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/fragments/") {
				http.Error(w, "not logged in", http.StatusUnauthorized)
				return
			}
			s.backToIndex(w, r)
			return
		}
		next(w, r)
	})
}

// backToIndex answers a form post with a redirect to the shell
func (s *Server) backToIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Invalid form")
		http.Error(w, "invalid form", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !s.page.AuthChecked() {
		s.controller.CheckAuth(r.Context())
	}

	state := s.page.Snapshot()
	state.RefreshAfter = int(s.refresh / time.Second)
	if s.filters != nil {
		state.Presets = s.filters.Names()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := shellTemplate.Execute(w, state); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render page")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, `{"status":"ok"}`)
}

func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	markup, ok := s.page.Fragment(r.PathValue("name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, markup)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	s.controller.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	s.backToIndex(w, r)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	s.controller.Register(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	s.backToIndex(w, r)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.controller.Logout(r.Context())
	s.backToIndex(w, r)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.controller.Refresh(r.Context())
	s.backToIndex(w, r)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	input := r.PostFormValue("url")
	s.page.SetDownloadInput(input)
	s.controller.SubmitDownload(r.Context(), input)
	s.backToIndex(w, r)
}

func (s *Server) handleTaskFilter(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}

	var phases []backend.Phase
	for _, value := range r.PostForm["phase"] {
		phase, err := backend.ParsePhase(value)
		if err != nil {
			s.page.Notify(app.Notification{Level: app.LevelWarning, Message: "Unknown phase: " + value})
			continue
		}
		phases = append(phases, phase)
	}

	expression := strings.TrimSpace(r.PostFormValue("expr"))
	preset := r.PostFormValue("preset")
	var program *filter.Program
	if s.filters != nil {
		p, err := s.filters.Resolve(expression, preset)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Invalid task filter")
			s.page.Notify(app.Notification{Level: app.LevelWarning, Message: "Invalid filter: " + err.Error()})
		} else {
			program = p
		}
	}
	if program != nil {
		expression = program.Expression()
	}

	s.page.SetTaskFilter(expression, phases)
	s.controller.SetTaskFilter(r.Context(), phases, program)
	s.backToIndex(w, r)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	deleteFiles, _ := strconv.ParseBool(r.PostFormValue("delete_files"))
	s.controller.DeleteTask(r.Context(), r.PathValue("id"), deleteFiles)
	s.backToIndex(w, r)
}

func (s *Server) handleRetryTask(w http.ResponseWriter, r *http.Request) {
	s.controller.RetryTask(r.Context(), r.PathValue("id"))
	s.backToIndex(w, r)
}

func (s *Server) handleOpenFolder(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	s.controller.NavigateToFolder(r.Context(), query.Get("id"), query.Get("name"))
	s.backToIndex(w, r)
}

func (s *Server) handleCrumb(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid breadcrumb index", http.StatusBadRequest)
		return
	}
	s.controller.NavigateToIndex(r.Context(), index)
	s.backToIndex(w, r)
}

func (s *Server) handleGoUp(w http.ResponseWriter, r *http.Request) {
	s.controller.GoUp(r.Context())
	s.backToIndex(w, r)
}

func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	s.controller.LoadMoreFiles(r.Context())
	s.backToIndex(w, r)
}

func (s *Server) handleTrash(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	s.controller.TrashFiles(r.Context(), r.PostForm["ids"])
	s.backToIndex(w, r)
}

func (s *Server) handleFileURL(w http.ResponseWriter, r *http.Request) {
	link, err := s.controller.FileURL(r.Context(), r.PathValue("id"))
	if err != nil {
		s.backToIndex(w, r)
		return
	}
	http.Redirect(w, r, link, http.StatusFound)
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")
	dl, err := s.controller.OpenDownload(r.Context(), fileID)
	if err != nil {
		s.backToIndex(w, r)
		return
	}
	defer dl.Body.Close()

	name := dl.Name
	if name == "" {
		name = fileID
	}
	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if dl.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.ContentLength, 10))
	}

	written, err := io.Copy(w, dl.Body)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("file_id", fileID).Int64("written", written).Msg("Download interrupted")
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("file_id", fileID).Int64("bytes", written).Msg("Download streamed")
}

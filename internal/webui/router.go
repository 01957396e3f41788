// ABOUTME: chi router for the admin API: verify, list, toggle, health, and static frontend
// ABOUTME: Wires the Bearer secret gate, CORS, and request logging

package webui

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389/coven-cmdconsole/internal/assets"
	"github.com/2389/coven-cmdconsole/internal/auth"
	"github.com/2389/coven-cmdconsole/internal/registry"
)

// Actor recorded in the audit log for toggles made through the API.
const Actor = "webui"

// Commands is the registry surface the API needs.
type Commands interface {
	List() []registry.CommandInfo
	Toggle(ctx context.Context, actor, fullName string) registry.ToggleResult
}

// Config holds the router's dependencies.
type Config struct {
	Commands Commands
	Secrets  auth.SecretSource
	Logger   *slog.Logger
	Assets   fs.FS // defaults to the embedded frontend
}

type server struct {
	commands Commands
	logger   *slog.Logger
}

// NewRouter builds the admin HTTP handler.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "webui")

	static := cfg.Assets
	if static == nil {
		static = assets.Dist()
	}

	s := &server{commands: cfg.Commands, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return httplogger.LoggingMiddlewareSlog(logger, next)
	})
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Secrets))
		r.Get("/verify", s.handleVerify)
		r.Get("/commands", s.handleListCommands)
		r.Post("/commands/toggle", s.handleToggle)
	})

	r.Handle("/*", assets.FileServer(static))
	return r
}

// corsMiddleware allows any origin; the Bearer secret is the only gate.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if origin := r.Header.Get("Origin"); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		} else {
			h.Set("Access-Control-Allow-Origin", "*")
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.commands.List())
}

func (s *server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var item struct {
		HandlerFullName *string `json:"handler_full_name"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&item); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid request body: " + err.Error()})
		return
	}
	if item.HandlerFullName == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "handler_full_name is required"})
		return
	}

	res := s.commands.Toggle(r.Context(), Actor, *item.HandlerFullName)
	if !res.OK() {
		s.logger.Info("toggle rejected", "handler", *item.HandlerFullName, "message", res.Message)
	}
	writeJSON(w, http.StatusOK, res)
}

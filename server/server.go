// Package server exposes run status over HTTP.
//
// Routes:
//
//	GET /runs/{id}  one run owned by the caller
//	GET /runs       the caller's recent runs (?limit=N, default 8)
//	GET /healthz    liveness
//
// Callers authenticate with "Authorization: Bearer <jwt>" where the token
// subject is the user id that owns the runs (see auth.IssueUserToken).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/seedrepo/auth"
	"github.com/randalmurphal/seedrepo/ledger"
)

// DefaultListLimit is the number of runs GET /runs returns without ?limit.
const DefaultListLimit = 8

const maxListLimit = 100

// RunReader is the part of the ledger the server reads.
type RunReader interface {
	GetRun(ctx context.Context, id, userID string) (*ledger.Run, error)
	ListRuns(ctx context.Context, userID string, limit int) ([]ledger.Run, error)
}

// Config wires a Server.
type Config struct {
	Runs   RunReader // Required
	JWT    auth.JWTConfig
	Logger *slog.Logger
}

// Server serves the run status API.
type Server struct {
	runs   RunReader
	jwt    auth.JWTConfig
	logger *slog.Logger
}

// New validates cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Runs == nil {
		return nil, errors.New("run reader required")
	}
	if len(cfg.JWT.Secret) == 0 {
		return nil, errors.New("jwt secret required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{runs: cfg.Runs, jwt: cfg.JWT, logger: logger.With("component", "server")}, nil
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /runs", s.authenticated(s.handleListRuns))
	mux.Handle("GET /runs/{id}", s.authenticated(s.handleGetRun))
	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting run status server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down run status server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// --- Handlers ---

type runResponse struct {
	ID           string  `json:"id"`
	ProjectName  string  `json:"project_name"`
	Mode         string  `json:"mode"`
	Status       string  `json:"status"`
	RepoURL      *string `json:"repo_url"`
	Instructions *string `json:"claude_instructions"`
	CreatedAt    string  `json:"created_at"`
}

func toResponse(run *ledger.Run) runResponse {
	return runResponse{
		ID:           run.ID,
		ProjectName:  run.ProjectName,
		Mode:         run.Mode,
		Status:       string(run.Status),
		RepoURL:      optional(run.RepoURL),
		Instructions: optional(run.Instructions),
		CreatedAt:    run.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request, userID string) {
	run, err := s.runs.GetRun(r.Context(), r.PathValue("id"), userID)
	if errors.Is(err, ledger.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		s.logger.Error("get run failed", "error", err, "run_id", r.PathValue("id"))
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(run))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request, userID string) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	runs, err := s.runs.ListRuns(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	out := make([]runResponse, 0, len(runs))
	for i := range runs {
		out = append(out, toResponse(&runs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

// --- Middleware ---

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

func (s *Server) authenticated(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		claims, err := auth.ValidateUserToken(s.jwt, token)
		if err != nil {
			s.logger.Debug("rejected token", "error", err, "token", auth.Fingerprint(token))
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r, claims.UserID())
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

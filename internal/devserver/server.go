// Package devserver is a local stand-in for the agent backend. It serves
// the five chat endpoints over a scripted agent so the client can be run
// without the workflow engine.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/diogo/agentchat/internal/models"
)

// DefaultAddr is where serve-dev listens unless told otherwise.
const DefaultAddr = "127.0.0.1:8000"

// Server exposes an Agent over HTTP
type Server struct {
	agent   *Agent
	metrics *Metrics
	logger  *slog.Logger
}

// NewServer creates a server for agent
func NewServer(agent *Agent, metrics *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{agent: agent, metrics: metrics, logger: logger}
}

// Handler builds the chi router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Temporal AI Agent!"})
	})
	r.Get(models.EndpointHistory, s.getHistory)
	r.Post(models.EndpointSendPrompt, s.sendPrompt)
	r.Post(models.EndpointConfirm, s.confirm)
	r.Post(models.EndpointStartWorkflow, s.startWorkflow)
	r.Post(models.EndpointEndChat, s.endChat)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	return r
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dev server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("dev server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// observe logs every request and records its metrics
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		s.metrics.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.metrics.duration.WithLabelValues(route).Observe(elapsed.Seconds())
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
		)
	})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	turns, err := s.agent.History()
	switch {
	case errors.Is(err, ErrNoRun):
		// A missing workflow is started on first poll, as the real backend does.
		s.agent.Start()
		s.metrics.runs.Inc()
		writeJSON(w, http.StatusOK, []any{})
	case errors.Is(err, ErrWarmingUp):
		writeDetail(w, http.StatusNotFound, "Workflow worker unavailable or not found.")
	case err != nil:
		writeDetail(w, http.StatusInternalServerError, "Internal server error while querying workflow.")
	default:
		writeJSON(w, http.StatusOK, map[string]any{models.PathMessages: turns})
	}
}

func (s *Server) sendPrompt(w http.ResponseWriter, r *http.Request) {
	prompt := r.URL.Query().Get("prompt")
	if !r.URL.Query().Has("prompt") {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{
				"loc":  []string{"query", "prompt"},
				"msg":  "Field required",
				"type": "missing",
			}},
		})
		return
	}

	if err := s.agent.Prompt(prompt); err != nil {
		s.writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Prompt '%s' sent to workflow %s.", prompt, s.agent.RunID()),
	})
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	if err := s.agent.Confirm(); err != nil {
		s.writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Confirm signal sent."})
}

func (s *Server) startWorkflow(w http.ResponseWriter, r *http.Request) {
	s.agent.Start()
	s.metrics.runs.Inc()
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Workflow started with goal's starter prompt: %s.", s.agent.script.StarterPrompt),
	})
}

func (s *Server) endChat(w http.ResponseWriter, r *http.Request) {
	if err := s.agent.End(); err != nil {
		// Ending a missing workflow is not an error for the caller.
		writeJSON(w, http.StatusOK, map[string]string{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "End chat signal sent."})
}

func (s *Server) writeAgentError(w http.ResponseWriter, err error) {
	s.logger.Warn("agent request failed", "error", err)
	if errors.Is(err, ErrNoRun) {
		writeDetail(w, http.StatusInternalServerError, "Workflow not found. Start a new chat.")
		return
	}
	writeDetail(w, http.StatusInternalServerError, err.Error())
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

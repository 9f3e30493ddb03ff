package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"aircheck/internal/api"
	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/registry"
	"aircheck/internal/services"
	"aircheck/internal/telemetry"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Server.APIBind),
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Route("/api", func(r chi.Router) {
		r.Post("/record", s.handleRecord)
		r.Get("/jobs", s.handleJobs)
		r.Get("/jobs/{id}", s.handleJob)
		r.Get("/failed", s.handleFailed)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())
	return r
}

// requestID attaches a correlation identifier to each request so handler
// logs and downstream calls can be tied back to it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) start(ctx context.Context) error {
	telemetry.Register()

	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// handleRecord admits a new recording job. Requests over the concurrency
// ceiling are refused with 503 rather than queued.
func (s *apiServer) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Show) == "" {
		s.writeError(w, http.StatusBadRequest, "show is required")
		return
	}

	job, err := s.daemon.orc.Submit(r.Context(), req.Show, req.DurationMinutes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, registry.ErrCapacityExceeded):
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.FromJob(job))
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []registry.Status
	for _, value := range r.URL.Query()["status"] {
		status, ok := registry.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
			return
		}
		statuses = append(statuses, status)
	}

	jobs, err := s.daemon.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobList{Jobs: api.FromJobs(jobs)})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "no such job")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromJob(job))
}

// handleFailed lists jobs retained for manual recovery.
func (s *apiServer) handleFailed(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.daemon.store.Failed(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobList{Jobs: api.FromJobs(jobs)})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())

	stats := make(map[string]int, len(status.Pipeline.JobStats))
	for k, v := range status.Pipeline.JobStats {
		stats[string(k)] = v
	}
	stages := make([]api.StageStatus, 0, len(status.Pipeline.StageHealth))
	for _, health := range status.Pipeline.StageHealth {
		stages = append(stages, api.StageStatus{Name: health.Name, Ready: health.Ready, Detail: health.Detail})
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i].Name < stages[j].Name })

	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		JobStats:     stats,
		Stages:       stages,
		LastError:    status.Pipeline.LastError,
		RegistryPath: status.RegistryPath,
		LockFilePath: status.LockFilePath,
	})
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ready, unhealthy := s.daemon.orc.Ready(r.Context())
	if ready {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	details := make([]string, 0, len(unhealthy))
	for _, h := range unhealthy {
		details = append(details, h.Name+": "+h.Detail)
	}
	sort.Strings(details)
	s.writeError(w, http.StatusServiceUnavailable, strings.Join(details, "; "))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.Error{Error: message})
}

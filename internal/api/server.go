// Package api exposes a running script over HTTP: health, the journal
// (snapshot and live websocket), beat timings, run status and Prometheus
// metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/AaronLay10/algoscene/internal/journal"
	"github.com/AaronLay10/algoscene/internal/logging"
	"github.com/AaronLay10/algoscene/internal/orchestrator"
	"github.com/AaronLay10/algoscene/internal/storage/postgres"
	"github.com/AaronLay10/algoscene/internal/timinglog"
)

const shutdownTimeout = 5 * time.Second

// StatusProvider reports the progress of the current run.
type StatusProvider interface {
	Status() orchestrator.Status
}

// EventQuerier reads persisted journal events, newest first.
type EventQuerier interface {
	Query(limit int) ([]postgres.EventRow, error)
}

// Options wires the server to the rest of the process. Nil fields disable
// the endpoints that need them.
type Options struct {
	Port      int
	ProjectID string
	RunID     string
	TLS       *TLSConfig
	Auth      *Auth
	Status    StatusProvider
	Timings   timinglog.Reader
	Store     EventQuerier
	Logger    *slog.Logger
}

// Server is the HTTP API of one algoscene process.
type Server struct {
	opts    Options
	logger  *slog.Logger
	started time.Time
	mux     *http.ServeMux
}

// NewServer builds the route table. Call Serve to listen.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	s := &Server{
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "api"),
		started: time.Now(),
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/health", healthHandler)
	s.mux.HandleFunc("/metrics", s.metricsHandler)
	s.mux.HandleFunc("/events", opts.Auth.RequireAnyRole(s.eventsHandler))
	s.mux.HandleFunc("/timings", opts.Auth.RequireAnyRole(s.timingsHandler))
	s.mux.HandleFunc("/status", opts.Auth.RequireAnyRole(s.statusHandler))
	s.mux.HandleFunc("/ws/events", opts.Auth.RequireAnyRole(s.wsEventsHandler))
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler { return s.mux }

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	tlsCfg, err := s.opts.TLS.Load()
	if err != nil {
		return err
	}
	port := s.opts.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.mux,
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", srv.Addr), slog.Bool("tls", tlsCfg != nil))
		if tlsCfg != nil {
			errCh <- srv.ListenAndServeTLS("", "")
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	journal.CloseAllSubscribers()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	return nil
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "algoscene",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// eventsHandler returns the in-memory journal, or the persisted journal
// when ?source=store is given and a store is configured.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}
	if r.URL.Query().Get("source") != "store" {
		writeJSON(w, http.StatusOK, journal.Snapshot())
		return
	}
	if s.opts.Store == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no journal store configured"})
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be an integer"})
			return
		}
		limit = n
	}
	rows, err := s.opts.Store.Query(limit)
	if err != nil {
		s.logger.Error("query journal store", logging.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "journal store query failed"})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// TimingsResponse carries the records of one run and their summary.
type TimingsResponse struct {
	RunID   string             `json:"run_id"`
	Records []timinglog.Record `json:"records"`
	Summary timinglog.Summary  `json:"summary"`
}

func (s *Server) timingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}
	if s.opts.Timings == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no timing log configured"})
		return
	}
	runID := r.URL.Query().Get("run")
	if runID == "" {
		runID = s.opts.RunID
	}
	records, err := s.opts.Timings.Records(r.Context(), runID)
	if err != nil {
		s.logger.Error("read timings", slog.String("run_id", runID), logging.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "timing log read failed"})
		return
	}
	if records == nil {
		records = []timinglog.Record{}
	}
	writeJSON(w, http.StatusOK, TimingsResponse{
		RunID:   runID,
		Records: records,
		Summary: timinglog.Summarize(records),
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if s.opts.Status == nil {
		writeJSON(w, http.StatusOK, orchestrator.Status{RunID: s.opts.RunID, State: orchestrator.RunStateNotStarted})
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Status.Status())
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

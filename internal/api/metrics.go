package api

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/AaronLay10/algoscene/internal/journal"
	"github.com/AaronLay10/algoscene/internal/orchestrator"
	"github.com/AaronLay10/algoscene/internal/version"
)

var runStates = []orchestrator.RunState{
	orchestrator.RunStateNotStarted,
	orchestrator.RunStateRunning,
	orchestrator.RunStateCompleted,
	orchestrator.RunStateFailed,
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := orchestrator.Status{RunID: s.opts.RunID, State: orchestrator.RunStateNotStarted}
	if s.opts.Status != nil {
		status = s.opts.Status.Status()
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeMetric := func(name, mtype, help string, value any, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
	}

	labels := fmt.Sprintf(`project=%q,instance=%q,version=%q`, s.opts.ProjectID, hostname, version.Version)

	writeMetric("algoscene_uptime_seconds", "gauge",
		"Number of seconds since the process started", time.Since(s.started).Seconds(), labels)
	writeMetric("algoscene_journal_events_total", "counter",
		"Total number of journal events emitted since startup", journal.TotalCount(), labels)
	writeMetric("algoscene_ws_clients", "gauge",
		"Number of active WebSocket client connections", journal.SubscriberCount(), labels)
	writeMetric("algoscene_beats_total", "gauge",
		"Number of beats in the running script", status.BeatsTotal, labels)
	writeMetric("algoscene_beats_done", "counter",
		"Number of beats executed by the current run", status.BeatsDone, labels)

	finished := 0
	if status.IsTerminal() {
		finished = 1
	}
	writeMetric("algoscene_run_finished", "gauge",
		"Whether the current run has completed or failed", finished, labels)

	fmt.Fprintf(w, "# HELP algoscene_run_state Whether the current run is in the given state (1) or not (0)\n")
	fmt.Fprintf(w, "# TYPE algoscene_run_state gauge\n")
	for _, st := range runStates {
		v := 0
		if status.State == st {
			v = 1
		}
		fmt.Fprintf(w, "algoscene_run_state{%s,state=%q} %d\n", labels, st, v)
	}
}

package journal

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingStore struct {
	mu    sync.Mutex
	names []string
	runs  []string
	err   error
}

func (s *recordingStore) Append(_ time.Time, _, name, _ string, _ map[string]any, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	s.runs = append(s.runs, runID)
	return s.err
}

func TestEmitRejectsUnknownEvent(t *testing.T) {
	if _, err := Emit("info", "puzzle.solved", "", nil); err == nil {
		t.Fatal("expected unknown event to be rejected")
	}
}

func TestEmitPersistsWithRunID(t *testing.T) {
	Clear()
	store := &recordingStore{}
	SetStore(store)
	SetRunID("run-1")
	defer func() {
		SetStore(nil)
		SetRunID("")
	}()

	if _, err := Emit("info", "script.started", "", nil); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(store.names) != 1 || store.names[0] != "script.started" {
		t.Fatalf("unexpected persisted names %v", store.names)
	}
	if store.runs[0] != "run-1" {
		t.Fatalf("expected run id to be persisted, got %q", store.runs[0])
	}
	snap := Snapshot()
	if snap[len(snap)-1].RunID != "run-1" {
		t.Fatalf("expected run id on buffered event")
	}
}

func TestEmitStoreFailureLoggedOnce(t *testing.T) {
	Clear()
	store := &recordingStore{err: errors.New("db down")}
	SetStore(store)
	defer SetStore(nil)

	for i := 0; i < 3; i++ {
		if _, err := Emit("info", "beat.completed", "", nil); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}

	systemErrors := 0
	for _, e := range Snapshot() {
		if e.Name == "system.error" {
			systemErrors++
		}
	}
	if systemErrors != 1 {
		t.Fatalf("expected exactly one system.error, got %d", systemErrors)
	}
}

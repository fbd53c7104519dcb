package journal

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

var buffer = NewRingBuffer(256)

// Store persists journal events outside the process.
type Store interface {
	Append(ts time.Time, level, name, msg string, fields map[string]any, runID string) error
}

var (
	store         Store
	storeMu       sync.RWMutex
	storeErrorSet bool
	runID         string
)

// SetStore sets the persistent store for journal events. Nil disables persistence.
func SetStore(s Store) {
	storeMu.Lock()
	store = s
	storeErrorSet = false
	storeMu.Unlock()
}

// SetRunID stamps subsequent events with a run identifier.
func SetRunID(id string) {
	storeMu.Lock()
	runID = id
	storeMu.Unlock()
}

type Event struct {
	Timestamp string         `json:"ts"`
	Level     string         `json:"level"`
	Name      string         `json:"event"`
	Message   string         `json:"msg,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Emit records a journal event and returns its JSON encoding.
func Emit(level, name, msg string, fields map[string]any) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	storeMu.RLock()
	s := store
	id := runID
	errorLogged := storeErrorSet
	storeMu.RUnlock()

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		RunID:     id,
		Fields:    fields,
	}

	buffer.Add(e)
	broadcast(e)

	if s != nil {
		if err := s.Append(ts, level, name, msg, fields, id); err != nil && !errorLogged {
			storeMu.Lock()
			first := !storeErrorSet
			storeErrorSet = true
			storeMu.Unlock()
			if first {
				// Added straight to the buffer so a failing store cannot recurse.
				buffer.Add(Event{
					Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
					Level:     "error",
					Name:      "system.error",
					Message:   "journal store append failed",
					RunID:     id,
					Fields:    map[string]any{"error": err.Error()},
				})
			}
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal journal event: %w", err)
	}
	return b, nil
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// TotalCount returns the number of events emitted since startup.
func TotalCount() uint64 {
	return buffer.Total()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}

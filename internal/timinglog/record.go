// Package timinglog stores per-beat timing records: how long a beat was
// expected to take, how long it actually took, and the difference.
package timinglog

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Record is one executed beat.
type Record struct {
	RunID    string    `json:"run_id"`
	Key      string    `json:"key"`
	BeatName string    `json:"beat_name"`
	Action   string    `json:"action"`
	Mode     string    `json:"mode"`
	Act      int       `json:"act"`
	Shot     int       `json:"shot"`
	Beat     int       `json:"beat"`
	Expected float64   `json:"expected"`
	Actual   float64   `json:"actual"`
	Variance float64   `json:"variance"`
	At       time.Time `json:"at"`
}

// Sink receives timing records in execution order.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}

// Reader returns the records of one run in execution order.
type Reader interface {
	Records(ctx context.Context, runID string) ([]Record, error)
}

// MemorySink keeps records in memory.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

func (m *MemorySink) Append(_ context.Context, rec Record) error {
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return nil
}

// All returns every record appended so far.
func (m *MemorySink) All() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

func (m *MemorySink) Records(_ context.Context, runID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if runID == "" || r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Tee appends every record to each sink, continuing past failures.
func Tee(sinks ...Sink) Sink {
	return teeSink(sinks)
}

type teeSink []Sink

func (t teeSink) Append(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range t {
		if err := s.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Summary aggregates the records of one run.
type Summary struct {
	Beats         int     `json:"beats"`
	TotalExpected float64 `json:"total_expected"`
	TotalActual   float64 `json:"total_actual"`
	// WorstKey is the beat that overran its expected duration the most.
	WorstKey     string  `json:"worst_key,omitempty"`
	WorstOverrun float64 `json:"worst_overrun"`
}

// Summarize computes a Summary.
func Summarize(records []Record) Summary {
	var s Summary
	for _, r := range records {
		s.Beats++
		s.TotalExpected += r.Expected
		s.TotalActual += r.Actual
		if r.Variance > s.WorstOverrun {
			s.WorstOverrun = r.Variance
			s.WorstKey = r.Key
		}
	}
	return s
}

// Slowest returns up to n records ordered by descending variance.
func Slowest(records []Record, n int) []Record {
	sorted := append([]Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Variance > sorted[j].Variance })
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

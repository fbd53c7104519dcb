package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Source is a pull-based, non-restartable sequence of events.
// Next returns io.EOF once the sequence is exhausted.
type Source interface {
	Next(ctx context.Context) (Event, error)
}

// SourceFunc adapts a generator function to Source.
type SourceFunc func(ctx context.Context) (Event, error)

func (f SourceFunc) Next(ctx context.Context) (Event, error) { return f(ctx) }

// SliceSource yields the given events in order.
func SliceSource(events ...Event) Source {
	i := 0
	return SourceFunc(func(ctx context.Context) (Event, error) {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		if i >= len(events) {
			return Event{}, io.EOF
		}
		ev := events[i]
		i++
		return ev, nil
	})
}

// Item is one value delivered through a ChanSource.
type Item struct {
	Event Event
	Err   error
}

// ChanSource reads events produced on another goroutine. A closed channel
// ends the stream; an Item carrying Err fails it.
type ChanSource struct {
	ch <-chan Item
}

func NewChanSource(ch <-chan Item) *ChanSource {
	return &ChanSource{ch: ch}
}

func (s *ChanSource) Next(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case item, ok := <-s.ch:
		if !ok {
			return Event{}, io.EOF
		}
		if item.Err != nil {
			return Event{}, item.Err
		}
		return item.Event, nil
	}
}

// JSONLinesSource decodes one event per line, reading lazily.
type JSONLinesSource struct {
	scanner *bufio.Scanner
	line    int
}

func NewJSONLinesSource(r io.Reader) *JSONLinesSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &JSONLinesSource{scanner: sc}
}

func (s *JSONLinesSource) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return Event{}, fmt.Errorf("read events line %d: %w", s.line+1, err)
			}
			return Event{}, io.EOF
		}
		s.line++
		raw := s.scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		ev := Event{Index: Unindexed}
		if err := json.Unmarshal(raw, &ev); err != nil {
			return Event{}, fmt.Errorf("decode events line %d: %w", s.line, err)
		}
		if ev.Payload == nil {
			ev.Payload = NewPayload()
		}
		return ev, nil
	}
}

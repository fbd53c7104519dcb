package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
)

// Indexer assigns contiguous zero-based indices to events pulled from a Source.
// It holds no more than the event being returned and never reorders.
// An Indexer is not safe for concurrent use.
type Indexer struct {
	src  Source
	next int
	err  error
}

func NewIndexer(src Source) *Indexer {
	return &Indexer{src: src}
}

// Next returns the next event with Index set to its position in the stream.
// Once the source ends or fails, every later call returns the same error.
func (ix *Indexer) Next(ctx context.Context) (Event, error) {
	if ix.err != nil {
		return Event{}, ix.err
	}
	ev, err := ix.src.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			ix.err = io.EOF
		} else {
			ix.err = fmt.Errorf("event source failed after %d events: %w", ix.next, err)
		}
		return Event{}, ix.err
	}
	ev.Index = ix.next
	ix.next++
	return ev, nil
}

// Count returns how many events have been yielded.
func (ix *Indexer) Count() int {
	return ix.next
}

// All ranges over the remaining events. A source failure is yielded once as
// the final pair; a clean end yields nothing further.
func (ix *Indexer) All(ctx context.Context) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := ix.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Event{}, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

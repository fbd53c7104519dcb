// Package orchestrator walks a script Act -> Shot -> Beat, pacing each beat
// with the timing model and recording how long it really took.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/AaronLay10/algoscene/internal/fault"
	"github.com/AaronLay10/algoscene/internal/journal"
	"github.com/AaronLay10/algoscene/internal/logging"
	"github.com/AaronLay10/algoscene/internal/script"
	"github.com/AaronLay10/algoscene/internal/stream"
	"github.com/AaronLay10/algoscene/internal/timing"
	"github.com/AaronLay10/algoscene/internal/timinglog"
)

// ActionFeed is the beat action that drains the run's event stream into
// the scene before the beat's duration elapses. args.count limits how many
// events are fed; zero or absent feeds the rest of the stream.
const ActionFeed = "feed"

// BeatExecutor runs one beat. scene.Engine implements it.
type BeatExecutor interface {
	ExecuteBeat(ctx context.Context, beat script.Beat, duration float64) error
}

// EventHandler consumes indexed algorithm events. scene.Engine implements it.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev stream.Event) error
}

// VoiceOver measures narration. A nil VoiceOver disables widening.
type VoiceOver interface {
	Measure(ctx context.Context, text string) (time.Duration, error)
}

// Options configure a Runtime.
type Options struct {
	RunID     string
	Timing    timing.Model
	VoiceOver VoiceOver
	Sink      timinglog.Sink
	Clock     Clock
	// Logger should already carry the run_id attribute.
	Logger *slog.Logger
	// Events is drained by feed beats into Handler.
	Events  *stream.Indexer
	Handler EventHandler
}

// Runtime executes one script once.
type Runtime struct {
	script   *script.Script
	executor BeatExecutor
	opts     Options
	logger   *slog.Logger

	mu     sync.RWMutex
	status Status
}

// NewRuntime creates a runtime for s. The script is expected to be validated.
func NewRuntime(s *script.Script, executor BeatExecutor, opts Options) *Runtime {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Timing.Base == nil {
		opts.Timing = timing.Default()
	}
	if opts.Sink == nil {
		opts.Sink = &timinglog.MemorySink{}
	}
	logger := logging.NewComponentLogger(opts.Logger, "orchestrator")
	return &Runtime{
		script:   s,
		executor: executor,
		opts:     opts,
		logger:   logger,
		status: Status{
			RunID:      opts.RunID,
			State:      RunStateNotStarted,
			BeatsTotal: s.BeatCount(),
		},
	}
}

// Status returns a snapshot of the run's progress. Safe for concurrent use.
func (r *Runtime) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Runtime) setStatus(update func(*Status)) {
	r.mu.Lock()
	update(&r.status)
	r.mu.Unlock()
}

// Run walks every beat depth-first. The first failing beat halts the run;
// the returned error carries its act/shot/beat position. Run may only be
// called once.
func (r *Runtime) Run(ctx context.Context) error {
	if st := r.Status(); st.State != RunStateNotStarted {
		return fmt.Errorf("run already %s", st.State)
	}
	r.setStatus(func(s *Status) { s.State = RunStateRunning })
	r.emit("info", "script.started", "script started", map[string]any{
		"title": r.script.Title,
		"beats": r.script.BeatCount(),
		"mode":  string(r.opts.Timing.Mode),
	})
	r.logger.Info("script started", slog.Int("beats", r.script.BeatCount()))

	for pos, beat := range r.script.Beats() {
		if err := ctx.Err(); err != nil {
			return r.fail(pos, err)
		}
		r.setStatus(func(s *Status) { s.Position = pos })
		if err := r.runBeat(ctx, pos, beat); err != nil {
			return r.fail(pos, err)
		}
		r.setStatus(func(s *Status) { s.BeatsDone++ })
	}

	r.setStatus(func(s *Status) { s.State = RunStateCompleted })
	r.emit("info", "script.completed", "script completed", map[string]any{
		"beats": r.script.BeatCount(),
	})
	r.logger.Info("script completed")
	return nil
}

func (r *Runtime) runBeat(ctx context.Context, pos script.Position, beat script.Beat) error {
	expected := r.beatDuration(ctx, beat)
	fields := map[string]any{
		"beat":     pos.Key(),
		"action":   beat.Action,
		"expected": expected,
	}
	r.emit("info", "beat.started", "beat started", fields)
	for _, name := range slices.Sorted(maps.Keys(beat.Bookmarks)) {
		r.emit("info", "beat.bookmark", "bookmark", map[string]any{
			"beat":     pos.Key(),
			"bookmark": name,
			"at":       beat.Bookmarks[name],
		})
	}

	clock := r.opts.Clock
	start := clock.Now()
	var err error
	if beat.Action == ActionFeed && r.opts.Events != nil {
		err = r.feedBeat(ctx, beat)
	} else {
		err = r.executor.ExecuteBeat(ctx, beat, expected)
	}
	if err != nil {
		return err
	}

	if remaining := duration(expected) - clock.Now().Sub(start); remaining > 0 {
		if err := clock.Sleep(ctx, remaining); err != nil {
			return err
		}
	}
	actual := seconds(clock.Now().Sub(start))

	rec := timinglog.Record{
		RunID:    r.opts.RunID,
		Key:      pos.Key(),
		BeatName: beat.Label(),
		Action:   beat.Action,
		Mode:     string(r.opts.Timing.Mode),
		Act:      pos.Act,
		Shot:     pos.Shot,
		Beat:     pos.Beat,
		Expected: expected,
		Actual:   actual,
		Variance: actual - expected,
		At:       start,
	}
	if err := r.opts.Sink.Append(ctx, rec); err != nil {
		r.logger.Warn("timing record not stored",
			slog.String(logging.FieldBeat, pos.Key()), logging.Error(err))
	}
	r.emit("info", "beat.completed", "beat completed", map[string]any{
		"beat":     pos.Key(),
		"expected": expected,
		"actual":   actual,
		"variance": rec.Variance,
	})
	return nil
}

// beatDuration applies the timing model, the beat's bounds, then narration
// widening.
func (r *Runtime) beatDuration(ctx context.Context, beat script.Beat) float64 {
	d := r.opts.Timing.DurationFor(beat.Action)
	d = timing.Clamp(d, beat.MinDuration, beat.MaxDuration)
	if beat.Narration == "" || r.opts.VoiceOver == nil {
		return d
	}
	spoken, err := r.opts.VoiceOver.Measure(ctx, beat.Narration)
	if err != nil {
		r.logger.Warn("narration not measured; keeping model duration", logging.Error(err))
		return d
	}
	if s := seconds(spoken); s > d {
		return s
	}
	return d
}

func (r *Runtime) feedBeat(ctx context.Context, beat script.Beat) error {
	limit := 0
	switch n := beat.Args["count"].(type) {
	case int:
		limit = n
	case float64:
		limit = int(n)
	}
	_, err := Feed(ctx, r.opts.Events, r.opts.Handler, limit)
	return err
}

func (r *Runtime) fail(pos script.Position, err error) error {
	wrapped := locate(pos, err)
	r.setStatus(func(s *Status) {
		s.State = RunStateFailed
		s.Error = wrapped.Error()
	})
	r.emit("error", "beat.failed", "beat failed", map[string]any{
		"beat":  pos.Key(),
		"error": err.Error(),
	})
	r.emit("error", "script.failed", "script halted", map[string]any{"beat": pos.Key()})
	r.logger.Error("script halted",
		slog.String(logging.FieldBeat, pos.Key()), logging.Error(err))
	return wrapped
}

// locate tags err with the beat position. Cancellation stays a plain
// context error so callers can tell it apart from beat failures.
func locate(pos script.Position, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("run stopped at beat %s: %w", pos.Key(), err)
	}
	cat, ok := fault.CategoryOf(err)
	if !ok {
		cat = fault.CategoryExecution
	}
	return fault.Wrap(cat, err, "script halted").
		With("act", pos.Act).
		With("shot", pos.Shot).
		With("beat", pos.Beat).
		With("beat_key", pos.Key())
}

func (r *Runtime) emit(level, name, msg string, fields map[string]any) {
	journal.Emit(level, name, msg, fields)
}

// Feed drains up to limit indexed events (all when limit <= 0) from ix into
// handler. It returns how many events were handled. The end of the stream is
// not an error.
func Feed(ctx context.Context, ix *stream.Indexer, handler EventHandler, limit int) (int, error) {
	if handler == nil {
		return 0, errors.New("feed: no event handler")
	}
	handled := 0
	for ev, err := range ix.All(ctx) {
		if err != nil {
			journal.Emit("error", "stream.error", "event source failed", map[string]any{
				"after": ix.Count(),
				"error": err.Error(),
			})
			return handled, err
		}
		journal.Emit("debug", "stream.event", "event", map[string]any{
			"event_type":  ev.Type,
			"event_index": ev.Index,
		})
		if err := handler.HandleEvent(ctx, ev); err != nil {
			return handled, err
		}
		handled++
		if limit > 0 && handled >= limit {
			return handled, nil
		}
	}
	journal.Emit("info", "stream.ended", "event stream ended", map[string]any{"events": ix.Count()})
	return handled, nil
}

package widget

import (
	"context"
	"fmt"
	"sync"

	"github.com/AaronLay10/algoscene/internal/journal"
)

// TypeRecorder is the widget type of Recorder.
const TypeRecorder = "recorder"

// Call is one recorded action invocation.
type Call struct {
	Widget string
	Action string
	Params Params
}

// CallLog collects calls across widgets in invocation order.
type CallLog struct {
	mu    sync.Mutex
	calls []Call
}

func (l *CallLog) add(c Call) {
	l.mu.Lock()
	l.calls = append(l.calls, c)
	l.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (l *CallLog) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Call(nil), l.calls...)
}

// Recorder is a widget that performs no drawing. Each action call is
// recorded, journaled, and reflected in its state. It backs dry runs and
// tests.
type Recorder struct {
	*Base
	log *CallLog
}

// NewRecorder builds a recorder answering the given actions. A nil log is
// replaced by a private one.
func NewRecorder(name string, log *CallLog, actions ...string) *Recorder {
	if log == nil {
		log = &CallLog{}
	}
	r := &Recorder{Base: NewBase(name), log: log}
	for _, a := range actions {
		r.Handle(a, r.record(a))
	}
	return r
}

// Log returns the recorder's call log.
func (r *Recorder) Log() *CallLog { return r.log }

func (r *Recorder) record(action string) ActionFunc {
	return func(_ context.Context, params Params) error {
		r.log.add(Call{Widget: r.Name(), Action: action, Params: params})
		r.SetState("last_action", action)
		for k, v := range params {
			r.SetState(k, v)
		}
		journal.Emit("info", "widget.action", "widget action", map[string]any{
			"widget": r.Name(),
			"action": action,
			"params": map[string]any(params),
		})
		return nil
	}
}

// newRecorderFromParams reads the action list from params["actions"].
func newRecorderFromParams(name string, params map[string]any) (Widget, error) {
	raw, ok := params["actions"]
	if !ok {
		return NewRecorder(name, nil), nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("recorder %q: actions must be a list, got %T", name, raw)
	}
	actions := make([]string, 0, len(list))
	for _, a := range list {
		s, ok := a.(string)
		if !ok {
			return nil, fmt.Errorf("recorder %q: action name %v is not a string", name, a)
		}
		actions = append(actions, s)
	}
	return NewRecorder(name, nil, actions...), nil
}

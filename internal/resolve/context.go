package resolve

import (
	"sync"

	"github.com/AaronLay10/algoscene/internal/stream"
	"github.com/AaronLay10/algoscene/internal/widget"
)

// Context bundles the scopes visible to one resolution. A nil field means
// the scope is absent. Contexts are values; With* return modified copies.
type Context struct {
	Event   *stream.Event
	Config  any
	Timing  map[string]any
	Widgets map[string]widget.Widget
}

func (c Context) WithEvent(ev *stream.Event) Context {
	c.Event = ev
	return c
}

func (c Context) WithConfig(cfg any) Context {
	c.Config = cfg
	return c
}

func (c Context) WithTiming(timing map[string]any) Context {
	c.Timing = timing
	return c
}

func (c Context) WithWidgets(widgets map[string]widget.Widget) Context {
	c.Widgets = widgets
	return c
}

// Stack records the context active for the action currently executing, so
// widgets resolving deferred values see the scope of their caller. Each scene
// owns its own Stack.
type Stack struct {
	mu     sync.Mutex
	frames []Context
}

// Activate pushes c and returns a func restoring the previous frame.
// Restore funcs must run in reverse activation order.
func (s *Stack) Activate(c Context) (restore func()) {
	s.mu.Lock()
	s.frames = append(s.frames, c)
	depth := len(s.frames)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if len(s.frames) >= depth {
			s.frames = s.frames[:depth-1]
		}
	}
}

// Current returns the innermost active context.
func (s *Stack) Current() (Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Context{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Depth returns the number of active frames.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

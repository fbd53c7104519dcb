package widget

import (
	"context"
	"sync"
)

// Base implements the bookkeeping shared by concrete widgets: a name, a
// visibility flag, an action table and a state map.
type Base struct {
	name    string
	mu      sync.RWMutex
	visible bool
	state   map[string]any
	actions map[string]ActionFunc
}

// NewBase returns a hidden widget with no actions.
func NewBase(name string) *Base {
	return &Base{
		name:    name,
		state:   make(map[string]any),
		actions: make(map[string]ActionFunc),
	}
}

func (b *Base) Name() string { return b.name }

// Handle adds an action to the table. Call it only while constructing the widget.
func (b *Base) Handle(action string, fn ActionFunc) {
	b.actions[action] = fn
}

func (b *Base) Actions() map[string]ActionFunc { return b.actions }

func (b *Base) Show(context.Context) error {
	b.mu.Lock()
	b.visible = true
	b.mu.Unlock()
	return nil
}

func (b *Base) Hide(context.Context) error {
	b.mu.Lock()
	b.visible = false
	b.mu.Unlock()
	return nil
}

// Visible reports whether the widget is currently shown.
func (b *Base) Visible() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.visible
}

// SetState stores one state entry.
func (b *Base) SetState(key string, value any) {
	b.mu.Lock()
	b.state[key] = value
	b.mu.Unlock()
}

// State returns a copy of the widget state, including its visibility.
func (b *Base) State() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.state)+1)
	for k, v := range b.state {
		out[k] = v
	}
	out["visible"] = b.visible
	return out
}

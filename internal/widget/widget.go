// Package widget defines the name-addressed visual objects a scene drives.
//
// The engine never inspects a widget's internals. Each widget publishes a
// table of named actions when it is constructed, and the engine dispatches
// to that table by name.
package widget

import (
	"context"
	"fmt"
	"strconv"
)

// Params are the resolved keyword parameters of one action call.
type Params map[string]any

// String returns params[key] formatted as a string, or def when absent.
func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Float returns params[key] as a float64, or def when absent or non-numeric.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// ActionFunc is one named widget action.
type ActionFunc func(ctx context.Context, params Params) error

// Widget is the capability set the scene engine relies on.
type Widget interface {
	Name() string
	Show(ctx context.Context) error
	Hide(ctx context.Context) error
	// Actions returns the widget's action table. The table is fixed at
	// construction.
	Actions() map[string]ActionFunc
}

// Stateful widgets expose live state to widget_state templates.
type Stateful interface {
	State() map[string]any
}

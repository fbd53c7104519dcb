package resolve

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/algoscene/internal/fault"
)

// Built-in resolver names.
const (
	EventData   = "event_data"
	ConfigValue = "config_value"
	TimingValue = "timing_value"
	WidgetState = "widget_state"
)

// Func interprets a parsed template against c. Misses are not errors: a
// Func reports them through the Result kind.
type Func func(t Template, c Context) (Result, error)

// Registry maps resolver names to resolver funcs. Names are looked up at
// resolution time, so resolvers may be registered after templates are loaded.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns a registry holding the four built-in resolvers.
func NewRegistry() *Registry {
	return &Registry{funcs: map[string]Func{
		EventData:   resolveEventData,
		ConfigValue: resolveConfigValue,
		TimingValue: resolveTimingValue,
		WidgetState: resolveWidgetState,
	}}
}

// Register adds a resolver. Names already in use are rejected.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" || fn == nil {
		return fault.Newf(fault.CategoryRegistry, "resolver registration needs a name and a func")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return fault.Newf(fault.CategoryRegistry, "resolver %q is already registered", name)
	}
	r.funcs[name] = fn
	return nil
}

// Lookup returns the resolver registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names lists registered resolvers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func resolveEventData(t Template, c Context) (Result, error) {
	if c.Event == nil {
		return Defer(t.Text), nil
	}
	v, ok := Walk(c.Event, t.Path)
	if !ok {
		return Missing(), nil
	}
	return Resolved(v), nil
}

func resolveConfigValue(t Template, c Context) (Result, error) {
	if c.Config != nil {
		if v, ok := Walk(c.Config, t.Path); ok {
			return Resolved(v), nil
		}
	}
	if t.HasDefault {
		return Resolved(scalar(t.Default)), nil
	}
	return Missing(), nil
}

func resolveTimingValue(t Template, c Context) (Result, error) {
	def := 1.0
	if t.HasDefault {
		f, err := strconv.ParseFloat(strings.TrimSpace(t.Default), 64)
		if err != nil {
			return Result{}, syntaxError(t.Text, fmt.Sprintf("timing default %q is not a number", t.Default))
		}
		def = f
	}
	if c.Timing != nil {
		if v, ok := Walk(c.Timing, t.Path); ok {
			return Resolved(v), nil
		}
	}
	return Resolved(def), nil
}

// resolveWidgetState never reads state eagerly; it hands back a fresh
// template naming the live state.
func resolveWidgetState(t Template, _ Context) (Result, error) {
	return Defer("${" + WidgetState + ":" + t.PathString() + "}"), nil
}

// scalar decodes a template default the way a YAML document would, so 42
// becomes an int and true a bool.
func scalar(text string) any {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}
	var v any
	if err := yaml.Unmarshal([]byte(trimmed), &v); err != nil {
		return text
	}
	switch v.(type) {
	case map[string]any, []any:
		return text
	}
	return v
}

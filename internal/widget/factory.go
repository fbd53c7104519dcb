package widget

import (
	"fmt"
	"sort"
	"sync"

	"github.com/AaronLay10/algoscene/internal/fault"
)

// Spec declares one widget of a scene: its type and constructor params.
type Spec struct {
	Type   string         `yaml:"type" json:"type"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// Constructor builds a widget named name from its declared params.
type Constructor func(name string, params map[string]any) (Widget, error)

// Factory maps widget type names to constructors.
type Factory struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewFactory returns a factory preloaded with the recorder type.
func NewFactory() *Factory {
	f := &Factory{ctors: make(map[string]Constructor)}
	f.ctors[TypeRecorder] = newRecorderFromParams
	return f
}

// Register adds a widget type. Registering an existing type replaces it.
func (f *Factory) Register(typeName string, ctor Constructor) error {
	if typeName == "" {
		return fault.Newf(fault.CategoryRegistry, "widget type name is empty")
	}
	if ctor == nil {
		return fault.Newf(fault.CategoryRegistry, "widget type %q has no constructor", typeName)
	}
	f.mu.Lock()
	f.ctors[typeName] = ctor
	f.mu.Unlock()
	return nil
}

// Has reports whether typeName is registered.
func (f *Factory) Has(typeName string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.ctors[typeName]
	return ok
}

// Types lists the registered type names, sorted.
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.ctors))
	for n := range f.ctors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build constructs the widget declared by spec.
func (f *Factory) Build(name string, spec Spec) (Widget, error) {
	f.mu.RLock()
	ctor, ok := f.ctors[spec.Type]
	f.mu.RUnlock()
	if !ok {
		return nil, fault.New(fault.CategoryRegistry,
			fmt.Sprintf("unknown widget type %q", spec.Type),
			"register the widget type before building the scene").
			With("widget", name)
	}
	w, err := ctor(name, spec.Params)
	if err != nil {
		return nil, fault.Wrap(fault.CategoryExecution, err, "construct widget").
			With("widget", name).With("type", spec.Type)
	}
	if w == nil {
		return nil, fault.Newf(fault.CategoryExecution, "constructor for widget type %q returned nil", spec.Type).
			With("widget", name)
	}
	return w, nil
}

// Package scene owns a scene's widgets and binding table, and dispatches
// algorithm events and script beats to widget actions.
package scene

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/algoscene/internal/fault"
)

// DefaultOrder is the order of a binding that does not declare one.
const DefaultOrder = 1

// Binding maps one event type to one widget action.
type Binding struct {
	Target    string         `yaml:"target" json:"target"`
	Action    string         `yaml:"action" json:"action"`
	Params    map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	Order     int            `yaml:"order" json:"order"`
	Condition string         `yaml:"condition,omitempty" json:"condition,omitempty"`
}

type rawBinding Binding

// UnmarshalYAML applies DefaultOrder when order is omitted.
func (b *Binding) UnmarshalYAML(node *yaml.Node) error {
	raw := rawBinding{Order: DefaultOrder}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*b = Binding(raw)
	return nil
}

// UnmarshalJSON applies DefaultOrder when order is omitted.
func (b *Binding) UnmarshalJSON(data []byte) error {
	raw := rawBinding{Order: DefaultOrder}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Binding(raw)
	return nil
}

func (b Binding) String() string {
	return fmt.Sprintf("%s.%s(order=%d)", b.Target, b.Action, b.Order)
}

// Table groups bindings by event type. Each list is kept in execution order:
// ascending Order, ties in declaration order.
type Table struct {
	mu      sync.RWMutex
	entries map[string][]Binding
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[string][]Binding)}
}

// Register stores the bindings for eventType. A second registration for the
// same event type is a RegistryError unless replace is set.
func (t *Table) Register(eventType string, bindings []Binding, replace bool) error {
	if eventType == "" {
		return fault.Newf(fault.CategoryRegistry, "binding event type is empty")
	}
	for i, b := range bindings {
		if b.Target == "" || b.Action == "" {
			return fault.New(fault.CategoryRegistry,
				fmt.Sprintf("binding %d for %q needs a target and an action", i, eventType),
				"set both target and action").
				With("event_type", eventType)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[eventType]; exists && !replace {
		return fault.New(fault.CategoryRegistry,
			fmt.Sprintf("bindings for event type %q are already registered", eventType),
			"merge the binding lists or register with replace").
			With("event_type", eventType)
	}
	sorted := append([]Binding(nil), bindings...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	t.entries[eventType] = sorted
	return nil
}

// Lookup returns the bindings for eventType in execution order.
func (t *Table) Lookup(eventType string) ([]Binding, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.entries[eventType]
	return b, ok
}

// EventTypes lists the registered event types, sorted.
func (t *Table) EventTypes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

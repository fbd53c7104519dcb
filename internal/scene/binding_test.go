package scene

import (
	"errors"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/algoscene/internal/fault"
)

func TestRegisterSortsStably(t *testing.T) {
	table := NewTable()
	err := table.Register("visit", []Binding{
		{Target: "w", Action: "b1", Order: 2},
		{Target: "w", Action: "b2", Order: 1},
		{Target: "w", Action: "b3", Order: 1},
	}, false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, ok := table.Lookup("visit")
	if !ok {
		t.Fatal("expected bindings for visit")
	}
	want := []string{"b2", "b3", "b1"}
	for i, b := range got {
		if b.Action != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestRegisterDuplicateEventType(t *testing.T) {
	table := NewTable()
	first := []Binding{{Target: "grid", Action: "highlight_cell", Order: 1}}
	if err := table.Register("visit", first, false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := table.Register("visit", first, false)
	if !errors.Is(err, fault.ErrRegistry) {
		t.Fatalf("expected registry error, got %v", err)
	}
	replacement := []Binding{{Target: "queue", Action: "pop", Order: 1}}
	if err := table.Register("visit", replacement, true); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ := table.Lookup("visit")
	if len(got) != 1 || got[0].Target != "queue" {
		t.Fatalf("replace did not take effect: %v", got)
	}
}

func TestRegisterRejectsIncompleteBinding(t *testing.T) {
	err := NewTable().Register("visit", []Binding{{Action: "pop"}}, false)
	if !errors.Is(err, fault.ErrRegistry) {
		t.Fatalf("expected registry error, got %v", err)
	}
}

func TestBindingOrderDefaultsToOne(t *testing.T) {
	var doc struct {
		Bindings []Binding `yaml:"bindings"`
	}
	src := `bindings:
  - target: grid
    action: highlight_cell
  - target: queue
    action: add_element
    order: 0
`
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc.Bindings[0].Order != DefaultOrder {
		t.Errorf("expected default order 1, got %d", doc.Bindings[0].Order)
	}
	if doc.Bindings[1].Order != 0 {
		t.Errorf("expected explicit order 0, got %d", doc.Bindings[1].Order)
	}
}

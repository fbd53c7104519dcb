package widget

import (
	"context"
	"errors"
	"testing"

	"github.com/AaronLay10/algoscene/internal/fault"
)

func TestRecorderRecordsCallsInOrder(t *testing.T) {
	log := &CallLog{}
	queue := NewRecorder("queue", log, "add_element")
	grid := NewRecorder("grid", log, "highlight_cell")

	ctx := context.Background()
	if err := queue.Actions()["add_element"](ctx, Params{"node": []any{2, 3}}); err != nil {
		t.Fatalf("add_element: %v", err)
	}
	if err := grid.Actions()["highlight_cell"](ctx, Params{"color": "blue"}); err != nil {
		t.Fatalf("highlight_cell: %v", err)
	}

	calls := log.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Widget != "queue" || calls[1].Widget != "grid" {
		t.Errorf("unexpected order: %+v", calls)
	}
	if grid.State()["color"] != "blue" || grid.State()["last_action"] != "highlight_cell" {
		t.Errorf("state not updated: %v", grid.State())
	}
}

func TestBaseVisibility(t *testing.T) {
	b := NewBase("title")
	ctx := context.Background()
	if b.Visible() {
		t.Fatal("new widget should start hidden")
	}
	_ = b.Show(ctx)
	if !b.Visible() || b.State()["visible"] != true {
		t.Fatal("expected widget to be visible")
	}
	_ = b.Hide(ctx)
	if b.Visible() {
		t.Fatal("expected widget to be hidden")
	}
}

func TestFactoryBuild(t *testing.T) {
	f := NewFactory()
	w, err := f.Build("queue", Spec{Type: TypeRecorder, Params: map[string]any{
		"actions": []any{"add_element", "pop"},
	}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := w.Actions()["pop"]; !ok {
		t.Errorf("expected pop action, got %v", w.Actions())
	}

	_, err = f.Build("ghost", Spec{Type: "hologram"})
	if !errors.Is(err, fault.ErrRegistry) {
		t.Fatalf("expected registry error for unknown type, got %v", err)
	}

	_, err = f.Build("bad", Spec{Type: TypeRecorder, Params: map[string]any{"actions": "pop"}})
	if !errors.Is(err, fault.ErrExecution) {
		t.Fatalf("expected construction failure, got %v", err)
	}
}

func TestFactoryRegister(t *testing.T) {
	f := NewFactory()
	if err := f.Register("", nil); !errors.Is(err, fault.ErrRegistry) {
		t.Fatalf("expected registry error, got %v", err)
	}
	err := f.Register("label", func(name string, _ map[string]any) (Widget, error) {
		return NewBase(name), nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !f.Has("label") {
		t.Fatal("expected label type registered")
	}
	if got := f.Types(); len(got) != 2 || got[0] != "label" || got[1] != TypeRecorder {
		t.Fatalf("unexpected types %v", got)
	}
}

func TestParamsAccessors(t *testing.T) {
	p := Params{"color": "blue", "size": 3, "ratio": "0.5"}
	if p.String("color", "") != "blue" || p.String("missing", "red") != "red" || p.String("size", "") != "3" {
		t.Errorf("unexpected String results")
	}
	if p.Float("size", 0) != 3 || p.Float("ratio", 0) != 0.5 || p.Float("color", 9) != 9 {
		t.Errorf("unexpected Float results")
	}
}

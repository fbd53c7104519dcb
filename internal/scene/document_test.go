package scene

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/AaronLay10/algoscene/internal/fault"
	"github.com/AaronLay10/algoscene/internal/script"
	"github.com/AaronLay10/algoscene/internal/widget"
)

const sceneDoc = `version: 1
widgets:
  grid:
    type: recorder
    params:
      actions: [highlight]
  queue:
    type: recorder
    params:
      actions: [enqueue]
bindings:
  visit:
    - target: grid
      action: highlight
      params:
        cell: "${event_data:cell}"
    - target: queue
      action: enqueue
      order: 0
`

func writeScene(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDocumentBuildsOrderedTable(t *testing.T) {
	doc, err := LoadDocument(writeScene(t, "scene.yaml", sceneDoc))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(doc.Widgets) != 2 || doc.Widgets["grid"].Type != widget.TypeRecorder {
		t.Fatalf("widgets = %+v", doc.Widgets)
	}
	table, err := doc.Table()
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	bindings, ok := table.Lookup("visit")
	if !ok || len(bindings) != 2 {
		t.Fatalf("visit bindings = %v", bindings)
	}
	if bindings[0].Target != "queue" || bindings[1].Order != DefaultOrder {
		t.Fatalf("bindings not ordered: %v", bindings)
	}
	if errs := doc.Check(widget.NewFactory()); len(errs) != 0 {
		t.Fatalf("Check: %v", errs)
	}
}

func TestLoadDocumentJSONAndVersion(t *testing.T) {
	doc, err := LoadDocument(writeScene(t, "scene.json",
		`{"version":1,"widgets":{"w":{"type":"recorder"}},"bindings":{}}`))
	if err != nil || len(doc.Widgets) != 1 {
		t.Fatalf("json scene: %v, %v", doc, err)
	}
	if _, err := LoadDocument(writeScene(t, "scene.yaml", "version: 2\n")); err == nil {
		t.Fatal("expected unsupported version error")
	}
}

func TestCheckReportsUnknownTypesAndTargets(t *testing.T) {
	doc := &Document{
		Version: 1,
		Widgets: map[string]widget.Spec{"grid": {Type: "hologram"}},
		Bindings: map[string][]Binding{
			"visit": {{Target: "ghost", Action: "highlight", Order: 1}},
		},
	}
	errs := doc.Check(widget.NewFactory())
	if len(errs) != 2 {
		t.Fatalf("Check returned %d errors, want 2: %v", len(errs), errs)
	}
	for _, err := range errs {
		if !errors.Is(err, fault.ErrRegistry) {
			t.Errorf("error %v is not a registry error", err)
		}
	}
}

func TestCheckBeats(t *testing.T) {
	doc := &Document{Version: 1, Widgets: map[string]widget.Spec{"grid": {Type: widget.TypeRecorder}}}
	s := &script.Script{Version: 1, Acts: []script.Act{{Shots: []script.Shot{{Beats: []script.Beat{
		{Action: "show"},
		{Action: "grid.highlight"},
		{Action: "feed"},
		{Action: "sparkle"},
		{Action: "queue.enqueue"},
	}}}}}}

	errs := doc.CheckBeats(s, "feed")
	if len(errs) != 2 {
		t.Fatalf("CheckBeats returned %d errors, want 2: %v", len(errs), errs)
	}
	if fault.FieldsOf(errs[0])["beat_key"] != "1-1-4" {
		t.Fatalf("first error fields = %v", fault.FieldsOf(errs[0]))
	}
	if fault.FieldsOf(errs[1])["widget"] != "queue" {
		t.Fatalf("second error fields = %v", fault.FieldsOf(errs[1]))
	}
}

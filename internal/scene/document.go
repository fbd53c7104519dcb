package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/algoscene/internal/fault"
	"github.com/AaronLay10/algoscene/internal/script"
	"github.com/AaronLay10/algoscene/internal/widget"
)

// Document declares a scene: its widgets and its bindings per event type.
type Document struct {
	Version  int                    `yaml:"version" json:"version"`
	Widgets  map[string]widget.Spec `yaml:"widgets" json:"widgets"`
	Bindings map[string][]Binding   `yaml:"bindings" json:"bindings"`
}

// LoadDocument reads a scene file. Files ending in .json are decoded as
// JSON; everything else as YAML.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	var doc Document
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse scene file: %w", err)
	}
	if doc.Version != 1 {
		return nil, fmt.Errorf("unsupported scene version: %d", doc.Version)
	}
	return &doc, nil
}

// Table builds the binding table declared by the document.
func (d *Document) Table() (*Table, error) {
	t := NewTable()
	for eventType, bindings := range d.Bindings {
		if err := t.Register(eventType, bindings, false); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Check reports every widget type unknown to factory and every binding that
// targets an undeclared widget. Action names are only known once widgets are
// built, so they are not checked here.
func (d *Document) Check(factory *widget.Factory) []error {
	var errs []error
	for name, spec := range d.Widgets {
		if !factory.Has(spec.Type) {
			errs = append(errs, fault.New(fault.CategoryRegistry,
				fmt.Sprintf("widget %q has unknown type %q", name, spec.Type),
				"use one of "+strings.Join(factory.Types(), ", ")).With("widget", name))
		}
	}
	t, err := d.Table()
	if err != nil {
		return append(errs, err)
	}
	for _, eventType := range t.EventTypes() {
		bindings, _ := t.Lookup(eventType)
		for _, b := range bindings {
			if _, ok := d.Widgets[b.Target]; !ok {
				errs = append(errs, fault.New(fault.CategoryRegistry,
					fmt.Sprintf("binding for %q targets unknown widget %q", eventType, b.Target),
					"declare the widget or fix the target").
					With("event_type", eventType).With("widget", b.Target))
			}
		}
	}
	return errs
}

// CheckBeats reports beats whose action is neither a built-in scene action,
// one of extra, nor a "widget.action" addressed to a declared widget.
func (d *Document) CheckBeats(s *script.Script, extra ...string) []error {
	known := builtinSceneActions()
	var errs []error
	for pos, beat := range s.Beats() {
		if _, ok := known[beat.Action]; ok || slices.Contains(extra, beat.Action) {
			continue
		}
		target, _, ok := strings.Cut(beat.Action, ".")
		if !ok {
			errs = append(errs, fault.New(fault.CategoryRegistry,
				fmt.Sprintf("beat %s: unknown scene action %q", pos, beat.Action),
				"use a built-in scene action or the widget.action form").
				With("beat_key", pos.Key()))
			continue
		}
		if _, declared := d.Widgets[target]; !declared {
			errs = append(errs, fault.New(fault.CategoryRegistry,
				fmt.Sprintf("beat %s: action %q targets unknown widget %q", pos, beat.Action, target),
				"declare the widget in the scene").
				With("beat_key", pos.Key()).With("widget", target))
		}
	}
	return errs
}

package scene

import (
	"context"
	"fmt"

	"github.com/AaronLay10/algoscene/internal/fault"
	"github.com/AaronLay10/algoscene/internal/journal"
	"github.com/AaronLay10/algoscene/internal/widget"
)

// SceneAction is a beat action addressed to the scene rather than a widget.
type SceneAction func(ctx context.Context, e *Engine, args widget.Params) error

// RegisterSceneAction adds a scene action. Built-in names cannot be reused.
func (e *Engine) RegisterSceneAction(name string, fn SceneAction) error {
	if name == "" || fn == nil {
		return fault.Newf(fault.CategoryRegistry, "scene action registration needs a name and a func")
	}
	if _, exists := e.sceneActions[name]; exists {
		return fault.Newf(fault.CategoryRegistry, "scene action %q is already registered", name)
	}
	e.sceneActions[name] = fn
	return nil
}

func builtinSceneActions() map[string]SceneAction {
	return map[string]SceneAction{
		"show":    showAction,
		"hide":    hideAction,
		"wait":    waitAction,
		"narrate": narrateAction,
	}
}

// showAction shows args["target"], or every widget when no target is given.
func showAction(ctx context.Context, e *Engine, args widget.Params) error {
	targets, err := e.targets(args)
	if err != nil {
		return err
	}
	for _, w := range targets {
		if err := w.Show(ctx); err != nil {
			return fmt.Errorf("show %s: %w", w.Name(), err)
		}
		journal.Emit("info", "widget.shown", "widget shown", map[string]any{"widget": w.Name()})
	}
	return nil
}

func hideAction(ctx context.Context, e *Engine, args widget.Params) error {
	targets, err := e.targets(args)
	if err != nil {
		return err
	}
	for i := len(targets) - 1; i >= 0; i-- {
		w := targets[i]
		if err := w.Hide(ctx); err != nil {
			return fmt.Errorf("hide %s: %w", w.Name(), err)
		}
		journal.Emit("info", "widget.hidden", "widget hidden", map[string]any{"widget": w.Name()})
	}
	return nil
}

// waitAction does nothing; the orchestrator holds the beat for its duration.
func waitAction(context.Context, *Engine, widget.Params) error {
	return nil
}

func narrateAction(_ context.Context, _ *Engine, args widget.Params) error {
	journal.Emit("info", "beat.narration", "narration", map[string]any{
		"text": args.String("text", ""),
	})
	return nil
}

func (e *Engine) targets(args widget.Params) ([]widget.Widget, error) {
	name := args.String("target", "")
	if name == "" {
		out := make([]widget.Widget, 0, len(e.order))
		for _, n := range e.order {
			out = append(out, e.widgets[n])
		}
		return out, nil
	}
	w, ok := e.widgets[name]
	if !ok {
		return nil, fault.New(fault.CategoryRegistry,
			fmt.Sprintf("unknown widget %q", name),
			"declare the widget in the scene").With("widget", name)
	}
	return []widget.Widget{w}, nil
}

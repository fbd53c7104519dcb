package scene

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/AaronLay10/algoscene/internal/fault"
	"github.com/AaronLay10/algoscene/internal/journal"
	"github.com/AaronLay10/algoscene/internal/logging"
	"github.com/AaronLay10/algoscene/internal/resolve"
	"github.com/AaronLay10/algoscene/internal/script"
	"github.com/AaronLay10/algoscene/internal/stream"
	"github.com/AaronLay10/algoscene/internal/timing"
	"github.com/AaronLay10/algoscene/internal/widget"
)

// Options configure an Engine. Zero values get defaults.
type Options struct {
	// Config is the static config scope seen by config_value templates.
	Config   any
	Timing   timing.Model
	Resolver *resolve.Resolver
	Factory  *widget.Factory
	Logger   *slog.Logger
}

// Engine owns one scene: its widgets, its binding table and its resolution
// stack. An Engine is driven from a single goroutine.
type Engine struct {
	table        *Table
	widgets      map[string]widget.Widget
	order        []string
	resolver     *resolve.Resolver
	stack        resolve.Stack
	config       any
	timing       timing.Model
	timingScope  map[string]any
	sceneActions map[string]SceneAction
	logger       *slog.Logger
}

// New builds every widget declared in specs and returns the engine. Widgets
// are constructed in name order; if any construction fails the widgets built
// so far are released and no engine is returned.
func New(specs map[string]widget.Spec, table *Table, opts Options) (*Engine, error) {
	factory := opts.Factory
	if factory == nil {
		factory = widget.NewFactory()
	}
	names := make([]string, 0, len(specs))
	for n := range specs {
		names = append(names, n)
	}
	sort.Strings(names)

	built := make([]widget.Widget, 0, len(names))
	for _, name := range names {
		w, err := factory.Build(name, specs[name])
		if err != nil {
			release(built)
			journal.Emit("error", "scene.failed", "widget construction failed", map[string]any{
				"widget": name,
				"error":  err.Error(),
			})
			return nil, err
		}
		built = append(built, w)
	}
	return NewWithWidgets(built, table, opts)
}

// NewWithWidgets returns an engine over already constructed widgets.
func NewWithWidgets(widgets []widget.Widget, table *Table, opts Options) (*Engine, error) {
	if table == nil {
		table = NewTable()
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = resolve.New(nil, opts.Logger)
	}
	model := opts.Timing
	if model.Base == nil {
		model = timing.Default()
	}
	e := &Engine{
		table:       table,
		widgets:     make(map[string]widget.Widget, len(widgets)),
		resolver:    resolver,
		config:      opts.Config,
		timing:      model,
		timingScope: model.Snapshot(),
		logger:      logging.NewComponentLogger(opts.Logger, "scene"),
	}
	for _, w := range widgets {
		name := w.Name()
		if _, dup := e.widgets[name]; dup {
			release(widgets)
			return nil, fault.Newf(fault.CategoryRegistry, "widget %q declared twice", name)
		}
		e.widgets[name] = w
		e.order = append(e.order, name)
		journal.Emit("info", "widget.created", "widget created", map[string]any{"widget": name})
	}
	e.sceneActions = builtinSceneActions()

	journal.Emit("info", "scene.started", "scene ready", map[string]any{
		"widgets":     len(e.order),
		"event_types": len(table.EventTypes()),
	})
	e.logger.Info("scene ready", slog.Int("widgets", len(e.order)))
	return e, nil
}

func release(widgets []widget.Widget) {
	for i := len(widgets) - 1; i >= 0; i-- {
		if c, ok := widgets[i].(io.Closer); ok {
			_ = c.Close()
		}
	}
}

// Table returns the engine's binding table.
func (e *Engine) Table() *Table { return e.table }

// Widget returns the named widget.
func (e *Engine) Widget(name string) (widget.Widget, bool) {
	w, ok := e.widgets[name]
	return w, ok
}

// WidgetNames lists widgets in creation order.
func (e *Engine) WidgetNames() []string {
	return append([]string(nil), e.order...)
}

// Current returns the resolution context of the action currently running.
// Widgets use it to resolve deferred values against their caller's scope.
func (e *Engine) Current() (resolve.Context, bool) {
	return e.stack.Current()
}

// Resolve resolves a deferred value a widget received, using the live widget
// state for widget_state templates and the caller's scope otherwise.
func (e *Engine) Resolve(d resolve.Deferred) (any, error) {
	if v, _, err := resolve.DeferredState(d, e.widgets); err == nil {
		return v, nil
	}
	c, _ := e.stack.Current()
	res, err := e.resolver.Resolve(string(d), c)
	if err != nil {
		return nil, err
	}
	return res.Plain(), nil
}

func (e *Engine) baseContext() resolve.Context {
	return resolve.Context{
		Config:  e.config,
		Timing:  e.timingScope,
		Widgets: e.widgets,
	}
}

// HandleEvent runs the bindings registered for ev.Type in order. An event
// type without bindings is ignored.
func (e *Engine) HandleEvent(ctx context.Context, ev stream.Event) error {
	bindings, ok := e.table.Lookup(ev.Type)
	if !ok {
		return nil
	}
	c := e.baseContext().WithEvent(&ev)
	for _, b := range bindings {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.runBinding(ctx, ev, b, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runBinding(ctx context.Context, ev stream.Event, b Binding, c resolve.Context) error {
	fields := map[string]any{
		"event_type":  ev.Type,
		"event_index": ev.Index,
		"target":      b.Target,
		"action":      b.Action,
	}

	if b.Condition != "" {
		pass, err := EvalCondition(b.Condition, e.operandFunc(c))
		switch {
		case err != nil:
			// Fail open: a dropped visual update is worse than an extra one.
			e.logger.Warn("binding condition failed; executing anyway",
				slog.String(logging.FieldEventType, ev.Type),
				slog.Int(logging.FieldEventIndex, ev.Index),
				slog.String("condition", b.Condition),
				logging.Error(err))
			journal.Emit("warn", "binding.condition_failed", "condition failed, executing anyway",
				withField(fields, "error", err.Error()))
		case !pass:
			journal.Emit("debug", "binding.skipped", "condition is false", fields)
			return nil
		}
	}

	params, _, err := e.resolver.Params(b.Params, c)
	if err != nil {
		return locate(err, fields)
	}
	if err := e.invoke(ctx, b.Target, b.Action, params, c); err != nil {
		return locate(err, fields)
	}
	journal.Emit("info", "binding.executed", "binding executed", fields)
	return nil
}

// operandFunc resolves condition operands. Deferred widget state is read
// live; any other deferred value cannot be decided and is an error.
func (e *Engine) operandFunc(c resolve.Context) OperandFunc {
	return func(tpl string) (any, error) {
		res, err := e.resolver.Resolve(tpl, c)
		if err != nil {
			return nil, err
		}
		if res.Kind != resolve.KindDeferred {
			return res.Plain(), nil
		}
		v, ok, err := resolve.DeferredState(resolve.Deferred(res.Text), e.widgets)
		if err != nil {
			return nil, fmt.Errorf("condition operand %q stays unresolved", tpl)
		}
		if !ok {
			return nil, nil
		}
		return v, nil
	}
}

// ExecuteBeat resolves the beat's args without an event scope and runs its
// action. Scene actions are tried first, then the "widget.action" form.
func (e *Engine) ExecuteBeat(ctx context.Context, beat script.Beat, duration float64) error {
	fields := map[string]any{"action": beat.Action}
	if err := ctx.Err(); err != nil {
		return err
	}

	scope := make(map[string]any, len(e.timingScope)+1)
	for k, v := range e.timingScope {
		scope[k] = v
	}
	scope["duration"] = duration
	c := e.baseContext().WithTiming(scope)

	args, _, err := e.resolver.Params(beat.Args, c)
	if err != nil {
		return locate(err, fields)
	}

	if fn, ok := e.sceneActions[beat.Action]; ok {
		restore := e.stack.Activate(c)
		defer restore()
		if err := safeCall(func() error { return fn(ctx, e, widget.Params(args)) }); err != nil {
			return locate(wrapExecution(err, "scene action failed"), fields)
		}
		return nil
	}

	target, action, ok := strings.Cut(beat.Action, ".")
	if !ok {
		return locate(fault.New(fault.CategoryRegistry,
			fmt.Sprintf("unknown scene action %q", beat.Action),
			"use a registered scene action or the widget.action form"), fields)
	}
	if err := e.invoke(ctx, target, action, args, c); err != nil {
		return locate(err, withField(fields, "target", target))
	}
	return nil
}

// invoke calls one widget action with c active on the scene stack.
func (e *Engine) invoke(ctx context.Context, target, action string, params map[string]any, c resolve.Context) error {
	w, ok := e.widgets[target]
	if !ok {
		return fault.New(fault.CategoryRegistry,
			fmt.Sprintf("unknown widget %q", target),
			"declare the widget in the scene or fix the binding target").
			With("widget", target)
	}
	fn, ok := w.Actions()[action]
	if !ok {
		return fault.New(fault.CategoryRegistry,
			fmt.Sprintf("widget %q has no action %q", target, action),
			"check the widget type's action list").
			With("widget", target).With("widget_action", action)
	}

	restore := e.stack.Activate(c)
	defer restore()
	if err := safeCall(func() error { return fn(ctx, widget.Params(params)) }); err != nil {
		return wrapExecution(err, "widget action failed").With("widget", target).With("widget_action", action)
	}
	return nil
}

// Close hides every widget in reverse creation order and releases widgets
// that hold resources.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	for i := len(e.order) - 1; i >= 0; i-- {
		w := e.widgets[e.order[i]]
		if err := w.Hide(ctx); err != nil {
			errs = append(errs, fmt.Errorf("hide %s: %w", w.Name(), err))
			continue
		}
		journal.Emit("debug", "widget.hidden", "widget hidden", map[string]any{"widget": w.Name()})
	}
	widgets := make([]widget.Widget, 0, len(e.order))
	for _, name := range e.order {
		widgets = append(widgets, e.widgets[name])
	}
	release(widgets)
	journal.Emit("info", "scene.closed", "scene closed", map[string]any{"widgets": len(e.order)})
	return errors.Join(errs...)
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

// wrapExecution keeps categorized errors as they are and wraps anything else
// as an ExecutionError.
func wrapExecution(err error, msg string) *fault.Error {
	var fe *fault.Error
	if errors.As(err, &fe) {
		return fault.Wrap(fe.Category, err, msg)
	}
	return fault.Wrap(fault.CategoryExecution, err, msg)
}

// locate attaches position fields to err, keeping its category.
func locate(err error, fields map[string]any) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	cat, ok := fault.CategoryOf(err)
	if !ok {
		cat = fault.CategoryExecution
	}
	msg := "beat failed"
	if _, ok := fields["event_type"]; ok {
		msg = "binding failed"
	}
	out := fault.Wrap(cat, err, msg)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = out.With(k, fields[k])
	}
	return out
}

func withField(fields map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[key] = value
	return out
}

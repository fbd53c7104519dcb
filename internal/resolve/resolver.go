package resolve

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/AaronLay10/algoscene/internal/fault"
	"github.com/AaronLay10/algoscene/internal/journal"
	"github.com/AaronLay10/algoscene/internal/logging"
	"github.com/AaronLay10/algoscene/internal/stream"
	"github.com/AaronLay10/algoscene/internal/widget"
)

// Resolver evaluates templates with the funcs of a Registry.
type Resolver struct {
	registry *Registry
	logger   *slog.Logger
}

// New returns a resolver. A nil registry gets the built-ins.
func New(registry *Registry, logger *slog.Logger) *Resolver {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Resolver{
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "resolve"),
	}
}

// Registry returns the resolver's registry.
func (r *Resolver) Registry() *Registry { return r.registry }

// Resolve evaluates one string. Literals come back as Resolved unchanged.
func (r *Resolver) Resolve(s string, c Context) (Result, error) {
	t, ok, err := Parse(s)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Resolved(s), nil
	}
	fn, found := r.registry.Lookup(t.Resolver)
	if !found {
		return Result{}, fault.New(fault.CategoryTemplateSyntax,
			fmt.Sprintf("unknown resolver %q in %q", t.Resolver, s),
			"register the resolver or use one of "+fmt.Sprint(r.registry.Names())).
			With("template", s)
	}
	return call(fn, t, c)
}

// call runs a resolver func, turning a panic into an error.
func call(fn Func, t Template, c Context) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("resolver %q panicked on %q: %v", t.Resolver, t.Text, p)
		}
	}()
	return fn(t, c)
}

// Value resolves v. Strings are resolved; maps and lists are rebuilt with
// each leaf resolved; everything else passes through.
func (r *Resolver) Value(v any, c Context) (any, error) {
	switch x := v.(type) {
	case string:
		res, err := r.Resolve(x, c)
		if err != nil {
			return nil, err
		}
		return res.Plain(), nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for _, k := range sortedKeys(x) {
			rv, err := r.Value(x[k], c)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			rv, err := r.Value(item, c)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	case *stream.Payload:
		if x == nil {
			return x, nil
		}
		out := stream.NewPayload()
		for _, k := range x.Keys() {
			rv, err := r.Value(x.Get(k), c)
			if err != nil {
				return nil, err
			}
			out.Set(k, rv)
		}
		return out, nil
	}
	return v, nil
}

// Params resolves every value of params independently. When any value fails
// for a reason other than template syntax, the whole map falls back to a copy
// of its literal form and fellBack is true. Syntax errors are returned.
func (r *Resolver) Params(params map[string]any, c Context) (out map[string]any, fellBack bool, err error) {
	out = make(map[string]any, len(params))
	for _, k := range sortedKeys(params) {
		v, verr := r.Value(params[k], c)
		if verr != nil {
			if errors.Is(verr, fault.ErrTemplateSyntax) {
				return nil, false, verr
			}
			r.logger.Warn("parameter resolution failed; using literal parameters",
				slog.String("param", k), logging.Error(verr))
			journal.Emit("warn", "binding.params_fallback", "parameter resolution fell back to literals", map[string]any{
				"param": k,
				"error": verr.Error(),
			})
			return literalCopy(params), true, nil
		}
		out[k] = v
	}
	return out, false, nil
}

// DeferredState resolves a widget_state deferred against live widget state.
// The first path segment names the widget; the rest walks its State map, or
// the widget itself when it does not expose state.
func DeferredState(d Deferred, widgets map[string]widget.Widget) (any, bool, error) {
	t, ok, err := Parse(string(d))
	if err != nil {
		return nil, false, err
	}
	if !ok || t.Resolver != WidgetState {
		return nil, false, fault.Newf(fault.CategoryTemplateSyntax, "%q is not a widget_state template", string(d))
	}
	w, found := widgets[t.Path[0]]
	if !found {
		return nil, false, nil
	}
	var root any = w
	if s, isStateful := w.(widget.Stateful); isStateful {
		root = s.State()
	}
	v, hit := Walk(root, t.Path[1:])
	return v, hit, nil
}

func literalCopy(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

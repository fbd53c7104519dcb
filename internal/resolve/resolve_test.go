package resolve

import (
	"errors"
	"reflect"
	"testing"

	"github.com/AaronLay10/algoscene/internal/fault"
	"github.com/AaronLay10/algoscene/internal/stream"
	"github.com/AaronLay10/algoscene/internal/widget"
)

func newTestResolver() *Resolver {
	return New(nil, nil)
}

func enqueueEvent() *stream.Event {
	ev := stream.New("enqueue", stream.NewPayload("node", []any{2, 3}, "depth", 1))
	ev.Index = 0
	return &ev
}

func TestParse(t *testing.T) {
	tpl, ok, err := Parse("${config_value:grid.size,42}")
	if err != nil || !ok {
		t.Fatalf("expected template, got ok=%v err=%v", ok, err)
	}
	if tpl.Resolver != "config_value" || tpl.PathString() != "grid.size" || !tpl.HasDefault || tpl.Default != "42" {
		t.Fatalf("unexpected parse %+v", tpl)
	}

	tpl, ok, _ = Parse("${event_data:node}")
	if !ok || tpl.HasDefault {
		t.Fatalf("expected template without default, got %+v", tpl)
	}

	tpl, ok, _ = Parse("${config_value:title,}")
	if !ok || !tpl.HasDefault || tpl.Default != "" {
		t.Fatalf("expected explicit empty default, got %+v", tpl)
	}

	for _, lit := range []string{"blue", "cost ${event_data:x}", "${event_data:x", "$ {x}", ""} {
		if _, ok, err := Parse(lit); ok || err != nil {
			t.Errorf("Parse(%q) should be a literal, got ok=%v err=%v", lit, ok, err)
		}
	}

	for _, bad := range []string{"${}", "${event_data}", "${event_data:}", "${event_data:a..b}", "${9bad:x}"} {
		if _, _, err := Parse(bad); !errors.Is(err, fault.ErrTemplateSyntax) {
			t.Errorf("Parse(%q) expected syntax error, got %v", bad, err)
		}
	}
}

func TestEventDataWithoutScopeIsDeferred(t *testing.T) {
	r := newTestResolver()
	res, err := r.Resolve("${event_data:x}", Context{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Kind != KindDeferred || res.Text != "${event_data:x}" {
		t.Fatalf("expected deferred original text, got %+v", res)
	}
	if got := res.Plain(); got != Deferred("${event_data:x}") {
		t.Fatalf("expected Deferred plain value, got %#v", got)
	}
}

func TestEventDataLookups(t *testing.T) {
	r := newTestResolver()
	c := Context{Event: enqueueEvent()}

	v, err := r.Value("${event_data:node.1}", c)
	if err != nil || v != 3 {
		t.Fatalf("expected 3, got %v (%v)", v, err)
	}
	v, _ = r.Value("${event_data:type}", c)
	if v != "enqueue" {
		t.Fatalf("expected event type, got %v", v)
	}
	v, _ = r.Value("${event_data:payload.depth}", c)
	if v != 1 {
		t.Fatalf("expected payload.depth 1, got %v", v)
	}
	res, _ := r.Resolve("${event_data:missing}", c)
	if res.Kind != KindMissing || res.Plain() != nil {
		t.Fatalf("expected missing, got %+v", res)
	}
}

func TestTimingValueDefaults(t *testing.T) {
	r := newTestResolver()
	c := Context{Timing: map[string]any{"ui": 0.5}}

	v, _ := r.Value("${timing_value:missing}", c)
	if v != 1.0 {
		t.Fatalf("expected 1.0, got %v", v)
	}
	v, _ = r.Value("${timing_value:ui}", c)
	if v != 0.5 {
		t.Fatalf("expected 0.5, got %v", v)
	}
	v, _ = r.Value("${timing_value:ui,2.5}", Context{})
	if v != 2.5 {
		t.Fatalf("expected default 2.5, got %v", v)
	}
	if _, err := r.Value("${timing_value:ui,fast}", c); !errors.Is(err, fault.ErrTemplateSyntax) {
		t.Fatalf("expected syntax error for non-numeric default, got %v", err)
	}
}

func TestConfigValueDefaults(t *testing.T) {
	r := newTestResolver()

	v, _ := r.Value("${config_value:missing,42}", Context{})
	if v != 42 {
		t.Fatalf("expected 42, got %#v", v)
	}
	v, _ = r.Value("${config_value:missing}", Context{})
	if v != nil {
		t.Fatalf("expected nil, got %#v", v)
	}

	type gridConfig struct {
		CellSize int `yaml:"cell_size"`
		Theme    string
	}
	c := Context{Config: map[string]any{"grid": gridConfig{CellSize: 16, Theme: "dark"}}}
	v, _ = r.Value("${config_value:grid.cell_size}", c)
	if v != 16 {
		t.Fatalf("expected tag lookup 16, got %v", v)
	}
	v, _ = r.Value("${config_value:grid.theme}", c)
	if v != "dark" {
		t.Fatalf("expected attribute lookup dark, got %v", v)
	}
	v, _ = r.Value("${config_value:grid.missing,light}", c)
	if v != "light" {
		t.Fatalf("expected default light, got %v", v)
	}
}

func TestWidgetStateAlwaysDeferred(t *testing.T) {
	r := newTestResolver()
	rec := widget.NewRecorder("grid", nil, "highlight_cell")
	rec.SetState("color", "blue")
	widgets := map[string]widget.Widget{"grid": rec}

	res, err := r.Resolve("${widget_state:grid.color,red}", Context{Widgets: widgets})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Kind != KindDeferred || res.Text != "${widget_state:grid.color}" {
		t.Fatalf("expected fresh deferred template, got %+v", res)
	}

	live, ok, err := DeferredState(Deferred(res.Text), widgets)
	if err != nil || !ok || live != "blue" {
		t.Fatalf("expected live state blue, got %v ok=%v err=%v", live, ok, err)
	}
	if _, ok, _ := DeferredState("${widget_state:ghost.color}", widgets); ok {
		t.Fatal("expected miss for unknown widget")
	}
}

func TestUnknownResolverIsSyntaxError(t *testing.T) {
	r := newTestResolver()
	_, err := r.Resolve("${sparkle:x}", Context{})
	if !errors.Is(err, fault.ErrTemplateSyntax) {
		t.Fatalf("expected syntax error, got %v", err)
	}

	if err := r.Registry().Register("sparkle", func(Template, Context) (Result, error) {
		return Resolved("shiny"), nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	v, err := r.Value("${sparkle:x}", Context{})
	if err != nil || v != "shiny" {
		t.Fatalf("expected late-registered resolver to work, got %v (%v)", v, err)
	}
	if err := r.Registry().Register(EventData, resolveEventData); !errors.Is(err, fault.ErrRegistry) {
		t.Fatalf("expected duplicate registration to fail, got %v", err)
	}
}

func TestParamsLiteralRoundTrip(t *testing.T) {
	r := newTestResolver()
	params := map[string]any{
		"color":  "blue",
		"width":  2,
		"labels": []any{"a", "b"},
		"style":  map[string]any{"dash": true},
	}
	out, fellBack, err := r.Params(params, Context{})
	if err != nil || fellBack {
		t.Fatalf("unexpected fellBack=%v err=%v", fellBack, err)
	}
	if !reflect.DeepEqual(out, params) {
		t.Fatalf("literal map changed: %v", out)
	}
}

func TestParamsResolveNestedLeaves(t *testing.T) {
	r := newTestResolver()
	params := map[string]any{
		"cell":  "${event_data:node}",
		"style": map[string]any{"speed": "${timing_value:effects}"},
		"list":  []any{"${event_data:depth}", "x"},
	}
	out, _, err := r.Params(params, Context{Event: enqueueEvent(), Timing: map[string]any{"effects": 0.6}})
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if !reflect.DeepEqual(out["cell"], []any{2, 3}) {
		t.Errorf("cell = %v", out["cell"])
	}
	if out["style"].(map[string]any)["speed"] != 0.6 {
		t.Errorf("style.speed = %v", out["style"])
	}
	if !reflect.DeepEqual(out["list"], []any{1, "x"}) {
		t.Errorf("list = %v", out["list"])
	}
}

func TestParamsFallBackToLiterals(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register("flaky", func(Template, Context) (Result, error) {
		return Result{}, errors.New("backend unavailable")
	})
	_ = reg.Register("explosive", func(Template, Context) (Result, error) {
		panic("boom")
	})
	r := New(reg, nil)

	for _, name := range []string{"flaky", "explosive"} {
		params := map[string]any{
			"cell":  "${event_data:node}",
			"color": "${" + name + ":x}",
		}
		out, fellBack, err := r.Params(params, Context{Event: enqueueEvent()})
		if err != nil {
			t.Fatalf("%s: expected fallback, got error %v", name, err)
		}
		if !fellBack {
			t.Fatalf("%s: expected fellBack", name)
		}
		if !reflect.DeepEqual(out, params) {
			t.Fatalf("%s: expected literal params, got %v", name, out)
		}
	}
}

func TestParamsSyntaxErrorPropagates(t *testing.T) {
	r := newTestResolver()
	_, _, err := r.Params(map[string]any{"color": "${oops}"}, Context{})
	if !errors.Is(err, fault.ErrTemplateSyntax) {
		t.Fatalf("expected syntax error, got %v", err)
	}
}

func TestStackRestoresOuterFrame(t *testing.T) {
	var s Stack
	outer := Context{Timing: map[string]any{"ui": 1.0}}
	inner := outer.WithEvent(enqueueEvent())

	restoreOuter := s.Activate(outer)
	restoreInner := s.Activate(inner)
	cur, _ := s.Current()
	if cur.Event == nil {
		t.Fatal("expected inner frame active")
	}
	restoreInner()
	cur, _ = s.Current()
	if cur.Event != nil {
		t.Fatal("inner event scope leaked into outer frame")
	}
	restoreOuter()
	if _, ok := s.Current(); ok || s.Depth() != 0 {
		t.Fatal("expected empty stack")
	}
}

func TestStacksAreIndependent(t *testing.T) {
	var a, b Stack
	restore := a.Activate(Context{Event: enqueueEvent()})
	defer restore()
	if _, ok := b.Current(); ok {
		t.Fatal("second stack observed the first stack's frame")
	}
}

package scene

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/AaronLay10/algoscene/internal/fault"
	"github.com/AaronLay10/algoscene/internal/resolve"
	"github.com/AaronLay10/algoscene/internal/script"
	"github.com/AaronLay10/algoscene/internal/stream"
	"github.com/AaronLay10/algoscene/internal/timing"
	"github.com/AaronLay10/algoscene/internal/widget"
)

// trackingWidget records show/hide calls and closes into a shared slice.
type trackingWidget struct {
	*widget.Base
	trail *[]string
	fail  error
}

func newTrackingWidget(name string, trail *[]string) *trackingWidget {
	w := &trackingWidget{Base: widget.NewBase(name), trail: trail}
	w.Handle("explode", func(context.Context, widget.Params) error { return w.fail })
	return w
}

func (w *trackingWidget) Hide(ctx context.Context) error {
	*w.trail = append(*w.trail, "hide:"+w.Name())
	return w.Base.Hide(ctx)
}

func (w *trackingWidget) Close() error {
	*w.trail = append(*w.trail, "close:"+w.Name())
	return nil
}

func newEngine(t *testing.T, table *Table, widgets ...widget.Widget) *Engine {
	t.Helper()
	e, err := NewWithWidgets(widgets, table, Options{Config: map[string]any{"theme": "dark"}})
	if err != nil {
		t.Fatalf("NewWithWidgets: %v", err)
	}
	return e
}

func indexed(ev stream.Event, i int) stream.Event {
	ev.Index = i
	return ev
}

func TestHandleEventEndToEnd(t *testing.T) {
	log := &widget.CallLog{}
	queue := widget.NewRecorder("queue", log, "add_element")
	grid := widget.NewRecorder("grid", log, "highlight_cell")

	table := NewTable()
	if err := table.Register("enqueue", []Binding{
		{Target: "grid", Action: "highlight_cell", Order: 2, Params: map[string]any{"color": "blue"}},
		{Target: "queue", Action: "add_element", Order: 1, Params: map[string]any{"item": "${event_data:node}"}},
	}, false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	e := newEngine(t, table, queue, grid)

	ev := indexed(stream.New("enqueue", stream.NewPayload("node", []any{2, 3})), 0)
	if err := e.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	calls := log.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %v", calls)
	}
	if calls[0].Widget != "queue" || calls[0].Action != "add_element" {
		t.Errorf("first call = %+v, want queue.add_element", calls[0])
	}
	if !reflect.DeepEqual(calls[0].Params["item"], []any{2, 3}) {
		t.Errorf("item = %v, want [2 3]", calls[0].Params["item"])
	}
	if calls[1].Widget != "grid" || calls[1].Params["color"] != "blue" {
		t.Errorf("second call = %+v, want grid.highlight_cell(color=blue)", calls[1])
	}
}

func TestHandleEventOrdering(t *testing.T) {
	log := &widget.CallLog{}
	w := widget.NewRecorder("w", log, "b1", "b2", "b3")
	table := NewTable()
	_ = table.Register("step", []Binding{
		{Target: "w", Action: "b1", Order: 2},
		{Target: "w", Action: "b2", Order: 1},
		{Target: "w", Action: "b3", Order: 1},
	}, false)
	e := newEngine(t, table, w)

	if err := e.HandleEvent(context.Background(), indexed(stream.New("step", nil), 0)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	var got []string
	for _, c := range log.Calls() {
		got = append(got, c.Action)
	}
	if !reflect.DeepEqual(got, []string{"b2", "b3", "b1"}) {
		t.Fatalf("order = %v, want [b2 b3 b1]", got)
	}
}

func TestHandleEventUnboundTypeIsNoop(t *testing.T) {
	log := &widget.CallLog{}
	e := newEngine(t, NewTable(), widget.NewRecorder("grid", log, "highlight_cell"))
	if err := e.HandleEvent(context.Background(), indexed(stream.New("dequeue", nil), 0)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(log.Calls()) != 0 {
		t.Fatal("expected no calls")
	}
}

func TestConditionFailsOpen(t *testing.T) {
	reg := resolve.NewRegistry()
	_ = reg.Register("flaky", func(resolve.Template, resolve.Context) (resolve.Result, error) {
		return resolve.Result{}, errors.New("lookup exploded")
	})
	log := &widget.CallLog{}
	grid := widget.NewRecorder("grid", log, "highlight_cell")
	table := NewTable()
	_ = table.Register("visit", []Binding{
		{Target: "grid", Action: "highlight_cell", Order: 1, Condition: "${flaky:x}"},
		{Target: "grid", Action: "highlight_cell", Order: 2, Condition: "${event_data:goal}", Params: map[string]any{"color": "gold"}},
		{Target: "grid", Action: "highlight_cell", Order: 3, Condition: "${event_data:depth} == 2", Params: map[string]any{"color": "blue"}},
	}, false)

	e, err := NewWithWidgets([]widget.Widget{grid}, table, Options{Resolver: resolve.New(reg, nil)})
	if err != nil {
		t.Fatalf("NewWithWidgets: %v", err)
	}
	ev := indexed(stream.New("visit", stream.NewPayload("goal", false, "depth", 2)), 4)
	if err := e.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	calls := log.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected failing and true conditions to run, falsy to skip; got %v", calls)
	}
	if calls[1].Params["color"] != "blue" {
		t.Errorf("expected the depth binding second, got %+v", calls[1])
	}
}

func TestUnknownWidgetIsRegistryError(t *testing.T) {
	log := &widget.CallLog{}
	table := NewTable()
	_ = table.Register("enqueue", []Binding{{Target: "qeue", Action: "add_element", Order: 1}}, false)
	e := newEngine(t, table, widget.NewRecorder("queue", log, "add_element"))

	err := e.HandleEvent(context.Background(), indexed(stream.New("enqueue", nil), 7))
	if !errors.Is(err, fault.ErrRegistry) {
		t.Fatalf("expected registry error, got %v", err)
	}
	fields := fault.FieldsOf(err)
	if fields["event_index"] != 7 || fields["widget"] != "qeue" {
		t.Fatalf("expected event position on error, got %v", fields)
	}
}

func TestUnknownActionIsRegistryError(t *testing.T) {
	table := NewTable()
	_ = table.Register("enqueue", []Binding{{Target: "queue", Action: "push", Order: 1}}, false)
	e := newEngine(t, table, widget.NewRecorder("queue", nil, "add_element"))
	err := e.HandleEvent(context.Background(), indexed(stream.New("enqueue", nil), 0))
	if !errors.Is(err, fault.ErrRegistry) {
		t.Fatalf("expected registry error, got %v", err)
	}
}

func TestActionFailureIsExecutionError(t *testing.T) {
	var trail []string
	w := newTrackingWidget("grid", &trail)
	w.fail = errors.New("canvas gone")
	table := NewTable()
	_ = table.Register("visit", []Binding{{Target: "grid", Action: "explode", Order: 1}}, false)
	e := newEngine(t, table, w)

	err := e.HandleEvent(context.Background(), indexed(stream.New("visit", nil), 3))
	if !errors.Is(err, fault.ErrExecution) {
		t.Fatalf("expected execution error, got %v", err)
	}
	fields := fault.FieldsOf(err)
	if fields["event_type"] != "visit" || fields["target"] != "grid" || fields["action"] != "explode" {
		t.Fatalf("missing binding context: %v", fields)
	}
}

func TestParamSyntaxErrorPropagates(t *testing.T) {
	table := NewTable()
	_ = table.Register("visit", []Binding{{Target: "grid", Action: "highlight_cell", Order: 1,
		Params: map[string]any{"color": "${nope}"}}}, false)
	e := newEngine(t, table, widget.NewRecorder("grid", nil, "highlight_cell"))
	err := e.HandleEvent(context.Background(), indexed(stream.New("visit", nil), 0))
	if !errors.Is(err, fault.ErrTemplateSyntax) {
		t.Fatalf("expected syntax error, got %v", err)
	}
}

func TestExecuteBeat(t *testing.T) {
	log := &widget.CallLog{}
	grid := widget.NewRecorder("grid", log, "highlight_cell")
	e := newEngine(t, NewTable(), grid)
	ctx := context.Background()

	beat := script.Beat{Action: "grid.highlight_cell", Args: map[string]any{
		"speed": "${timing_value:duration}",
		"theme": "${config_value:theme}",
		"cell":  "${event_data:node}",
	}}
	if err := e.ExecuteBeat(ctx, beat, 0.75); err != nil {
		t.Fatalf("ExecuteBeat: %v", err)
	}
	p := log.Calls()[0].Params
	if p["speed"] != 0.75 || p["theme"] != "dark" {
		t.Errorf("unexpected args %v", p)
	}
	if p["cell"] != resolve.Deferred("${event_data:node}") {
		t.Errorf("expected event template deferred without event scope, got %#v", p["cell"])
	}

	if err := e.ExecuteBeat(ctx, script.Beat{Action: "show", Args: map[string]any{"target": "grid"}}, 1); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !grid.Visible() {
		t.Error("expected grid visible after show beat")
	}

	err := e.ExecuteBeat(ctx, script.Beat{Action: "sparkle"}, 1)
	if !errors.Is(err, fault.ErrRegistry) {
		t.Fatalf("expected registry error for unknown scene action, got %v", err)
	}
	err = e.ExecuteBeat(ctx, script.Beat{Action: "qeue.add_element"}, 1)
	if !errors.Is(err, fault.ErrRegistry) {
		t.Fatalf("expected registry error for unknown widget, got %v", err)
	}
}

func TestRegisterSceneAction(t *testing.T) {
	e := newEngine(t, NewTable())
	var got widget.Params
	err := e.RegisterSceneAction("show_title", func(_ context.Context, _ *Engine, args widget.Params) error {
		got = args
		return nil
	})
	if err != nil {
		t.Fatalf("RegisterSceneAction: %v", err)
	}
	if err := e.RegisterSceneAction("show", func(context.Context, *Engine, widget.Params) error { return nil }); !errors.Is(err, fault.ErrRegistry) {
		t.Fatalf("expected built-in name to be rejected, got %v", err)
	}
	beat := script.Beat{Action: "show_title", Args: map[string]any{"text": "${config_value:title,BFS}"}}
	if err := e.ExecuteBeat(context.Background(), beat, 1); err != nil {
		t.Fatalf("ExecuteBeat: %v", err)
	}
	if got["text"] != "BFS" {
		t.Fatalf("expected default title, got %v", got)
	}
}

func TestWidgetSeesCallerScope(t *testing.T) {
	var e *Engine
	var seen any
	w := widget.NewBase("probe")
	w.Handle("peek", func(context.Context, widget.Params) error {
		c, ok := e.Current()
		if !ok || c.Event == nil {
			return errors.New("no event scope active")
		}
		v, err := e.Resolve(resolve.Deferred("${event_data:node}"))
		seen = v
		return err
	})
	table := NewTable()
	_ = table.Register("visit", []Binding{{Target: "probe", Action: "peek", Order: 1}}, false)
	e = newEngine(t, table, w)

	ev := indexed(stream.New("visit", stream.NewPayload("node", "a")), 0)
	if err := e.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if seen != "a" {
		t.Fatalf("expected caller scope, got %v", seen)
	}
	if _, ok := e.Current(); ok {
		t.Fatal("scope leaked after the action returned")
	}
}

func TestNewAbortsOnConstructionFailure(t *testing.T) {
	var trail []string
	factory := widget.NewFactory()
	_ = factory.Register("tracked", func(name string, _ map[string]any) (widget.Widget, error) {
		return newTrackingWidget(name, &trail), nil
	})
	_ = factory.Register("broken", func(name string, _ map[string]any) (widget.Widget, error) {
		return nil, errors.New("no canvas")
	})

	specs := map[string]widget.Spec{
		"a_grid":  {Type: "tracked"},
		"b_queue": {Type: "tracked"},
		"c_title": {Type: "broken"},
	}
	e, err := New(specs, NewTable(), Options{Factory: factory})
	if err == nil || e != nil {
		t.Fatalf("expected setup to fail, got engine=%v err=%v", e, err)
	}
	if !reflect.DeepEqual(trail, []string{"close:b_queue", "close:a_grid"}) {
		t.Fatalf("expected built widgets released in reverse, got %v", trail)
	}
}

func TestCloseHidesInReverseOrder(t *testing.T) {
	var trail []string
	e := newEngine(t, NewTable(), newTrackingWidget("grid", &trail), newTrackingWidget("queue", &trail))
	if err := e.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := []string{"hide:queue", "hide:grid", "close:queue", "close:grid"}
	if !reflect.DeepEqual(trail, want) {
		t.Fatalf("trail = %v, want %v", trail, want)
	}
}

func TestTimingScopeFollowsModel(t *testing.T) {
	model, err := timing.NewModel(timing.ModeFast, nil, nil)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	log := &widget.CallLog{}
	e, err := NewWithWidgets([]widget.Widget{widget.NewRecorder("grid", log, "pulse")}, NewTable(), Options{Timing: model})
	if err != nil {
		t.Fatalf("NewWithWidgets: %v", err)
	}
	beat := script.Beat{Action: "grid.pulse", Args: map[string]any{"mult": "${timing_value:multiplier}"}}
	if err := e.ExecuteBeat(context.Background(), beat, 0.2); err != nil {
		t.Fatalf("ExecuteBeat: %v", err)
	}
	if got := log.Calls()[0].Params["mult"]; got != 0.25 {
		t.Fatalf("expected fast multiplier 0.25, got %v", got)
	}
}

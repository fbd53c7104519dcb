package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AaronLay10/algoscene/internal/journal"
	"github.com/AaronLay10/algoscene/internal/widget"
)

// WidgetType is the scene widget type backed by an MQTT topic.
const WidgetType = "mqtt"

// Command is the JSON body published for each widget call.
type Command struct {
	Widget string         `json:"widget"`
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Widget forwards its actions to an external renderer as MQTT commands on
// <topic>/<action>.
type Widget struct {
	*widget.Base
	pub   Publisher
	topic string
}

// NewWidget builds a widget publishing under topic. show and hide are
// always answered; actions adds the rest of the table.
func NewWidget(name, topic string, pub Publisher, actions ...string) *Widget {
	w := &Widget{Base: widget.NewBase(name), pub: pub, topic: strings.TrimSuffix(topic, "/")}
	for _, a := range actions {
		w.Handle(a, w.command(a))
	}
	return w
}

// Topic returns the command topic prefix.
func (w *Widget) Topic() string { return w.topic }

func (w *Widget) Show(ctx context.Context) error {
	if err := w.send(ctx, "show", nil); err != nil {
		return err
	}
	return w.Base.Show(ctx)
}

func (w *Widget) Hide(ctx context.Context) error {
	if err := w.send(ctx, "hide", nil); err != nil {
		return err
	}
	return w.Base.Hide(ctx)
}

func (w *Widget) command(action string) widget.ActionFunc {
	return func(ctx context.Context, params widget.Params) error {
		if err := w.send(ctx, action, params); err != nil {
			return err
		}
		w.SetState("last_action", action)
		for k, v := range params {
			w.SetState(k, v)
		}
		journal.Emit("info", "widget.action", "widget action", map[string]any{
			"widget": w.Name(),
			"action": action,
			"topic":  w.topic + "/" + action,
		})
		return nil
	}
}

func (w *Widget) send(ctx context.Context, action string, params widget.Params) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(Command{Widget: w.Name(), Action: action, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s command for %s: %w", action, w.Name(), err)
	}
	if err := w.pub.Publish(w.topic+"/"+action, body); err != nil {
		return fmt.Errorf("publish %s command for %s: %w", action, w.Name(), err)
	}
	return nil
}

// RegisterWidget adds the mqtt widget type to f. Widgets read "topic"
// (required) and "actions" (list of names) from their params.
func RegisterWidget(f *widget.Factory, pub Publisher) error {
	return f.Register(WidgetType, func(name string, params map[string]any) (widget.Widget, error) {
		topic, _ := params["topic"].(string)
		if topic == "" {
			return nil, fmt.Errorf("mqtt widget %q: topic is required", name)
		}
		var actions []string
		if raw, ok := params["actions"]; ok {
			list, ok := raw.([]any)
			if !ok {
				return nil, fmt.Errorf("mqtt widget %q: actions must be a list, got %T", name, raw)
			}
			for _, a := range list {
				s, ok := a.(string)
				if !ok || s == "" {
					return nil, fmt.Errorf("mqtt widget %q: action names must be non-empty strings", name)
				}
				actions = append(actions, s)
			}
		}
		return NewWidget(name, topic, pub, actions...), nil
	})
}

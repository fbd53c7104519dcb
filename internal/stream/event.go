// Package stream carries algorithm state-change events from a producer to the
// scene engine.
//
// Producers emit events with a placeholder index; the Indexer is the only
// place an index is assigned. Sources are pull-based so an unbounded
// algorithm never has to be buffered.
package stream

// Unindexed is the placeholder index carried by events before indexing.
const Unindexed = -1

// Event is one algorithm state change.
type Event struct {
	Type     string         `json:"type" yaml:"type"`
	Payload  *Payload       `json:"payload,omitempty" yaml:"payload,omitempty"`
	Index    int            `json:"index" yaml:"index"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// New builds an unindexed event. A nil payload is replaced by an empty one.
func New(eventType string, payload *Payload) Event {
	if payload == nil {
		payload = NewPayload()
	}
	return Event{Type: eventType, Payload: payload, Index: Unindexed}
}

// WithMetadata returns a copy of e with key set in its metadata.
func (e Event) WithMetadata(key string, value any) Event {
	md := make(map[string]any, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	e.Metadata = md
	return e
}

// Lookup exposes the event to template path resolution. The names type,
// index, payload and metadata always address the event's own fields; any
// other key reads the payload directly. A payload key that collides with one
// of those names is reachable only as payload.<key>.
func (e Event) Lookup(key string) (any, bool) {
	switch key {
	case "type":
		return e.Type, true
	case "index":
		return e.Index, true
	case "payload":
		return e.Payload, e.Payload != nil
	case "metadata":
		return e.Metadata, e.Metadata != nil
	}
	if e.Payload != nil {
		return e.Payload.Lookup(key)
	}
	return nil, false
}

package stream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Payload is a string-keyed map that remembers insertion order.
type Payload struct {
	keys   []string
	values map[string]any
}

// NewPayload builds a payload from alternating key/value arguments.
// It panics on a non-string key, like a malformed composite literal would fail to compile.
func NewPayload(kv ...any) *Payload {
	p := &Payload{values: make(map[string]any, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("stream.NewPayload: key %v is not a string", kv[i]))
		}
		p.Set(key, kv[i+1])
	}
	return p
}

// Set stores value under key, keeping the original position of existing keys.
func (p *Payload) Set(key string, value any) {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value stored under key, or nil.
func (p *Payload) Get(key string) any {
	if p == nil {
		return nil
	}
	return p.values[key]
}

// Lookup returns the value stored under key and whether it exists.
func (p *Payload) Lookup(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (p *Payload) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Map returns an unordered copy of the payload.
func (p *Payload) Map() map[string]any {
	out := make(map[string]any, p.Len())
	if p == nil {
		return out
	}
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// MarshalJSON writes keys in insertion order.
func (p *Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, fmt.Errorf("payload key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON preserves the document's key order.
func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("payload: expected JSON object, got %v", tok)
	}
	*p = Payload{values: map[string]any{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("payload: expected string key, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("payload key %q: %w", key, err)
		}
		p.Set(key, normalizeJSON(value))
	}
	_, err = dec.Token()
	return err
}

// UnmarshalYAML preserves the document's key order.
func (p *Payload) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("payload: expected mapping at line %d", node.Line)
	}
	*p = Payload{values: map[string]any{}}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("payload key %q: %w", node.Content[i].Value, err)
		}
		p.Set(node.Content[i].Value, value)
	}
	return nil
}

// normalizeJSON turns json.Number leaves into int64 or float64.
func normalizeJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, inner := range val {
			val[k] = normalizeJSON(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = normalizeJSON(inner)
		}
		return val
	default:
		return v
	}
}

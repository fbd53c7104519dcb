package resolve

import (
	"reflect"
	"strconv"
	"strings"
)

// Lookuper is implemented by values that answer keyed lookups themselves,
// such as stream events and payloads.
type Lookuper interface {
	Lookup(key string) (any, bool)
}

// Walk follows path from root. Each key is tried as a map lookup, then as an
// attribute (struct field or yaml/json tag), then as a list index.
func Walk(root any, path []string) (any, bool) {
	cur := root
	for _, key := range path {
		next, ok := step(cur, key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func step(cur any, key string) (any, bool) {
	switch v := cur.(type) {
	case nil:
		return nil, false
	case Lookuper:
		return v.Lookup(key)
	case map[string]any:
		out, ok := v[key]
		return out, ok
	case []any:
		return index(len(v), key, func(i int) any { return v[i] })
	}

	rv := reflect.ValueOf(cur)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		return mapStep(rv, key)
	case reflect.Struct:
		return fieldStep(rv, key)
	case reflect.Slice, reflect.Array:
		return index(rv.Len(), key, func(i int) any { return rv.Index(i).Interface() })
	}
	return nil, false
}

func mapStep(rv reflect.Value, key string) (any, bool) {
	kt := rv.Type().Key()
	var k reflect.Value
	switch kt.Kind() {
	case reflect.String:
		k = reflect.ValueOf(key).Convert(kt)
	case reflect.Interface:
		k = reflect.ValueOf(key)
	case reflect.Int, reflect.Int64, reflect.Int32:
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, false
		}
		k = reflect.ValueOf(n).Convert(kt)
	default:
		return nil, false
	}
	out := rv.MapIndex(k)
	if !out.IsValid() {
		return nil, false
	}
	return out.Interface(), true
}

func fieldStep(rv reflect.Value, key string) (any, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		if strings.EqualFold(f.Name, key) || tagName(f.Tag.Get("yaml")) == key || tagName(f.Tag.Get("json")) == key {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

func tagName(tag string) string {
	if i := strings.IndexByte(tag, ','); i >= 0 {
		tag = tag[:i]
	}
	if tag == "-" {
		return ""
	}
	return tag
}

func index(n int, key string, at func(int) any) (any, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= n {
		return nil, false
	}
	return at(i), true
}

package scene

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// OperandFunc turns a template operand into a value.
type OperandFunc func(template string) (any, error)

// EvalCondition evaluates a binding condition.
// Supported forms:
//   - "" (always true)
//   - a single operand, tested for truthiness
//   - "<operand> == <operand>" and "<operand> != <operand>"
//   - any of the above joined by && and ||, && binding tighter
//
// Operands are templates, quoted strings, numbers, true, false or null.
func EvalCondition(expr string, resolve OperandFunc) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}

	if parts := splitTop(expr, "||"); len(parts) > 1 {
		for _, p := range parts {
			ok, err := EvalCondition(p, resolve)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	if parts := splitTop(expr, "&&"); len(parts) > 1 {
		for _, p := range parts {
			ok, err := EvalCondition(p, resolve)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}

	for _, op := range []string{"!=", "=="} {
		if parts := splitTop(expr, op); len(parts) == 2 {
			left, err := operand(parts[0], resolve)
			if err != nil {
				return false, err
			}
			right, err := operand(parts[1], resolve)
			if err != nil {
				return false, err
			}
			eq := equal(left, right)
			if op == "!=" {
				return !eq, nil
			}
			return eq, nil
		} else if len(parts) > 2 {
			return false, fmt.Errorf("condition %q chains %s comparisons", expr, op)
		}
	}

	v, err := operand(expr, resolve)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

// splitTop splits expr on op, ignoring occurrences inside quotes or ${...}.
func splitTop(expr, op string) []string {
	var parts []string
	var quote byte
	depth := 0
	start := 0
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '$' && i+1 < len(expr) && expr[i+1] == '{':
			depth++
			i++
		case c == '}' && depth > 0:
			depth--
		case depth == 0 && strings.HasPrefix(expr[i:], op):
			parts = append(parts, strings.TrimSpace(expr[start:i]))
			i += len(op) - 1
			start = i + 1
		}
	}
	return append(parts, strings.TrimSpace(expr[start:]))
}

func operand(raw string, resolve OperandFunc) (any, error) {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return nil, fmt.Errorf("missing operand")
	case strings.HasPrefix(s, "${"):
		return resolve(s)
	case len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0]:
		return s[1 : len(s)-1], nil
	case s == "true":
		return true, nil
	case s == "false":
		return false, nil
	case s == "null":
		return nil, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("unrecognized operand %q", s)
}

func equal(a, b any) bool {
	af, aNum := number(a)
	bf, bNum := number(b)
	if aNum && bNum {
		return af == bf
	}
	if as, ok := a.(fmt.Stringer); ok {
		a = as.String()
	}
	if bs, ok := b.(fmt.Stringer); ok {
		b = bs.String()
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func truthy(v any) bool {
	if f, ok := number(v); ok {
		return f != 0
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer:
		return !rv.IsNil()
	}
	return true
}

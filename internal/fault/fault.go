// Package fault defines the categorized errors raised by the script engine.
//
// Every hard failure carries a category marker (checked with errors.Is), a
// message, an optional remedy for the script author, and structured fields
// that locate the failure (event type/index or act/shot/beat position).
// Resolution misses are never reported through this package.
package fault

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Category names one class of engine failure.
type Category string

const (
	CategoryTemplateSyntax Category = "template_syntax"
	CategoryRegistry       Category = "registry"
	CategoryDurationConfig Category = "duration_config"
	CategoryExecution      Category = "execution"
)

var (
	ErrTemplateSyntax = errors.New("template syntax error")
	ErrRegistry       = errors.New("registry error")
	ErrDurationConfig = errors.New("duration config error")
	ErrExecution      = errors.New("execution error")
)

func marker(cat Category) error {
	switch cat {
	case CategoryTemplateSyntax:
		return ErrTemplateSyntax
	case CategoryRegistry:
		return ErrRegistry
	case CategoryDurationConfig:
		return ErrDurationConfig
	default:
		return ErrExecution
	}
}

// Error is a categorized engine failure.
type Error struct {
	Category Category
	Message  string
	Remedy   string
	Fields   map[string]any
	Err      error
}

// New builds an error of the given category.
func New(cat Category, message, remedy string) *Error {
	return &Error{Category: cat, Message: message, Remedy: remedy}
}

// Newf is New with a formatted message and no remedy.
func Newf(cat Category, format string, args ...any) *Error {
	return &Error{Category: cat, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with a category and message. A nil err yields a plain
// categorized error.
func Wrap(cat Category, err error, message string) *Error {
	return &Error{Category: cat, Message: message, Err: err}
}

// With returns a copy of e carrying an extra structured field.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Fields = make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		cp.Fields[k] = v
	}
	cp.Fields[key] = value
	return &cp
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Category))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Fields[k])
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the category marker and the wrapped cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{marker(e.Category)}
	}
	return []error{marker(e.Category), e.Err}
}

// CategoryOf reports the category of the outermost *Error in err's chain.
func CategoryOf(err error) (Category, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Category, true
	}
	return "", false
}

// RemedyOf returns the first non-empty remedy found in err's chain.
func RemedyOf(err error) string {
	for err != nil {
		var fe *Error
		if !errors.As(err, &fe) {
			return ""
		}
		if fe.Remedy != "" {
			return fe.Remedy
		}
		err = fe.Err
	}
	return ""
}

// FieldsOf merges the structured fields of every *Error in err's chain.
// Outer fields win over inner ones.
func FieldsOf(err error) map[string]any {
	out := map[string]any{}
	var chain []*Error
	for err != nil {
		var fe *Error
		if !errors.As(err, &fe) {
			break
		}
		chain = append(chain, fe)
		err = fe.Err
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].Fields {
			out[k] = v
		}
	}
	return out
}

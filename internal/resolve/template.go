// Package resolve evaluates ${resolver:path[,default]} templates against an
// explicit bundle of data scopes.
//
// A string is a template only when the whole string matches the grammar;
// there is no embedded substitution. Resolution never mutates shared state:
// callers pass a Context, and the result is tagged so a deferred template can
// never be mistaken for a resolved string.
package resolve

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AaronLay10/algoscene/internal/fault"
)

var templatePattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*):([^,{}]+)(?:,(.*))?\}$`)

// Template is one parsed template expression.
type Template struct {
	Text       string
	Resolver   string
	Path       []string
	Default    string
	HasDefault bool
}

// PathString returns the dot-joined path.
func (t Template) PathString() string {
	return strings.Join(t.Path, ".")
}

// Parse reports whether s is a template and parses it. Strings shaped like a
// template that do not match the grammar are a TemplateSyntaxError.
func Parse(s string) (Template, bool, error) {
	if !strings.HasPrefix(s, "${") {
		return Template{}, false, nil
	}
	m := templatePattern.FindStringSubmatch(s)
	if m == nil {
		if strings.HasSuffix(s, "}") {
			return Template{}, false, syntaxError(s, "expected ${resolver:path[,default]}")
		}
		return Template{}, false, nil
	}
	path := strings.Split(strings.TrimSpace(m[2]), ".")
	for _, seg := range path {
		if strings.TrimSpace(seg) == "" {
			return Template{}, false, syntaxError(s, "empty path segment")
		}
	}
	for i := range path {
		path[i] = strings.TrimSpace(path[i])
	}
	t := Template{
		Text:     s,
		Resolver: m[1],
		Path:     path,
	}
	if rest := s[len("${")+len(m[1])+1+len(m[2]):]; strings.HasPrefix(rest, ",") {
		t.Default = m[3]
		t.HasDefault = true
	}
	return t, true, nil
}

func syntaxError(text, detail string) *fault.Error {
	return fault.New(fault.CategoryTemplateSyntax,
		fmt.Sprintf("malformed template %q: %s", text, detail),
		"write templates as ${resolver:path} or ${resolver:path,default}").
		With("template", text)
}

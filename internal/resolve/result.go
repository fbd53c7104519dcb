package resolve

// Kind tags the outcome of resolving one template.
type Kind int

const (
	KindResolved Kind = iota
	KindDeferred
	KindMissing
)

func (k Kind) String() string {
	switch k {
	case KindResolved:
		return "resolved"
	case KindDeferred:
		return "deferred"
	default:
		return "missing"
	}
}

// Result is a tagged resolution outcome. Value is set for KindResolved and
// Text for KindDeferred.
type Result struct {
	Kind  Kind
	Value any
	Text  string
}

func Resolved(v any) Result { return Result{Kind: KindResolved, Value: v} }

func Defer(text string) Result { return Result{Kind: KindDeferred, Text: text} }

func Missing() Result { return Result{Kind: KindMissing} }

// Deferred is an unresolved template handed to a widget. Widgets resolve it
// against live state with DeferredState.
type Deferred string

// Plain converts r into the value a widget receives: the value itself,
// a Deferred, or nil.
func (r Result) Plain() any {
	switch r.Kind {
	case KindResolved:
		return r.Value
	case KindDeferred:
		return Deferred(r.Text)
	default:
		return nil
	}
}

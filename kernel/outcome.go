package kernel

import "github.com/dop251/goja"

// OutcomeKind says what a run produced.
type OutcomeKind int

const (
	// OutcomeNone marks a run that finished on a statement or on
	// undefined, leaving nothing to display.
	OutcomeNone OutcomeKind = iota
	// OutcomeValue marks a run whose final expression produced a value.
	OutcomeValue
	// OutcomeUnsupported marks a cell whose language has no runtime; its
	// source was not executed.
	OutcomeUnsupported
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeValue:
		return "value"
	case OutcomeNone:
		return "none"
	case OutcomeUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// Outcome is the result of running one snippet.
type Outcome struct {
	Kind     OutcomeKind
	Language string

	// Value is the final expression's value, set only for OutcomeValue.
	Value goja.Value

	// Rendered is the display form of Value.
	Rendered string

	// Async reports that the snippet ran in the suspension-capable shell
	// and its result came from awaiting the shell's promise.
	Async bool

	// Bound lists the names the snippet published onto the session
	// namespace, in declaration order.
	Bound []string
}

// HasValue reports whether the run produced a displayable value.
func (o Outcome) HasValue() bool {
	return o.Kind == OutcomeValue
}

package mirror

import "fmt"

// Kind identifies the category of a declaration mirror.
// Queries filter member entries by tag equality instead of open-ended
// dynamic type tests, so consumers can dispatch without downcasting.
type Kind int

const (
	// KindAny matches every mirror kind in filtered queries.
	// It is never the kind of a stored mirror.
	KindAny Kind = iota
	// KindClass identifies a class declaration
	KindClass
	// KindMethod identifies a method declaration
	KindMethod
	// KindProperty identifies a property declaration
	KindProperty
	// KindParameter identifies a constructor or method parameter position
	KindParameter
)

// String returns the string representation of the mirror kind
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	case KindProperty:
		return "property"
	case KindParameter:
		return "parameter"
	default:
		return "unknown"
	}
}

// ParseKind converts a string to a Kind
func ParseKind(s string) (Kind, error) {
	switch s {
	case "any", "":
		return KindAny, nil
	case "class":
		return KindClass, nil
	case "method":
		return KindMethod, nil
	case "property":
		return KindProperty, nil
	case "parameter":
		return KindParameter, nil
	default:
		return 0, fmt.Errorf("unknown mirror kind: %s", s)
	}
}

// matches reports whether a stored mirror kind satisfies a filter kind.
func (k Kind) matches(filter Kind) bool {
	return filter == KindAny || k == filter
}

package types

// Kind is the tag of a JSON value. The order of the constants is the order
// used when comparing values of different kinds.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindFalse
	KindTrue
	KindNumber
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindInvalid: "<invalid>",
	KindNull:    "null",
	KindFalse:   "boolean",
	KindTrue:    "boolean",
	KindNumber:  "number",
	KindString:  "string",
	KindArray:   "array",
	KindObject:  "object",
}

// String returns the user-facing name of the kind, as reported by type/0.
func (k Kind) String() string {
	if k < KindInvalid || int(k) >= len(kindNames) {
		return kindNames[KindInvalid]
	}
	return kindNames[k]
}

// KindOf classifies a value. Values are nil, bool, float64, string,
// []any or map[string]any; anything else is invalid.
func KindOf(v any) Kind {
	switch v := v.(type) {
	case nil:
		return KindNull
	case bool:
		if v {
			return KindTrue
		}
		return KindFalse
	case float64:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return KindInvalid
	}
}

// KindName is shorthand for KindOf(v).String().
func KindName(v any) string {
	return KindOf(v).String()
}

// IsTruthy reports whether v counts as true in a condition: everything
// except null and false.
func IsTruthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		return true
	}
}

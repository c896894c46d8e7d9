package builtins

import (
	"math"
	"strings"

	"github.com/sandrolain/jqcore/pkg/types"
	"github.com/sandrolain/jqcore/pkg/value"
)

// maxRepeatBytes bounds the result of string repetition.
const maxRepeatBytes = math.MaxInt32

// Add implements `+`. Null is absorbed on either side.
func Add(a, b any) (any, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			return x + y, nil
		}
	case string:
		if y, ok := b.(string); ok {
			return x + y, nil
		}
	case []any:
		if y, ok := b.([]any); ok {
			out := make([]any, 0, len(x)+len(y))
			return append(append(out, x...), y...), nil
		}
	case map[string]any:
		if y, ok := b.(map[string]any); ok {
			out := make(map[string]any, len(x)+len(y))
			for k, v := range x {
				out[k] = v
			}
			for k, v := range y {
				out[k] = v
			}
			return out, nil
		}
	}
	return nil, types.TypeError2(a, b, "cannot be added")
}

// Subtract implements `-`. For arrays it removes from a every element equal
// to some element of b.
func Subtract(a, b any) (any, error) {
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			return x - y, nil
		}
	case []any:
		if y, ok := b.([]any); ok {
			out := make([]any, 0, len(x))
		next:
			for _, e := range x {
				for _, r := range y {
					if value.Equal(e, r) {
						continue next
					}
				}
				out = append(out, e)
			}
			return out, nil
		}
	}
	return nil, types.TypeError2(a, b, "cannot be subtracted")
}

// Multiply implements `*`: numeric product, string repetition and deep
// object merge.
func Multiply(a, b any) (any, error) {
	switch x := a.(type) {
	case float64:
		switch y := b.(type) {
		case float64:
			return x * y, nil
		case string:
			return repeatString(y, x)
		}
	case string:
		if y, ok := b.(float64); ok {
			return repeatString(x, y)
		}
	case map[string]any:
		if y, ok := b.(map[string]any); ok {
			return value.MergeRecursive(x, y), nil
		}
	}
	return nil, types.TypeError2(a, b, "cannot be multiplied")
}

// repeatString yields null for a negative or NaN count.
func repeatString(s string, n float64) (any, error) {
	if n < 0 || math.IsNaN(n) {
		return nil, nil
	}
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	count := int(n)
	if len(s) > 0 && count > maxRepeatBytes/len(s) {
		return nil, types.NewError(types.ErrDomain, "Repeat string result too long")
	}
	return strings.Repeat(s, count), nil
}

// Divide implements `/`: numeric quotient or string split.
func Divide(a, b any) (any, error) {
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			if y == 0 {
				return nil, types.ValueError2(types.ErrZeroDivisor, a, b, "cannot be divided because the divisor is zero")
			}
			return x / y, nil
		}
	case string:
		if y, ok := b.(string); ok {
			return splitString(x, y), nil
		}
	}
	return nil, types.TypeError2(a, b, "cannot be divided")
}

// Modulo implements `%` on operands truncated to integers.
func Modulo(a, b any) (any, error) {
	x, ok1 := a.(float64)
	y, ok2 := b.(float64)
	if !ok1 || !ok2 {
		return nil, types.TypeError2(a, b, "cannot be divided (remainder)")
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.NaN(), nil
	}
	bi := dtoi(y)
	if bi == 0 {
		return nil, types.ValueError2(types.ErrZeroDivisor, a, b, "cannot be divided (remainder) because the divisor is zero")
	}
	if bi == -1 {
		return 0.0, nil
	}
	return float64(dtoi(x) % bi), nil
}

// dtoi truncates toward zero, saturating at the int64 limits.
func dtoi(f float64) int64 {
	switch {
	case f <= math.MinInt64:
		return math.MinInt64
	case f >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(f)
}

// Equal implements `==`.
func Equal(a, b any) (any, error) { return value.Equal(a, b), nil }

// NotEqual implements `!=`.
func NotEqual(a, b any) (any, error) { return !value.Equal(a, b), nil }

// Less implements `<`.
func Less(a, b any) (any, error) { return value.Compare(a, b) < 0, nil }

// LessEq implements `<=`.
func LessEq(a, b any) (any, error) { return value.Compare(a, b) <= 0, nil }

// Greater implements `>`.
func Greater(a, b any) (any, error) { return value.Compare(a, b) > 0, nil }

// GreaterEq implements `>=`.
func GreaterEq(a, b any) (any, error) { return value.Compare(a, b) >= 0, nil }

// Negate implements unary minus.
func Negate(a any) (any, error) {
	if x, ok := a.(float64); ok {
		return -x, nil
	}
	return nil, types.TypeError(a, "cannot be negated")
}

func fnNegate(_ Env, args []any) (any, error) {
	return Negate(args[0])
}

package builtins

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sandrolain/jqcore/pkg/types"
	"github.com/sandrolain/jqcore/pkg/value"
)

// Conversion and type functions

func fnToJSON(_ Env, args []any) (any, error) {
	return types.Dump(args[0]), nil
}

func fnFromJSON(_ Env, args []any) (any, error) {
	s, ok := args[0].(string)
	if !ok {
		return nil, types.TypeError(args[0], "only strings can be parsed")
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, types.Errorf(types.ErrInvalidJSON, "%s (while parsing '%s')", err, s).WithCause(err)
	}
	return v, nil
}

func fnToNumber(_ Env, args []any) (any, error) {
	switch v := args[0].(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimLeft(v, " \t\n\v\f\r"), 64)
		if err != nil {
			if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
				return nil, types.ValueError(types.ErrDomain, v, "cannot be parsed as a number")
			}
		}
		return f, nil
	}
	return nil, types.TypeError(args[0], "cannot be parsed as a number")
}

func fnToBoolean(_ Env, args []any) (any, error) {
	switch v := args[0].(type) {
	case bool:
		return v, nil
	case string:
		switch v {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return nil, types.TypeError(args[0], "cannot be parsed as a boolean")
}

func fnToString(_ Env, args []any) (any, error) {
	return toString(args[0]), nil
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return types.Dump(v)
}

func fnKeys(_ Env, args []any) (any, error) {
	return value.Keys(args[0])
}

func fnLength(_ Env, args []any) (any, error) {
	switch v := args[0].(type) {
	case nil:
		return 0.0, nil
	case float64:
		return math.Abs(v), nil
	case string:
		return float64(utf8.RuneCountInString(v)), nil
	case []any:
		return float64(len(v)), nil
	case map[string]any:
		return float64(len(v)), nil
	}
	return nil, types.TypeError(args[0], "has no length")
}

func fnUTF8ByteLength(_ Env, args []any) (any, error) {
	s, ok := args[0].(string)
	if !ok {
		return nil, types.TypeError(args[0], "only strings have UTF-8 byte length")
	}
	return float64(len(s)), nil
}

func fnType(_ Env, args []any) (any, error) {
	return types.KindName(args[0]), nil
}

func numberArg(v any) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, types.TypeError(v, "number required")
	}
	return f, nil
}

// The number predicates are false for every other kind.

func fnIsInfinite(_ Env, args []any) (any, error) {
	f, ok := args[0].(float64)
	return ok && math.IsInf(f, 0), nil
}

func fnIsNaN(_ Env, args []any) (any, error) {
	f, ok := args[0].(float64)
	return ok && math.IsNaN(f), nil
}

// fnIsNormal follows C isnormal: finite, non-zero and not subnormal.
func fnIsNormal(_ Env, args []any) (any, error) {
	f, ok := args[0].(float64)
	if !ok {
		return false, nil
	}
	a := math.Abs(f)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && a >= 0x1p-1022, nil
}

func fnInfinite(_ Env, _ []any) (any, error) { return math.Inf(1), nil }
func fnNaN(_ Env, _ []any) (any, error)      { return math.NaN(), nil }
func fnFalse(_ Env, _ []any) (any, error)    { return false, nil }

// Paths and containment

func fnContains(_ Env, args []any) (any, error) {
	a, b := args[0], args[1]
	if types.KindOf(a) != types.KindOf(b) {
		return nil, types.TypeError2(a, b, "cannot have their containment checked")
	}
	return value.Contains(a, b), nil
}

func fnHas(_ Env, args []any) (any, error) {
	return value.Has(args[0], args[1])
}

func fnSetPath(_ Env, args []any) (any, error) {
	return value.SetPath(args[0], args[1], args[2])
}

func fnGetPath(env Env, args []any) (any, error) {
	v, err := value.GetPath(args[0], args[1])
	if err != nil {
		return nil, err
	}
	return env.PathAppend(args[0], args[1], v)
}

func fnDelPaths(_ Env, args []any) (any, error) {
	return value.DelPaths(args[0], args[1])
}

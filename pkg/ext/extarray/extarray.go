// Package extarray provides array functions that jq does not ship. The
// input of each call is the array; the argument is the second operand.
// Register them with ext.WithArray or pick single definitions.
package extarray

import (
	"math"

	"github.com/sandrolain/jqcore/pkg/functions"
	"github.com/sandrolain/jqcore/pkg/types"
)

// All returns all extended array function definitions.
func All() []functions.CustomFunctionDef {
	return []functions.CustomFunctionDef{
		Take(),
		Skip(),
		Chunk(),
		Window(),
		Union(),
		Intersection(),
		Difference(),
		SymmetricDifference(),
	}
}

// AllEntries returns all array function definitions as [functions.FunctionEntry].
func AllEntries() []functions.FunctionEntry {
	all := All()
	out := make([]functions.FunctionEntry, len(all))
	for i, f := range all {
		out[i] = f
	}
	return out
}

// Take returns the definition for take($n): the first n elements.
func Take() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:   "take",
		Params: 1,
		Fn: func(input any, args ...any) (any, error) {
			arr, n, err := arrayAndCount(input, args[0], "cannot be taken from")
			if err != nil {
				return nil, err
			}
			return append([]any{}, arr[:n]...), nil
		},
	}
}

// Skip returns the definition for skip($n): everything after the first n
// elements.
func Skip() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:   "skip",
		Params: 1,
		Fn: func(input any, args ...any) (any, error) {
			arr, n, err := arrayAndCount(input, args[0], "cannot be skipped in")
			if err != nil {
				return nil, err
			}
			return append([]any{}, arr[n:]...), nil
		},
	}
}

// Chunk returns the definition for chunk($size).
func Chunk() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:   "chunk",
		Params: 1,
		Fn: func(input any, args ...any) (any, error) {
			arr, ok := input.([]any)
			if !ok {
				return nil, types.TypeError(input, "cannot be chunked")
			}
			size, ok := positive(args[0])
			if !ok {
				return nil, types.NewError(types.ErrDomain, "chunk size must be a positive integer")
			}
			chunks := []any{}
			for i := 0; i < len(arr); i += size {
				end := min(i+size, len(arr))
				chunks = append(chunks, append([]any{}, arr[i:end]...))
			}
			return chunks, nil
		},
	}
}

// Window returns the definition for window($size): every run of size
// consecutive elements.
func Window() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:   "window",
		Params: 1,
		Fn: func(input any, args ...any) (any, error) {
			arr, ok := input.([]any)
			if !ok {
				return nil, types.TypeError(input, "cannot be windowed")
			}
			size, ok := positive(args[0])
			if !ok {
				return nil, types.NewError(types.ErrDomain, "window size must be a positive integer")
			}
			out := []any{}
			for i := 0; i+size <= len(arr); i++ {
				out = append(out, append([]any{}, arr[i:i+size]...))
			}
			return out, nil
		},
	}
}

// Union returns the definition for union($other): the distinct elements of
// both arrays in first-seen order.
func Union() functions.CustomFunctionDef {
	return setOp("union", func(inA, inB bool) bool { return true })
}

// Intersection returns the definition for intersection($other).
func Intersection() functions.CustomFunctionDef {
	return setOp("intersection", func(inA, inB bool) bool { return inA && inB })
}

// Difference returns the definition for difference($other): elements of the
// input that are not in other.
func Difference() functions.CustomFunctionDef {
	return setOp("difference", func(inA, inB bool) bool { return inA && !inB })
}

// SymmetricDifference returns the definition for symmetric_difference($other).
func SymmetricDifference() functions.CustomFunctionDef {
	return setOp("symmetric_difference", func(inA, inB bool) bool { return inA != inB })
}

// setOp walks the input then the argument and keeps the first occurrence of
// each element for which keep holds. Elements are identified by their
// canonical JSON text.
func setOp(name string, keep func(inA, inB bool) bool) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:   name,
		Params: 1,
		Fn: func(input any, args ...any) (any, error) {
			a, okA := input.([]any)
			b, okB := args[0].([]any)
			if !okA || !okB {
				return nil, types.TypeError2(input, args[0], "cannot be combined by "+name)
			}
			setA, setB := keys(a), keys(b)
			seen := make(map[string]bool)
			out := []any{}
			for _, item := range append(append([]any{}, a...), b...) {
				k := types.Dump(item)
				if seen[k] || !keep(setA[k], setB[k]) {
					continue
				}
				seen[k] = true
				out = append(out, item)
			}
			return out, nil
		},
	}
}

// ── helpers ────────────────────────────────────────────────────────────────

func keys(arr []any) map[string]bool {
	set := make(map[string]bool, len(arr))
	for _, item := range arr {
		set[types.Dump(item)] = true
	}
	return set
}

func arrayAndCount(input, n any, clause string) ([]any, int, error) {
	arr, ok := input.([]any)
	if !ok {
		return nil, 0, types.TypeError(input, "is not an array")
	}
	f, ok := n.(float64)
	if !ok {
		return nil, 0, types.TypeError(n, clause+" an array")
	}
	count := int(math.Max(0, math.Min(f, float64(len(arr)))))
	return arr, count, nil
}

func positive(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f < 1 || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

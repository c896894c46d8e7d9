// Package value implements the observable contract of JSON values that the
// builtins rely on: a total order, deep equality, containment, indexing and
// path navigation.
//
// Values are nil, bool, float64, string, []any and map[string]any. Every
// function here treats its arguments as immutable and returns fresh
// containers when it needs to change one, so callers may share structure
// freely between inputs and results.
package value

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/sandrolain/jqcore/pkg/types"
)

// Normalize converts host Go values into the canonical representation:
// integers and json.Number become float64, typed slices and maps become
// []any and map[string]any.
func Normalize(v any) any {
	switch v := v.(type) {
	case nil, bool, float64, string:
		return v
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return v.String()
		}
		return f
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = Normalize(e)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = Normalize(e)
		}
		return out
	default:
		return v
	}
}

// Compare orders two values: by kind first (null < false < true < numbers <
// strings < arrays < objects), then by content. It returns a negative
// number, zero or a positive number.
func Compare(a, b any) int {
	ka, kb := types.KindOf(a), types.KindOf(b)
	if ka != kb {
		return cmpInt(int(ka), int(kb))
	}
	switch ka {
	case types.KindNumber:
		return compareNumbers(a.(float64), b.(float64))
	case types.KindString:
		return strings.Compare(a.(string), b.(string))
	case types.KindArray:
		return compareArrays(a.([]any), b.([]any))
	case types.KindObject:
		return compareObjects(a.(map[string]any), b.(map[string]any))
	}
	return 0
}

// compareNumbers places NaN below every other number.
func compareNumbers(x, y float64) int {
	switch xn, yn := math.IsNaN(x), math.IsNaN(y); {
	case xn && yn:
		return 0
	case xn:
		return -1
	case yn:
		return 1
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func compareArrays(a, b []any) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(a), len(b))
}

func compareObjects(a, b map[string]any) int {
	ka, kb := SortedKeys(a), SortedKeys(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := strings.Compare(ka[i], kb[i]); c != 0 {
			return c
		}
	}
	if c := cmpInt(len(ka), len(kb)); c != 0 {
		return c
	}
	for _, k := range ka {
		if c := Compare(a[k], b[k]); c != 0 {
			return c
		}
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal reports deep structural equality. Numbers compare with IEEE
// semantics, so NaN is not equal to itself.
func Equal(a, b any) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case bool:
		bb, ok := b.(bool)
		return ok && a == bb
	case float64:
		bf, ok := b.(float64)
		return ok && a == bf
	case string:
		bs, ok := b.(string)
		return ok && a == bs
	case []any:
		ba, ok := b.([]any)
		if !ok || len(a) != len(ba) {
			return false
		}
		for i := range a {
			if !Equal(a[i], ba[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bo, ok := b.(map[string]any)
		if !ok || len(a) != len(bo) {
			return false
		}
		for k, av := range a {
			bv, ok := bo[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Identical reports whether a and b are the same value for path tracking:
// the same container, or structurally equal with NaN equal to itself.
func Identical(a, b any) bool {
	switch a := a.(type) {
	case []any:
		if b, ok := b.([]any); ok && len(a) == len(b) && len(a) > 0 && &a[0] == &b[0] {
			return true
		}
	case map[string]any:
		if b, ok := b.(map[string]any); ok && reflect.ValueOf(a).UnsafePointer() == reflect.ValueOf(b).UnsafePointer() {
			return true
		}
	}
	return Compare(a, b) == 0
}

// Contains implements containment: objects contain objects whose keys they
// all have with contained values, arrays contain arrays whose every element
// is contained by some element, strings contain substrings, and any other
// pair must be equal.
func Contains(a, b any) bool {
	switch a := a.(type) {
	case map[string]any:
		bo, ok := b.(map[string]any)
		if !ok {
			return false
		}
		for k, bv := range bo {
			av, ok := a[k]
			if !ok || !Contains(av, bv) {
				return false
			}
		}
		return true
	case []any:
		ba, ok := b.([]any)
		if !ok {
			return false
		}
	outer:
		for _, be := range ba {
			for _, ae := range a {
				if Contains(ae, be) {
					continue outer
				}
			}
			return false
		}
		return true
	case string:
		bs, ok := b.(string)
		return ok && strings.Contains(a, bs)
	}
	return Equal(a, b)
}

// SortedKeys returns the keys of an object in codepoint order.
func SortedKeys(o map[string]any) []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Keys returns the sorted keys of an object or the indices of an array.
func Keys(v any) ([]any, error) {
	switch v := v.(type) {
	case map[string]any:
		keys := SortedKeys(v)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = float64(i)
		}
		return out, nil
	}
	return nil, types.TypeError(v, "has no keys")
}

// Has reports whether an object has a string key or an array has an
// element at a numeric index.
func Has(t, k any) (bool, error) {
	switch t := t.(type) {
	case map[string]any:
		if s, ok := k.(string); ok {
			_, found := t[s]
			return found, nil
		}
	case []any:
		if f, ok := k.(float64); ok {
			if math.IsNaN(f) {
				return false, nil
			}
			return f >= 0 && f < float64(len(t)), nil
		}
	}
	return false, types.Errorf(types.ErrIndex, "Cannot check whether %s has a %s key",
		types.KindName(t), types.KindName(k))
}

// MergeRecursive merges b into a: keys present in both whose values are
// both objects are merged recursively, anything else from b overwrites.
func MergeRecursive(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, bv := range b {
		if ao, ok := out[k].(map[string]any); ok {
			if bo, ok := bv.(map[string]any); ok {
				out[k] = MergeRecursive(ao, bo)
				continue
			}
		}
		out[k] = bv
	}
	return out
}

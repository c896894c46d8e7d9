package builtins

import (
	"sort"

	"github.com/sandrolain/jqcore/pkg/types"
	"github.com/sandrolain/jqcore/pkg/value"
)

type sortEntry struct {
	object any
	key    any
}

// sortByKeys stably sorts values by the parallel keys sequence.
func sortByKeys(values, keys []any) []sortEntry {
	entries := make([]sortEntry, len(values))
	for i := range values {
		entries[i] = sortEntry{object: values[i], key: keys[i]}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return value.Compare(entries[i].key, entries[j].key) < 0
	})
	return entries
}

// keyedArrays validates the (values, keys) pair shared by the *_by_impl
// builtins.
func keyedArrays(values, keys any) ([]any, []any, error) {
	va, ok1 := values.([]any)
	ka, ok2 := keys.([]any)
	if !ok1 || !ok2 || len(va) != len(ka) {
		return nil, nil, types.TypeError2(values, keys, "cannot be sorted, as they are not both arrays")
	}
	return va, ka, nil
}

// Sort sorts an array by the total value order.
func Sort(v any) (any, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, types.TypeError(v, "cannot be sorted, as it is not an array")
	}
	return SortBy(arr, arr)
}

// SortBy stably sorts values by keys.
func SortBy(values, keys any) (any, error) {
	va, ka, err := keyedArrays(values, keys)
	if err != nil {
		return nil, err
	}
	entries := sortByKeys(va, ka)
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = e.object
	}
	return out, nil
}

// GroupBy sorts values by keys and partitions them into runs of equal keys.
func GroupBy(values, keys any) (any, error) {
	va, ka, err := keyedArrays(values, keys)
	if err != nil {
		return nil, err
	}
	out := []any{}
	var group []any
	var last any
	for i, e := range sortByKeys(va, ka) {
		if i > 0 && value.Compare(last, e.key) != 0 {
			out = append(out, group)
			group = nil
		}
		group = append(group, e.object)
		last = e.key
	}
	if group != nil {
		out = append(out, group)
	}
	return out, nil
}

// UniqueBy sorts values by keys and keeps the first element of each run of
// equal keys.
func UniqueBy(values, keys any) (any, error) {
	va, ka, err := keyedArrays(values, keys)
	if err != nil {
		return nil, err
	}
	out := []any{}
	var last any
	for i, e := range sortByKeys(va, ka) {
		if i == 0 || value.Compare(last, e.key) != 0 {
			out = append(out, e.object)
		}
		last = e.key
	}
	return out, nil
}

// MinMaxBy scans linearly and replaces the running best only on a strict
// improvement, so ties keep the earliest element. Empty input yields null.
func MinMaxBy(values, keys any, isMin bool) (any, error) {
	va, ok1 := values.([]any)
	ka, ok2 := keys.([]any)
	if !ok1 || !ok2 {
		return nil, types.TypeError2(values, keys, "cannot be iterated over")
	}
	if len(va) != len(ka) {
		return nil, types.ValueError2(types.ErrDomain, values, keys, "have wrong length")
	}
	if len(va) == 0 {
		return nil, nil
	}
	best, bestKey := va[0], ka[0]
	for i := 1; i < len(va); i++ {
		c := value.Compare(ka[i], bestKey)
		if (isMin && c < 0) || (!isMin && c > 0) {
			best, bestKey = va[i], ka[i]
		}
	}
	return best, nil
}

// Bsearch returns the index of target in the sorted array, or
// -1-insertionPoint when it is absent.
func Bsearch(v, target any) (any, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, types.TypeError(v, "cannot be searched from")
	}
	start, end := 0, len(arr)
	for start < end {
		mid := start + (end-start)/2
		switch c := value.Compare(target, arr[mid]); {
		case c == 0:
			return float64(mid), nil
		case c < 0:
			end = mid
		default:
			start = mid + 1
		}
	}
	return float64(-1 - start), nil
}

func fnSort(_ Env, args []any) (any, error)         { return Sort(args[0]) }
func fnSortByImpl(_ Env, args []any) (any, error)   { return SortBy(args[0], args[1]) }
func fnGroupByImpl(_ Env, args []any) (any, error)  { return GroupBy(args[0], args[1]) }
func fnUniqueByImpl(_ Env, args []any) (any, error) { return UniqueBy(args[0], args[1]) }
func fnBsearch(_ Env, args []any) (any, error)      { return Bsearch(args[0], args[1]) }
func fnMinByImpl(_ Env, args []any) (any, error)    { return MinMaxBy(args[0], args[1], true) }
func fnMaxByImpl(_ Env, args []any) (any, error)    { return MinMaxBy(args[0], args[1], false) }

func fnUnique(_ Env, args []any) (any, error) {
	arr, ok := args[0].([]any)
	if !ok {
		return nil, types.TypeError(args[0], "cannot be sorted, as it is not an array")
	}
	return UniqueBy(arr, arr)
}

func fnMin(_ Env, args []any) (any, error) { return MinMaxBy(args[0], args[0], true) }
func fnMax(_ Env, args []any) (any, error) { return MinMaxBy(args[0], args[0], false) }

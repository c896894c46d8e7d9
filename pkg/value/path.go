package value

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/sandrolain/jqcore/pkg/types"
)

// Index returns t[k]: an object field, an array element (negative indices
// count from the end), an array or string slice when k is an object with
// "start"/"end", or the positions of a sub-array. Indexing null yields null.
// Absent keys and out-of-range indices yield null.
func Index(t, k any) (any, error) {
	switch t := t.(type) {
	case nil:
		switch k.(type) {
		case string, float64, map[string]any:
			return nil, nil
		}
	case map[string]any:
		if s, ok := k.(string); ok {
			return t[s], nil
		}
	case []any:
		switch k := k.(type) {
		case float64:
			if i, ok := arrayIndex(len(t), k); ok {
				return t[i], nil
			}
			return nil, nil
		case map[string]any:
			start, end, err := sliceBounds(len(t), k)
			if err != nil {
				return nil, err
			}
			return t[start:end:end], nil
		case []any:
			return Indices(t, k), nil
		}
	case string:
		if k, ok := k.(map[string]any); ok {
			runes := []rune(t)
			start, end, err := sliceBounds(len(runes), k)
			if err != nil {
				return nil, err
			}
			return string(runes[start:end]), nil
		}
	}
	return nil, indexError(t, k)
}

func indexError(t, k any) *types.Error {
	if s, ok := k.(string); ok && len(s) < 30 {
		return types.Errorf(types.ErrIndex, "Cannot index %s with \"%s\"", types.KindName(t), s)
	}
	return types.Errorf(types.ErrIndex, "Cannot index %s with %s", types.KindName(t), types.KindName(k))
}

// arrayIndex resolves a numeric index against an array of length n.
func arrayIndex(n int, f float64) (int, bool) {
	if math.IsNaN(f) {
		return 0, false
	}
	f = math.Floor(f)
	if f < 0 {
		f += float64(n)
	}
	if f < 0 || f >= float64(n) {
		return 0, false
	}
	return int(f), true
}

// sliceBounds reads {"start","end"} and clamps both into [0, n].
func sliceBounds(n int, k map[string]any) (int, int, error) {
	bound := func(name string, def float64, round func(float64) float64) (int, error) {
		v, ok := k[name]
		if !ok || v == nil {
			return int(def), nil
		}
		f, ok := v.(float64)
		if !ok {
			return 0, types.NewError(types.ErrIndex, "Start and end indices of an array slice must be numbers")
		}
		if math.IsNaN(f) {
			f = 0
		}
		f = round(f)
		if f < 0 {
			f += float64(n)
		}
		return int(math.Min(math.Max(f, 0), float64(n))), nil
	}
	start, err := bound("start", 0, math.Floor)
	if err != nil {
		return 0, 0, err
	}
	end, err := bound("end", float64(n), math.Ceil)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

// Indices returns the positions at which b occurs as a contiguous run in a,
// or null when it never does.
func Indices(a, b []any) any {
	if len(b) == 0 {
		return nil
	}
	var out []any
	for i := 0; i+len(b) <= len(a); i++ {
		match := true
		for j := range b {
			if !Equal(a[i+j], b[j]) {
				match = false
				break
			}
		}
		if match {
			out = append(out, float64(i))
		}
	}
	if out == nil {
		return nil
	}
	return out
}

// maxArrayIndex bounds the indices Set accepts, so an assignment cannot
// allocate an arbitrarily large array.
const maxArrayIndex = math.MaxInt32 >> 2

// Set returns a copy of t with t[k] replaced by v. Null is promoted to an
// object or array depending on the key.
func Set(t, k, v any) (any, error) {
	switch k := k.(type) {
	case string:
		switch t := t.(type) {
		case nil:
			return map[string]any{k: v}, nil
		case map[string]any:
			out := make(map[string]any, len(t)+1)
			for key, e := range t {
				out[key] = e
			}
			out[k] = v
			return out, nil
		}
	case float64:
		var arr []any
		switch t := t.(type) {
		case nil:
		case []any:
			arr = t
		default:
			return nil, indexError(t, k)
		}
		if math.IsNaN(k) {
			k = 0
		}
		if k >= maxArrayIndex {
			return nil, types.NewError(types.ErrIndex, "Array index too large")
		}
		if k < -maxArrayIndex {
			return nil, types.NewError(types.ErrIndex, "Out of bounds negative array index")
		}
		i := int(math.Floor(k))
		if i < 0 {
			i += len(arr)
			if i < 0 {
				return nil, types.NewError(types.ErrIndex, "Out of bounds negative array index")
			}
		}
		n := len(arr)
		if i >= n {
			n = i + 1
		}
		out := make([]any, n)
		copy(out, arr)
		out[i] = v
		return out, nil
	case map[string]any:
		var arr []any
		switch t := t.(type) {
		case nil:
		case []any:
			arr = t
		default:
			return nil, types.Errorf(types.ErrIndex, "Cannot update field at object index of %s", types.KindName(t))
		}
		repl, ok := v.([]any)
		if !ok {
			return nil, types.NewError(types.ErrIndex, "A slice of an array can only be assigned another array")
		}
		start, end, err := sliceBounds(len(arr), k)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(arr)-(end-start)+len(repl))
		out = append(out, arr[:start]...)
		out = append(out, repl...)
		out = append(out, arr[end:]...)
		return out, nil
	}
	return nil, indexError(t, k)
}

// GetPath follows path through t. A null path returns t unchanged; absent
// keys along the way yield null.
func GetPath(t, path any) (any, error) {
	if path == nil {
		return t, nil
	}
	p, ok := path.([]any)
	if !ok {
		return nil, types.NewError(types.ErrInvalidPath, "Path must be specified as an array")
	}
	cur := t
	for _, k := range p {
		next, err := Index(cur, k)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// SetPath returns a copy of t with the value at path replaced by v.
func SetPath(t, path, v any) (any, error) {
	p, ok := path.([]any)
	if !ok {
		return nil, types.NewError(types.ErrInvalidPath, "Path must be specified as an array")
	}
	return setPath(t, p, v)
}

func setPath(t any, p []any, v any) (any, error) {
	if len(p) == 0 {
		return v, nil
	}
	sub, err := Index(t, p[0])
	if err != nil {
		return nil, err
	}
	nv, err := setPath(sub, p[1:], v)
	if err != nil {
		return nil, err
	}
	return Set(t, p[0], nv)
}

// DelPaths removes every path in paths from t. Paths are applied from the
// greatest to the least so earlier deletions never shift later ones.
func DelPaths(t, paths any) (any, error) {
	ps, ok := paths.([]any)
	if !ok {
		return nil, types.NewError(types.ErrInvalidPath, "Paths must be specified as an array")
	}
	sorted := make([][]any, 0, len(ps))
	for _, e := range ps {
		p, ok := e.([]any)
		if !ok {
			return nil, types.Errorf(types.ErrInvalidPath, "Path must be specified as array, not %s", types.KindName(e))
		}
		sorted = append(sorted, p)
	}
	if len(sorted) == 0 {
		return t, nil
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return compareArrays(sorted[i], sorted[j]) < 0
	})
	if len(sorted[0]) == 0 {
		return nil, nil
	}
	return delPathsSorted(t, sorted, 0)
}

func delPathsSorted(t any, paths [][]any, depth int) (any, error) {
	var delKeys []any
	for i := 0; i < len(paths); {
		key := paths[i][depth]
		whole := len(paths[i]) == depth+1
		j := i
		for j < len(paths) && Equal(key, paths[j][depth]) {
			j++
		}
		if whole {
			delKeys = append(delKeys, key)
		} else {
			sub, err := Index(t, key)
			if err != nil {
				return nil, err
			}
			if sub != nil {
				nsub, err := delPathsSorted(sub, paths[i:j], depth+1)
				if err != nil {
					return nil, err
				}
				if t, err = Set(t, key, nsub); err != nil {
					return nil, err
				}
			}
		}
		i = j
	}
	return deleteKeys(t, delKeys)
}

// deleteKeys removes the given keys (already sorted) from t in one pass.
func deleteKeys(t any, keys []any) (any, error) {
	if len(keys) == 0 {
		return t, nil
	}
	switch t := t.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = v
		}
		for _, k := range keys {
			s, ok := k.(string)
			if !ok {
				return nil, types.Errorf(types.ErrIndex, "Cannot delete %s field of object", types.KindName(k))
			}
			delete(out, s)
		}
		return out, nil
	case []any:
		drop := make([]bool, len(t))
		for _, k := range keys {
			switch k := k.(type) {
			case float64:
				if i, ok := arrayIndex(len(t), k); ok {
					drop[i] = true
				}
			case map[string]any:
				start, end, err := sliceBounds(len(t), k)
				if err != nil {
					return nil, err
				}
				for i := start; i < end; i++ {
					drop[i] = true
				}
			default:
				return nil, types.Errorf(types.ErrIndex, "Cannot delete %s element of array", types.KindName(k))
			}
		}
		out := make([]any, 0, len(t))
		for i, v := range t {
			if !drop[i] {
				out = append(out, v)
			}
		}
		return out, nil
	}
	return nil, types.Errorf(types.ErrIndex, "Cannot delete fields from %s", types.KindName(t))
}

// CodepointLen counts the codepoints of s; each invalid byte counts as one.
func CodepointLen(s string) int {
	return utf8.RuneCountInString(s)
}

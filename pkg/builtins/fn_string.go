package builtins

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/jqcore/pkg/types"
)

func fnStartsWith(_ Env, args []any) (any, error) {
	s, ok1 := args[0].(string)
	prefix, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return nil, types.NewError(types.ErrType, "startswith() requires string inputs")
	}
	return strings.HasPrefix(s, prefix), nil
}

func fnEndsWith(_ Env, args []any) (any, error) {
	s, ok1 := args[0].(string)
	suffix, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return nil, types.NewError(types.ErrType, "endswith() requires string inputs")
	}
	return strings.HasSuffix(s, suffix), nil
}

func fnSplit(_ Env, args []any) (any, error) {
	s, ok1 := args[0].(string)
	sep, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return nil, types.NewError(types.ErrType, "split input and separator must be strings")
	}
	return splitString(s, sep), nil
}

// splitString splits on a literal separator. An empty input has no parts;
// an empty separator splits into codepoints.
func splitString(s, sep string) []any {
	if s == "" {
		return []any{}
	}
	parts := strings.Split(s, sep)
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out
}

func fnExplode(_ Env, args []any) (any, error) {
	s, ok := args[0].(string)
	if !ok {
		return nil, types.NewError(types.ErrType, "explode input must be a string")
	}
	out := make([]any, 0, len(s))
	for _, r := range s {
		out = append(out, float64(r))
	}
	return out, nil
}

// fnImplode maps codepoints outside the Unicode range, and surrogates, to
// U+FFFD.
func fnImplode(_ Env, args []any) (any, error) {
	arr, ok := args[0].([]any)
	if !ok {
		return nil, types.NewError(types.ErrType, "implode input must be an array")
	}
	var sb strings.Builder
	sb.Grow(len(arr))
	for _, e := range arr {
		f, ok := e.(float64)
		if !ok || math.IsNaN(f) {
			return nil, types.TypeError(e, "can't be imploded, unicode codepoint needs to be numeric")
		}
		r := utf8.RuneError
		if f >= 0 && f <= unicode.MaxRune {
			if cp := rune(f); !(cp >= 0xD800 && cp <= 0xDFFF) {
				r = cp
			}
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}

// fnStrIndices returns the codepoint offsets of every, possibly overlapping,
// occurrence of the needle.
func fnStrIndices(_ Env, args []any) (any, error) {
	s, ok1 := args[0].(string)
	needle, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return nil, types.NewError(types.ErrType, "_strindices/1 requires string inputs")
	}
	out := []any{}
	if needle == "" {
		return out, nil
	}
	counted, cps := 0, 0
	for p := 0; p <= len(s)-len(needle); {
		i := strings.Index(s[p:], needle)
		if i < 0 {
			break
		}
		at := p + i
		cps += utf8.RuneCountInString(s[counted:at])
		counted = at
		out = append(out, float64(cps))
		p = at + 1
	}
	return out, nil
}

func trimmer(left, right bool) FunctionImpl {
	return func(_ Env, args []any) (any, error) {
		s, ok := args[0].(string)
		if !ok {
			return nil, types.NewError(types.ErrType, "trim input must be a string")
		}
		if left {
			s = strings.TrimLeftFunc(s, unicode.IsSpace)
		}
		if right {
			s = strings.TrimRightFunc(s, unicode.IsSpace)
		}
		return s, nil
	}
}

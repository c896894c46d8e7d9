// Package extstring provides string functions beyond the core library: the
// ASCII case mappings and prefix trimming jq defines in its own prelude, and
// identifier case conversions. Register them with ext.WithString.
package extstring

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/sandrolain/jqcore/pkg/functions"
	"github.com/sandrolain/jqcore/pkg/types"
)

// All returns all extended string function definitions.
func All() []functions.CustomFunctionDef {
	return []functions.CustomFunctionDef{
		ASCIIDowncase(),
		ASCIIUpcase(),
		LTrimStr(),
		RTrimStr(),
		Capitalize(),
		CamelCase(),
		SnakeCase(),
		KebabCase(),
		Words(),
		Template(),
	}
}

// AllEntries returns all string function definitions as [functions.FunctionEntry].
func AllEntries() []functions.FunctionEntry {
	all := All()
	out := make([]functions.FunctionEntry, len(all))
	for i, f := range all {
		out[i] = f
	}
	return out
}

func stringFn(name, clause string, fn func(string) string) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: name,
		Fn: func(input any, _ ...any) (any, error) {
			s, ok := input.(string)
			if !ok {
				return nil, types.TypeError(input, clause)
			}
			return fn(s), nil
		},
	}
}

// ASCIIDowncase returns the definition for ascii_downcase. Only A-Z change.
func ASCIIDowncase() functions.CustomFunctionDef {
	return stringFn("ascii_downcase", "cannot be ascii_downcased", func(s string) string {
		return strings.Map(func(r rune) rune {
			if r >= 'A' && r <= 'Z' {
				return r + 'a' - 'A'
			}
			return r
		}, s)
	})
}

// ASCIIUpcase returns the definition for ascii_upcase.
func ASCIIUpcase() functions.CustomFunctionDef {
	return stringFn("ascii_upcase", "cannot be ascii_upcased", func(s string) string {
		return strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' {
				return r - ('a' - 'A')
			}
			return r
		}, s)
	})
}

// LTrimStr returns the definition for ltrimstr($prefix). Inputs that are not
// strings, or do not start with prefix, pass through unchanged.
func LTrimStr() functions.CustomFunctionDef {
	return trimStr("ltrimstr", strings.CutPrefix)
}

// RTrimStr returns the definition for rtrimstr($suffix).
func RTrimStr() functions.CustomFunctionDef {
	return trimStr("rtrimstr", strings.CutSuffix)
}

func trimStr(name string, cut func(s, affix string) (string, bool)) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:   name,
		Params: 1,
		Fn: func(input any, args ...any) (any, error) {
			s, ok1 := input.(string)
			affix, ok2 := args[0].(string)
			if !ok1 || !ok2 {
				return input, nil
			}
			if out, found := cut(s, affix); found {
				return out, nil
			}
			return input, nil
		},
	}
}

// Capitalize returns the definition for capitalize: the first character is
// uppercased and the rest lowercased.
func Capitalize() functions.CustomFunctionDef {
	return stringFn("capitalize", "cannot be capitalized", func(s string) string {
		if s == "" {
			return s
		}
		runes := []rune(strings.ToLower(s))
		runes[0] = unicode.ToUpper(runes[0])
		return string(runes)
	})
}

// splitWordsRe matches separators and lower-to-upper transitions.
var splitWordsRe = regexp.MustCompile(`[_\-\s]+|([a-z])([A-Z])`)

func splitIntoWords(str string) []string {
	expanded := splitWordsRe.ReplaceAllStringFunc(str, func(s string) string {
		if len(s) == 2 && s[0] >= 'a' && s[0] <= 'z' {
			return string(s[0]) + " " + string(s[1])
		}
		return " "
	})
	return strings.Fields(expanded)
}

// CamelCase returns the definition for camel_case.
func CamelCase() functions.CustomFunctionDef {
	return stringFn("camel_case", "cannot be converted to camel case", func(s string) string {
		words := splitIntoWords(s)
		var b strings.Builder
		for i, w := range words {
			runes := []rune(strings.ToLower(w))
			if i > 0 {
				runes[0] = unicode.ToUpper(runes[0])
			}
			b.WriteString(string(runes))
		}
		return b.String()
	})
}

// SnakeCase returns the definition for snake_case.
func SnakeCase() functions.CustomFunctionDef {
	return stringFn("snake_case", "cannot be converted to snake case", joinLower("_"))
}

// KebabCase returns the definition for kebab_case.
func KebabCase() functions.CustomFunctionDef {
	return stringFn("kebab_case", "cannot be converted to kebab case", joinLower("-"))
}

func joinLower(sep string) func(string) string {
	return func(s string) string {
		words := splitIntoWords(s)
		for i, w := range words {
			words[i] = strings.ToLower(w)
		}
		return strings.Join(words, sep)
	}
}

// Words returns the definition for words: the whitespace separated fields
// of the input.
func Words() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "words",
		Fn: func(input any, _ ...any) (any, error) {
			s, ok := input.(string)
			if !ok {
				return nil, types.TypeError(input, "cannot be split into words")
			}
			return strings.Fields(s), nil
		},
	}
}

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Template returns the definition for template($bindings). {{key}}
// placeholders are replaced with the bindings' values; strings are inserted
// as is, other values as JSON. Unknown keys are left in place.
func Template() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:   "template",
		Params: 1,
		Fn: func(input any, args ...any) (any, error) {
			tmpl, ok := input.(string)
			if !ok {
				return nil, types.TypeError(input, "cannot be used as a template")
			}
			bindings, ok := args[0].(map[string]any)
			if !ok {
				return nil, types.TypeError(args[0], "cannot be used as template bindings")
			}
			return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
				v, exists := bindings[match[2:len(match)-2]]
				if !exists {
					return match
				}
				if s, ok := v.(string); ok {
					return s
				}
				return types.Dump(v)
			}), nil
		},
	}
}

package builtins

import (
	"fmt"
	"sync"

	"github.com/sandrolain/jqcore/pkg/types"
)

// FunctionDef describes a native builtin. Arity counts the piped-in input
// as the first argument, so a jq call `f(a; b)` binds to arity 3.
type FunctionDef struct {
	Name  string
	Arity int
	Impl  FunctionImpl
}

// FunctionImpl is the implementation of a native builtin. args has exactly
// Arity elements, args[0] being the input. Implementations never modify
// their arguments.
type FunctionImpl func(env Env, args []any) (any, error)

// Signature returns "name/N" where N is the number of jq-level arguments.
func (d *FunctionDef) Signature() string {
	return Signature(d.Name, d.Arity-1)
}

// Key returns the registry key of the definition.
func (d *FunctionDef) Key() string {
	return Key(d.Name, d.Arity)
}

// Call invokes the builtin after checking the argument count.
func (d *FunctionDef) Call(env Env, args ...any) (any, error) {
	if len(args) != d.Arity {
		return nil, types.Errorf(types.ErrUndefinedFunction, "%s called with %d arguments, want %d", d.Name, len(args), d.Arity)
	}
	return d.Impl(env, args)
}

// Signature formats a jq-level signature.
func Signature(name string, nparams int) string {
	return fmt.Sprintf("%s/%d", name, nparams)
}

// Key formats a registry key from a name and a native arity.
func Key(name string, arity int) string {
	return fmt.Sprintf("%s#%d", name, arity)
}

var (
	builtinFunctions     []*FunctionDef
	builtinFunctionIndex map[string]*FunctionDef
	builtinFunctionsOnce sync.Once
)

// initBuiltinFunctions builds the native table once. The order matters to
// the linker: a later definition with the same name and arity shadows an
// earlier one.
func initBuiltinFunctions() {
	builtinFunctionsOnce.Do(func() {
		var defs []*FunctionDef
		defs = append(defs, mathFunctions()...)
		defs = append(defs, []*FunctionDef{
			// Operators
			{Name: "_negate", Arity: 1, Impl: fnNegate},
			{Name: "_plus", Arity: 3, Impl: binop(Add)},
			{Name: "_minus", Arity: 3, Impl: binop(Subtract)},
			{Name: "_multiply", Arity: 3, Impl: binop(Multiply)},
			{Name: "_divide", Arity: 3, Impl: binop(Divide)},
			{Name: "_mod", Arity: 3, Impl: binop(Modulo)},
			{Name: "_equal", Arity: 3, Impl: binop(Equal)},
			{Name: "_notequal", Arity: 3, Impl: binop(NotEqual)},
			{Name: "_less", Arity: 3, Impl: binop(Less)},
			{Name: "_lesseq", Arity: 3, Impl: binop(LessEq)},
			{Name: "_greater", Arity: 3, Impl: binop(Greater)},
			{Name: "_greatereq", Arity: 3, Impl: binop(GreaterEq)},

			// Conversions
			{Name: "tojson", Arity: 1, Impl: fnToJSON},
			{Name: "fromjson", Arity: 1, Impl: fnFromJSON},
			{Name: "tonumber", Arity: 1, Impl: fnToNumber},
			{Name: "toboolean", Arity: 1, Impl: fnToBoolean},
			{Name: "tostring", Arity: 1, Impl: fnToString},
			{Name: "keys", Arity: 1, Impl: fnKeys},
			{Name: "keys_unsorted", Arity: 1, Impl: fnKeys},

			// Strings
			{Name: "startswith", Arity: 2, Impl: fnStartsWith},
			{Name: "endswith", Arity: 2, Impl: fnEndsWith},
			{Name: "split", Arity: 2, Impl: fnSplit},
			{Name: "explode", Arity: 1, Impl: fnExplode},
			{Name: "implode", Arity: 1, Impl: fnImplode},
			{Name: "_strindices", Arity: 2, Impl: fnStrIndices},
			{Name: "trim", Arity: 1, Impl: trimmer(true, true)},
			{Name: "ltrim", Arity: 1, Impl: trimmer(true, false)},
			{Name: "rtrim", Arity: 1, Impl: trimmer(false, true)},

			// Paths
			{Name: "setpath", Arity: 3, Impl: fnSetPath},
			{Name: "getpath", Arity: 2, Impl: fnGetPath},
			{Name: "delpaths", Arity: 2, Impl: fnDelPaths},
			{Name: "has", Arity: 2, Impl: fnHas},
			{Name: "contains", Arity: 2, Impl: fnContains},

			// Types and sizes
			{Name: "length", Arity: 1, Impl: fnLength},
			{Name: "utf8bytelength", Arity: 1, Impl: fnUTF8ByteLength},
			{Name: "type", Arity: 1, Impl: fnType},
			{Name: "isinfinite", Arity: 1, Impl: fnIsInfinite},
			{Name: "isnan", Arity: 1, Impl: fnIsNaN},
			{Name: "isnormal", Arity: 1, Impl: fnIsNormal},
			{Name: "infinite", Arity: 1, Impl: fnInfinite},
			{Name: "nan", Arity: 1, Impl: fnNaN},

			// Ordering
			{Name: "sort", Arity: 1, Impl: fnSort},
			{Name: "_sort_by_impl", Arity: 2, Impl: fnSortByImpl},
			{Name: "_group_by_impl", Arity: 2, Impl: fnGroupByImpl},
			{Name: "unique", Arity: 1, Impl: fnUnique},
			{Name: "_unique_by_impl", Arity: 2, Impl: fnUniqueByImpl},
			{Name: "bsearch", Arity: 2, Impl: fnBsearch},
			{Name: "min", Arity: 1, Impl: fnMin},
			{Name: "max", Arity: 1, Impl: fnMax},
			{Name: "_min_by_impl", Arity: 2, Impl: fnMinByImpl},
			{Name: "_max_by_impl", Arity: 2, Impl: fnMaxByImpl},

			// Runtime
			{Name: "error", Arity: 1, Impl: fnError},
			{Name: "format", Arity: 2, Impl: fnFormat},
			{Name: "env", Arity: 1, Impl: fnEnv},
			{Name: "halt", Arity: 1, Impl: fnHalt},
			{Name: "halt_error", Arity: 2, Impl: fnHaltError},
			{Name: "get_search_list", Arity: 1, Impl: fnGetSearchList},
			{Name: "get_prog_origin", Arity: 1, Impl: fnGetProgOrigin},
			{Name: "get_jq_origin", Arity: 1, Impl: fnGetJQOrigin},
			{Name: "_match_impl", Arity: 4, Impl: fnMatchImpl},
			{Name: "modulemeta", Arity: 1, Impl: fnModuleMeta},
			{Name: "input", Arity: 1, Impl: fnInput},
			{Name: "debug", Arity: 1, Impl: fnDebug},
			{Name: "stderr", Arity: 1, Impl: fnStderr},

			// Date/time
			{Name: "strptime", Arity: 2, Impl: fnStrptime},
			{Name: "strftime", Arity: 2, Impl: fnStrftime},
			{Name: "strflocaltime", Arity: 2, Impl: fnStrflocaltime},
			{Name: "mktime", Arity: 1, Impl: fnMktime},
			{Name: "gmtime", Arity: 1, Impl: fnGmtime},
			{Name: "localtime", Arity: 1, Impl: fnLocaltime},
			{Name: "now", Arity: 1, Impl: fnNow},

			{Name: "input_filename", Arity: 1, Impl: fnInputFilename},
			{Name: "input_line_number", Arity: 1, Impl: fnInputLineNumber},
			{Name: "have_decnum", Arity: 1, Impl: fnFalse},
			{Name: "have_literal_numbers", Arity: 1, Impl: fnFalse},
		}...)

		builtinFunctions = defs
		builtinFunctionIndex = make(map[string]*FunctionDef, len(defs))
		for _, d := range defs {
			builtinFunctionIndex[d.Key()] = d
		}
	})
}

// Functions returns the native table in registration order. The slice is
// shared and must not be modified.
func Functions() []*FunctionDef {
	initBuiltinFunctions()
	return builtinFunctions
}

// GetFunction looks up a native builtin by name and arity (input included).
func GetFunction(name string, arity int) (*FunctionDef, bool) {
	initBuiltinFunctions()
	d, ok := builtinFunctionIndex[Key(name, arity)]
	return d, ok
}

// binop adapts a binary operator to the native ABI: the input is ignored
// and the two jq arguments are the operands.
func binop(op func(a, b any) (any, error)) FunctionImpl {
	return func(_ Env, args []any) (any, error) {
		return op(args[1], args[2])
	}
}

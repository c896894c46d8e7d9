// Package functions provides types for registering host functions as jq
// natives.
//
// A host function receives the input of the call followed by the evaluated
// jq arguments. Results are normalised to JSON values, so returning an int
// or a []string is fine.
//
// # Example
//
//	greet := functions.CustomFunctionDef{
//	    Name:   "greet",
//	    Params: 1,
//	    Fn: func(input any, args ...any) (any, error) {
//	        return fmt.Sprintf("%v, %v!", args[0], input), nil
//	    },
//	}
//	natives, err := functions.Natives(greet)
//	// "World" | greet("Hello") == "Hello, World!"
package functions

import (
	"errors"

	"github.com/sandrolain/jqcore/pkg/builtins"
	"github.com/sandrolain/jqcore/pkg/types"
	"github.com/sandrolain/jqcore/pkg/value"
)

// CustomFunc is the signature for host functions that do not need the
// runtime context.
type CustomFunc func(input any, args ...any) (any, error)

// CustomFunctionDef describes a host function taking Params jq arguments.
type CustomFunctionDef struct {
	// Name is the function name as it appears in programs.
	Name string
	// Params is the number of jq arguments, not counting the input.
	Params int
	// Fn is the implementation.
	Fn CustomFunc
}

// AdvancedCustomFunc is like CustomFunc but also receives the runtime
// context, for functions that need the clock, the time zone, the regex
// cache or the logger.
type AdvancedCustomFunc func(env builtins.Env, input any, args ...any) (any, error)

// AdvancedCustomFunctionDef is the struct counterpart of AdvancedCustomFunc.
type AdvancedCustomFunctionDef struct {
	Name   string
	Params int
	Fn     AdvancedCustomFunc
}

// FunctionEntry is implemented by both [CustomFunctionDef] and
// [AdvancedCustomFunctionDef]. It allows mixing both kinds in a single call
// to [Natives].
type FunctionEntry interface {
	Native() *builtins.FunctionDef
}

// Native adapts the definition to the native ABI.
func (c CustomFunctionDef) Native() *builtins.FunctionDef {
	fn := c.Fn
	return &builtins.FunctionDef{
		Name:  c.Name,
		Arity: c.Params + 1,
		Impl: func(_ builtins.Env, args []any) (any, error) {
			return result(c.Name)(fn(args[0], args[1:]...))
		},
	}
}

// Native adapts the definition to the native ABI.
func (a AdvancedCustomFunctionDef) Native() *builtins.FunctionDef {
	fn := a.Fn
	return &builtins.FunctionDef{
		Name:  a.Name,
		Arity: a.Params + 1,
		Impl: func(env builtins.Env, args []any) (any, error) {
			return result(a.Name)(fn(env, args[0], args[1:]...))
		},
	}
}

// result normalises what a host function returned under name.
func result(name string) func(any, error) (any, error) {
	return func(v any, err error) (any, error) {
		if err != nil {
			return nil, hostError(name, err)
		}
		return value.Normalize(v), nil
	}
}

// hostError keeps jq errors and halts intact and turns anything else into
// a catchable error carrying the message.
func hostError(name string, err error) error {
	var je *types.Error
	var he *types.HaltError
	if errors.As(err, &je) || errors.As(err, &he) {
		return err
	}
	return types.Errorf(types.ErrUser, "%s: %s", name, err.Error()).WithCause(err)
}

// maxArity is the largest native arity, input included.
const maxArity = 4

// Natives validates entries and converts them to native definitions, in
// order. Names must be identifiers and a name/arity pair may appear once.
func Natives(entries ...FunctionEntry) ([]*builtins.FunctionDef, error) {
	out := make([]*builtins.FunctionDef, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		d := e.Native()
		if !isIdent(d.Name) {
			return nil, types.Errorf(types.ErrCapability, "invalid function name %q", d.Name)
		}
		if d.Arity < 1 || d.Arity > maxArity {
			return nil, types.Errorf(types.ErrCapability, "%s: parameter count must be between 0 and %d", d.Name, maxArity-1)
		}
		if seen[d.Key()] {
			return nil, types.Errorf(types.ErrCapability, "%s is registered twice", d.Signature())
		}
		seen[d.Key()] = true
		out = append(out, d)
	}
	return out, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

package builtins

import (
	"strings"

	"github.com/sandrolain/jqcore/pkg/types"
)

func fnError(_ Env, args []any) (any, error) {
	return nil, types.UserError(args[0])
}

// fnEnv snapshots the environment; every call builds a fresh object.
func fnEnv(env Env, _ []any) (any, error) {
	vars := env.Environ()
	out := make(map[string]any, len(vars))
	for _, kv := range vars {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		} else {
			out[kv] = nil
		}
	}
	return out, nil
}

func fnHalt(env Env, _ []any) (any, error) {
	env.Halt(0, nil)
	return true, nil
}

func fnHaltError(env Env, args []any) (any, error) {
	code, ok := args[1].(float64)
	if !ok {
		return nil, types.TypeError(args[0], "halt_error/1: number required")
	}
	env.Halt(int(dtoi(code)), args[0])
	return true, nil
}

func fnGetSearchList(env Env, _ []any) (any, error) { return env.LibraryPaths(), nil }
func fnGetProgOrigin(env Env, _ []any) (any, error) { return env.ProgOrigin(), nil }
func fnGetJQOrigin(env Env, _ []any) (any, error)   { return env.JQOrigin(), nil }

func fnModuleMeta(env Env, args []any) (any, error) {
	name, ok := args[0].(string)
	if !ok {
		return nil, types.NewError(types.ErrType, "modulemeta input module name must be a string")
	}
	return env.ModuleMeta(name)
}

func fnInput(env Env, _ []any) (any, error) {
	return env.Input()
}

func fnDebug(env Env, args []any) (any, error) {
	env.Debug(args[0])
	return args[0], nil
}

func fnStderr(env Env, args []any) (any, error) {
	env.Stderr(args[0])
	return args[0], nil
}

func fnInputFilename(env Env, _ []any) (any, error)   { return env.CurrentFilename(), nil }
func fnInputLineNumber(env Env, _ []any) (any, error) { return env.CurrentLine(), nil }

package vm

import (
	"github.com/sandrolain/jqcore/pkg/builtins"
	"github.com/sandrolain/jqcore/pkg/types"
	"github.com/sandrolain/jqcore/pkg/value"
)

// pathEnv is the runtime context natives see during a run. It extends the
// host context with path tracking for getpath and captures halt requests.
type pathEnv struct {
	builtins.Env
	m *machine
}

// PathAppend extends the tracked path by component, or by every element of
// component when it is an array, after checking that input is the value the
// path currently leads to.
func (e *pathEnv) PathAppend(input, component, result any) (any, error) {
	p := &e.m.path
	if !p.active() {
		return result, nil
	}
	if !value.Identical(input, p.value) {
		return nil, types.Errorf(types.ErrInvalidPath, "Invalid path expression with result %s", types.DumpTruncN(input, 30))
	}
	if arr, ok := component.([]any); ok {
		p.extend(arr, result)
	} else {
		p.extend([]any{component}, result)
	}
	return result, nil
}

// Halt ends the run after the current native returns.
func (e *pathEnv) Halt(code int, v any) {
	e.m.logger.Debug("halt requested", "code", code)
	e.m.halt = &types.HaltError{Code: code, Value: v}
}

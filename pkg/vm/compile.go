package vm

import (
	"github.com/sandrolain/jqcore/pkg/bytecode"
	"github.com/sandrolain/jqcore/pkg/types"
)

// function is a definition body flattened into straight-line code. Branch
// targets are resolved to the index of the instruction to continue at.
type function struct {
	def  *bytecode.Inst
	code []*bytecode.Inst
	dest []int
}

// function returns the compiled body of def, compiling it on first use.
// def is a CLOSURE_CREATE, either a named definition or a lambda argument.
func (m *machine) function(def *bytecode.Inst) (*function, error) {
	if fn, ok := m.fns[def]; ok {
		return fn, nil
	}
	fn, err := m.compile(def, def.Subfn)
	if err != nil {
		return nil, err
	}
	m.fns[def] = fn
	return fn, nil
}

// compile flattens body. Definitions are skipped, recording fn as their
// lexical owner. A call bound to a native is expanded in place: every
// closure argument becomes a subexpression and the native is invoked with
// CALL_BUILTIN.
func (m *machine) compile(def *bytecode.Inst, body bytecode.Block) (*function, error) {
	fn := &function{def: def}
	if def != nil {
		for i, p := range def.Params {
			m.owner[p] = fn
			m.param[p] = i
		}
	}
	pos := make(map[*bytecode.Inst]int)

	var emit func(b bytecode.Block) error
	emit = func(b bytecode.Block) error {
		for _, inst := range b {
			switch {
			case inst.Op.IsDefinition():
				m.owner[inst] = fn
				pos[inst] = len(fn.code) - 1
			case inst.Op == bytecode.OpCallJQ && inst.BoundBy == nil:
				return types.Errorf(types.ErrUndefinedFunction, "%s is not defined", inst.Signature())
			case inst.Op == bytecode.OpCallJQ && inst.BoundBy.Op == bytecode.OpClosureCreateC:
				args := make([]bytecode.Block, len(inst.Args))
				for i, a := range inst.Args {
					args[i] = a.Subfn
				}
				if err := emit(bytecode.GenCallBuiltin(inst.BoundBy.Builtin, args...)); err != nil {
					return err
				}
				pos[inst] = len(fn.code) - 1
			default:
				if inst.Op == bytecode.OpStoreV && inst.BoundBy == inst {
					m.owner[inst] = fn
				}
				pos[inst] = len(fn.code)
				fn.code = append(fn.code, inst)
			}
		}
		return nil
	}
	if err := emit(body); err != nil {
		return nil, err
	}
	fn.code = append(fn.code, &bytecode.Inst{Op: bytecode.OpRet})

	fn.dest = make([]int, len(fn.code))
	for i, inst := range fn.code {
		if !inst.Op.HasTarget() {
			continue
		}
		p, ok := pos[inst.Target]
		if !ok {
			return nil, types.Errorf(types.ErrUndefinedFunction, "%s at %d branches outside its function", inst.Op, i)
		}
		fn.dest[i] = p + 1
	}
	return fn, nil
}

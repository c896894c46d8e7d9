package vm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sandrolain/jqcore/pkg/builtins"
	"github.com/sandrolain/jqcore/pkg/bytecode"
	"github.com/sandrolain/jqcore/pkg/types"
	"github.com/sandrolain/jqcore/pkg/value"
)

var errExhausted = errors.New("vm: no more outputs")

type machine struct {
	ctx      context.Context
	env      builtins.Env
	logger   *slog.Logger
	interval int

	program bytecode.Block
	input   any

	fns   map[*bytecode.Inst]*function
	owner map[*bytecode.Inst]*function
	param map[*bytecode.Inst]int

	pc      int
	fr      *frame
	stk     *stack
	path    pathState
	choices []choice

	halt    *types.HaltError
	started bool
	steps   int
	outputs int
}

func newMachine(ctx context.Context, program bytecode.Block, input any, o Options) *machine {
	m := &machine{
		ctx:      ctx,
		logger:   o.Logger,
		interval: o.CheckInterval,
		program:  program,
		input:    input,
		fns:      make(map[*bytecode.Inst]*function),
		owner:    make(map[*bytecode.Inst]*function),
		param:    make(map[*bytecode.Inst]int),
	}
	m.env = &pathEnv{Env: o.Env, m: m}
	return m
}

func (m *machine) start() error {
	top, err := m.compile(nil, m.program)
	if err != nil {
		return err
	}
	m.fr = &frame{fn: top}
	m.stk = (*stack)(nil).push(m.input)
	m.logger.Debug("vm run started", "instructions", len(top.code))
	return nil
}

func (m *machine) finish() {
	m.logger.Debug("vm run finished", "outputs", m.outputs, "steps", m.steps)
}

func (m *machine) pushChoice(pc int, stk *stack, it *iteration) {
	m.choices = append(m.choices, choice{pc: pc, fr: m.fr, stk: stk, path: m.path, it: it})
}

// backtrack resumes the most recent choice point. It reports false when
// there is none left.
func (m *machine) backtrack() bool {
	if len(m.choices) == 0 {
		return false
	}
	c := m.choices[len(m.choices)-1]
	m.choices = m.choices[:len(m.choices)-1]
	m.pc, m.fr, m.stk, m.path = c.pc, c.fr, c.stk, c.path
	if c.it != nil {
		m.advance(c.it)
	}
	return true
}

// advance produces the next element of it and leaves a choice point for
// the rest.
func (m *machine) advance(it *iteration) {
	it.idx++
	var key, v any
	if it.keys != nil {
		k := it.keys[it.idx]
		key, v = k, it.container.(map[string]any)[k]
	} else {
		key, v = float64(it.idx), it.container.([]any)[it.idx]
	}
	if it.idx < it.n-1 {
		m.pushChoice(m.pc, m.stk, it)
	}
	if m.path.active() {
		m.path.extend([]any{key}, v)
	}
	m.stk = m.stk.push(v)
}

// intact reports whether v is the value reached by the tracked path. Paths
// through values computed by anything else than indexing are rejected.
func (m *machine) intact(v any) bool {
	return !m.path.active() || value.Identical(v, m.path.value)
}

// frameOf returns the frame of owner visible from the current frame.
func (m *machine) frameOf(owner *function) *frame {
	for f := m.fr; f != nil; f = f.env {
		if f.fn == owner {
			return f
		}
	}
	return nil
}

// slot returns the frame holding the variable defined by binder.
func (m *machine) slot(inst *bytecode.Inst) (*frame, error) {
	b := inst.BoundBy
	if b == nil {
		return nil, types.Errorf(types.ErrUndefinedFunction, "$%s is not defined", inst.Symbol)
	}
	f := m.frameOf(m.owner[b])
	if f == nil {
		return nil, types.Errorf(types.ErrUndefinedFunction, "$%s is out of scope", inst.Symbol)
	}
	if f.vars == nil {
		f.vars = make(map[*bytecode.Inst]any)
	}
	return f, nil
}

// resolve returns the closure a CALL_JQ invokes.
func (m *machine) resolve(inst *bytecode.Inst) (*closure, error) {
	b := inst.BoundBy
	switch b.Op {
	case bytecode.OpClosureParam:
		f := m.frameOf(m.owner[b])
		if f == nil {
			return nil, types.Errorf(types.ErrUndefinedFunction, "%s is out of scope", inst.Signature())
		}
		return f.args[m.param[b]], nil
	case bytecode.OpClosureCreate:
		env := m.frameOf(m.owner[b])
		if env == nil {
			return nil, types.Errorf(types.ErrUndefinedFunction, "%s is out of scope", inst.Signature())
		}
		fn, err := m.function(b)
		if err != nil {
			return nil, err
		}
		return &closure{fn: fn, env: env}, nil
	}
	return nil, types.Errorf(types.ErrUndefinedFunction, "%s is bound to %s", inst.Signature(), b.Op)
}

// argument builds the closure passed for one lambda argument. A lambda that
// only calls a parameter of the current function passes that closure on.
func (m *machine) argument(lambda *bytecode.Inst) (*closure, error) {
	if body := lambda.Subfn; len(body) == 1 && body[0].Op == bytecode.OpCallJQ && body[0].NActuals == 0 &&
		body[0].BoundBy != nil && body[0].BoundBy.Op == bytecode.OpClosureParam {
		return m.resolve(body[0])
	}
	fn, err := m.function(lambda)
	if err != nil {
		return nil, err
	}
	return &closure{fn: fn, env: m.fr}, nil
}

// next runs until the program produces an output, fails or is exhausted.
func (m *machine) next() (any, error) {
	if !m.started {
		m.started = true
		if err := m.start(); err != nil {
			return nil, err
		}
	} else if !m.backtrack() {
		return nil, errExhausted
	}

	for {
		m.steps++
		if m.steps%m.interval == 0 {
			if err := m.ctx.Err(); err != nil {
				return nil, types.NewError(types.ErrCancelled, "evaluation cancelled").WithCause(err)
			}
		}

		fn := m.fr.fn
		inst := fn.code[m.pc]
		backtrack := false

		switch inst.Op {
		case bytecode.OpLoadK:
			_, m.stk = m.stk.pop()
			m.stk = m.stk.push(inst.Const)

		case bytecode.OpDup:
			m.stk = m.stk.push(m.stk.v)

		case bytecode.OpDupN:
			var v any
			v, m.stk = m.stk.pop()
			m.stk = m.stk.push(nil).push(v)

		case bytecode.OpPop:
			_, m.stk = m.stk.pop()

		case bytecode.OpLoadV, bytecode.OpLoadVN:
			f, err := m.slot(inst)
			if err != nil {
				return nil, err
			}
			_, m.stk = m.stk.pop()
			m.stk = m.stk.push(f.vars[inst.BoundBy])
			if inst.Op == bytecode.OpLoadVN {
				f.vars[inst.BoundBy] = nil
			}

		case bytecode.OpStoreV:
			f, err := m.slot(inst)
			if err != nil {
				return nil, err
			}
			f.vars[inst.BoundBy], m.stk = m.stk.pop()

		case bytecode.OpAppend:
			f, err := m.slot(inst)
			if err != nil {
				return nil, err
			}
			var v any
			v, m.stk = m.stk.pop()
			arr, _ := f.vars[inst.BoundBy].([]any)
			f.vars[inst.BoundBy] = append(arr, v)

		case bytecode.OpFork:
			m.pushChoice(fn.dest[m.pc], m.stk, nil)

		case bytecode.OpBacktrack:
			backtrack = true

		case bytecode.OpJump:
			m.pc = fn.dest[m.pc]
			continue

		case bytecode.OpJumpF:
			if !types.IsTruthy(m.stk.v) {
				m.pc = fn.dest[m.pc]
				continue
			}

		case bytecode.OpSubexpBegin:
			m.stk = m.stk.push(m.stk.v)
			m.path.nest++

		case bytecode.OpSubexpEnd:
			m.path.nest--
			var a, b any
			a, m.stk = m.stk.pop()
			b, m.stk = m.stk.pop()
			m.stk = m.stk.push(a).push(b)

		case bytecode.OpPathBegin:
			var v any
			v, m.stk = m.stk.pop()
			m.stk = m.stk.push(&pathMarker{saved: m.path}).push(v)
			m.path = pathState{tracking: true, path: []any{}, value: v}

		case bytecode.OpPathEnd:
			var v any
			v, m.stk = m.stk.pop()
			if !m.intact(v) {
				return nil, types.Errorf(types.ErrInvalidPath, "Invalid path expression with result %s", types.DumpTruncN(v, 30))
			}
			var marker any
			marker, m.stk = m.stk.pop()
			path := m.path.path
			m.path = marker.(*pathMarker).saved
			m.stk = m.stk.push(path)

		case bytecode.OpRange:
			f, err := m.slot(inst)
			if err != nil {
				return nil, err
			}
			withMax := m.stk
			var max any
			max, m.stk = m.stk.pop()
			cur, ok1 := f.vars[inst.BoundBy].(float64)
			end, ok2 := max.(float64)
			if !ok1 || !ok2 {
				return nil, types.NewError(types.ErrRangeBounds, "Range bounds must be numeric")
			}
			if cur >= end {
				backtrack = true
				break
			}
			f.vars[inst.BoundBy] = cur + 1
			m.pushChoice(m.pc, withMax, nil)
			m.stk = m.stk.push(cur)

		case bytecode.OpIndex:
			var t, k any
			t, m.stk = m.stk.pop()
			k, m.stk = m.stk.pop()
			if !m.intact(t) {
				return nil, types.Errorf(types.ErrInvalidPath, "Invalid path expression near attempt to access element %s of %s",
					types.DumpTruncN(k, 15), types.DumpTruncN(t, 30))
			}
			v, err := value.Index(t, k)
			if err != nil {
				return nil, err
			}
			if m.path.active() {
				m.path.extend([]any{k}, v)
			}
			m.stk = m.stk.push(v)

		case bytecode.OpEach, bytecode.OpEachOpt:
			var container any
			container, m.stk = m.stk.pop()
			if !m.intact(container) {
				return nil, types.Errorf(types.ErrInvalidPath, "Invalid path expression near attempt to iterate through %s", types.DumpTruncN(container, 30))
			}
			it := &iteration{container: container, idx: -1}
			switch c := container.(type) {
			case []any:
				it.n = len(c)
			case map[string]any:
				it.keys = value.SortedKeys(c)
				it.n = len(it.keys)
			default:
				if inst.Op == bytecode.OpEachOpt {
					backtrack = true
					break
				}
				if container == nil {
					return nil, types.NewError(types.ErrIterate, "Cannot iterate over null")
				}
				return nil, types.Errorf(types.ErrIterate, "Cannot iterate over %s (%s)", types.KindName(container), types.DumpTrunc(container))
			}
			if backtrack {
				break
			}
			if it.n == 0 {
				backtrack = true
				break
			}
			m.pc++
			m.advance(it)
			continue

		case bytecode.OpCallBuiltin:
			in := make([]any, inst.NActuals)
			in[0], m.stk = m.stk.pop()
			for i := 1; i < len(in); i++ {
				in[i], m.stk = m.stk.pop()
			}
			v, err := inst.Builtin.Impl(m.env, in)
			if m.halt != nil {
				return nil, m.halt
			}
			if err != nil {
				return nil, err
			}
			m.stk = m.stk.push(v)

		case bytecode.OpCallJQ:
			cl, err := m.resolve(inst)
			if err != nil {
				return nil, err
			}
			args := make([]*closure, len(inst.Args))
			for i, a := range inst.Args {
				if args[i], err = m.argument(a); err != nil {
					return nil, err
				}
			}
			m.fr = &frame{fn: cl.fn, env: cl.env, args: args, caller: m.fr, retPC: m.pc + 1}
			m.pc = 0
			continue

		case bytecode.OpRet:
			if m.fr.caller == nil {
				var v any
				v, m.stk = m.stk.pop()
				m.outputs++
				return v, nil
			}
			m.pc = m.fr.retPC
			m.fr = m.fr.caller
			continue

		default:
			return nil, types.Errorf(types.ErrUndefinedFunction, "cannot execute %s", inst.Op)
		}

		if backtrack {
			if !m.backtrack() {
				return nil, errExhausted
			}
			continue
		}
		m.pc++
	}
}

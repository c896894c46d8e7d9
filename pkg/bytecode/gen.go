package bytecode

import (
	"github.com/sandrolain/jqcore/pkg/builtins"
)

// GenOpSimple returns a block with a single operand-less instruction.
func GenOpSimple(op Opcode) Block {
	return Block{{Op: op}}
}

// GenConst replaces the top of the stack with v.
func GenConst(v any) Block {
	return Block{{Op: OpLoadK, Const: v}}
}

// GenOpTarget returns a branch instruction that resumes after the last
// instruction of target.
func GenOpTarget(op Opcode, target Block) Block {
	if len(target) == 0 {
		panic("bytecode: " + op.String() + " targets an empty block")
	}
	return Block{{Op: op, Target: target.Last()}}
}

// GenOpVarFresh returns an instruction that defines a new variable. Other
// instructions refer to it through GenOpBound.
func GenOpVarFresh(op Opcode, name string) Block {
	inst := &Inst{Op: op, Symbol: name}
	inst.BoundBy = inst
	return Block{inst}
}

// GenOpBound returns an instruction already resolved to the single
// instruction of binder.
func GenOpBound(op Opcode, binder Block) Block {
	b := binder.First()
	return Block{{Op: op, Symbol: b.Symbol, BoundBy: b}}
}

// GenOpUnbound returns a reference to be resolved by name.
func GenOpUnbound(op Opcode, name string) Block {
	return Block{{Op: op, Symbol: name}}
}

// GenVar loads the variable $name.
func GenVar(name string) Block {
	return GenOpUnbound(OpLoadV, name)
}

// GenSubexp evaluates a on a copy of the input, leaving the result under
// the input: [v] becomes [a(v), v].
func GenSubexp(a Block) Block {
	return Seq(GenOpSimple(OpSubexpBegin), a, GenOpSimple(OpSubexpEnd))
}

// GenCondBranch runs t when the top of the stack is truthy, f otherwise.
// The tested value stays on the stack.
func GenCondBranch(t, f Block) Block {
	jump := &Inst{Op: OpJump}
	if len(f) == 0 {
		jump.Target = jump
	} else {
		jump.Target = f.Last()
	}
	t = Seq(t, Block{jump})
	return Seq(GenOpTarget(OpJumpF, t), t, f)
}

// GenCond is `if cond then t else f end`.
func GenCond(cond, t, f Block) Block {
	return Seq(
		GenOpSimple(OpDup),
		GenSubexp(cond),
		GenOpSimple(OpPop),
		GenCondBranch(Seq(GenOpSimple(OpPop), t), Seq(GenOpSimple(OpPop), f)),
	)
}

// GenAnd is `a and b`.
func GenAnd(a, b Block) Block {
	return Seq(
		GenOpSimple(OpDup), a,
		GenCondBranch(
			Seq(GenOpSimple(OpPop), b, GenCondBranch(GenConst(true), GenConst(false))),
			Seq(GenOpSimple(OpPop), GenConst(false)),
		),
	)
}

// GenOr is `a or b`.
func GenOr(a, b Block) Block {
	return Seq(
		GenOpSimple(OpDup), a,
		GenCondBranch(
			Seq(GenOpSimple(OpPop), GenConst(true)),
			Seq(GenOpSimple(OpPop), b, GenCondBranch(GenConst(true), GenConst(false))),
		),
	)
}

// GenBoth is `a, b`: the outputs of a followed by the outputs of b.
func GenBoth(a, b Block) Block {
	jump := &Inst{Op: OpJump}
	fork := &Inst{Op: OpFork, Target: jump}
	c := Seq(Block{fork}, a, Block{jump}, b)
	jump.Target = c.Last()
	return c
}

// GenCollect is `[expr]`.
func GenCollect(expr Block) Block {
	arr := GenOpVarFresh(OpStoreV, "collect")
	tail := Seq(GenOpBound(OpAppend, arr), GenOpSimple(OpBacktrack))
	return Seq(
		GenOpSimple(OpDup), GenConst([]any{}), arr,
		GenOpTarget(OpFork, tail),
		expr,
		tail,
		GenOpBound(OpLoadVN, arr),
	)
}

// GenVarBinding is `source as $name | body`.
func GenVarBinding(source Block, name string, body Block) Block {
	v := GenOpVarFresh(OpStoreV, name)
	bindSubblock(v.First(), body)
	return Seq(GenOpSimple(OpDup), GenSubexp(source), GenOpSimple(OpPop), v, body)
}

// GenReduce is `reduce source as $name (init; body)`.
func GenReduce(source Block, name string, init, body Block) Block {
	acc := GenOpVarFresh(OpStoreV, "reduce")
	v := GenOpVarFresh(OpStoreV, name)
	bindSubblock(v.First(), body)
	loop := Seq(
		GenOpSimple(OpDupN),
		source,
		v,
		GenOpBound(OpLoadVN, acc),
		body,
		GenOpBound(OpStoreV, acc),
		GenOpSimple(OpBacktrack),
	)
	return Seq(
		GenOpSimple(OpDup), init, acc,
		GenOpTarget(OpFork, loop),
		loop,
		GenOpBound(OpLoadVN, acc),
	)
}

// GenIndex is `target[key]`; key is evaluated against the input of target.
func GenIndex(target, key Block) Block {
	return Seq(GenSubexp(key), target, GenOpSimple(OpIndex))
}

// GenField is `.name`.
func GenField(name string) Block {
	return GenIndex(Noop(), GenConst(name))
}

// GenEach is `.[]`.
func GenEach() Block { return GenOpSimple(OpEach) }

// GenEachOpt is `.[]?`.
func GenEachOpt() Block { return GenOpSimple(OpEachOpt) }

// GenParam declares a closure parameter of a function.
func GenParam(name string) Block {
	return Block{{Op: OpClosureParam, Symbol: name}}
}

// GenFunction defines `def name(params): body;`. The parameters and the
// function itself are bound into body, so it may recurse.
func GenFunction(name string, params, body Block) Block {
	def := &Inst{Op: OpClosureCreate, Symbol: name, Params: params, Subfn: body}
	for _, p := range params {
		bindSubblock(p, body)
	}
	bindSubblock(def, body)
	return Block{def}
}

// GenLambda wraps body as an anonymous closure argument.
func GenLambda(body Block) Block {
	return GenFunction("@lambda", Noop(), body)
}

// GenCall calls name with one closure argument per element of args.
func GenCall(name string, args ...Block) Block {
	call := &Inst{Op: OpCallJQ, Symbol: name, NActuals: len(args)}
	for _, a := range args {
		call.Args = append(call.Args, GenLambda(a)...)
	}
	return Block{call}
}

// GenCallBuiltin calls a native directly. Each argument is evaluated as a
// subexpression, last first, so that the native receives the input followed
// by the arguments in order.
func GenCallBuiltin(def *builtins.FunctionDef, args ...Block) Block {
	var prelude Block
	for i := len(args) - 1; i >= 0; i-- {
		prelude = Seq(prelude, GenSubexp(args[i]))
	}
	call := &Inst{Op: OpCallBuiltin, Symbol: def.Name, NActuals: def.Arity, Builtin: def}
	return Seq(prelude, Block{call})
}

// GenCBinding defines natives in front of code and binds them into it.
func GenCBinding(defs []*builtins.FunctionDef, code Block) Block {
	natives := make(Block, 0, len(defs))
	for _, d := range defs {
		natives = append(natives, &Inst{Op: OpClosureCreateC, Symbol: d.Name, Builtin: d})
	}
	return Bind(natives, code)
}

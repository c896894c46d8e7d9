package bytecode

import (
	"fmt"
	"strings"

	"github.com/sandrolain/jqcore/pkg/builtins"
	"github.com/sandrolain/jqcore/pkg/types"
)

// Inst is a single instruction. Which fields are meaningful depends on Op.
//
// Branch instructions (FORK, JUMP, JUMP_F) continue after Target. Variable
// instructions and calls are resolved through BoundBy, which points at the
// defining instruction: a fresh STOREV for variables, a closure pseudo-op
// for calls.
type Inst struct {
	Op Opcode

	// Const is the value loaded by LOADK.
	Const any
	// Target is the instruction after which a branch resumes.
	Target *Inst

	Symbol  string
	BoundBy *Inst

	// NActuals is the number of closure arguments of CALL_JQ, and the
	// native arity (input included) of CALL_BUILTIN.
	NActuals int
	// Args holds the closure arguments of CALL_JQ, one CLOSURE_CREATE each.
	Args Block

	// Params and Subfn describe a CLOSURE_CREATE definition.
	Params Block
	Subfn  Block

	// Builtin is the native bound by CLOSURE_CREATE_C and CALL_BUILTIN.
	Builtin *builtins.FunctionDef
}

// NParams returns the number of closure parameters a definition takes.
func (i *Inst) NParams() int {
	switch i.Op {
	case OpClosureCreate:
		return len(i.Params)
	case OpClosureCreateC:
		return i.Builtin.Arity - 1
	}
	return 0
}

// Signature returns "name/arity" for definitions and calls.
func (i *Inst) Signature() string {
	switch i.Op {
	case OpCallJQ:
		return builtins.Signature(i.Symbol, i.NActuals)
	case OpCallBuiltin:
		return builtins.Signature(i.Symbol, i.NActuals-1)
	}
	return builtins.Signature(i.Symbol, i.NParams())
}

func (i *Inst) String() string {
	var sb strings.Builder
	sb.WriteString(i.Op.String())
	switch {
	case i.Op == OpLoadK:
		sb.WriteString(" ")
		sb.WriteString(types.Dump(i.Const))
	case i.Op.HasVariable():
		fmt.Fprintf(&sb, " $%s", i.Symbol)
	case i.Op == OpCallJQ || i.Op == OpCallBuiltin || i.Op.IsDefinition():
		fmt.Fprintf(&sb, " %s", i.Signature())
	}
	return sb.String()
}

// Block is a sequence of instructions. Blocks are consumed by the
// constructors that combine them: an instruction belongs to exactly one
// block, except for bound library definitions, which are shared read-only.
type Block []*Inst

// Noop is the empty block.
func Noop() Block { return nil }

// Seq concatenates blocks into a new block.
func Seq(blocks ...Block) Block {
	n := 0
	for _, b := range blocks {
		n += len(b)
	}
	out := make(Block, 0, n)
	for _, b := range blocks {
		out = append(out, b...)
	}
	return out
}

// First returns the first instruction, or nil for an empty block.
func (b Block) First() *Inst {
	if len(b) == 0 {
		return nil
	}
	return b[0]
}

// Last returns the last instruction, or nil for an empty block.
func (b Block) Last() *Inst {
	if len(b) == 0 {
		return nil
	}
	return b[len(b)-1]
}

// Walk calls fn for every instruction of b, descending into definition
// bodies and call arguments. Returning false from fn skips the children of
// that instruction.
func (b Block) Walk(fn func(*Inst) bool) {
	for _, inst := range b {
		if !fn(inst) {
			continue
		}
		inst.Subfn.Walk(fn)
		inst.Args.Walk(fn)
	}
}

// Definitions returns the closure definitions at the top level of b.
func (b Block) Definitions() []*Inst {
	var defs []*Inst
	for _, inst := range b {
		if inst.Op == OpClosureCreate || inst.Op == OpClosureCreateC {
			defs = append(defs, inst)
		}
	}
	return defs
}

// String disassembles b, one instruction per line, indenting nested bodies.
func (b Block) String() string {
	var sb strings.Builder
	b.dump(&sb, 0)
	return sb.String()
}

func (b Block) dump(sb *strings.Builder, depth int) {
	for _, inst := range b {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(inst.String())
		sb.WriteByte('\n')
		for _, a := range inst.Args {
			a.Subfn.dump(sb, depth+1)
		}
		inst.Subfn.dump(sb, depth+1)
	}
}

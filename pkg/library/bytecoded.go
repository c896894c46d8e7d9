package library

import (
	"github.com/sandrolain/jqcore/pkg/bytecode"
)

// bytecodedBuiltins returns the builtins written directly in bytecode
// because they drive backtracking themselves.
func bytecodedBuiltins() bytecode.Block {
	return bytecode.Seq(
		bytecode.GenFunction("empty", bytecode.Noop(), genEmpty()),
		bytecode.GenFunction("not", bytecode.Noop(), genNot()),
		bytecode.GenFunction("path", bytecode.GenParam("arg"), genPath()),
		bytecode.GenFunction("last", bytecode.GenParam("f"), genLast()),
		bytecode.GenFunction("range", bytecode.Seq(bytecode.GenParam("start"), bytecode.GenParam("end")), genRange()),
	)
}

func genEmpty() bytecode.Block {
	return bytecode.GenOpSimple(bytecode.OpBacktrack)
}

func genNot() bytecode.Block {
	return bytecode.GenCondBranch(bytecode.GenConst(false), bytecode.GenConst(true))
}

func genPath() bytecode.Block {
	return bytecode.Seq(
		bytecode.GenOpSimple(bytecode.OpPathBegin),
		bytecode.GenCall("arg"),
		bytecode.GenOpSimple(bytecode.OpPathEnd),
	)
}

// genLast forks into f, overwriting $last and clearing $is_empty on every
// output before backtracking. Once f is exhausted the fork resumes and the
// stored value is produced, unless f never produced one.
func genLast() bytecode.Block {
	last := bytecode.GenOpVarFresh(bytecode.OpStoreV, "last")
	isEmpty := bytecode.GenOpVarFresh(bytecode.OpStoreV, "is_empty")
	init := bytecode.Seq(
		bytecode.GenOpSimple(bytecode.OpDup), bytecode.GenConst(nil), last,
		bytecode.GenOpSimple(bytecode.OpDup), bytecode.GenConst(true), isEmpty,
	)
	callArg := bytecode.Seq(
		bytecode.GenCall("f"),
		bytecode.GenOpSimple(bytecode.OpDup),
		bytecode.GenOpBound(bytecode.OpStoreV, last),
		bytecode.GenConst(false),
		bytecode.GenOpBound(bytecode.OpStoreV, isEmpty),
		bytecode.GenOpSimple(bytecode.OpBacktrack),
	)
	ifEmpty := bytecode.GenOpSimple(bytecode.OpBacktrack)
	return bytecode.Seq(
		init,
		bytecode.GenOpTarget(bytecode.OpFork, callArg),
		callArg,
		bytecode.GenOpBound(bytecode.OpLoadVN, isEmpty),
		bytecode.GenOpTarget(bytecode.OpJumpF, ifEmpty),
		ifEmpty,
		bytecode.GenOpBound(bytecode.OpLoadVN, last),
	)
}

// genRange evaluates start once, then for every output of end resets
// $rangevar and lets RANGE enumerate [start, end).
func genRange() bytecode.Block {
	rangevar := bytecode.GenOpVarFresh(bytecode.OpStoreV, "rangevar")
	rangestart := bytecode.GenOpVarFresh(bytecode.OpStoreV, "rangestart")
	return bytecode.Seq(
		bytecode.GenOpSimple(bytecode.OpDup),
		bytecode.GenCall("start"),
		rangestart,
		bytecode.GenCall("end"),
		bytecode.GenOpSimple(bytecode.OpDup),
		bytecode.GenOpBound(bytecode.OpLoadV, rangestart),
		rangevar,
		bytecode.GenOpBound(bytecode.OpRange, rangevar),
	)
}

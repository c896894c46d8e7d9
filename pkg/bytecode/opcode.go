package bytecode

// Opcode identifies a VM instruction.
type Opcode uint8

const (
	OpLoadK Opcode = iota
	OpDup
	OpDupN
	OpPop
	OpLoadV
	OpLoadVN
	OpStoreV
	OpAppend
	OpFork
	OpBacktrack
	OpJump
	OpJumpF
	OpSubexpBegin
	OpSubexpEnd
	OpPathBegin
	OpPathEnd
	OpRange
	OpIndex
	OpEach
	OpEachOpt
	OpCallBuiltin
	OpCallJQ
	OpRet

	// Pseudo-instructions. They define names and never execute.
	OpClosureCreate
	OpClosureCreateC
	OpClosureParam
)

var opcodeNames = [...]string{
	OpLoadK:          "LOADK",
	OpDup:            "DUP",
	OpDupN:           "DUPN",
	OpPop:            "POP",
	OpLoadV:          "LOADV",
	OpLoadVN:         "LOADVN",
	OpStoreV:         "STOREV",
	OpAppend:         "APPEND",
	OpFork:           "FORK",
	OpBacktrack:      "BACKTRACK",
	OpJump:           "JUMP",
	OpJumpF:          "JUMP_F",
	OpSubexpBegin:    "SUBEXP_BEGIN",
	OpSubexpEnd:      "SUBEXP_END",
	OpPathBegin:      "PATH_BEGIN",
	OpPathEnd:        "PATH_END",
	OpRange:          "RANGE",
	OpIndex:          "INDEX",
	OpEach:           "EACH",
	OpEachOpt:        "EACH_OPT",
	OpCallBuiltin:    "CALL_BUILTIN",
	OpCallJQ:         "CALL_JQ",
	OpRet:            "RET",
	OpClosureCreate:  "CLOSURE_CREATE",
	OpClosureCreateC: "CLOSURE_CREATE_C",
	OpClosureParam:   "CLOSURE_PARAM",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "UNKNOWN"
}

// HasTarget reports whether the instruction carries a branch target.
func (op Opcode) HasTarget() bool {
	return op == OpFork || op == OpJump || op == OpJumpF
}

// HasVariable reports whether the instruction refers to a variable slot.
func (op Opcode) HasVariable() bool {
	switch op {
	case OpLoadV, OpLoadVN, OpStoreV, OpAppend, OpRange:
		return true
	}
	return false
}

// IsDefinition reports whether the instruction is a closure pseudo-op that
// binds function calls.
func (op Opcode) IsDefinition() bool {
	return op == OpClosureCreate || op == OpClosureCreateC || op == OpClosureParam
}

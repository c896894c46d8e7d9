package bytecode

import (
	"strings"

	"github.com/sandrolain/jqcore/pkg/types"
)

// resolves reports whether binder can resolve the reference ref.
func resolves(binder, ref *Inst) bool {
	if ref.BoundBy != nil || ref.Symbol != binder.Symbol {
		return false
	}
	switch binder.Op {
	case OpStoreV:
		return ref.Op.HasVariable()
	case OpClosureParam:
		return ref.Op == OpCallJQ && ref.NActuals == 0
	case OpClosureCreate, OpClosureCreateC:
		return ref.Op == OpCallJQ && ref.NActuals == binder.NParams()
	}
	return false
}

// bindSubblock resolves the unbound references in body that binder
// defines and returns how many it bound. References already bound by an
// inner definition are left alone.
func bindSubblock(binder *Inst, body Block) int {
	n := 0
	body.Walk(func(inst *Inst) bool {
		if resolves(binder, inst) {
			inst.BoundBy = binder
			n++
		}
		return true
	})
	return n
}

// Bind binds every definition of defs into the definitions that
// follow it and into body, and returns them concatenated. A definition
// therefore sees the ones before it, and later definitions shadow earlier
// ones with the same name and arity.
func Bind(defs, body Block) Block {
	for i := len(defs) - 1; i >= 0; i-- {
		d := defs[i]
		if !d.Op.IsDefinition() {
			continue
		}
		for _, later := range defs[i+1:] {
			bindSubblock(d, later.Subfn)
		}
		bindSubblock(d, body)
	}
	return Seq(defs, body)
}

// Unbound returns the references in b that no definition resolved.
func Unbound(b Block) []*Inst {
	var refs []*Inst
	b.Walk(func(inst *Inst) bool {
		if inst.BoundBy == nil && (inst.Op == OpCallJQ || inst.Op.HasVariable()) {
			refs = append(refs, inst)
		}
		return true
	})
	return refs
}

// CheckBound returns an ErrUndefinedFunction error naming every unresolved
// reference in b, or nil.
func CheckBound(b Block) error {
	refs := Unbound(b)
	if len(refs) == 0 {
		return nil
	}
	msgs := make([]string, len(refs))
	for i, r := range refs {
		if r.Op == OpCallJQ {
			msgs[i] = r.Signature() + " is not defined"
		} else {
			msgs[i] = "$" + r.Symbol + " is not defined"
		}
	}
	return types.NewError(types.ErrUndefinedFunction, strings.Join(msgs, "; "))
}

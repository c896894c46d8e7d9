package vm

import (
	"github.com/sandrolain/jqcore/pkg/bytecode"
)

// stack is a persistent data stack: pushing never modifies an existing
// node, so a choice point keeps a snapshot by holding the top pointer.
type stack struct {
	v    any
	next *stack
}

func (s *stack) push(v any) *stack { return &stack{v: v, next: s} }

func (s *stack) pop() (any, *stack) { return s.v, s.next }

// pathMarker is pushed by PATH_BEGIN below the value being tracked and
// restores the enclosing tracking state at PATH_END.
type pathMarker struct {
	saved pathState
}

// pathState tracks the path from the input of the innermost path(f) to the
// current value. The path slice is never appended to in place.
type pathState struct {
	tracking bool
	path     []any
	value    any
	nest     int
}

// active reports whether accesses extend the path right now: inside path(f)
// but not inside a subexpression.
func (p *pathState) active() bool { return p.tracking && p.nest == 0 }

func (p *pathState) extend(components []any, v any) {
	path := make([]any, len(p.path), len(p.path)+len(components))
	copy(path, p.path)
	p.path = append(path, components...)
	p.value = v
}

// closure is a function together with the frame its free references
// resolve in.
type closure struct {
	fn  *function
	env *frame
}

// frame is the activation of a function. vars holds the variables the
// function defines; it is not restored on backtracking.
type frame struct {
	fn     *function
	env    *frame
	args   []*closure
	vars   map[*bytecode.Inst]any
	caller *frame
	retPC  int
}

// iteration is the state of an EACH over an array or an object.
type iteration struct {
	container any
	keys      []string
	n         int
	idx       int
}

// choice is a resumable alternative. Resuming restores the frame, the data
// stack and the path state; with it set, resuming produces the next element
// of an iteration.
type choice struct {
	pc   int
	fr   *frame
	stk  *stack
	path pathState
	it   *iteration
}

package library

import (
	"fmt"
	"strings"

	"github.com/sandrolain/jqcore/pkg/bytecode"
)

// The helpers below spell library definitions with the block constructors.
// Every call returns fresh instructions, so a helper result may be used
// exactly once.

type block = bytecode.Block

// dot is the identity filter.
func dot() block { return bytecode.Noop() }

func pipe(bs ...block) block { return bytecode.Seq(bs...) }

func call(name string, args ...block) block { return bytecode.GenCall(name, args...) }

func konst(v any) block { return bytecode.GenConst(v) }

func ref(name string) block { return bytecode.GenVar(name) }

func field(name string) block { return bytecode.GenField(name) }

func index(key block) block { return bytecode.GenIndex(bytecode.Noop(), key) }

func iter() block { return bytecode.GenEach() }

func iterOpt() block { return bytecode.GenEachOpt() }

func collect(b block) block { return bytecode.GenCollect(b) }

func ifte(c, t, f block) block { return bytecode.GenCond(c, t, f) }

func as(source block, name string, body block) block {
	return bytecode.GenVarBinding(source, name, body)
}

func reduce(source block, name string, init, body block) block {
	return bytecode.GenReduce(source, name, init, body)
}

func and(a, b block) block { return bytecode.GenAnd(a, b) }

func or(a, b block) block { return bytecode.GenOr(a, b) }

func not(a block) block { return pipe(a, call("not")) }

// comma is `a, b, ...`.
func comma(first block, rest ...block) block {
	if len(rest) == 0 {
		return first
	}
	return bytecode.GenBoth(first, comma(rest[0], rest[1:]...))
}

func eq(a, b block) block   { return call("_equal", a, b) }
func ne(a, b block) block   { return call("_notequal", a, b) }
func lt(a, b block) block   { return call("_less", a, b) }
func gt(a, b block) block   { return call("_greater", a, b) }
func plus(a, b block) block { return call("_plus", a, b) }

// typeIs is `type == "name"`.
func typeIs(name string) block { return eq(call("type"), konst(name)) }

// keyValue is one `key: value` entry of an object construction.
type keyValue struct {
	key   block
	value block
}

func kv(key string, value block) keyValue { return keyValue{konst(key), value} }

// object is `{k1: v1, ...}`. Every key and value is evaluated against the
// input before the object is assembled with setpath.
func object(entries ...keyValue) block {
	body := konst(map[string]any{})
	for i := range entries {
		body = pipe(body, call("setpath", collect(ref(fmt.Sprintf("key%d", i))), ref(fmt.Sprintf("value%d", i))))
	}
	for i := len(entries) - 1; i >= 0; i-- {
		body = as(entries[i].value, fmt.Sprintf("value%d", i), body)
		body = as(entries[i].key, fmt.Sprintf("key%d", i), body)
	}
	return body
}

// def is `def name(params): body;`. A parameter written as "$x" is a value
// parameter: the closure x is bound and each of its outputs is available as
// $x.
func def(name string, params []string, body block) block {
	for i := len(params) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(params[i], "$"); ok {
			body = as(call(v), v, body)
		}
	}
	var ps block
	for _, p := range params {
		ps = append(ps, bytecode.GenParam(strings.TrimPrefix(p, "$"))...)
	}
	return bytecode.GenFunction(name, ps, body)
}

// local is `def ...; body` inside another definition.
func local(defs block, body block) block {
	return bytecode.Bind(defs, body)
}

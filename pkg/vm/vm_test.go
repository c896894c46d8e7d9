package vm_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/sandrolain/jqcore/pkg/bytecode"
	"github.com/sandrolain/jqcore/pkg/library"
	"github.com/sandrolain/jqcore/pkg/types"
	"github.com/sandrolain/jqcore/pkg/vm"
)

func bind(t *testing.T, program bytecode.Block) bytecode.Block {
	t.Helper()
	bound, err := library.BuiltinsBind(program)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	return bound
}

func run(t *testing.T, program bytecode.Block, input any) []any {
	t.Helper()
	out, err := vm.Collect(context.Background(), bind(t, program), input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return out
}

func runErr(t *testing.T, program bytecode.Block, input any) error {
	t.Helper()
	_, err := vm.Collect(context.Background(), bind(t, program), input)
	if err == nil {
		t.Fatal("expected an error")
	}
	return err
}

func plus(a, b bytecode.Block) bytecode.Block { return bytecode.GenCall("_plus", a, b) }

// ── Control flow ────────────────────────────────────────────────────────────

func TestIdentityAndConstants(t *testing.T) {
	if got := run(t, bytecode.Noop(), 7.0); !reflect.DeepEqual(got, []any{7.0}) {
		t.Errorf(". = %v", got)
	}
	if got := run(t, bytecode.GenConst("x"), nil); !reflect.DeepEqual(got, []any{"x"}) {
		t.Errorf(`"x" = %v`, got)
	}
}

func TestCommaOrder(t *testing.T) {
	prog := bytecode.GenBoth(bytecode.GenConst(1.0), bytecode.GenBoth(bytecode.GenConst(2.0), bytecode.GenConst(3.0)))
	if got := run(t, prog, nil); !reflect.DeepEqual(got, []any{1.0, 2.0, 3.0}) {
		t.Errorf("1, 2, 3 = %v", got)
	}
}

func TestConditional(t *testing.T) {
	prog := func() bytecode.Block {
		return bytecode.GenCond(bytecode.GenField("ok"), bytecode.GenConst("yes"), bytecode.GenConst("no"))
	}
	tests := []struct {
		input any
		want  string
	}{
		{map[string]any{"ok": true}, "yes"},
		{map[string]any{"ok": 0.0}, "yes"},
		{map[string]any{"ok": false}, "no"},
		{map[string]any{}, "no"},
	}
	for _, tt := range tests {
		got := run(t, prog(), tt.input)
		if !reflect.DeepEqual(got, []any{tt.want}) {
			t.Errorf("%v: got %v, want %s", tt.input, got, tt.want)
		}
	}
}

func TestAndOr(t *testing.T) {
	tests := []struct {
		name string
		prog bytecode.Block
		want any
	}{
		{"true and false", bytecode.GenAnd(bytecode.GenConst(true), bytecode.GenConst(false)), false},
		{"1 and 2", bytecode.GenAnd(bytecode.GenConst(1.0), bytecode.GenConst(2.0)), true},
		{"null or false", bytecode.GenOr(bytecode.GenConst(nil), bytecode.GenConst(false)), false},
		{"null or 0", bytecode.GenOr(bytecode.GenConst(nil), bytecode.GenConst(0.0)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(t, tt.prog, nil); !reflect.DeepEqual(got, []any{tt.want}) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEachOrder(t *testing.T) {
	if got := run(t, bytecode.GenEach(), []any{1.0, "a", nil}); !reflect.DeepEqual(got, []any{1.0, "a", nil}) {
		t.Errorf("array: %v", got)
	}
	obj := map[string]any{"b": 2.0, "a": 1.0, "c": 3.0}
	if got := run(t, bytecode.GenEach(), obj); !reflect.DeepEqual(got, []any{1.0, 2.0, 3.0}) {
		t.Errorf("object values should follow sorted keys: %v", got)
	}
	if got := run(t, bytecode.GenEach(), []any{}); len(got) != 0 {
		t.Errorf("empty array: %v", got)
	}
}

func TestEachErrors(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{nil, "Cannot iterate over null"},
		{5.0, "Cannot iterate over number (5)"},
		{"abc", `Cannot iterate over string ("abc")`},
	}
	for _, tt := range tests {
		err := runErr(t, bytecode.GenEach(), tt.input)
		if err.Error() != tt.want {
			t.Errorf("%v: got %q, want %q", tt.input, err, tt.want)
		}
	}
	if got := run(t, bytecode.GenEachOpt(), 5.0); len(got) != 0 {
		t.Errorf(".[]? on a number: %v", got)
	}
}

func TestCollectAndReduce(t *testing.T) {
	collect := bytecode.GenCollect(plus(bytecode.GenEach(), bytecode.GenConst(10.0)))
	if got := run(t, collect, []any{1.0, 2.0}); !reflect.DeepEqual(got, []any{[]any{11.0, 12.0}}) {
		t.Errorf("[.[] + 10] = %v", got)
	}

	sum := bytecode.GenReduce(bytecode.GenEach(), "x", bytecode.GenConst(0.0), plus(bytecode.Noop(), bytecode.GenVar("x")))
	if got := run(t, sum, []any{1.0, 2.0, 3.0}); !reflect.DeepEqual(got, []any{6.0}) {
		t.Errorf("reduce = %v", got)
	}

	empty := bytecode.GenReduce(bytecode.GenEach(), "x", bytecode.GenConst("init"), bytecode.GenVar("x"))
	if got := run(t, empty, []any{}); !reflect.DeepEqual(got, []any{"init"}) {
		t.Errorf("reduce over nothing = %v", got)
	}
}

func TestVariableBinding(t *testing.T) {
	// .a as $x | .b | . + $x
	prog := bytecode.GenVarBinding(bytecode.GenField("a"), "x",
		bytecode.Seq(bytecode.GenField("b"), plus(bytecode.Noop(), bytecode.GenVar("x"))))
	got := run(t, prog, map[string]any{"a": 1.0, "b": 2.0})
	if !reflect.DeepEqual(got, []any{3.0}) {
		t.Errorf("got %v", got)
	}

	// (1, 2) as $x | $x * 10
	gen := bytecode.GenVarBinding(bytecode.GenBoth(bytecode.GenConst(1.0), bytecode.GenConst(2.0)), "x",
		bytecode.GenCall("_multiply", bytecode.GenVar("x"), bytecode.GenConst(10.0)))
	if got := run(t, gen, nil); !reflect.DeepEqual(got, []any{10.0, 20.0}) {
		t.Errorf("generator binding: %v", got)
	}
}

func TestNativeArgumentsCartesian(t *testing.T) {
	// (1, 2) + (10, 20): the right operand varies fastest
	prog := plus(
		bytecode.GenBoth(bytecode.GenConst(1.0), bytecode.GenConst(2.0)),
		bytecode.GenBoth(bytecode.GenConst(10.0), bytecode.GenConst(20.0)),
	)
	got := run(t, prog, nil)
	if len(got) != 4 {
		t.Fatalf("got %v", got)
	}
	sum := 0.0
	for _, v := range got {
		sum += v.(float64)
	}
	if sum != 11+21+12+22 {
		t.Errorf("outputs %v", got)
	}
}

func TestUserFunctions(t *testing.T) {
	// def twice(f): f | f; twice(. + 1)
	def := bytecode.GenFunction("twice", bytecode.GenParam("f"), bytecode.Seq(bytecode.GenCall("f"), bytecode.GenCall("f")))
	prog := bytecode.Bind(def, bytecode.GenCall("twice", plus(bytecode.Noop(), bytecode.GenConst(1.0))))
	if got := run(t, prog, 1.0); !reflect.DeepEqual(got, []any{3.0}) {
		t.Errorf("twice = %v", got)
	}
}

func TestClosuresSeeTheirDefiningScope(t *testing.T) {
	// 5 as $n | def add_n: . + $n; 1 | add_n
	inner := bytecode.GenFunction("add_n", bytecode.Noop(), plus(bytecode.Noop(), bytecode.GenVar("n")))
	body := bytecode.Bind(inner, bytecode.Seq(bytecode.GenConst(1.0), bytecode.GenCall("add_n")))
	prog := bytecode.GenVarBinding(bytecode.GenConst(5.0), "n", body)
	if got := run(t, prog, nil); !reflect.DeepEqual(got, []any{6.0}) {
		t.Errorf("got %v", got)
	}
}

func TestRecursion(t *testing.T) {
	// def fac: if . <= 1 then 1 else . * (. - 1 | fac) end; fac
	fac := bytecode.GenFunction("fac", bytecode.Noop(), bytecode.GenCond(
		bytecode.GenCall("_lesseq", bytecode.Noop(), bytecode.GenConst(1.0)),
		bytecode.GenConst(1.0),
		bytecode.GenCall("_multiply", bytecode.Noop(),
			bytecode.Seq(bytecode.GenCall("_minus", bytecode.Noop(), bytecode.GenConst(1.0)), bytecode.GenCall("fac"))),
	))
	prog := bytecode.Bind(fac, bytecode.GenCall("fac"))
	if got := run(t, prog, 5.0); !reflect.DeepEqual(got, []any{120.0}) {
		t.Errorf("fac(5) = %v", got)
	}
}

// ── Paths ───────────────────────────────────────────────────────────────────

func pathOf(f bytecode.Block) bytecode.Block { return bytecode.GenCall("path", f) }

func TestPathTracking(t *testing.T) {
	input := map[string]any{"a": []any{map[string]any{"b": 1.0}}}
	tests := []struct {
		name string
		f    bytecode.Block
		want []any
	}{
		{"identity", bytecode.Noop(), []any{[]any{}}},
		{"field", bytecode.GenField("a"), []any{[]any{"a"}}},
		{"nested", bytecode.Seq(bytecode.GenField("a"), bytecode.GenIndex(bytecode.Noop(), bytecode.GenConst(0.0)), bytecode.GenField("b")),
			[]any{[]any{"a", 0.0, "b"}}},
		{"each", bytecode.Seq(bytecode.GenField("a"), bytecode.GenEach()), []any{[]any{"a", 0.0}}},
		{"getpath", bytecode.GenCall("getpath", bytecode.GenConst([]any{"a", 0.0})), []any{[]any{"a", 0.0}}},
		{"subexpression key", bytecode.GenIndex(bytecode.Noop(), bytecode.GenSubexp(bytecode.GenConst("a"))), []any{[]any{"a"}}},
		{"absent", bytecode.GenField("zz"), []any{[]any{"zz"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(t, pathOf(tt.f), input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvalidPaths(t *testing.T) {
	input := map[string]any{"a": 1.0}
	tests := []struct {
		name string
		f    bytecode.Block
		want string
	}{
		{"constant", bytecode.GenConst(1.0), "Invalid path expression with result 1"},
		{"index after tojson", bytecode.Seq(bytecode.GenCall("tojson"), bytecode.GenField("a")),
			`Invalid path expression near attempt to access element "a" of "{\"a\":1}"`},
		{"iterate after keys", bytecode.Seq(bytecode.GenCall("keys"), bytecode.GenEach()),
			`Invalid path expression near attempt to iterate through ["a"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runErr(t, pathOf(tt.f), input)
			var e *types.Error
			if !errors.As(err, &e) || e.Code != types.ErrInvalidPath {
				t.Fatalf("error %v is not an invalid path error", err)
			}
			if err.Error() != tt.want {
				t.Errorf("got %q, want %q", err, tt.want)
			}
		})
	}
}

// ── Runtime interaction ─────────────────────────────────────────────────────

func TestUndefinedFunction(t *testing.T) {
	_, err := library.BuiltinsBind(bytecode.GenCall("nope", bytecode.GenConst(1.0)))
	if err == nil || err.Error() != "nope/1 is not defined" {
		t.Fatalf("got %v", err)
	}
}

func TestErrorEndsStream(t *testing.T) {
	// 1, error("boom"), 2
	prog := bytecode.GenBoth(bytecode.GenConst(1.0),
		bytecode.GenBoth(bytecode.GenCall("error", bytecode.GenConst("boom")), bytecode.GenConst(2.0)))
	it := vm.Run(context.Background(), bind(t, prog), nil)
	v, ok := it.Next()
	if !ok || v != 1.0 {
		t.Fatalf("first output %v, %v", v, ok)
	}
	v, ok = it.Next()
	err, isErr := v.(error)
	if !ok || !isErr || err.Error() != "boom" {
		t.Fatalf("second output %v, %v", v, ok)
	}
	if _, ok := it.Next(); ok {
		t.Error("stream should end after an error")
	}
}

func TestHaltStopsRun(t *testing.T) {
	prog := bytecode.GenBoth(
		bytecode.Seq(bytecode.GenConst("bye\n"), bytecode.GenCall("halt_error", bytecode.GenConst(3.0))),
		bytecode.GenConst("unreachable"),
	)
	out, err := vm.Collect(context.Background(), bind(t, prog), nil)
	var h *types.HaltError
	if !errors.As(err, &h) {
		t.Fatalf("error %v, want *types.HaltError", err)
	}
	if h.ExitCode() != 3 || h.Value != "bye\n" || len(out) != 0 {
		t.Errorf("halt %+v, outputs %v", h, out)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prog := bind(t, bytecode.GenCall("range", bytecode.GenConst(0.0), bytecode.GenConst(1e9)))
	_, err := vm.Collect(ctx, prog, nil, vm.WithCheckInterval(1))
	var e *types.Error
	if !errors.As(err, &e) || e.Code != types.ErrCancelled {
		t.Fatalf("got %v, want a cancellation error", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("cancellation should wrap the context error")
	}
}

func TestRangeBounds(t *testing.T) {
	err := runErr(t, bytecode.GenCall("range", bytecode.GenConst(0.0), bytecode.GenConst("x")), nil)
	if !strings.Contains(err.Error(), "Range bounds must be numeric") {
		t.Errorf("got %v", err)
	}
}

func TestUnboundVariable(t *testing.T) {
	_, err := vm.Collect(context.Background(), bytecode.GenVar("x"), nil)
	if err == nil || err.Error() != "$x is not defined" {
		t.Errorf("got %v", err)
	}
}

func TestRunIsLazy(t *testing.T) {
	prog := bind(t, bytecode.GenCall("range", bytecode.GenConst(0.0), bytecode.GenConst(1e12)))
	it := vm.Run(context.Background(), prog, nil)
	for i := 0; i < 3; i++ {
		v, ok := it.Next()
		if !ok || v != float64(i) {
			t.Fatalf("output %d: %v, %v", i, v, ok)
		}
	}
}

package ext_test

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/sandrolain/jqcore/pkg/bytecode"
	"github.com/sandrolain/jqcore/pkg/ext"
	"github.com/sandrolain/jqcore/pkg/ext/extarray"
	"github.com/sandrolain/jqcore/pkg/ext/extstring"
	"github.com/sandrolain/jqcore/pkg/functions"
	"github.com/sandrolain/jqcore/pkg/library"
	"github.com/sandrolain/jqcore/pkg/vm"
)

// eval applies name, with constant arguments, to input.
func eval(t *testing.T, name string, input any, args []any, opts ...library.BindOption) (any, error) {
	t.Helper()
	blocks := make([]bytecode.Block, len(args))
	for i, a := range args {
		blocks[i] = bytecode.GenConst(a)
	}
	bound, err := library.BuiltinsBind(bytecode.GenCall(name, blocks...), opts...)
	if err != nil {
		t.Fatalf("bind %s: %v", name, err)
	}
	out, err := vm.Collect(context.Background(), bound, input)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		t.Fatalf("%s produced %d outputs", name, len(out))
	}
	return out[0], nil
}

// ── WithAll ────────────────────────────────────────────────────────────────

func TestWithAll_StringFunctions(t *testing.T) {
	opt := ext.WithAll()

	tests := []struct {
		name  string
		input any
		args  []any
		want  any
	}{
		{"ascii_downcase", "HeLLo ÀB", nil, "hello Àb"},
		{"ascii_upcase", "hello ü", nil, "HELLO ü"},
		{"ltrimstr", "foobar", []any{"foo"}, "bar"},
		{"ltrimstr", "foobar", []any{"bar"}, "foobar"},
		{"ltrimstr", 1.0, []any{"foo"}, 1.0},
		{"rtrimstr", "foobar", []any{"bar"}, "foo"},
		{"rtrimstr", "foobar", []any{1.0}, "foobar"},
		{"capitalize", "hELLO world", nil, "Hello world"},
		{"camel_case", "hello_world", nil, "helloWorld"},
		{"camel_case", "Hello big-World", nil, "helloBigWorld"},
		{"snake_case", "helloWorld", nil, "hello_world"},
		{"kebab_case", "helloWorld now", nil, "hello-world-now"},
		{"words", "  a b\tc ", nil, []any{"a", "b", "c"}},
		{"template", "Hello, {{name}}! {{n}} {{x}}", []any{map[string]any{"name": "World", "n": 2.0}}, "Hello, World! 2 {{x}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval(t, tt.name, tt.input, tt.args, opt)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestWithAll_ArrayFunctions(t *testing.T) {
	opt := ext.WithAll()
	arr := []any{1.0, 2.0, 3.0, 2.0}

	tests := []struct {
		name string
		arg  any
		want any
	}{
		{"take", 2.0, []any{1.0, 2.0}},
		{"take", 10.0, arr},
		{"take", -1.0, []any{}},
		{"skip", 3.0, []any{2.0}},
		{"skip", 9.0, []any{}},
		{"chunk", 3.0, []any{[]any{1.0, 2.0, 3.0}, []any{2.0}}},
		{"window", 3.0, []any{[]any{1.0, 2.0, 3.0}, []any{2.0, 3.0, 2.0}}},
		{"window", 5.0, []any{}},
		{"union", []any{4.0, 1.0}, []any{1.0, 2.0, 3.0, 4.0}},
		{"intersection", []any{3.0, 2.0, 9.0}, []any{2.0, 3.0}},
		{"difference", []any{2.0}, []any{1.0, 3.0}},
		{"symmetric_difference", []any{3.0, 5.0}, []any{1.0, 2.0, 5.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval(t, tt.name, arr, []any{tt.arg}, opt)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestWithAll_Errors(t *testing.T) {
	opt := ext.WithAll()

	tests := []struct {
		name  string
		input any
		args  []any
		want  string
	}{
		{"ascii_downcase", 1.0, nil, "number (1) cannot be ascii_downcased"},
		{"camel_case", nil, nil, "null (null) cannot be converted to camel case"},
		{"template", "x", []any{"y"}, "cannot be used as template bindings"},
		{"chunk", []any{}, []any{0.0}, "chunk size must be a positive integer"},
		{"window", []any{}, []any{1.5}, "window size must be a positive integer"},
		{"take", "abc", []any{1.0}, "is not an array"},
		{"union", []any{}, []any{"x"}, "cannot be combined by union"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eval(t, tt.name, tt.input, tt.args, opt)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want %q", err, tt.want)
			}
		})
	}
}

// ── Per-category options ────────────────────────────────────────────────────

func TestWithString(t *testing.T) {
	got, err := eval(t, "ascii_upcase", "abc", nil, ext.WithString())
	if err != nil || got != "ABC" {
		t.Errorf("ext.WithString(): got %v, err %v", got, err)
	}
	ns, err := library.New(ext.WithString())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ns.Lookup("chunk", 1); ok {
		t.Error("ext.WithString() registered array functions")
	}
}

func TestWithArray(t *testing.T) {
	got, err := eval(t, "take", []any{10.0, 20.0}, []any{1.0}, ext.WithArray())
	if err != nil || !reflect.DeepEqual(got, []any{10.0}) {
		t.Errorf("ext.WithArray(): got %v, err %v", got, err)
	}
}

func TestAllEntriesAreListed(t *testing.T) {
	ns, err := library.New(ext.WithAll())
	if err != nil {
		t.Fatal(err)
	}
	listed := map[string]bool{}
	for _, s := range ns.Signatures() {
		listed[s] = true
	}
	for _, e := range ext.AllEntries() {
		if s := e.Native().Signature(); !listed[s] {
			t.Errorf("%s is not listed by builtins/0", s)
		}
	}
}

// ── Single-function registration ────────────────────────────────────────────

func TestSingleFunctionRegistration(t *testing.T) {
	natives, err := functions.Natives(extstring.SnakeCase())
	if err != nil {
		t.Fatal(err)
	}
	got, err := eval(t, "snake_case", "fooBar", nil, library.WithFunctions(natives...))
	if err != nil || got != "foo_bar" {
		t.Errorf("single registration: got %v, err %v", got, err)
	}
}

func TestBulkFunctionRegistration(t *testing.T) {
	natives, err := functions.Natives(extarray.AllEntries()...)
	if err != nil {
		t.Fatal(err)
	}
	got, err := eval(t, "skip", []any{1.0, 2.0, 3.0}, []any{2.0}, library.WithFunctions(natives...))
	if err != nil || !reflect.DeepEqual(got, []any{3.0}) {
		t.Errorf("bulk registration: got %v, err %v", got, err)
	}
}

// ── Mix ext + user custom functions ─────────────────────────────────────────

func TestMixExtAndCustomFunctions(t *testing.T) {
	greet := functions.CustomFunctionDef{
		Name: "greet",
		Fn: func(input any, _ ...any) (any, error) {
			return "Hello, " + input.(string) + "!", nil
		},
	}
	natives, err := functions.Natives(greet)
	if err != nil {
		t.Fatal(err)
	}
	prog := bytecode.Seq(bytecode.GenCall("capitalize"), bytecode.GenCall("greet"))
	bound, err := library.BuiltinsBind(prog, ext.WithString(), library.WithFunctions(natives...))
	if err != nil {
		t.Fatal(err)
	}
	out, err := vm.Collect(context.Background(), bound, "alice")
	if err != nil || !reflect.DeepEqual(out, []any{"Hello, Alice!"}) {
		t.Errorf("mix: got %v, err %v", out, err)
	}
}

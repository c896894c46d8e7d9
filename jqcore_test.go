package jqcore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sandrolain/jqcore/pkg/builtins"
	"github.com/sandrolain/jqcore/pkg/bytecode"
	"github.com/sandrolain/jqcore/pkg/config"
	"github.com/sandrolain/jqcore/pkg/ext/extstring"
	"github.com/sandrolain/jqcore/pkg/functions"
	"github.com/sandrolain/jqcore/pkg/library"
	"github.com/sandrolain/jqcore/pkg/types"
)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// ── Engine ──────────────────────────────────────────────────────────────────

func TestVersion(t *testing.T) {
	if !strings.HasPrefix(Version(), "v") {
		t.Errorf("Version() = %q", Version())
	}
}

func TestCollect(t *testing.T) {
	e := newEngine(t)
	got, err := e.Collect(context.Background(), bytecode.GenCall("range", bytecode.GenConst(3.0)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []any{0.0, 1.0, 2.0}) {
		t.Errorf("got %v", got)
	}
	if e.Namespace() != library.Default() {
		t.Error("an engine without host additions should share the default namespace")
	}
}

func TestRunIsLazy(t *testing.T) {
	e := newEngine(t)
	repeat := bytecode.GenCall("repeat", bytecode.GenCall("_plus", bytecode.Noop(), bytecode.GenConst(1.0)))
	it, err := e.Run(context.Background(), repeat, 0.0)
	if err != nil {
		t.Fatal(err)
	}
	for want := 0.0; want < 5; want++ {
		if v, ok := it.Next(); !ok || v != want {
			t.Fatalf("got %v, want %v", v, want)
		}
	}
}

func TestCollectStopsAtError(t *testing.T) {
	e := newEngine(t)
	prog := bytecode.GenBoth(bytecode.GenConst(1.0), bytecode.GenCall("error", bytecode.GenConst("stop")))
	got, err := e.Collect(context.Background(), prog, nil)
	var je *types.Error
	if !errors.As(err, &je) || je.Message != "stop" {
		t.Errorf("err = %v", err)
	}
	if !reflect.DeepEqual(got, []any{1.0}) {
		t.Errorf("got %v", got)
	}
}

func TestUnboundProgram(t *testing.T) {
	e := newEngine(t)
	_, err := e.Run(context.Background(), bytecode.GenCall("missing"), nil)
	if err == nil || !strings.Contains(err.Error(), "missing/0 is not defined") {
		t.Errorf("got %v", err)
	}
}

func TestCancellation(t *testing.T) {
	e := newEngine(t, WithCheckInterval(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Collect(ctx, bytecode.GenCall("range", bytecode.GenConst(1e9)), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v", err)
	}
}

// ── Host additions ──────────────────────────────────────────────────────────

func TestHostFunctions(t *testing.T) {
	double := functions.CustomFunctionDef{Name: "double", Fn: func(input any, _ ...any) (any, error) {
		return input.(float64) * 2, nil
	}}
	e := newEngine(t, WithFunctions(double, extstring.SnakeCase()))

	got, err := e.Collect(context.Background(), bytecode.GenCall("double"), 21.0)
	if err != nil || !reflect.DeepEqual(got, []any{42.0}) {
		t.Errorf("double: %v, %v", got, err)
	}
	got, err = e.Collect(context.Background(), bytecode.GenCall("snake_case"), "fooBar")
	if err != nil || !reflect.DeepEqual(got, []any{"foo_bar"}) {
		t.Errorf("snake_case: %v, %v", got, err)
	}
}

func TestInvalidHostFunction(t *testing.T) {
	_, err := New(WithFunctions(functions.CustomFunctionDef{Name: "no-dash"}))
	if err == nil || !strings.Contains(err.Error(), "invalid function name") {
		t.Errorf("got %v", err)
	}
}

func TestHostDefinitions(t *testing.T) {
	answer := bytecode.GenFunction("answer", bytecode.Noop(), bytecode.GenConst(42.0))
	e := newEngine(t, WithDefinitions(answer))
	got, err := e.Collect(context.Background(), bytecode.GenCall("answer"), nil)
	if err != nil || !reflect.DeepEqual(got, []any{42.0}) {
		t.Errorf("got %v, %v", got, err)
	}
}

// ── Runtime configuration ───────────────────────────────────────────────────

func TestRuntimeOptionsPerRun(t *testing.T) {
	clock := func() time.Time { return time.Unix(1700000000, 0) }
	e := newEngine(t, WithRuntimeOptions(builtins.WithClock(clock)))

	got, err := e.Collect(context.Background(), bytecode.GenCall("now"), nil)
	if err != nil || !reflect.DeepEqual(got, []any{1700000000.0}) {
		t.Errorf("now: %v, %v", got, err)
	}
	got, err = e.Collect(context.Background(), bytecode.GenCall("input"), nil, builtins.WithInputs("first"))
	if err != nil || !reflect.DeepEqual(got, []any{"first"}) {
		t.Errorf("input: %v, %v", got, err)
	}
}

func TestConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jq.toml")
	body := "library_paths = [\"/opt/jq\"]\nprog_origin = \"/srv\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	e := newEngine(t, WithConfig(cfg), WithRuntimeOptions(builtins.WithOrigins("/override", "")))

	got, err := e.Collect(context.Background(), bytecode.GenCall("get_search_list"), nil)
	if err != nil || !reflect.DeepEqual(got, []any{[]any{"/opt/jq"}}) {
		t.Errorf("get_search_list: %v, %v", got, err)
	}
	got, err = e.Collect(context.Background(), bytecode.GenCall("get_prog_origin"), nil)
	if err != nil || !reflect.DeepEqual(got, []any{"/override"}) {
		t.Errorf("get_prog_origin: %v, %v", got, err)
	}
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(WithConfig(&config.Config{Timezone: "Nowhere/Nothing"}))
	if err == nil || !strings.Contains(err.Error(), "unknown timezone") {
		t.Errorf("got %v", err)
	}
}

func TestHaltIsReturned(t *testing.T) {
	e := newEngine(t, WithRuntimeOptions(builtins.WithStderr(func(any) {})))
	prog := bytecode.GenCall("halt_error", bytecode.GenConst(5.0))
	_, err := e.Collect(context.Background(), prog, "bye\n")
	var he *types.HaltError
	if !errors.As(err, &he) || he.ExitCode() != 5 {
		t.Errorf("got %v", err)
	}
}

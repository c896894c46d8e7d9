// Package jqcore provides the builtin library of a jq runtime: native
// functions over JSON values, the bytecode for the generator builtins and
// a reference executor for bound programs.
//
// Programs are bytecode blocks built with the constructors of
// [bytecode]. The engine closes them over the builtin library and runs them
// on the backtracking VM.
//
// # Quick Start
//
//	engine, err := jqcore.New()
//	prog := bytecode.GenCall("range", bytecode.GenConst(3.0))
//	out, err := engine.Collect(ctx, prog, nil) // [0 1 2]
//
//	// With host functions and a runtime config file
//	cfg, err := config.Load("jq.toml")
//	engine, err := jqcore.New(
//	    jqcore.WithConfig(cfg),
//	    jqcore.WithFunctions(extstring.AllEntries()...),
//	)
//
// # More Information
//
//   - Natives and runtime context: github.com/sandrolain/jqcore/pkg/builtins
//   - Block constructors: github.com/sandrolain/jqcore/pkg/bytecode
//   - Library binding: github.com/sandrolain/jqcore/pkg/library
//   - Executor: github.com/sandrolain/jqcore/pkg/vm
//   - Host functions: github.com/sandrolain/jqcore/pkg/functions
package jqcore

import (
	"context"
	"log/slog"

	"github.com/sandrolain/jqcore/pkg/builtins"
	"github.com/sandrolain/jqcore/pkg/bytecode"
	"github.com/sandrolain/jqcore/pkg/config"
	"github.com/sandrolain/jqcore/pkg/functions"
	"github.com/sandrolain/jqcore/pkg/library"
	"github.com/sandrolain/jqcore/pkg/vm"
)

// Version returns the current version of jqcore.
func Version() string {
	return "v0.1.0-dev"
}

// Options configures an Engine.
type Options struct {
	// Logger for structured logging, shared by the library, the runtime and
	// the VM.
	Logger *slog.Logger
	// Runtime options applied to the runtime created for every run.
	Runtime []builtins.RuntimeOption
	// Functions are host natives added to the library.
	Functions []functions.FunctionEntry
	// Definitions are host definition blocks added to the library.
	Definitions []bytecode.Block
	// Config is applied before Runtime, so explicit options win.
	Config *config.Config
	// CheckInterval is how many instructions run between context checks.
	CheckInterval int
}

// Option configures an Engine.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithRuntimeOptions adds options for the per-run runtime.
func WithRuntimeOptions(opts ...builtins.RuntimeOption) Option {
	return func(o *Options) { o.Runtime = append(o.Runtime, opts...) }
}

// WithFunctions registers host functions.
func WithFunctions(entries ...functions.FunctionEntry) Option {
	return func(o *Options) { o.Functions = append(o.Functions, entries...) }
}

// WithDefinitions registers host definition blocks.
func WithDefinitions(defs ...bytecode.Block) Option {
	return func(o *Options) { o.Definitions = append(o.Definitions, defs...) }
}

// WithConfig applies a loaded configuration file.
func WithConfig(cfg *config.Config) Option {
	return func(o *Options) { o.Config = cfg }
}

// WithCheckInterval sets how often runs check their context.
func WithCheckInterval(n int) Option {
	return func(o *Options) { o.CheckInterval = n }
}

// Engine binds programs against one library namespace and runs them. It is
// safe for concurrent use; every run gets its own runtime.
type Engine struct {
	ns       *library.Namespace
	runtime  []builtins.RuntimeOption
	logger   *slog.Logger
	interval int
}

// New builds an engine. Without host functions or definitions the shared
// default namespace is used.
func New(opts ...Option) (*Engine, error) {
	o := Options{Logger: slog.Default(), CheckInterval: vm.DefaultCheckInterval}
	for _, opt := range opts {
		opt(&o)
	}

	var runtime []builtins.RuntimeOption
	if o.Config != nil {
		cfgOpts, err := o.Config.Options()
		if err != nil {
			return nil, err
		}
		runtime = append(runtime, cfgOpts...)
	}
	runtime = append(runtime, o.Runtime...)

	ns := library.Default()
	if len(o.Functions) > 0 || len(o.Definitions) > 0 {
		natives, err := functions.Natives(o.Functions...)
		if err != nil {
			return nil, err
		}
		ns, err = library.New(
			library.WithLogger(o.Logger),
			library.WithFunctions(natives...),
			library.WithDefinitions(o.Definitions...),
		)
		if err != nil {
			return nil, err
		}
	}

	return &Engine{
		ns:       ns,
		runtime:  append([]builtins.RuntimeOption{builtins.WithLogger(o.Logger)}, runtime...),
		logger:   o.Logger,
		interval: o.CheckInterval,
	}, nil
}

// Namespace returns the library programs are bound against.
func (e *Engine) Namespace() *library.Namespace {
	return e.ns
}

// Run binds program and starts it on input. The program block is consumed:
// build a fresh block for every run.
func (e *Engine) Run(ctx context.Context, program bytecode.Block, input any, opts ...builtins.RuntimeOption) (*vm.Iter, error) {
	bound, err := e.ns.Bind(program)
	if err != nil {
		return nil, err
	}
	env := builtins.NewRuntime(append(append([]builtins.RuntimeOption{}, e.runtime...), opts...)...)
	return vm.Run(ctx, bound, input,
		vm.WithLogger(e.logger),
		vm.WithEnv(env),
		vm.WithCheckInterval(e.interval),
	), nil
}

// Collect runs program to completion and returns its outputs. The first
// error ends the run and is returned with the outputs produced before it.
func (e *Engine) Collect(ctx context.Context, program bytecode.Block, input any, opts ...builtins.RuntimeOption) ([]any, error) {
	it, err := e.Run(ctx, program, input, opts...)
	if err != nil {
		return nil, err
	}
	out := []any{}
	for {
		v, ok := it.Next()
		if !ok {
			return out, nil
		}
		if err, isErr := v.(error); isErr {
			return out, err
		}
		out = append(out, v)
	}
}

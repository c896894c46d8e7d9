// Package vm runs bound bytecode blocks. Evaluation is a depth-first
// backtracking search over an explicit stack of choice points: FORK, EACH and
// RANGE record a resumable alternative and BACKTRACK resumes the most recent
// one.
package vm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sandrolain/jqcore/pkg/builtins"
	"github.com/sandrolain/jqcore/pkg/bytecode"
)

// DefaultCheckInterval is the number of instructions executed between two
// checks of the context.
const DefaultCheckInterval = 1024

// Options configures a run.
type Options struct {
	// Logger for structured logging.
	Logger *slog.Logger
	// Env is the runtime context handed to natives. Defaults to a
	// builtins.Runtime with default options.
	Env builtins.Env
	// CheckInterval is the number of instructions between context checks.
	CheckInterval int
}

// Option configures a run.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithEnv sets the runtime context of natives.
func WithEnv(env builtins.Env) Option {
	return func(o *Options) { o.Env = env }
}

// WithCheckInterval sets how often the context is checked for cancellation.
func WithCheckInterval(n int) Option {
	return func(o *Options) { o.CheckInterval = n }
}

// Iter is the output stream of a run.
type Iter struct {
	m    *machine
	done bool
}

// Run starts evaluating program with input. program must be closed, as
// returned by library.BuiltinsBind. No instruction runs before the first
// call to Next.
func Run(ctx context.Context, program bytecode.Block, input any, opts ...Option) *Iter {
	o := Options{Logger: slog.Default(), CheckInterval: DefaultCheckInterval}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Env == nil {
		o.Env = builtins.NewRuntime(builtins.WithLogger(o.Logger))
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = DefaultCheckInterval
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Iter{m: newMachine(ctx, program, input, o)}
}

// Next returns the next output. An error, including a *types.HaltError,
// is returned as the value and ends the stream; ok is false once the
// stream is exhausted.
func (it *Iter) Next() (any, bool) {
	if it.done {
		return nil, false
	}
	v, err := it.m.next()
	if errors.Is(err, errExhausted) {
		it.done = true
		it.m.finish()
		return nil, false
	}
	if err != nil {
		it.done = true
		it.m.logger.Debug("vm run failed", "error", err, "steps", it.m.steps)
		return err, true
	}
	return v, true
}

// Collect runs program to completion and returns its outputs, or the first
// error.
func Collect(ctx context.Context, program bytecode.Block, input any, opts ...Option) ([]any, error) {
	it := Run(ctx, program, input, opts...)
	out := []any{}
	for {
		v, ok := it.Next()
		if !ok {
			return out, nil
		}
		if err, ok := v.(error); ok {
			return out, err
		}
		out = append(out, v)
	}
}

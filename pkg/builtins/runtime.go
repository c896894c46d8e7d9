package builtins

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/sandrolain/jqcore/pkg/cache"
	"github.com/sandrolain/jqcore/pkg/types"
)

// Env is the runtime context handed to every native function. It gives
// builtins access to the host: input and diagnostic callbacks, halting,
// origins for diagnostics, the process environment and the clock.
type Env interface {
	// Input returns the next program input for input/0.
	Input() (any, error)
	// Debug and Stderr receive the messages of debug/0 and stderr/0.
	Debug(msg any)
	Stderr(msg any)
	// Halt asks the host to stop evaluation with the given exit code. v is
	// the value printed by halt_error, or nil for halt.
	Halt(code int, v any)

	LibraryPaths() []any
	ProgOrigin() any
	JQOrigin() any
	CurrentFilename() any
	CurrentLine() any
	ModuleMeta(name string) (any, error)

	// Environ returns the environment as KEY=VALUE strings.
	Environ() []string
	Now() time.Time
	Location() *time.Location

	// PathAppend records that result was reached from input by following
	// component, when the host is tracking paths. It returns the value the
	// builtin should produce.
	PathAppend(input, component, result any) (any, error)

	// Regexp returns a compiled expression, possibly from a cache.
	Regexp(pattern string, opts regexp2.RegexOptions) (*regexp2.Regexp, error)

	Logger() *slog.Logger
}

// InputFunc produces program inputs. ok is false once inputs are exhausted.
type InputFunc func() (v any, ok bool, err error)

// MessageFunc receives a message from debug/0 or stderr/0.
type MessageFunc func(msg any)

// ModuleLoader returns the metadata of a module for modulemeta/0.
type ModuleLoader func(name string) (any, error)

// RuntimeOptions configures a Runtime.
type RuntimeOptions struct {
	// Logger for structured logging.
	Logger *slog.Logger
	// Input feeds input/0. When nil, input/0 fails with "break".
	Input InputFunc
	// Debug and Stderr receive diagnostic output. They default to writing
	// to os.Stderr the way the jq command line does.
	Debug  MessageFunc
	Stderr MessageFunc
	// Environ provides the environment for env/0. Defaults to os.Environ.
	Environ func() []string
	// Clock provides now/0. Defaults to time.Now.
	Clock func() time.Time
	// Location is the zone used by localtime/0 and strflocaltime/1.
	Location *time.Location
	// LibraryPaths is returned by get_search_list/0.
	LibraryPaths []string
	// ProgOrigin and JQOrigin are returned by get_prog_origin/0 and
	// get_jq_origin/0; empty means null.
	ProgOrigin string
	JQOrigin   string
	// CurrentInput reports the file name and line of the current input.
	CurrentInput func() (filename any, line any)
	// ModuleLoader serves modulemeta/0.
	ModuleLoader ModuleLoader
	// RegexCacheSize bounds the number of compiled expressions kept.
	RegexCacheSize int
	// RegexTimeout bounds a single regex search; zero means no limit.
	RegexTimeout time.Duration
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*RuntimeOptions)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(o *RuntimeOptions) { o.Logger = logger }
}

// WithInput sets the input callback.
func WithInput(fn InputFunc) RuntimeOption {
	return func(o *RuntimeOptions) { o.Input = fn }
}

// WithInputs feeds input/0 from a fixed list of values.
func WithInputs(values ...any) RuntimeOption {
	i := 0
	return WithInput(func() (any, bool, error) {
		if i >= len(values) {
			return nil, false, nil
		}
		i++
		return values[i-1], true, nil
	})
}

// WithDebug sets the debug/0 callback.
func WithDebug(fn MessageFunc) RuntimeOption {
	return func(o *RuntimeOptions) { o.Debug = fn }
}

// WithStderr sets the stderr/0 callback.
func WithStderr(fn MessageFunc) RuntimeOption {
	return func(o *RuntimeOptions) { o.Stderr = fn }
}

// WithEnviron replaces the process environment seen by env/0.
func WithEnviron(fn func() []string) RuntimeOption {
	return func(o *RuntimeOptions) { o.Environ = fn }
}

// WithClock replaces the clock used by now/0.
func WithClock(fn func() time.Time) RuntimeOption {
	return func(o *RuntimeOptions) { o.Clock = fn }
}

// WithLocation sets the local time zone.
func WithLocation(loc *time.Location) RuntimeOption {
	return func(o *RuntimeOptions) { o.Location = loc }
}

// WithLibraryPaths sets the module search list.
func WithLibraryPaths(paths ...string) RuntimeOption {
	return func(o *RuntimeOptions) { o.LibraryPaths = paths }
}

// WithOrigins sets the program and library origins.
func WithOrigins(prog, jq string) RuntimeOption {
	return func(o *RuntimeOptions) {
		o.ProgOrigin = prog
		o.JQOrigin = jq
	}
}

// WithCurrentInput sets the accessor for input_filename/0 and input_line_number/0.
func WithCurrentInput(fn func() (filename any, line any)) RuntimeOption {
	return func(o *RuntimeOptions) { o.CurrentInput = fn }
}

// WithModuleLoader sets the module metadata provider.
func WithModuleLoader(fn ModuleLoader) RuntimeOption {
	return func(o *RuntimeOptions) { o.ModuleLoader = fn }
}

// WithRegexCacheSize bounds the compiled expression cache.
func WithRegexCacheSize(n int) RuntimeOption {
	return func(o *RuntimeOptions) { o.RegexCacheSize = n }
}

// WithRegexTimeout bounds each regex search.
func WithRegexTimeout(d time.Duration) RuntimeOption {
	return func(o *RuntimeOptions) { o.RegexTimeout = d }
}

// Runtime is the default Env. It is safe to share between sequential runs;
// the halt request it records is cleared with ResetHalt.
type Runtime struct {
	opts    RuntimeOptions
	logger  *slog.Logger
	regexes *cache.Cache[*regexp2.Regexp]

	mu     sync.Mutex
	halted *types.HaltError
}

// NewRuntime creates a Runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	options := RuntimeOptions{
		Environ:        os.Environ,
		Clock:          time.Now,
		Location:       time.Local,
		RegexCacheSize: cache.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Debug == nil {
		options.Debug = writeDebug(os.Stderr)
	}
	if options.Stderr == nil {
		options.Stderr = writeStderr(os.Stderr)
	}
	return &Runtime{
		opts:    options,
		logger:  options.Logger,
		regexes: cache.New[*regexp2.Regexp](options.RegexCacheSize),
	}
}

func writeDebug(w io.Writer) MessageFunc {
	return func(msg any) {
		fmt.Fprintf(w, "[\"DEBUG:\",%s]\n", types.Dump(msg))
	}
}

func writeStderr(w io.Writer) MessageFunc {
	return func(msg any) {
		if s, ok := msg.(string); ok {
			io.WriteString(w, s)
			return
		}
		io.WriteString(w, types.Dump(msg))
	}
}

// Options returns the options the runtime was built with.
func (r *Runtime) Options() RuntimeOptions { return r.opts }

func (r *Runtime) Input() (any, error) {
	if r.opts.Input == nil {
		return nil, types.NewError(types.ErrBreak, "break")
	}
	v, ok, err := r.opts.Input()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NewError(types.ErrNoMoreInput, "No more inputs")
	}
	return v, nil
}

func (r *Runtime) Debug(msg any)  { r.opts.Debug(msg) }
func (r *Runtime) Stderr(msg any) { r.opts.Stderr(msg) }

// Halt records a halt request; see Halted.
func (r *Runtime) Halt(code int, v any) {
	r.logger.Debug("halt requested", "code", code)
	r.mu.Lock()
	r.halted = &types.HaltError{Code: code, Value: v}
	r.mu.Unlock()
}

// Halted returns the pending halt request, if any.
func (r *Runtime) Halted() (*types.HaltError, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.halted, r.halted != nil
}

// ResetHalt clears a recorded halt request.
func (r *Runtime) ResetHalt() {
	r.mu.Lock()
	r.halted = nil
	r.mu.Unlock()
}

func (r *Runtime) LibraryPaths() []any {
	out := make([]any, len(r.opts.LibraryPaths))
	for i, p := range r.opts.LibraryPaths {
		out[i] = p
	}
	return out
}

func (r *Runtime) ProgOrigin() any { return stringOrNull(r.opts.ProgOrigin) }
func (r *Runtime) JQOrigin() any   { return stringOrNull(r.opts.JQOrigin) }

func stringOrNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *Runtime) CurrentFilename() any {
	if r.opts.CurrentInput == nil {
		return nil
	}
	name, _ := r.opts.CurrentInput()
	return name
}

func (r *Runtime) CurrentLine() any {
	if r.opts.CurrentInput == nil {
		return 0.0
	}
	_, line := r.opts.CurrentInput()
	return line
}

func (r *Runtime) ModuleMeta(name string) (any, error) {
	if r.opts.ModuleLoader == nil {
		return nil, types.Errorf(types.ErrCapability, "modulemeta: no module loader available for %q", name)
	}
	return r.opts.ModuleLoader(name)
}

func (r *Runtime) Environ() []string        { return r.opts.Environ() }
func (r *Runtime) Now() time.Time           { return r.opts.Clock() }
func (r *Runtime) Location() *time.Location { return r.opts.Location }
func (r *Runtime) Logger() *slog.Logger     { return r.logger }

// PathAppend returns result unchanged: a bare Runtime does not track paths.
func (r *Runtime) PathAppend(_, _, result any) (any, error) {
	return result, nil
}

// Regexp compiles pattern through the runtime's LRU cache.
func (r *Runtime) Regexp(pattern string, opts regexp2.RegexOptions) (*regexp2.Regexp, error) {
	key := fmt.Sprintf("%d/%s", opts, pattern)
	return r.regexes.GetOrCompute(key, func() (*regexp2.Regexp, error) {
		r.logger.Debug("compiling regex", "pattern", pattern, "options", int(opts))
		re, err := regexp2.Compile(pattern, opts)
		if err != nil {
			return nil, err
		}
		if r.opts.RegexTimeout > 0 {
			re.MatchTimeout = r.opts.RegexTimeout
		}
		return re, nil
	})
}

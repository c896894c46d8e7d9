// Package library assembles the builtin namespace of jq programs: the native
// function table, the bytecoded generator builtins and the definitions
// written on top of them, resolved into one closed set of definitions.
package library

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/sandrolain/jqcore/pkg/builtins"
	"github.com/sandrolain/jqcore/pkg/bytecode"
	"github.com/sandrolain/jqcore/pkg/types"
)

// BindOptions configures how a Namespace is built.
type BindOptions struct {
	// Logger for structured logging.
	Logger *slog.Logger
	// Functions are host natives bound after the builtin natives.
	Functions []*builtins.FunctionDef
	// Definitions are host definition blocks bound after the library.
	Definitions []bytecode.Block
}

// BindOption configures a Namespace.
type BindOption func(*BindOptions)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BindOption {
	return func(o *BindOptions) { o.Logger = logger }
}

// WithFunctions adds host natives. A native with the name and arity of a
// builtin native replaces it.
func WithFunctions(defs ...*builtins.FunctionDef) BindOption {
	return func(o *BindOptions) { o.Functions = append(o.Functions, defs...) }
}

// WithDefinitions adds blocks of definitions. They see the whole library and
// shadow library definitions of the same name and arity.
func WithDefinitions(defs ...bytecode.Block) BindOption {
	return func(o *BindOptions) { o.Definitions = append(o.Definitions, defs...) }
}

// Namespace is a closed, bound set of definitions. It is immutable once
// built and may be shared by concurrent runs.
type Namespace struct {
	defs       bytecode.Block
	index      map[string]*bytecode.Inst
	signatures []string
	logger     *slog.Logger
}

var defaultNamespace = sync.OnceValue(func() *Namespace {
	ns, err := New()
	if err != nil {
		panic("library: " + err.Error())
	}
	return ns
})

// Default returns the namespace of the builtin library with no host
// additions, built on first use.
func Default() *Namespace {
	return defaultNamespace()
}

// New builds a namespace. Binding order is: natives, host natives, bytecoded
// builtins, library definitions, host definitions and finally builtins/0.
// Later definitions shadow earlier ones with the same name and arity.
func New(opts ...BindOption) (*Namespace, error) {
	o := BindOptions{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	natives := append(append([]*builtins.FunctionDef{}, builtins.Functions()...), o.Functions...)
	var defs bytecode.Block
	for _, d := range natives {
		defs = append(defs, &bytecode.Inst{Op: bytecode.OpClosureCreateC, Symbol: d.Name, Builtin: d})
	}
	defs = append(defs, bytecodedBuiltins()...)
	defs = append(defs, definitions()...)
	for _, b := range o.Definitions {
		for _, inst := range b {
			if inst.Op != bytecode.OpClosureCreate {
				return nil, types.Errorf(types.ErrUndefinedFunction, "definition block contains %s", inst)
			}
		}
		defs = append(defs, b...)
	}

	signatures := publicSignatures(defs)
	list := make([]any, len(signatures))
	for i, s := range signatures {
		list[i] = s
	}
	defs = append(defs, bytecode.GenFunction("builtins", bytecode.Noop(), bytecode.GenConst(list))...)

	defs = bytecode.Bind(defs, bytecode.Noop())
	if err := bytecode.CheckBound(defs); err != nil {
		return nil, err
	}

	ns := &Namespace{
		defs:       defs,
		index:      make(map[string]*bytecode.Inst, len(defs)),
		signatures: signatures,
		logger:     o.Logger,
	}
	for _, d := range defs {
		ns.index[d.Signature()] = d
	}
	ns.logger.Debug("library bound", "definitions", len(defs), "signatures", len(signatures))
	return ns, nil
}

// publicSignatures returns the sorted, de-duplicated signatures of defs that
// do not start with an underscore, plus builtins/0.
func publicSignatures(defs bytecode.Block) []string {
	seen := map[string]bool{"builtins/0": true}
	out := []string{"builtins/0"}
	for _, d := range defs {
		if strings.HasPrefix(d.Symbol, "_") {
			continue
		}
		s := d.Signature()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Definitions returns the bound definitions in binding order. The block is
// shared and must not be modified.
func (ns *Namespace) Definitions() bytecode.Block { return ns.defs }

// Signatures returns the list produced by builtins/0.
func (ns *Namespace) Signatures() []string {
	return append([]string(nil), ns.signatures...)
}

// Lookup returns the visible definition of name with nparams closure
// parameters.
func (ns *Namespace) Lookup(name string, nparams int) (*bytecode.Inst, bool) {
	d, ok := ns.index[builtins.Signature(name, nparams)]
	return d, ok
}

// Bind resolves the calls of program that program does not define itself
// and returns the closed program, definitions first. program is modified in
// place and must not be bound twice.
func (ns *Namespace) Bind(program bytecode.Block) (bytecode.Block, error) {
	program.Walk(func(inst *bytecode.Inst) bool {
		if inst.Op == bytecode.OpCallJQ && inst.BoundBy == nil {
			if d, ok := ns.index[inst.Signature()]; ok {
				inst.BoundBy = d
			}
		}
		return true
	})
	if err := bytecode.CheckBound(program); err != nil {
		return nil, err
	}
	return bytecode.Seq(ns.defs, program), nil
}

// BuiltinsBind binds program against the builtin library. Without options
// the shared default namespace is used.
func BuiltinsBind(program bytecode.Block, opts ...BindOption) (bytecode.Block, error) {
	ns := Default()
	if len(opts) > 0 {
		var err error
		if ns, err = New(opts...); err != nil {
			return nil, err
		}
	}
	return ns.Bind(program)
}

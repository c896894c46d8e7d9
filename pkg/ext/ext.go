// Package ext provides optional native functions that go beyond the core
// jq library.
//
// The extension functions live in sub-packages grouped by category:
//   - extstring: ascii_downcase, ltrimstr, camel_case, template, …
//   - extarray: take, skip, chunk, window, set operations
//
// # Integrating all extensions at once
//
//	import "github.com/sandrolain/jqcore/pkg/ext"
//
//	bound, err := library.BuiltinsBind(program, ext.WithAll())
//
// # Integrating by category
//
//	bound, err := library.BuiltinsBind(program, ext.WithString(), ext.WithArray())
//
// # Integrating a single function from a sub-package
//
//	natives, err := functions.Natives(extstring.CamelCase())
//	bound, err := library.BuiltinsBind(program, library.WithFunctions(natives...))
package ext

import (
	"github.com/sandrolain/jqcore/pkg/ext/extarray"
	"github.com/sandrolain/jqcore/pkg/ext/extstring"
	"github.com/sandrolain/jqcore/pkg/functions"
	"github.com/sandrolain/jqcore/pkg/library"
)

// AllEntries returns every extension function definition.
func AllEntries() []functions.FunctionEntry {
	var all []functions.FunctionEntry
	all = append(all, extstring.AllEntries()...)
	all = append(all, extarray.AllEntries()...)
	return all
}

// WithAll returns a BindOption that registers all extension functions.
func WithAll() library.BindOption {
	return with(AllEntries())
}

// WithString returns a BindOption for the extended string functions.
func WithString() library.BindOption {
	return with(extstring.AllEntries())
}

// WithArray returns a BindOption for the extended array functions.
func WithArray() library.BindOption {
	return with(extarray.AllEntries())
}

// with converts entries known to be valid; a failure is a programming error
// in this package.
func with(entries []functions.FunctionEntry) library.BindOption {
	natives, err := functions.Natives(entries...)
	if err != nil {
		panic("ext: " + err.Error())
	}
	return library.WithFunctions(natives...)
}

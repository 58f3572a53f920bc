// Package macro implements the compile-time macro expansion hook of
// spec §4.3 (component C3): `def_macro` type-checks, compiles and
// heap-allocates a transformer closure once and binds it under a name,
// and every later call to that name is expanded by re-invoking the
// already-running VM on that closure with the call site's first
// argument expression — the compiler front-end reentering the VM on
// code it just compiled. It
// is grounded on `original_source/vm/src/def_macro.rs`'s `DefMacro`/
// `RunMacro`, translated from Rust's `Macro<VM<'a>>` trait into a
// small Go interface in the style of the teacher's capability
// interfaces (`vm_instructions.go`'s `Instruction`, `query_errors.go`'s
// diagnostics).
package macro

import (
	"fmt"

	"corevm/ast"
	"corevm/bytecode"
	"corevm/internal/trace"
	"corevm/typesys"
)

// Closure is an opaque, already-compiled-and-allocated callable value
// a macro expansion can bind and later invoke. Its concrete
// representation belongs to the runtime (package vmruntime); this
// package only ever threads it back through Host.
type Closure interface{}

// Expander is one macro's expansion behavior (spec §4.3 "Expansion
// contract"): given the unevaluated argument expressions a call site
// applied the macro's name to, produce the expression to substitute
// at that call site.
type Expander interface {
	Expand(host Host, arguments []ast.Node) (ast.Node, error)
}

// Host is the compiler front-end collaborator spec §6 describes for
// this component: type-checking an expression against an expected
// type, compiling an expression to bytecode, allocating a closure on
// the heap, binding and resolving globals, invoking an already-bound
// closure on a fresh argument, and registering new macro names.
type Host interface {
	// ExprType returns the opaque source-level type registered for
	// syntax-tree values (spec §4.3 step 1: "lazily register, at
	// most once, an opaque type standing for a syntax-tree value").
	ExprType() typesys.Type

	// TypecheckTo type-checks expr against an expected type,
	// returning the (possibly elaborated) expression.
	TypecheckTo(expr ast.Node, expected typesys.Type) (ast.Node, error)

	// Compile lowers a type-checked expression to bytecode.
	Compile(expr ast.Node) ([]bytecode.Instruction, error)

	// Allocate heap-allocates a closure over instructions (spec
	// §4.3 step 5 "heap-allocate a closure").
	Allocate(instructions []bytecode.Instruction) (Closure, error)

	// DefineGlobal binds name to value in the global table (spec
	// §4.3 step 6).
	DefineGlobal(name string, value Closure) error

	// Lookup resolves a previously defined global by name.
	Lookup(name string) (Closure, bool)

	// Invoke calls an already-bound closure on a single
	// syntax-tree argument and returns its syntax-tree result (spec
	// §4.3 "RunMacro ... calls it with the call site's own
	// argument").
	Invoke(closure Closure, arg ast.Node) (ast.Node, error)

	// SetMacro registers expander under name in the macro table,
	// effective for expansions encountered after this call (spec
	// §4.3 step 2: registered before the transformer body is even
	// compiled, so a transformer may reference its own name).
	SetMacro(name string, expander Expander)
}

// DefMacro is the built-in macro that implements spec §4.3's atomic
// registration contract: `def_macro <name> <transformer>`.
type DefMacro struct{}

// Expand implements Expander. It mirrors def_macro.rs's `DefMacro::expand`
// step for step: register the Expr type, validate arity, extract the
// bound name, register the runtime expander for that name immediately,
// then type-check, compile, allocate, and globally bind the transformer
// body, and finally erase the whole form to a unit value (spec §4.3
// step 7).
func (DefMacro) Expand(host Host, arguments []ast.Node) (ast.Node, error) {
	exprType := host.ExprType()

	if len(arguments) != 2 {
		return nil, fmt.Errorf("expected 'def_macro' to receive exactly 2 arguments but got %d", len(arguments))
	}

	ident, ok := arguments[0].(*ast.Ident)
	if !ok {
		return nil, fmt.Errorf("expected 'def_macro' to receive an identifier as the first argument")
	}
	name := ident.Name

	// Registered before the body is compiled: a transformer may
	// invoke its own macro name recursively during its own
	// compilation (spec §4.3 step 2).
	host.SetMacro(name, RunMacro{Name: name})

	transformType := typesys.Function([]typesys.Type{exprType}, exprType)
	checked, err := host.TypecheckTo(arguments[1], transformType)
	if err != nil {
		return nil, err
	}

	instructions, err := host.Compile(checked)
	if err != nil {
		return nil, err
	}

	closure, err := host.Allocate(instructions)
	if err != nil {
		return nil, err
	}

	if err := host.DefineGlobal(name, closure); err != nil {
		return nil, err
	}

	return ast.NewUnit(ident.Span()), nil
}

// RunMacro is the expander def_macro installs under the registered
// name: every later call to that name expands by invoking the bound
// transformer closure on the call site's first argument expression
// (spec §4.3 step 3, grounded on def_macro.rs's `RunMacro::expand`).
type RunMacro struct {
	Name string
}

// Expand implements Expander.
func (r RunMacro) Expand(host Host, arguments []ast.Node) (ast.Node, error) {
	trace.Debugf("macro %s %v", r.Name, arguments)

	if len(arguments) < 1 {
		return nil, fmt.Errorf("expected macro '%s' to receive at least 1 argument", r.Name)
	}

	closure, ok := host.Lookup(r.Name)
	if !ok {
		return nil, fmt.Errorf("expected macro function '%s' to exist", r.Name)
	}

	// TODO: only the first argument is forwarded to the transformer;
	// a macro applied to more than one argument silently drops the
	// rest. Forward arguments 1..N positionally once a front-end
	// needs variadic macro calls.
	return host.Invoke(closure, arguments[0])
}

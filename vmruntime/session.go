package vmruntime

import (
	"fmt"

	"corevm/ast"
	"corevm/bytecode"
	"corevm/heap"
	"corevm/macro"
	"corevm/typesys"
	"corevm/verify"
	"corevm/vmconfig"
)

// TypeChecker is the host collaborator spec §6 leaves external: given
// an expression and an expected type, produce the (possibly
// elaborated) expression or report why it doesn't fit. The real
// implementation lives outside this core.
type TypeChecker interface {
	TypecheckTo(expr ast.Node, expected typesys.Type) (ast.Node, error)
}

// Compiler is the other host collaborator of spec §6: lowers a
// type-checked expression to the bytecode instruction set (package
// bytecode).
type Compiler interface {
	Compile(expr ast.Node) ([]bytecode.Instruction, error)
}

// global is one entry of the session's global table: the value itself,
// plus the type the verifier needs to check PushGlobal/Call sites
// against it (spec §4.2's GlobalResolver).
type global struct {
	value Value
	typ   typesys.Type
}

// Session is the explicit VM context spec §9 prefers over hidden
// package-level state: one heap, one global table, and one macro
// table per session, so multiple independent runtimes can coexist in
// the same process (e.g. one per test).
type Session struct {
	Config *vmconfig.Config

	heap    *heap.Heap[ValueSlice]
	globals map[string]global
	order   []string // PushGlobal slot assignment, in DefineGlobal call order
	macros  *macro.Table

	typeChecker TypeChecker
	compiler    Compiler

	exprType     typesys.Type
	exprTypeOnce bool
}

// New creates a Session wired against host-supplied type-checking and
// compilation (spec §6), configured from cfg.
func New(cfg *vmconfig.Config, tc TypeChecker, compiler Compiler) *Session {
	return &Session{
		Config:      cfg,
		heap:        heap.NewWithLimit[ValueSlice](cfg.GetInt("heap.initial_collect_limit")),
		globals:     make(map[string]global),
		macros:      macro.NewTable(cfg.GetString("macro.def_macro_name")),
		typeChecker: tc,
		compiler:    compiler,
	}
}

// Heap exposes the underlying garbage collected heap, e.g. for a
// caller that wants to force a Collect between top-level forms.
func (s *Session) Heap() *heap.Heap[ValueSlice] { return s.heap }

// Macros exposes the macro table so a compiler front-end can consult
// it at each call site to decide whether that site is a macro
// invocation (spec §6).
func (s *Session) Macros() *macro.Table { return s.macros }

// Roots is the session-wide part of the root set for a collection:
// every bound global (spec §4.1 "Root set" includes "the global
// table"). It does not cover any frame's live operand stack — a
// collection triggered from inside exec/apply roots through
// frameRoots instead, which chains this onto the stack of every
// executing frame.
func (s *Session) Roots() heap.Traverseable[ValueSlice] {
	values := make([]Value, 0, len(s.globals))
	for _, g := range s.globals {
		values = append(values, g.value)
	}
	return ValueSlice(values)
}

// GlobalResolver adapts this session's global table to the shape the
// verifier expects (verify.GlobalResolver): PushGlobal's Index is this
// global's position in definition order.
func (s *Session) GlobalResolver() verify.GlobalResolver {
	return func(slot int) (typesys.Type, bool) {
		if slot < 0 || slot >= len(s.order) {
			return typesys.Type{}, false
		}
		return s.globals[s.order[slot]].typ, true
	}
}

// globalByIndex resolves a PushGlobal slot to its current value.
func (s *Session) globalByIndex(slot int) (Value, bool) {
	if slot < 0 || slot >= len(s.order) {
		return Value{}, false
	}
	g, ok := s.globals[s.order[slot]]
	return g.value, ok
}

// --- macro.Host ---

// ExprType implements macro.Host (spec §4.3 step 1: lazily register,
// at most once, an opaque type standing for a syntax-tree value).
func (s *Session) ExprType() typesys.Type {
	if !s.exprTypeOnce {
		s.exprType = typesys.Opaque("Expr")
		s.exprTypeOnce = true
	}
	return s.exprType
}

// TypecheckTo implements macro.Host by delegating to the configured
// TypeChecker.
func (s *Session) TypecheckTo(expr ast.Node, expected typesys.Type) (ast.Node, error) {
	return s.typeChecker.TypecheckTo(expr, expected)
}

// Compile implements macro.Host by delegating to the configured
// Compiler.
func (s *Session) Compile(expr ast.Node) ([]bytecode.Instruction, error) {
	return s.compiler.Compile(expr)
}

// Allocate implements macro.Host: heap-allocate a closure with no
// captured upvalues over instructions (spec §4.3 step 5). When
// "verify.strict" is set, a macro transformer is run through the
// verifier (component C2) against its Expr->Expr type before it is
// trusted to execute — a host-compiled transformer body is exactly
// the kind of untrusted input the verifier exists to check. This is
// the only place the session verifies code; exec runs whatever it is
// given.
func (s *Session) Allocate(instructions []bytecode.Instruction) (macro.Closure, error) {
	if s.Config.GetBool("verify.strict") {
		fnType := typesys.Function([]typesys.Type{s.ExprType()}, s.ExprType())
		v := verify.NewVerifier(typesys.BasicTypeEnv{}, s.GlobalResolver())
		if errs := v.Verify(fnType, instructions); errs != nil {
			return nil, fmt.Errorf("vmruntime: macro transformer failed verification: %w", errs)
		}
	}
	handle := s.heap.AllocAndCollect(s.Roots(), sliceDef{elems: nil})
	return Value{Kind: ValueClosure, Code: instructions, Fields: handle}, nil
}

// DefineGlobal implements macro.Host: bind name to value in the
// global table, assigning it the next PushGlobal slot if it is new
// (spec §4.3 step 6).
func (s *Session) DefineGlobal(name string, value macro.Closure) error {
	v, ok := value.(Value)
	if !ok {
		return fmt.Errorf("vmruntime: DefineGlobal given a non-runtime value for %q", name)
	}
	typ := typesys.Function([]typesys.Type{s.ExprType()}, s.ExprType())
	if _, exists := s.globals[name]; !exists {
		s.order = append(s.order, name)
	}
	s.globals[name] = global{value: v, typ: typ}
	return nil
}

// Lookup implements macro.Host.
func (s *Session) Lookup(name string) (macro.Closure, bool) {
	g, ok := s.globals[name]
	if !ok {
		return nil, false
	}
	return g.value, true
}

// Invoke implements macro.Host: run an already-bound closure on a
// single wrapped syntax-tree argument and unwrap its result (spec
// §4.3 "RunMacro ... calls it with the call site's own argument").
func (s *Session) Invoke(closure macro.Closure, arg ast.Node) (ast.Node, error) {
	fn, ok := closure.(Value)
	if !ok || fn.Kind != ValueClosure {
		return nil, fmt.Errorf("vmruntime: Invoke given a non-closure value")
	}

	result, err := s.exec(fn, []Value{{Kind: ValueExpr, Node: arg}}, s.Roots())
	if err != nil {
		return nil, err
	}
	if result.Kind != ValueExpr {
		return nil, fmt.Errorf("vmruntime: macro transformer returned a %s, expected Expr", result.Kind)
	}
	return result.Node, nil
}

// SetMacro implements macro.Host.
func (s *Session) SetMacro(name string, expander macro.Expander) {
	s.macros.Set(name, expander)
}

// Package vmruntime ties the heap (package heap), the verifier
// (package verify), and the macro hook (package macro) into one
// runtime session: the explicit "VM context" spec §9's design note
// prefers over hidden global state, carrying its own heap, global
// table, and macro table as fields a caller threads through rather
// than package-level singletons. It is grounded on the teacher's own
// `virtualMachine` (vm.go): a small stack machine executing one
// instruction at a time, generalized from langlang's byte-encoded
// parsing opcodes to this runtime's typed Instruction values
// (package bytecode).
package vmruntime

import (
	"fmt"

	"corevm/ast"
	"corevm/bytecode"
	"corevm/heap"
)

// ValueKind discriminates the shapes a runtime Value can take.
type ValueKind int

const (
	ValueInt ValueKind = iota
	ValueFloat
	ValueString
	ValueClosure
	ValueData
	// ValueExpr wraps a syntax-tree node as an opaque runtime value,
	// the representation a macro transformer's "Expr" argument and
	// result take while passing through Invoke (spec §4.3).
	ValueExpr
)

func (k ValueKind) String() string {
	switch k {
	case ValueInt:
		return "Int"
	case ValueFloat:
		return "Float"
	case ValueString:
		return "String"
	case ValueClosure:
		return "Closure"
	case ValueData:
		return "Data"
	case ValueExpr:
		return "Expr"
	default:
		return "?"
	}
}

// Value is the single payload type this runtime's heap is
// parameterized over (heap.Heap[ValueSlice] stores ValueSlice, each
// element of which is a Value): a tagged union wide enough to hold
// every case the bytecode instruction set (package bytecode) can
// produce.
type Value struct {
	Kind ValueKind

	Int    int64
	Float  float64
	Str    string
	Node   ast.Node // ValueExpr
	Tag    int      // ValueData
	Code   []bytecode.Instruction // ValueClosure
	Fields heap.Handle[ValueSlice] // ValueClosure upvalues, ValueData arguments
}

// ValueSlice is the payload type this runtime's heap actually stores:
// a contiguous run of Values, used both for a closure's captured
// upvalues and a data value's constructor arguments.
type ValueSlice []Value

// Traverse implements heap.Traverseable[ValueSlice].
func (vs ValueSlice) Traverse(t heap.Tracer[ValueSlice]) {
	for _, v := range vs {
		v.Traverse(t)
	}
}

// Traverse lets a single Value participate in its container's
// traversal: only ValueClosure and ValueData carry a handle into the
// heap worth following.
func (v Value) Traverse(t heap.Tracer[ValueSlice]) {
	switch v.Kind {
	case ValueClosure, ValueData:
		v.Fields.Traverse(t)
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueInt:
		return fmt.Sprintf("%d", v.Int)
	case ValueFloat:
		return fmt.Sprintf("%g", v.Float)
	case ValueString:
		return fmt.Sprintf("%q", v.Str)
	case ValueClosure:
		return "<closure>"
	case ValueData:
		return fmt.Sprintf("Data(%d)", v.Tag)
	case ValueExpr:
		return v.Node.String()
	default:
		return "?"
	}
}

// sliceDef is the allocation descriptor (heap.DataDef[ValueSlice])
// used for both a closure's upvalues and a data value's arguments: it
// is already built in full before allocation, so Initialize is a
// direct write.
type sliceDef struct{ elems ValueSlice }

func (d sliceDef) Size() int { return len(d.elems) * 32 }

func (d sliceDef) Initialize(w heap.WriteOnly[ValueSlice]) *ValueSlice {
	return w.Write(d.elems)
}

func (d sliceDef) Traverse(t heap.Tracer[ValueSlice]) { d.elems.Traverse(t) }

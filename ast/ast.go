// Package ast defines the syntax-tree value the macro expander
// rewrites. The real parser, type checker and compiler that produce
// and consume these nodes in a full host are out of scope here (see
// spec §1/§6); this package is the minimal stand-in a host embeds the
// core against, shaped the way the teacher's own AST (grammar_ast.go,
// value.go) separates node kinds behind a small interface rather than
// a single tagged struct.
package ast

import "fmt"

// Location is a single position in source text.
type Location struct {
	Line, Column, Cursor int
}

// Span is a half-open range between two Locations.
type Span struct{ Start, End Location }

func (s Span) String() string {
	return fmt.Sprintf("%d:%d..%d:%d", s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// Node is the syntax-tree value the macro expander consumes and
// produces (spec §4.3's "node to node" contract). It is the `Expr`
// type registered into the type environment by `def_macro`.
type Node interface {
	Span() Span
	fmt.Stringer
	isNode()
}

// Ident is an identifier reference, e.g. a macro's first argument
// naming the macro being defined.
type Ident struct {
	Name string
	Sp   Span
}

func (n *Ident) Span() Span    { return n.Sp }
func (n *Ident) String() string { return n.Name }
func (*Ident) isNode()          {}

// IntLit is an integer literal.
type IntLit struct {
	Value int64
	Sp    Span
}

func (n *IntLit) Span() Span    { return n.Sp }
func (n *IntLit) String() string { return fmt.Sprintf("%d", n.Value) }
func (*IntLit) isNode()          {}

// FloatLit is a floating point literal.
type FloatLit struct {
	Value float64
	Sp    Span
}

func (n *FloatLit) Span() Span    { return n.Sp }
func (n *FloatLit) String() string { return fmt.Sprintf("%g", n.Value) }
func (*FloatLit) isNode()          {}

// StringLit is a string literal.
type StringLit struct {
	Value string
	Sp    Span
}

func (n *StringLit) Span() Span    { return n.Sp }
func (n *StringLit) String() string { return fmt.Sprintf("%q", n.Value) }
func (*StringLit) isNode()          {}

// Tuple is a tuple expression; an empty Tuple is the unit value
// `def_macro` returns as its own expansion (spec §4.3 step 7).
type Tuple struct {
	Items []Node
	Sp    Span
}

func (n *Tuple) Span() Span { return n.Sp }
func (n *Tuple) String() string {
	s := "("
	for i, item := range n.Items {
		if i > 0 {
			s += ", "
		}
		s += item.String()
	}
	return s + ")"
}
func (*Tuple) isNode() {}

// Apply is a function application, the call-site form the front-end
// recognizes as a macro invocation (spec §4.3, §6: "the front-end
// decides which call sites are macro sites").
type Apply struct {
	Callee Node
	Args   []Node
	Sp     Span
}

func (n *Apply) Span() Span { return n.Sp }
func (n *Apply) String() string {
	s := n.Callee.String() + "("
	for i, arg := range n.Args {
		if i > 0 {
			s += ", "
		}
		s += arg.String()
	}
	return s + ")"
}
func (*Apply) isNode() {}

// Lambda is a single-argument anonymous function, e.g. the identity
// transformer `λe.e` from spec §8's "Identity transformer" law.
type Lambda struct {
	Param string
	Body  Node
	Sp    Span
}

func (n *Lambda) Span() Span    { return n.Sp }
func (n *Lambda) String() string { return fmt.Sprintf("\\%s -> %s", n.Param, n.Body) }
func (*Lambda) isNode()          {}

// NewUnit returns the empty-tuple node `def_macro` expands to.
func NewUnit(sp Span) *Tuple { return &Tuple{Sp: sp} }

// Package typesys models the source-level type domain the bytecode
// verifier (package verify) checks against. The real type checker is
// out of scope (spec §1); this package is the external collaborator
// interface spec §6 describes ("a type-environment query interface
// supplying source-level type equivalence and structural information
// for record and variant types"), plus one concrete implementation
// good enough to drive the verifier and the `def_macro` bootstrap.
package typesys

import "fmt"

// Kind discriminates the shapes a Type can take.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindFunction
	KindRecord
	KindVariants
	KindOpaque
)

// Field is one named, typed slot of a Record type.
type Field struct {
	Name string
	Type Type
}

// VariantCtor is one constructor of a Variants (sum) type: a tag and
// the types of the arguments it carries, in order.
type VariantCtor struct {
	Name string
	Args []Type
}

// Type is a source-level type, spec §3's "full source-level type"
// that an AbstractType's Concrete case wraps.
type Type struct {
	Kind Kind

	// KindFunction
	FuncArgs []Type
	FuncRet  *Type

	// KindRecord
	Fields []Field

	// KindVariants
	Variants []VariantCtor

	// KindOpaque: a named type with no further structure known to
	// the verifier (e.g. the host's `Expr` type registered by
	// `def_macro`).
	Name string
}

func Int() Type    { return Type{Kind: KindInt} }
func Float() Type  { return Type{Kind: KindFloat} }
func String() Type { return Type{Kind: KindString} }

func Opaque(name string) Type { return Type{Kind: KindOpaque, Name: name} }

func Function(args []Type, ret Type) Type {
	return Type{Kind: KindFunction, FuncArgs: args, FuncRet: &ret}
}

func Record(fields []Field) Type { return Type{Kind: KindRecord, Fields: fields} }

func Variants(ctors []VariantCtor) Type { return Type{Kind: KindVariants, Variants: ctors} }

func (t Type) String() string {
	switch t.Kind {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindOpaque:
		return t.Name
	case KindFunction:
		return fmt.Sprintf("Function(%v -> %v)", t.FuncArgs, *t.FuncRet)
	case KindRecord:
		return fmt.Sprintf("Record%v", t.Fields)
	case KindVariants:
		return fmt.Sprintf("Variants%v", t.Variants)
	default:
		return "?"
	}
}

// ArgIter yields the formal argument types of a function type, in
// declaration order (mirrors `base::types::arg_iter` in the original
// Rust source, used by both the verifier's Call handling and its
// initial-state push of `Concrete(argᵢ)` per argument).
func ArgIter(t Type) []Type {
	if t.Kind != KindFunction {
		return nil
	}
	return t.FuncArgs
}

// ReturnType returns the declared result type of a function type.
func ReturnType(t Type) Type {
	if t.Kind != KindFunction || t.FuncRet == nil {
		return Type{}
	}
	return *t.FuncRet
}

// TypeEnv is the query interface the type checker supplies to the
// verifier. It answers source-type equivalence only; the verifier reads
// record fields and variant constructors directly from a Type's own
// Fields and Variants, not through TypeEnv.
type TypeEnv interface {
	// Equivalent reports whether two source-level types are
	// interchangeable under the host's type system (e.g. alias
	// resolution, nominal vs structural equality — policy the
	// verifier itself has no opinion on).
	Equivalent(a, b Type) bool
}

// BasicTypeEnv is a minimal TypeEnv good enough to drive the verifier
// and the macro expander's bootstrap registration: two types are
// equivalent iff they are structurally identical, with opaque types
// compared nominally by name.
type BasicTypeEnv struct{}

func (BasicTypeEnv) Equivalent(a, b Type) bool { return equalType(a, b) }

func equalType(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt, KindFloat, KindString:
		return true
	case KindOpaque:
		return a.Name == b.Name
	case KindFunction:
		if len(a.FuncArgs) != len(b.FuncArgs) {
			return false
		}
		for i := range a.FuncArgs {
			if !equalType(a.FuncArgs[i], b.FuncArgs[i]) {
				return false
			}
		}
		return equalType(*a.FuncRet, *b.FuncRet)
	case KindRecord:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name || !equalType(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	case KindVariants:
		if len(a.Variants) != len(b.Variants) {
			return false
		}
		for i := range a.Variants {
			if a.Variants[i].Name != b.Variants[i].Name || len(a.Variants[i].Args) != len(b.Variants[i].Args) {
				return false
			}
			for j := range a.Variants[i].Args {
				if !equalType(a.Variants[i].Args[j], b.Variants[i].Args[j]) {
					return false
				}
			}
		}
		return true
	default:
		return false
	}
}

// Package verify implements the bytecode verifier (spec §4.2,
// component C2): an abstract interpretation of a compiled function's
// operand stack that proves it well-typed, and in particular that
// every GetField access lands in range, before the function is ever
// run. It is grounded on `original_source/vm/src/verify.rs`'s
// `Verifier`, translated from Rust's enum-based `AbstractType` and
// `Vec<Instruction>` match into Go interface variants and a type
// switch, following the same one-struct-per-case shape the teacher
// uses for its own `Instruction` (`vm_instructions.go`).
package verify

import (
	"fmt"

	"corevm/typesys"
)

// AbstractType is the verifier's value domain (spec §3 "Abstract
// type"): either a full source-level type, or a precisely-tagged
// variant constructor application that is strictly more informative
// than any Concrete variant type.
type AbstractType interface {
	fmt.Stringer
	isAbstractType()
}

// Concrete wraps a full source-level type.
type Concrete struct{ Type typesys.Type }

func (c Concrete) String() string { return c.Type.String() }
func (Concrete) isAbstractType()  {}

// Variant is a known constructor of a sum type with statically known
// argument abstract types, introduced whenever the verifier sees a
// Construct instruction (spec §3).
type Variant struct {
	Tag  int
	Args []AbstractType
}

func (v Variant) String() string { return fmt.Sprintf("Variant(%d, %v)", v.Tag, v.Args) }
func (Variant) isAbstractType()  {}

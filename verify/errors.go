package verify

import (
	"fmt"
	"strings"
)

// The error taxonomy of spec §7. Non-fatal kinds are accumulated into
// an Errors batch and verification continues past them; fatal kinds
// (NotEnoughArguments, and the unsupported-opcode case handled in
// verifier.go) terminate verification immediately.

// UndefinedGlobal is raised by PushGlobal when slot K does not
// resolve to a type.
type UndefinedGlobal struct{ Slot int }

func (e UndefinedGlobal) Error() string { return fmt.Sprintf("undefined global at slot %d", e.Slot) }

// TypeMismatch is raised by Call/TailCall when an actual argument's
// abstract type is not equivalent to the callee's declared formal
// type.
type TypeMismatch struct {
	Expected, Actual AbstractType
}

func (e TypeMismatch) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// NotEnoughArguments is raised by Call/TailCall when the stack does
// not hold enough elements for the declared arity, or when the callee
// slot does not hold a Concrete function type. It is fatal:
// verification aborts immediately after recording it.
type NotEnoughArguments struct{}

func (NotEnoughArguments) Error() string { return "not enough arguments on the stack for call" }

// EmptyStack is raised by GetField when the stack is empty.
// Verification continues past it.
type EmptyStack struct{}

func (EmptyStack) Error() string { return "get_field on an empty stack" }

// FieldIsOutOfRange is raised by GetField when the popped top is
// neither a record with that many fields nor a variant with that
// many constructor arguments.
type FieldIsOutOfRange struct {
	Type  AbstractType
	Index int
}

func (e FieldIsOutOfRange) Error() string {
	return fmt.Sprintf("field %d is out of range of %s", e.Index, e.Type)
}

// Errors accumulates the errors found during one call to Verify (the
// non-fatal ones, plus a fatal NotEnoughArguments that ends the pass),
// returned as a batch so a caller can report all problems in
// one pass (spec §4.2 "Error policy"). It mirrors the teacher's own
// batch-of-diagnostics type, `GrammarError` (query_errors.go).
type Errors struct {
	Errs []error
}

func (e *Errors) add(err error) { e.Errs = append(e.Errs, err) }

// HasErrors reports whether any error has been accumulated.
func (e *Errors) HasErrors() bool { return e != nil && len(e.Errs) > 0 }

func (e *Errors) Error() string {
	if e == nil || len(e.Errs) == 0 {
		return "verification failed (no details)"
	}
	if len(e.Errs) == 1 {
		return e.Errs[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d verification errors:\n", len(e.Errs))
	for _, err := range e.Errs {
		b.WriteString("  ")
		b.WriteString(err.Error())
		b.WriteRune('\n')
	}
	return b.String()
}

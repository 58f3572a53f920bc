package verify

import (
	"corevm/bytecode"
	"corevm/typesys"
)

// GlobalResolver answers what type, if any, is bound to a global
// slot — the verifier's other external collaborator besides TypeEnv
// (spec §4.2 PushGlobal row).
type GlobalResolver func(slot int) (typesys.Type, bool)

// Verifier runs one abstract interpretation of a function's bytecode
// against its declared type (spec §4.2, component C2).
type Verifier struct {
	env     typesys.TypeEnv
	globals GlobalResolver
	stack   []AbstractType
	errors  Errors
}

// NewVerifier creates a Verifier against a type environment (for
// source-type equivalence, spec §6) and a global resolver.
func NewVerifier(env typesys.TypeEnv, globals GlobalResolver) *Verifier {
	return &Verifier{env: env, globals: globals}
}

// Verify statically simulates execution of instructions against
// fnType and returns nil on success, or a non-nil *Errors on failure
// (spec §4.2 "Contract"). Non-fatal errors are accumulated and
// verification continues past them (spec §7); NotEnoughArguments and
// an unsupported opcode are fatal and return immediately.
func (v *Verifier) Verify(fnType typesys.Type, instructions []bytecode.Instruction) *Errors {
	v.stack = v.stack[:0]
	v.errors = Errors{}

	for _, arg := range typesys.ArgIter(fnType) {
		v.stack = append(v.stack, Concrete{Type: arg})
	}

	for _, inst := range instructions {
		switch in := inst.(type) {
		case bytecode.Push:
			v.stack = append(v.stack, v.stack[in.Index])

		case bytecode.PushInt:
			v.stack = append(v.stack, Concrete{Type: typesys.Int()})

		case bytecode.PushFloat:
			v.stack = append(v.stack, Concrete{Type: typesys.Float()})

		case bytecode.PushString:
			v.stack = append(v.stack, Concrete{Type: typesys.String()})

		case bytecode.PushGlobal:
			if typ, ok := v.globals(in.Index); ok {
				v.stack = append(v.stack, Concrete{Type: typ})
			} else {
				v.errors.add(UndefinedGlobal{Slot: in.Index})
			}

		case bytecode.Call:
			if !v.call(in.NArgs) {
				return &v.errors
			}

		case bytecode.TailCall:
			if !v.call(in.NArgs) {
				return &v.errors
			}

		case bytecode.Construct:
			i := len(v.stack) - in.NArgs
			args := append([]AbstractType(nil), v.stack[i:]...)
			v.stack = v.stack[:i]
			v.stack = append(v.stack, Variant{Tag: in.Tag, Args: args})

		case bytecode.GetField:
			if len(v.stack) == 0 {
				v.errors.add(EmptyStack{})
				continue
			}
			top := v.stack[len(v.stack)-1]
			v.stack = v.stack[:len(v.stack)-1]

			field, ok := fieldAt(top, in.Index)
			if !ok {
				v.errors.add(FieldIsOutOfRange{Type: top, Index: in.Index})
				continue
			}
			v.stack = append(v.stack, field)

		default:
			// Unsupported opcode: fatal, abort immediately (spec
			// §4.2 "any other" row). The original Rust verifier
			// returns a fresh, empty error set here rather than
			// whatever had accumulated so far; this mirrors that
			// exactly (see DESIGN.md).
			return &Errors{}
		}
	}

	if v.errors.HasErrors() {
		return &v.errors
	}
	return nil
}

// call implements the shared Call/TailCall transition (spec §4.2). It
// returns false if the precondition failed (too few stack slots, or no
// Concrete function type at the callee slot), meaning the caller must
// abort verification immediately.
func (v *Verifier) call(nargs int) bool {
	if len(v.stack) <= nargs+1 {
		v.errors.add(NotEnoughArguments{})
		return false
	}

	calleeIdx := len(v.stack) - nargs - 1
	callee, ok := v.stack[calleeIdx].(Concrete)
	if !ok || callee.Type.Kind != typesys.KindFunction {
		v.errors.add(NotEnoughArguments{})
		return false
	}

	actuals := v.stack[calleeIdx+1:]
	formals := typesys.ArgIter(callee.Type)
	for i := 0; i < len(formals) && i < len(actuals); i++ {
		expected := Concrete{Type: formals[i]}
		if !Equivalent(v.env, expected, actuals[i]) {
			v.errors.add(TypeMismatch{Expected: expected, Actual: actuals[i]})
		}
	}

	retType := typesys.ReturnType(callee.Type)
	v.stack = v.stack[:calleeIdx]
	v.stack = append(v.stack, Concrete{Type: retType})
	return true
}

// fieldAt implements the GetField transition's lookup: a Concrete
// record's Kth field type, or a Variant's Kth argument abstract type.
func fieldAt(top AbstractType, k int) (AbstractType, bool) {
	switch t := top.(type) {
	case Concrete:
		if t.Type.Kind != typesys.KindRecord {
			return nil, false
		}
		if k < 0 || k >= len(t.Type.Fields) {
			return nil, false
		}
		return Concrete{Type: t.Type.Fields[k].Type}, true
	case Variant:
		if k < 0 || k >= len(t.Args) {
			return nil, false
		}
		return t.Args[k], true
	default:
		return nil, false
	}
}

// Equivalent is the equivalence predicate of spec §4.2: a Concrete
// type and a Variant are equivalent iff the Concrete side is a
// Variants type whose constructor #tag matches, argument-by-argument;
// two Concretes defer to the type environment; two Variants compare
// tags and recurse pairwise.
func Equivalent(env typesys.TypeEnv, expected, actual AbstractType) bool {
	switch e := expected.(type) {
	case Concrete:
		switch a := actual.(type) {
		case Concrete:
			return env.Equivalent(e.Type, a.Type)
		case Variant:
			if e.Type.Kind != typesys.KindVariants {
				return false
			}
			if a.Tag < 0 || a.Tag >= len(e.Type.Variants) {
				return false
			}
			ctor := e.Type.Variants[a.Tag]
			if len(ctor.Args) != len(a.Args) {
				return false
			}
			for i, argType := range ctor.Args {
				if !Equivalent(env, Concrete{Type: argType}, a.Args[i]) {
					return false
				}
			}
			return true
		}
	case Variant:
		switch a := actual.(type) {
		case Concrete:
			if a.Type.Kind != typesys.KindVariants {
				return false
			}
			if e.Tag < 0 || e.Tag >= len(a.Type.Variants) {
				return false
			}
			ctor := a.Type.Variants[e.Tag]
			if len(ctor.Args) != len(e.Args) {
				return false
			}
			for i, eArg := range e.Args {
				if !Equivalent(env, eArg, Concrete{Type: ctor.Args[i]}) {
					return false
				}
			}
			return true
		case Variant:
			if e.Tag != a.Tag || len(e.Args) != len(a.Args) {
				return false
			}
			for i := range e.Args {
				if !Equivalent(env, e.Args[i], a.Args[i]) {
					return false
				}
			}
			return true
		}
	}
	return false
}

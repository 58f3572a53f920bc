package vmruntime

import (
	"fmt"

	"corevm/bytecode"
	"corevm/heap"
)

// frameRoots chains one executing frame's live operand stack onto
// whatever was already rooted by its caller, so a collection
// triggered anywhere in a Call/TailCall recursion traverses every
// frame's stack, not just the innermost one (spec §4.1: the root set
// must cover every reachable handle, and an in-flight call's operand
// stack is reachable until that call returns).
type frameRoots struct {
	parent heap.Traverseable[ValueSlice]
	stack  []Value
}

func (f frameRoots) Traverse(t heap.Tracer[ValueSlice]) {
	if f.parent != nil {
		f.parent.Traverse(t)
	}
	ValueSlice(f.stack).Traverse(t)
}

// exec runs instructions against an initial stack seeded with args,
// and returns whatever value is left on top of the stack once every
// instruction has executed. It dispatches on the same Instruction
// concrete types the verifier (package verify) type-switches over, but
// it does not verify closure.Code itself: a fault the verifier would
// reject (an undefined global, an out-of-range field, too few values
// for a call) is reported here as a runtime error instead.
//
// outerRoots is everything already live above this frame (the
// session's globals, plus every enclosing caller's own operand
// stack); every allocation this frame triggers must root through it
// so an enclosing frame's still-needed values survive a collection
// nested calls provoke.
func (s *Session) exec(closure Value, args []Value, outerRoots heap.Traverseable[ValueSlice]) (Value, error) {
	stack := append([]Value(nil), args...)

	for _, inst := range closure.Code {
		switch in := inst.(type) {
		case bytecode.Push:
			stack = append(stack, stack[in.Index])

		case bytecode.PushInt:
			stack = append(stack, Value{Kind: ValueInt, Int: in.Value})

		case bytecode.PushFloat:
			stack = append(stack, Value{Kind: ValueFloat, Float: in.Value})

		case bytecode.PushString:
			stack = append(stack, Value{Kind: ValueString, Str: in.Value})

		case bytecode.PushGlobal:
			v, ok := s.globalByIndex(in.Index)
			if !ok {
				return Value{}, fmt.Errorf("vmruntime: undefined global at slot %d", in.Index)
			}
			stack = append(stack, v)

		case bytecode.Call:
			var err error
			if stack, err = s.apply(stack, in.NArgs, outerRoots); err != nil {
				return Value{}, err
			}

		case bytecode.TailCall:
			var err error
			if stack, err = s.apply(stack, in.NArgs, outerRoots); err != nil {
				return Value{}, err
			}

		case bytecode.Construct:
			i := len(stack) - in.NArgs
			if i < 0 {
				return Value{}, fmt.Errorf("vmruntime: construct needs %d arguments, stack has %d", in.NArgs, len(stack))
			}
			elems := append(ValueSlice(nil), stack[i:]...)
			stack = stack[:i]
			roots := frameRoots{parent: outerRoots, stack: stack}
			handle := s.heap.AllocAndCollect(roots, sliceDef{elems: elems})
			stack = append(stack, Value{Kind: ValueData, Tag: in.Tag, Fields: handle})

		case bytecode.GetField:
			if len(stack) == 0 {
				return Value{}, fmt.Errorf("vmruntime: get_field on an empty stack")
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			field, err := fieldAt(top, in.Index)
			if err != nil {
				return Value{}, err
			}
			stack = append(stack, field)

		default:
			return Value{}, fmt.Errorf("vmruntime: unsupported instruction %q", inst.Name())
		}
	}

	if len(stack) == 0 {
		return Value{}, fmt.Errorf("vmruntime: function body left nothing on the stack")
	}
	return stack[len(stack)-1], nil
}

// apply implements the shared Call/TailCall effect at runtime: pop
// the callee and its nargs arguments, execute the callee's body, and
// push its result (spec §4.2's Call/TailCall row, executed rather
// than merely checked).
func (s *Session) apply(stack []Value, nargs int, outerRoots heap.Traverseable[ValueSlice]) ([]Value, error) {
	if len(stack) <= nargs {
		return nil, fmt.Errorf("vmruntime: not enough arguments on the stack for call")
	}
	calleeIdx := len(stack) - nargs - 1
	callee := stack[calleeIdx]
	if callee.Kind != ValueClosure {
		return nil, fmt.Errorf("vmruntime: call target is not a closure")
	}

	callArgs := append([]Value(nil), stack[calleeIdx+1:]...)
	remaining := stack[:calleeIdx]
	nestedRoots := frameRoots{parent: outerRoots, stack: remaining}

	result, err := s.exec(callee, callArgs, nestedRoots)
	if err != nil {
		return nil, err
	}

	return append(remaining, result), nil
}

// fieldAt implements GetField's runtime lookup, mirroring the
// verifier's abstract fieldAt but over concrete runtime Values.
func fieldAt(top Value, index int) (Value, error) {
	if top.Kind != ValueData {
		return Value{}, fmt.Errorf("vmruntime: get_field on a non-data value %s", top.Kind)
	}
	elems := *top.Fields.Deref()
	if index < 0 || index >= len(elems) {
		return Value{}, fmt.Errorf("vmruntime: field %d is out of range of %s", index, top)
	}
	return elems[index], nil
}

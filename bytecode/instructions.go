// Package bytecode defines the instruction set the verifier (package
// verify) statically checks and the runtime (package vmruntime)
// executes. It mirrors the teacher's `vm_instructions.go`: one
// exported struct per opcode implementing a small common interface,
// rather than a single instruction struct with an opcode tag and a
// union of operand fields.
package bytecode

// Instruction is one bytecode operation. Every verifier-visible
// opcode in spec §4.2's transition table implements it; any
// `Instruction` that isn't one of those concrete types is, by
// construction, unsupported and causes the verifier to abort (spec
// §4.2's "any other" row).
type Instruction interface {
	Name() string
	isInstruction()
}

// Push duplicates the stack slot at index I onto the top of the
// stack.
type Push struct{ Index int }

func (Push) Name() string { return "push" }
func (Push) isInstruction() {}

// PushInt pushes a fresh Int literal.
type PushInt struct{ Value int64 }

func (PushInt) Name() string   { return "push_int" }
func (PushInt) isInstruction() {}

// PushFloat pushes a fresh Float literal.
type PushFloat struct{ Value float64 }

func (PushFloat) Name() string   { return "push_float" }
func (PushFloat) isInstruction() {}

// PushString pushes a fresh String literal.
type PushString struct{ Value string }

func (PushString) Name() string   { return "push_string" }
func (PushString) isInstruction() {}

// PushGlobal pushes the value bound to the global at slot Index.
type PushGlobal struct{ Index int }

func (PushGlobal) Name() string   { return "push_global" }
func (PushGlobal) isInstruction() {}

// Call applies the function found NArgs+1 slots from the top (the
// function itself, followed by NArgs actual arguments) and replaces
// them with its result.
type Call struct{ NArgs int }

func (Call) Name() string   { return "call" }
func (Call) isInstruction() {}

// TailCall behaves like Call for verification purposes (spec §4.2
// groups `Call(n)` / `TailCall(n)` under one precondition/effect row).
// The runtime (package vmruntime) executes both the same way, each in a
// new nested frame; the current frame is not reused.
type TailCall struct{ NArgs int }

func (TailCall) Name() string   { return "tail_call" }
func (TailCall) isInstruction() {}

// Construct pops NArgs values and pushes a variant value tagged Tag
// built from them.
type Construct struct {
	Tag    int
	NArgs  int
}

func (Construct) Name() string   { return "construct" }
func (Construct) isInstruction() {}

// GetField pops the top value and pushes its field/argument at
// Index.
type GetField struct{ Index int }

func (GetField) Name() string   { return "get_field" }
func (GetField) isInstruction() {}

package vmruntime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corevm/bytecode"
	"corevm/vmconfig"
)

// TestExecConstructGetFieldRoundTrip runs the same program shape
// TestVerifyConstructGetFieldRoundTrip (package verify) proves safe,
// and checks the runtime actually produces the field value the
// verifier promised would be there.
func TestExecConstructGetFieldRoundTrip(t *testing.T) {
	s := New(vmconfig.New(), nil, nil)

	closure := Value{Kind: ValueClosure, Code: []bytecode.Instruction{
		bytecode.PushInt{Value: 1},
		bytecode.PushInt{Value: 2},
		bytecode.Construct{Tag: 0, NArgs: 2},
		bytecode.GetField{Index: 1},
	}}

	result, err := s.exec(closure, nil, s.Roots())
	require.NoError(t, err)
	assert.Equal(t, ValueInt, result.Kind)
	assert.EqualValues(t, 2, result.Int)
}

func TestExecCallInvokesCallee(t *testing.T) {
	s := New(vmconfig.New(), nil, nil)

	callee := Value{Kind: ValueClosure, Code: []bytecode.Instruction{
		bytecode.Push{Index: 0},
	}}
	require.NoError(t, s.DefineGlobal("identity", callee))

	caller := Value{Kind: ValueClosure, Code: []bytecode.Instruction{
		bytecode.PushGlobal{Index: 0},
		bytecode.PushInt{Value: 9},
		bytecode.Call{NArgs: 1},
	}}

	result, err := s.exec(caller, nil, s.Roots())
	require.NoError(t, err)
	assert.Equal(t, ValueInt, result.Kind)
	assert.EqualValues(t, 9, result.Int)
}

func TestExecGetFieldOutOfRangeErrors(t *testing.T) {
	s := New(vmconfig.New(), nil, nil)

	closure := Value{Kind: ValueClosure, Code: []bytecode.Instruction{
		bytecode.PushInt{Value: 1},
		bytecode.GetField{Index: 0},
	}}

	_, err := s.exec(closure, nil, s.Roots())
	assert.Error(t, err)
}

// TestExecConstructRootsOperandStackAcrossCollection reproduces the
// scenario spec §4.1/§8's "Reachability preservation" invariant
// forbids a collection from breaking: each 2-arg Construct adds
// 64+headerOverhead(24)=88 bytes, so with the default initial
// collect_limit of 100 the third Construct in a single frame crosses
// the trigger and collects mid-body. The first two constructed values
// are still sitting on the operand stack (not yet consumed by
// GetField), reachable from nowhere but that stack; they must survive.
func TestExecConstructRootsOperandStackAcrossCollection(t *testing.T) {
	s := New(vmconfig.New(), nil, nil)

	closure := Value{Kind: ValueClosure, Code: []bytecode.Instruction{
		bytecode.PushInt{Value: 1},
		bytecode.PushInt{Value: 1},
		bytecode.Construct{Tag: 0, NArgs: 2}, // 1st: stack now [dataA]
		bytecode.PushInt{Value: 2},
		bytecode.PushInt{Value: 2},
		bytecode.Construct{Tag: 1, NArgs: 2}, // 2nd: stack now [dataA, dataB]
		bytecode.PushInt{Value: 3},
		bytecode.PushInt{Value: 3},
		bytecode.Construct{Tag: 2, NArgs: 2}, // 3rd: crosses collect_limit=100
		bytecode.GetField{Index: 0},          // consumes dataC, leaves [dataA, dataB, field]
	}}

	result, err := s.exec(closure, nil, s.Roots())
	require.NoError(t, err)
	assert.Equal(t, ValueInt, result.Kind)
	assert.EqualValues(t, 3, result.Int)
	assert.Equal(t, 3, s.Heap().ObjectCount(), "dataA and dataB were still live on the operand stack and must have survived the collection")
}

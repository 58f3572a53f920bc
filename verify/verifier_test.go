package verify_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"corevm/bytecode"
	"corevm/typesys"
	"corevm/verify"
)

func noGlobals(int) (typesys.Type, bool) { return typesys.Type{}, false }

func globalsOf(types map[int]typesys.Type) verify.GlobalResolver {
	return func(slot int) (typesys.Type, bool) {
		t, ok := types[slot]
		return t, ok
	}
}

// TestVerifyConstructGetFieldRoundTrip exercises spec §8 scenario 3:
// a function that constructs a two-field variant and reads back one
// argument verifies cleanly.
func TestVerifyConstructGetFieldRoundTrip(t *testing.T) {
	fnType := typesys.Function(nil, typesys.Int())
	code := []bytecode.Instruction{
		bytecode.PushInt{Value: 1},
		bytecode.PushInt{Value: 2},
		bytecode.Construct{Tag: 0, NArgs: 2},
		bytecode.GetField{Index: 1},
	}

	v := verify.NewVerifier(typesys.BasicTypeEnv{}, noGlobals)
	errs := v.Verify(fnType, code)
	assert.Nil(t, errs)
}

// TestVerifyCallNotEnoughArguments exercises spec §8 scenario 4: a
// call whose declared arity exceeds what's actually on the stack is
// fatal and aborts immediately.
func TestVerifyCallNotEnoughArguments(t *testing.T) {
	calleeType := typesys.Function([]typesys.Type{typesys.Int(), typesys.Int()}, typesys.Int())
	fnType := typesys.Function(nil, typesys.Int())

	code := []bytecode.Instruction{
		bytecode.PushGlobal{Index: 0},
		bytecode.PushInt{Value: 1},
		bytecode.Call{NArgs: 2},
	}

	v := verify.NewVerifier(typesys.BasicTypeEnv{}, globalsOf(map[int]typesys.Type{0: calleeType}))
	errs := v.Verify(fnType, code)
	require.NotNil(t, errs)
	require.Len(t, errs.Errs, 1)
	assert.IsType(t, verify.NotEnoughArguments{}, errs.Errs[0])
}

// TestVerifyGetFieldOnConcreteIntOutOfRange exercises spec §8 scenario
// 5: GetField applied to a plain Concrete(Int) is out of range,
// recorded as a non-fatal error, and verification continues.
func TestVerifyGetFieldOnConcreteIntOutOfRange(t *testing.T) {
	fnType := typesys.Function(nil, typesys.Int())
	code := []bytecode.Instruction{
		bytecode.PushInt{Value: 42},
		bytecode.GetField{Index: 0},
	}

	v := verify.NewVerifier(typesys.BasicTypeEnv{}, noGlobals)
	errs := v.Verify(fnType, code)
	require.NotNil(t, errs)
	require.Len(t, errs.Errs, 1)
	assert.IsType(t, verify.FieldIsOutOfRange{}, errs.Errs[0])
}

// TestVerifyUndefinedGlobalAccumulatesAndContinues shows the
// accumulating error policy (spec §7): PushGlobal on an unbound slot
// records UndefinedGlobal but does not push a stand-in value, and
// verification proceeds to find further problems in the same pass.
func TestVerifyUndefinedGlobalAccumulatesAndContinues(t *testing.T) {
	fnType := typesys.Function(nil, typesys.Int())
	code := []bytecode.Instruction{
		bytecode.PushGlobal{Index: 7},
		bytecode.PushInt{Value: 1},
		bytecode.GetField{Index: 0},
	}

	v := verify.NewVerifier(typesys.BasicTypeEnv{}, noGlobals)
	errs := v.Verify(fnType, code)
	require.NotNil(t, errs)
	require.Len(t, errs.Errs, 2)
	assert.IsType(t, verify.UndefinedGlobal{}, errs.Errs[0])
	assert.IsType(t, verify.FieldIsOutOfRange{}, errs.Errs[1])
}

// TestVerifyCallTypeMismatchIsNonFatal shows a wrong-typed argument to
// a call is recorded but does not abort the pass: the call still
// produces its declared return type so later instructions verify too.
func TestVerifyCallTypeMismatchIsNonFatal(t *testing.T) {
	calleeType := typesys.Function([]typesys.Type{typesys.Int()}, typesys.Int())
	fnType := typesys.Function(nil, typesys.Int())

	code := []bytecode.Instruction{
		// Call's precondition needs more than NArgs+1 stack slots, so
		// one value sits below the callee.
		bytecode.PushInt{Value: 0},
		bytecode.PushGlobal{Index: 0},
		bytecode.PushString{Value: "nope"},
		bytecode.Call{NArgs: 1},
	}

	v := verify.NewVerifier(typesys.BasicTypeEnv{}, globalsOf(map[int]typesys.Type{0: calleeType}))
	errs := v.Verify(fnType, code)
	require.NotNil(t, errs)
	require.Len(t, errs.Errs, 1)
	assert.IsType(t, verify.TypeMismatch{}, errs.Errs[0])
}

// TestEquivalenceSymmetric is a property test over spec §4.2's
// equivalent() predicate: for a constructor drawn at a random tag with
// a random number of Int arguments, Concrete-vs-Variant and
// Variant-vs-Concrete must agree on the same pairing, in either
// argument order.
func TestEquivalenceSymmetric(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		env := typesys.BasicTypeEnv{}

		tag := rapid.IntRange(0, 2).Draw(rt, "tag")
		nArgs := rapid.IntRange(0, 3).Draw(rt, "nArgs")

		ctorArgs := make([]typesys.Type, nArgs)
		variantArgs := make([]verify.AbstractType, nArgs)
		for i := range ctorArgs {
			ctorArgs[i] = typesys.Int()
			variantArgs[i] = verify.Concrete{Type: typesys.Int()}
		}

		ctors := make([]typesys.VariantCtor, tag+1)
		for i := 0; i < tag; i++ {
			ctors[i] = typesys.VariantCtor{Name: fmt.Sprintf("Other%d", i)}
		}
		ctors[tag] = typesys.VariantCtor{Name: "Target", Args: ctorArgs}
		sumType := typesys.Variants(ctors)

		variant := verify.Variant{Tag: tag, Args: variantArgs}
		concrete := verify.Concrete{Type: sumType}

		forward := verify.Equivalent(env, concrete, variant)
		backward := verify.Equivalent(env, variant, concrete)
		if diff := cmp.Diff(forward, backward); diff != "" {
			rt.Fatalf("equivalent() is not symmetric for tag=%d nArgs=%d (-forward +backward):\n%s", tag, nArgs, diff)
		}
	})
}

// TestVerifyUnsupportedInstructionIsFatal shows an Instruction the
// verifier does not recognize aborts immediately with an empty, but
// non-nil, error batch rather than whatever had accumulated so far.
func TestVerifyUnsupportedInstructionIsFatal(t *testing.T) {
	fnType := typesys.Function(nil, typesys.Int())
	code := []bytecode.Instruction{
		bytecode.PushGlobal{Index: 9}, // accumulates one error first
		unknownInstruction{},
	}

	v := verify.NewVerifier(typesys.BasicTypeEnv{}, noGlobals)
	errs := v.Verify(fnType, code)
	require.NotNil(t, errs)
	assert.Empty(t, errs.Errs)
}

// unknownInstruction gets bytecode.Instruction's unexported marker
// method by embedding the interface, since it cannot be declared
// outside package bytecode.
type unknownInstruction struct{ bytecode.Instruction }

func (unknownInstruction) Name() string { return "unknown" }

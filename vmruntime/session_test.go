package vmruntime_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corevm/ast"
	"corevm/bytecode"
	"corevm/macro"
	"corevm/typesys"
	"corevm/vmconfig"
	"corevm/vmruntime"
)

// passthroughTypeChecker accepts every expression unchanged; the real
// type checker is a host collaborator out of scope for this core
// (spec §1, §6).
type passthroughTypeChecker struct{}

func (passthroughTypeChecker) TypecheckTo(expr ast.Node, _ typesys.Type) (ast.Node, error) {
	return expr, nil
}

// identityCompiler only knows how to compile the single transformer
// shape spec §8's "Identity transformer" law exercises: `\e -> e`.
// Its body needs no instructions at all, since the lone argument is
// already sitting on top of the stack when the closure starts.
type identityCompiler struct{}

func (identityCompiler) Compile(expr ast.Node) ([]bytecode.Instruction, error) {
	lambda, ok := expr.(*ast.Lambda)
	if !ok {
		return nil, fmt.Errorf("identityCompiler: expected a lambda")
	}
	ident, ok := lambda.Body.(*ast.Ident)
	if !ok || ident.Name != lambda.Param {
		return nil, fmt.Errorf("identityCompiler: only supports the identity transformer")
	}
	return nil, nil
}

func newSession() *vmruntime.Session {
	return vmruntime.New(vmconfig.New(), passthroughTypeChecker{}, identityCompiler{})
}

// TestDefMacroThenRunMacroIdentity reproduces def_macro.rs's own
// `id_macro` test at the Go core's level of abstraction: registering
// the identity transformer under `id` and then expanding a call to
// `id` returns the call's argument unchanged (spec §8).
func TestDefMacroThenRunMacroIdentity(t *testing.T) {
	s := newSession()

	name := &ast.Ident{Name: "id"}
	body := &ast.Lambda{Param: "e", Body: &ast.Ident{Name: "e"}}

	_, err := macro.DefMacro{}.Expand(s, []ast.Node{name, body})
	require.NoError(t, err)

	expander, ok := s.Macros().Get("id")
	require.True(t, ok)

	four := &ast.IntLit{Value: 4}
	result, err := expander.Expand(s, []ast.Node{four})
	require.NoError(t, err)
	assert.Same(t, four, result)
}

func TestDefMacroRegistersBeforeCompilingBody(t *testing.T) {
	s := newSession()

	name := &ast.Ident{Name: "self"}
	// A transformer body the identityCompiler would reject, so
	// Expand returns an error — but the macro name must already be
	// registered by that point (spec §4.3 step 2), since a
	// recursive transformer may need to see its own binding while
	// still being compiled.
	body := &ast.Lambda{Param: "e", Body: &ast.IntLit{Value: 0}}

	_, err := macro.DefMacro{}.Expand(s, []ast.Node{name, body})
	assert.Error(t, err)

	_, ok := s.Macros().Get("self")
	assert.True(t, ok, "macro name must be registered even if compiling its body later fails")
}

func dataType() typesys.Type {
	return typesys.Variants([]typesys.VariantCtor{
		{Name: "Pair", Args: []typesys.Type{typesys.Int(), typesys.Int()}},
	})
}

// TestSessionGlobalResolverMatchesVerifier ties the runtime's global
// table to the verifier's GlobalResolver collaborator: a global bound
// via DefineGlobal is visible at the slot the verifier will see for
// the matching PushGlobal instruction.
func TestSessionGlobalResolverMatchesVerifier(t *testing.T) {
	s := newSession()

	closure, err := s.Allocate(nil)
	require.NoError(t, err)
	require.NoError(t, s.DefineGlobal("id", closure))

	resolver := s.GlobalResolver()
	typ, ok := resolver(0)
	require.True(t, ok)
	assert.Equal(t, typesys.KindFunction, typ.Kind)

	_, ok = resolver(1)
	assert.False(t, ok)
}

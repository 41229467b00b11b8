package typeprov

import (
	"testing"

	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/require"

	"github.com/mewmew/liftgo/bin"
)

func TestProgramTypeProviderFunctionLookup(t *testing.T) {
	decl := FunctionDecl{
		Address: 0x1000,
		Name:    "f",
		Params: []ParameterDecl{
			{ValueDecl: NewRegisterValueDecl("RDI"), Name: "a", Type: types.I32},
		},
	}
	p := NewProgramTypeProvider([]FunctionDecl{decl}, nil)

	got, ok := p.TryGetFunctionType(0x1000)
	require.True(t, ok)
	require.Equal(t, "f", got.Name)

	_, ok = p.TryGetFunctionType(0x2000)
	require.False(t, ok)
}

func TestProgramTypeProviderRegisterHintsSortedByName(t *testing.T) {
	decl := FunctionDecl{
		Address: 0x1000,
		RegisterInfo: []TypedRegisterDecl{
			{InstAddr: 0x1010, Register: "RDX", Type: types.I64},
			{InstAddr: 0x1010, Register: "RAX", Type: types.I64},
		},
	}
	p := NewProgramTypeProvider([]FunctionDecl{decl}, nil)

	var order []string
	p.QueryRegisterStateAtInstruction(0x1000, 0x1010, func(reg string, typ types.Type, value *uint64) {
		order = append(order, reg)
	})
	require.Equal(t, []string{"RAX", "RDX"}, order)
}

func TestProgramTypeProviderVariableLookup(t *testing.T) {
	p := NewProgramTypeProvider(nil, []GlobalVarDecl{{Address: 0x2000, Type: types.I8}})

	got, ok := p.TryGetVariableType(0x2000)
	require.True(t, ok)
	require.Equal(t, bin.Addr(0x2000), got.Address)
}

func TestValueDeclValidate(t *testing.T) {
	require.NoError(t, NewRegisterValueDecl("RAX").Validate())
	require.NoError(t, NewMemoryValueDecl("RBP", -8).Validate())
	require.Error(t, ValueDecl{}.Validate())
}

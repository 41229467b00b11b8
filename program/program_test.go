package program

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mewmew/liftgo/bin"
	"github.com/mewmew/liftgo/typeprov"
)

func TestProgramWiresProviders(t *testing.T) {
	p := New(
		[]typeprov.FunctionDecl{{Address: 0x1000, Name: "f"}},
		[]typeprov.GlobalVarDecl{{Address: 0x2000}},
		[]bin.ByteRange{{Address: 0x1000, Bytes: []byte{0x90}, IsExecutable: true}},
		[]NamedAddress{{Address: 0x1000, Name: "f"}, {Address: 0x2000, Name: "g_var"}},
		[][2]bin.Addr{{0x3000, 0x4000}},
	)

	decl, ok := p.TypeProvider().TryGetFunctionType(0x1000)
	require.True(t, ok)
	require.Equal(t, "f", decl.Name)

	b, avail, _ := p.MemoryProvider().Query(0x1000)
	require.Equal(t, byte(0x90), b)
	require.Equal(t, bin.AvailabilityAvailable, avail)

	require.Equal(t, bin.Addr(0x4000), p.ControlFlowProvider().GetRedirection(0x3000))
}

func TestProgramForEachNamedAddressIsSortedByAddress(t *testing.T) {
	p := New(nil, nil, nil, []NamedAddress{
		{Address: 0x2000, Name: "b"},
		{Address: 0x1000, Name: "a"},
	}, nil)

	var names []string
	p.ForEachNamedAddress(func(na NamedAddress) { names = append(names, na.Name) })
	require.Equal(t, []string{"a", "b"}, names)
}

func TestProgramForEachFunctionIsSortedByAddress(t *testing.T) {
	p := New([]typeprov.FunctionDecl{
		{Address: 0x2000, Name: "second"},
		{Address: 0x1000, Name: "first"},
	}, nil, nil, nil, nil)

	var names []string
	p.ForEachFunction(func(f typeprov.FunctionDecl) { names = append(names, f.Name) })
	require.Equal(t, []string{"first", "second"}, names)
}

package specfmt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mewmew/liftgo/bin"
)

func TestDecodeFunctionAndVariable(t *testing.T) {
	raw := &jsonSpec{
		Arch: "x86_64",
		OS:   "linux",
		Functions: []jsonFunction{
			{
				Address: 0x1000,
				Name:    "f",
				Parameters: []jsonParameter{
					{jsonValueDecl: jsonValueDecl{Register: "RDI"}, Name: "a", Type: "i32"},
				},
				ReturnValues: []jsonParameter{
					{jsonValueDecl: jsonValueDecl{Register: "RAX"}, Type: "i32"},
				},
				ReturnAddress:      &jsonValueDecl{Memory: &struct {
					Register string `json:"register"`
					Offset   int64  `json:"offset"`
				}{Register: "RSP", Offset: 0}},
				ReturnStackPointer: &jsonReturnStackPointer{Register: "RSP", Offset: 8},
			},
		},
		Variables: []jsonVariable{
			{Address: 0x2000, Type: "i64"},
		},
		Memory: []jsonMemoryRange{
			{Address: 0x1000, IsExecutable: true, Data: "9090"},
		},
		Symbols: [][2]interface{}{
			{float64(0x1000), "f"},
		},
		ControlFlowRedirections: [][2]uint64{{0x3000, 0x4000}},
	}

	spec, err := decode(raw)
	require.NoError(t, err)
	require.Equal(t, "x86_64", spec.Arch)

	fn, ok := spec.Program.TypeProvider().TryGetFunctionType(0x1000)
	require.True(t, ok)
	require.Equal(t, "f", fn.Name)
	require.Len(t, fn.Params, 1)
	require.Equal(t, "a", fn.Params[0].Name)

	b, avail, _ := spec.Program.MemoryProvider().Query(0x1000)
	require.Equal(t, byte(0x90), b)
	require.Equal(t, bin.AvailabilityAvailable, avail)

	require.Equal(t, bin.Addr(0x4000), spec.Program.ControlFlowProvider().GetRedirection(0x3000))
}

func TestDecodeFunctionRequiresReturnAddress(t *testing.T) {
	raw := &jsonSpec{
		Functions: []jsonFunction{{Address: 0x1000}},
	}
	spec, err := decode(raw)
	require.NoError(t, err)
	// The malformed function is skipped with a warning, not fatal.
	_, ok := spec.Program.TypeProvider().TryGetFunctionType(0x1000)
	require.False(t, ok)
}

package specfmt

import (
	"testing"

	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/require"
)

func TestParseTypeScalars(t *testing.T) {
	tests := map[string]types.Type{
		"void":   types.Void,
		"i1":     types.I1,
		"i8":     types.I8,
		"i32":    types.I32,
		"i64":    types.I64,
		"float":  types.Float,
		"double": types.Double,
	}
	for in, want := range tests {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		require.Equal(t, want.String(), got.String(), in)
	}
}

func TestParseTypePointer(t *testing.T) {
	got, err := ParseType("i8*")
	require.NoError(t, err)
	ptr, ok := got.(*types.PointerType)
	require.True(t, ok)
	require.Equal(t, types.I8.String(), ptr.ElemType.String())
}

func TestParseTypeArray(t *testing.T) {
	got, err := ParseType("[4 x i32]")
	require.NoError(t, err)
	arr, ok := got.(*types.ArrayType)
	require.True(t, ok)
	require.EqualValues(t, 4, arr.Len)
}

func TestParseTypeStruct(t *testing.T) {
	got, err := ParseType("{i32, i8*}")
	require.NoError(t, err)
	st, ok := got.(*types.StructType)
	require.True(t, ok)
	require.Len(t, st.Fields, 2)
}

func TestParseTypeRejectsGarbage(t *testing.T) {
	_, err := ParseType("not_a_type")
	require.Error(t, err)
}

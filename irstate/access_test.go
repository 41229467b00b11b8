package irstate

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/stretchr/testify/require"

	"github.com/mewmew/liftgo/arch/x86"
)

func TestStateLoadStoreRoundTrip(t *testing.T) {
	s := Build(x86.New64())
	fn := &ir.Func{}
	block := fn.NewBlock("")
	statePtr := ir.NewParam("state", s.PointerType())

	err := s.StoreRegValue(block, statePtr, "RAX", constant.NewInt(s.StructTy.Fields[mustIndex(t, s, "RAX")], 42))
	require.NoError(t, err)

	_, err = s.LoadRegValue(block, statePtr, "RAX")
	require.NoError(t, err)

	_, _, err = s.AddressOf(block, statePtr, "NOPE")
	require.Error(t, err)
}

func mustIndex(t *testing.T, s *State, reg string) int {
	i, ok := s.FieldIndex(reg)
	require.True(t, ok)
	return i
}

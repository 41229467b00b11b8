package irstate

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/require"

	"github.com/mewmew/liftgo/arch/x86"
)

func TestBuildStateHasTopLevelRegistersOnly(t *testing.T) {
	a := x86.New64()
	s := Build(a)

	_, ok := s.FieldIndex("RAX")
	require.True(t, ok)
	_, ok = s.FieldIndex("EAX") // sub-register of RAX, not a field
	require.False(t, ok)
}

func TestSentinelsCreateOnce(t *testing.T) {
	module := ir.NewModule()
	s := Build(x86.New64())
	mem := types.NewPointer(types.I8)
	sent := New(module, s, mem)

	pc1 := sent.PC()
	pc2 := sent.PC()
	require.Same(t, pc1, pc2)
	require.Equal(t, SentinelPCName, pc1.Name())

	errIntr1 := sent.ErrorIntrinsic()
	errIntr2 := sent.ErrorIntrinsic()
	require.Same(t, errIntr1, errIntr2)
	require.Equal(t, IntrinsicErrorName, errIntr1.Name())
}

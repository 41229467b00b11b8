package lifter

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/stretchr/testify/require"

	"github.com/mewmew/liftgo/arch/x86"
	"github.com/mewmew/liftgo/bin"
	"github.com/mewmew/liftgo/ctrlflow"
	"github.com/mewmew/liftgo/instsem"
	"github.com/mewmew/liftgo/typeprov"
)

func newTestLifter() *Lifter {
	a := x86.New64()
	mem := bin.NewRangeMemoryProvider([]bin.ByteRange{
		{Address: 0x1000, Bytes: []byte{0x90, 0xC3}, IsExecutable: true},                         // NOP; RET
		{Address: 0x2000, Bytes: []byte{0xB8, 0x01, 0x00, 0x00, 0x00, 0xC3}, IsExecutable: true},  // MOV EAX, 1; RET
		{Address: 0x3000, Bytes: []byte{0xE8, 0x00, 0x00, 0x00, 0x00, 0xC3}, IsExecutable: true},  // CALL +0; RET
	})
	types_ := typeprov.NewProgramTypeProvider(nil, nil)
	cflow := ctrlflow.IdentityProvider{}
	sem := instsem.NewX86Lifter(64)
	module := ir.NewModule()
	return New(a, mem, types_, cflow, sem, module, DefaultOptions())
}

func TestLiftFunctionSimpleReturn(t *testing.T) {
	l := newTestLifter()
	fn, err := l.LiftFunction(0x1000)
	require.NoError(t, err)
	require.NotNil(t, fn)
	require.NotEmpty(t, fn.Blocks)
}

func TestLiftFunctionIsMemoized(t *testing.T) {
	l := newTestLifter()
	fn1, err := l.LiftFunction(0x1000)
	require.NoError(t, err)
	fn2, err := l.LiftFunction(0x1000)
	require.NoError(t, err)
	require.Same(t, fn1, fn2)
}

func TestLiftFunctionWithMovReturn(t *testing.T) {
	l := newTestLifter()
	fn, err := l.LiftFunction(0x2000)
	require.NoError(t, err)
	require.NotEmpty(t, fn.Blocks)
}

func TestLiftFunctionWithDirectCall(t *testing.T) {
	l := newTestLifter()
	fn, err := l.LiftFunction(0x3000)
	require.NoError(t, err)
	require.NotEmpty(t, fn.Blocks)
	// The call target should have been lifted as its own semantic function.
	require.Contains(t, l.semanticFuncs, bin.Addr(0x3005))
}

func TestVerifyFunctionOnLiftedFunction(t *testing.T) {
	l := newTestLifter()
	_, err := l.LiftFunction(0x1000)
	require.NoError(t, err)
	semFn := l.semanticFuncs[0x1000]
	require.NotNil(t, semFn)
	require.NoError(t, VerifyFunction(semFn))
}

package lifter

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/stretchr/testify/require"

	"github.com/mewmew/liftgo/bin"
)

func moduleHasFunc(l *Lifter, fn *ir.Func) bool {
	for _, f := range l.Module.Funcs {
		if f == fn {
			return true
		}
	}
	return false
}

func TestInlineSemanticCallRemovesCallToSemanticBody(t *testing.T) {
	l := newTestLifter()
	fn, err := l.LiftFunction(0x1000)
	require.NoError(t, err)

	semFn := l.semanticFuncs[0x1000]
	require.NotNil(t, semFn)

	_, call := findCallTo(fn, semFn)
	require.Nil(t, call, "wrapper should no longer call its semantic body directly after inlining")
	require.NoError(t, VerifyFunction(fn))
}

func TestDropUnusedSemanticFuncsRemovesInlinedBody(t *testing.T) {
	l := newTestLifter()
	fn, err := l.LiftFunction(0x1000)
	require.NoError(t, err)

	semFn := l.semanticFuncs[0x1000]
	require.True(t, moduleHasFunc(l, semFn))

	l.DropUnusedSemanticFuncs()

	require.False(t, moduleHasFunc(l, semFn))
	require.Same(t, semFn, l.semanticFuncs[0x1000])
	require.NoError(t, VerifyFunction(semFn))
	require.NoError(t, VerifyFunction(fn))
}

func TestDropUnusedSemanticFuncsKeepsDirectlyCalledBody(t *testing.T) {
	l := newTestLifter()
	_, err := l.LiftFunction(0x3000)
	require.NoError(t, err)

	callerSem := l.semanticFuncs[bin.Addr(0x3000)]
	calleeSem := l.semanticFuncs[bin.Addr(0x3005)]
	require.NotNil(t, callerSem)
	require.NotNil(t, calleeSem)

	l.DropUnusedSemanticFuncs()

	require.False(t, moduleHasFunc(l, callerSem), "caller's own semantic body was inlined into its wrapper and is no longer called directly")
	require.True(t, moduleHasFunc(l, calleeSem), "callee is still called directly from the caller's semantic body and must stay defined")
}

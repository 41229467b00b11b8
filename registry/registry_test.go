package registry

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/require"

	"github.com/mewmew/liftgo/arch/x86"
	"github.com/mewmew/liftgo/bin"
	"github.com/mewmew/liftgo/instsem"
	"github.com/mewmew/liftgo/lifter"
	"github.com/mewmew/liftgo/program"
)

func newTestRegistry() (*Registry, *program.Program) {
	mem := []bin.ByteRange{
		{Address: 0x1000, Bytes: []byte{0x90, 0xC3}, IsExecutable: true}, // NOP; RET
	}
	prog := program.New(nil, nil, mem, nil, nil)
	a := x86.New64()
	sem := instsem.NewX86Lifter(64)
	module := ir.NewModule()
	l := lifter.New(a, prog.MemoryProvider(), prog.TypeProvider(), prog.ControlFlowProvider(), sem, module, lifter.DefaultOptions())
	return New(l), prog
}

func TestLiftEntityRegistersResult(t *testing.T) {
	r, _ := newTestRegistry()
	fn, err := r.LiftEntity(0x1000)
	require.NoError(t, err)
	require.NotNil(t, fn)

	var seen []*ir.Func
	r.ForEachEntityAtAddress(0x1000, func(f *ir.Func) { seen = append(seen, f) })
	require.Len(t, seen, 1)
	require.Same(t, fn, seen[0])
}

func TestLiftEntityIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry()
	fn1, err := r.LiftEntity(0x1000)
	require.NoError(t, err)
	fn2, err := r.LiftEntity(0x1000)
	require.NoError(t, err)
	require.Same(t, fn1, fn2)

	var seen []*ir.Func
	r.ForEachEntityAtAddress(0x1000, func(f *ir.Func) { seen = append(seen, f) })
	require.Len(t, seen, 1)
}

func TestDeclareThenLiftEntityReusesName(t *testing.T) {
	r, _ := newTestRegistry()
	declared := r.DeclareEntity(0x1000)
	require.NotNil(t, declared)
	require.Empty(t, declared.Blocks)

	lifted, err := r.LiftEntity(0x1000)
	require.NoError(t, err)
	require.Equal(t, declared.Name(), lifted.Name())
}

func TestDeclareEntityReusesExistingLift(t *testing.T) {
	r, _ := newTestRegistry()
	lifted, err := r.LiftEntity(0x1000)
	require.NoError(t, err)

	declared := r.DeclareEntity(0x1000)
	require.Same(t, lifted, declared)
}

func TestApplySymbolsRenamesRegisteredEntity(t *testing.T) {
	mem := []bin.ByteRange{
		{Address: 0x1000, Bytes: []byte{0x90, 0xC3}, IsExecutable: true},
	}
	symbols := []program.NamedAddress{{Address: 0x1000, Name: "my_func"}}
	prog := program.New(nil, nil, mem, symbols, nil)
	a := x86.New64()
	sem := instsem.NewX86Lifter(64)
	module := ir.NewModule()
	l := lifter.New(a, prog.MemoryProvider(), prog.TypeProvider(), prog.ControlFlowProvider(), sem, module, lifter.DefaultOptions())
	r := New(l)

	fn, err := r.LiftEntity(0x1000)
	require.NoError(t, err)
	require.NotEqual(t, "my_func", fn.Name())

	r.ApplySymbols(prog)
	require.Equal(t, "my_func", fn.Name())
}

func TestFinalizeSentinelsInitializesRegisterGlobals(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.LiftEntity(0x1000)
	require.NoError(t, err)

	g := r.L.Sentinels.RegisterGlobal("RAX", types.I64)
	require.Nil(t, g.Init)

	r.FinalizeSentinels()
	require.NotNil(t, g.Init)
}

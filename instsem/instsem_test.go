package instsem

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/stretchr/testify/require"
	"golang.org/x/arch/x86/x86asm"

	"github.com/mewmew/liftgo/arch"
	"github.com/mewmew/liftgo/arch/x86"
	"github.com/mewmew/liftgo/irstate"
)

func TestLiftIntoBlockAdvancesNextPC(t *testing.T) {
	a := x86.New64()
	state := irstate.Build(a)
	fn := &ir.Func{}
	block := fn.NewBlock("")
	statePtr := ir.NewParam("state", state.PointerType())

	// NOP
	inst := arch.Instruction{PC: 0x1000, NextPC: 0x1001, Bytes: []byte{0x90}, Category: arch.CategoryNoOp, Valid: true}

	l := NewX86Lifter(64)
	l.LiftIntoBlock(block, state, statePtr, inst, false)

	require.NotEmpty(t, block.Insts)
}

func TestLiftCallWritesReturnPC(t *testing.T) {
	a := x86.New64()
	state := irstate.Build(a)
	fn := &ir.Func{}
	block := fn.NewBlock("")
	statePtr := ir.NewParam("state", state.PointerType())

	inst := arch.Instruction{
		PC: 0x2000, NextPC: 0x2005, BranchNotTakenPC: 0x2005,
		Bytes:    []byte{0xE8, 0x00, 0x00, 0x00, 0x00},
		Category: arch.CategoryDirectFunctionCall, Valid: true,
	}

	l := NewX86Lifter(64)
	l.LiftIntoBlock(block, state, statePtr, inst, false)

	// Two stores at minimum: NEXT_PC then RETURN_PC.
	require.GreaterOrEqual(t, len(block.Insts), 2)
}

func TestRegNameUppercasesDecoderOutput(t *testing.T) {
	require.Equal(t, "RAX", regName(x86asm.RAX))
}

package lifter

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/mewmew/liftgo/arch"
	"github.com/mewmew/liftgo/bin"
	"github.com/mewmew/liftgo/irstate"
)

// unimpDecoder is implemented by arch.Arch implementations that recognize
// SPARC's `unimp <imm22>` post-call structure-return encoding (spec §4.7).
// arch.Arch itself stays architecture-neutral; this lifter reaches for the
// capability only when present.
type unimpDecoder interface {
	DecodeUnimpImm22(data []byte) (imm22 uint32, ok bool)
}

// visitAfterFunctionCall continues the block following a call instruction,
// accounting for SPARC's convention of following certain calls with a
// `unimp <imm22>` word that encodes the size of an aggregate return value
// rather than being an executable instruction (spec §4.7). The resume
// address is read back from the RETURN_PC pseudo-register the call's
// semantics populated, not recomputed from the decoded instruction, so the
// PC and NEXT_PC pseudo-registers observably carry the same value that
// routes the branch (spec §4.7: "Both the PC and next-PC pseudo-registers
// are written with [the resume address]").
func (fb *funcBuilder) visitAfterFunctionCall(irblk *ir.Block, callResult *ir.InstCall, inst arch.Instruction) {
	resumeAddr, adjust := fb.loadFunctionReturnAddress(inst)

	resumePC, err := fb.l.State.LoadRegValue(irblk, fb.statePtr, irstate.ReturnPCPseudoRegister)
	if err != nil {
		resumePC = fb.pcConst(resumeAddr)
	} else if adjust != 0 {
		intTy := resumePC.Type().(*types.IntType)
		resumePC = irblk.NewAdd(resumePC, constant.NewInt(intTy, adjust))
	}
	_ = fb.l.State.StoreRegValue(irblk, fb.statePtr, fb.l.Arch.ProgramCounterRegisterName(), resumePC)
	_ = fb.l.State.StoreRegValue(irblk, fb.statePtr, irstate.NextPCPseudoRegister, resumePC)

	target := fb.getOrCreateBlock(inst.PC, fb.l.CFlow.GetRedirection(resumeAddr))
	irblk.NewBr(target.irblk)
}

// loadFunctionReturnAddress computes the address execution resumes at
// after inst's call completes, along with the byte adjustment (if any) a
// SPARC `unimp <imm22>` post-call word requires on top of the RETURN_PC
// value the call's semantics already stored.
func (fb *funcBuilder) loadFunctionReturnAddress(inst arch.Instruction) (resumeAddr bin.Addr, adjust int64) {
	cont := inst.BranchNotTakenPC
	decoder, ok := fb.l.Arch.(unimpDecoder)
	if !ok {
		return cont, 0
	}
	data := fb.l.readAt(cont, 4)
	imm22, ok := decoder.DecodeUnimpImm22(data)
	if !ok {
		return cont, 0
	}
	if imm22 == 0 {
		// A zero immediate is logged only; it is not treated as a signal
		// that the callee never returns (decided open question: this
		// lifter does not infer no-return from the encoding).
		dbg.Printf("zero-immediate unimp after call at %v", inst.PC)
	}
	return cont + 4, 4
}

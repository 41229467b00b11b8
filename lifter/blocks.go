package lifter

import (
	"fmt"

	"github.com/kr/pretty"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/mewmew/liftgo/arch"
	"github.com/mewmew/liftgo/bin"
)

// run drives the work-list-based CFG construction for fb's function,
// starting from its entry edge (spec §4.8): one block is allocated per
// distinct (from_pc, to_pc) edge, decoding continues along fall-through
// addresses until a terminating instruction is reached, and each newly
// discovered edge is pushed onto the work list exactly once.
func (fb *funcBuilder) run() error {
	fb.getOrCreateBlock(0, fb.entry)

	for len(fb.worklist) > 0 {
		e := fb.worklist[0]
		fb.worklist = fb.worklist[1:]
		if err := fb.visitEdge(e, fb.edgeBlocks[e]); err != nil {
			return err
		}
	}
	return nil
}

// getOrCreateBlock returns the block allocated for the (from, to) edge,
// creating and enqueuing it the first time that exact edge is named.
// Unlike addrBlock, this never collapses two edges that share a target
// address into one block: that collapsing happens later, during
// visitEdge's dedup step, and only when no target resolution applies.
func (fb *funcBuilder) getOrCreateBlock(from, to bin.Addr) *block {
	e := edge{from: from, to: to}
	if b, ok := fb.edgeBlocks[e]; ok {
		return b
	}
	irblk := fb.fn.NewBlock(fmt.Sprintf("loc_%s", to))
	b := &block{irblk: irblk}
	fb.edgeBlocks[e] = b
	fb.worklist = append(fb.worklist, e)
	return b
}

// visitEdge resolves one work-list edge into blk's contents. It first
// attempts target resolution (spec §4.8 step 1: tail-call/prologue-sharing
// recovery), skipped only for the function's own entry edge; failing that,
// it defers to whichever block already owns decoding e.to, if any (spec
// §4.8 step 2's fall-through/dedup check); only then does it decode fresh
// instructions into blk.
func (fb *funcBuilder) visitEdge(e edge, blk *block) error {
	skipResolution := e.to == fb.entry && e.from == 0
	return fb.decodeFrom(blk, e.to, skipResolution)
}

// spliceTailCall attempts the spec §4.5 redirect-then-resolve target
// resolution at addr: if it resolves (after control-flow redirection) to a
// known function type, irblk is terminated with a call to that function's
// semantic body and a return of its memory-pointer result, instead of
// decoding addr as more of the current function. This recovers both
// explicit tail calls (`jmp other_func`) and the case where one function's
// body falls straight through into another function's prologue.
func (fb *funcBuilder) spliceTailCall(irblk *ir.Block, addr bin.Addr) bool {
	redirected := fb.l.CFlow.GetRedirection(addr)
	if _, hasDecl := fb.l.Types.TryGetFunctionType(redirected); !hasDecl {
		return false
	}
	calleeFn := fb.l.callFunction(redirected)
	result := irblk.NewCall(calleeFn, fb.statePtr, fb.memPtr, fb.pcConst(redirected))
	irblk.NewRet(result)
	return true
}

// decodeFrom decodes instructions starting at addr, emitting their
// semantics into blk.irblk, until a control-flow-transferring instruction
// terminates the block. skipResolution suppresses the target-resolution
// check for the very first address only (the function's own entry); every
// subsequent address this loop reaches, whether by fall-through or by a
// fresh edge, is checked.
func (fb *funcBuilder) decodeFrom(blk *block, addr bin.Addr, skipResolution bool) error {
	irblk := blk.irblk

	for {
		if !skipResolution && fb.spliceTailCall(irblk, addr) {
			return nil
		}
		skipResolution = false

		if canonical, ok := fb.addrBlock[addr]; ok && canonical != blk {
			irblk.NewBr(canonical.irblk)
			return nil
		}
		fb.addrBlock[addr] = blk

		data := fb.l.readAt(addr, fb.l.Arch.MaxInstructionSize())
		inst, ok := fb.l.Arch.DecodeInstruction(addr, data)
		if !ok || !inst.Valid {
			fb.terminateError(irblk, addr)
			return nil
		}

		dbg.Printf("%s", pretty.Sprint(inst))
		fb.l.Sem.LiftIntoBlock(irblk, fb.l.State, fb.statePtr, inst, false)
		fb.l.emitTypeHints(irblk, fb.statePtr, fb.entry, inst.PC)

		delayed, hasDelay := fb.maybeDecodeDelaySlot(inst)
		if hasDelay {
			fb.l.Sem.LiftIntoBlock(irblk, fb.l.State, fb.statePtr, delayed, true)
		}

		terminal, nextAddr := fb.terminate(irblk, inst)
		if terminal {
			return nil
		}
		addr = nextAddr
	}
}

// maybeDecodeDelaySlot decodes the instruction following inst when the
// architecture says inst may carry a delay slot (spec's SPARC-specific
// delay slot handling, §4.7's neighboring concern).
func (fb *funcBuilder) maybeDecodeDelaySlot(inst arch.Instruction) (arch.Instruction, bool) {
	if !fb.l.Arch.MayHaveDelaySlot(inst) {
		return arch.Instruction{}, false
	}
	data := fb.l.readAt(inst.NextPC, fb.l.Arch.MaxInstructionSize())
	delayed, ok := fb.l.Arch.DecodeDelayedInstruction(inst.NextPC, data)
	if !ok || !delayed.Valid {
		return arch.Instruction{}, false
	}
	if !fb.l.Arch.NextInstructionIsDelayed(inst, delayed, true) {
		return arch.Instruction{}, false
	}
	return delayed, true
}

// terminate emits the terminator appropriate to inst's category, wiring
// edges to newly-discovered or already-known target blocks (spec §4.6's
// category table). It reports whether the block is now closed and, if not,
// the fall-through address the caller should continue decoding from.
func (fb *funcBuilder) terminate(irblk *ir.Block, inst arch.Instruction) (closed bool, fallThrough bin.Addr) {
	switch inst.Category {
	case arch.CategoryNormal, arch.CategoryNoOp:
		return false, inst.NextPC

	case arch.CategoryDirectJump:
		target := fb.getOrCreateBlock(inst.PC, fb.l.CFlow.GetRedirection(inst.BranchTakenPC))
		irblk.NewBr(target.irblk)
		return true, 0

	case arch.CategoryIndirectJump:
		fb.terminateIndirectJump(irblk, inst)
		return true, 0

	case arch.CategoryConditionalBranch:
		taken := fb.getOrCreateBlock(inst.PC, fb.l.CFlow.GetRedirection(inst.BranchTakenPC))
		notTaken := fb.getOrCreateBlock(inst.PC, fb.l.CFlow.GetRedirection(inst.BranchNotTakenPC))
		cond := fb.conditionValue(irblk)
		irblk.NewCondBr(cond, taken.irblk, notTaken.irblk)
		return true, 0

	case arch.CategoryConditionalIndirectJump:
		// Split: taken → the same intrinsic tail call as an unconditional
		// indirect jump; not-taken → the block for branch_not_taken_pc.
		fb.splitConditional(irblk, inst, func(takenBlk *ir.Block) {
			fb.terminateIndirectJump(takenBlk, inst)
		})
		return true, 0

	case arch.CategoryFunctionReturn:
		fb.terminateReturn(irblk, inst)
		return true, 0

	case arch.CategoryConditionalFunctionReturn:
		// Conservative lowering: treat as unconditional. Precisely
		// splitting this into a conditional return/fallthrough pair would
		// require duplicating the remaining instruction stream on the
		// not-taken edge, which this lifter does not attempt.
		fb.terminateReturn(irblk, inst)
		return true, 0

	case arch.CategoryDirectFunctionCall, arch.CategoryConditionalDirectFunctionCall:
		// Intentionally unconditional: a conditional direct call is lifted
		// exactly like an unconditional one; its predicate is not honored.
		fb.terminateCall(irblk, inst, inst.BranchTakenPC, false)
		return true, 0

	case arch.CategoryIndirectFunctionCall:
		fb.terminateCall(irblk, inst, 0, true)
		return true, 0

	case arch.CategoryConditionalIndirectFunctionCall:
		// Analogous split: taken → the call (and its post-call wiring);
		// not-taken → the block for branch_not_taken_pc, skipping the call
		// entirely.
		fb.splitConditional(irblk, inst, func(takenBlk *ir.Block) {
			fb.terminateCall(takenBlk, inst, 0, true)
		})
		return true, 0

	case arch.CategoryAsyncHyperCall:
		fb.terminateAsyncHyperCall(irblk, inst)
		return true, 0

	case arch.CategoryConditionalAsyncHyperCall:
		// Split: taken → the tail-call intrinsic; not-taken → fall through
		// to branch_not_taken_pc.
		fb.splitConditional(irblk, inst, func(takenBlk *ir.Block) {
			fb.terminateAsyncHyperCall(takenBlk, inst)
		})
		return true, 0

	case arch.CategoryError:
		fb.terminateError(irblk, inst.PC)
		return true, 0

	default:
		fb.terminateError(irblk, inst.PC)
		return true, 0
	}
}

// splitConditional implements spec §4.6's "both paths" handling shared by
// ConditionalIndirectJump, ConditionalIndirectFunctionCall, and
// ConditionalAsyncHyperCall: a fresh block holds the taken-path terminator
// emitTaken builds, a second (work-list) block covers the not-taken path
// at inst.BranchNotTakenPC, and irblk is closed with a conditional branch
// choosing between them. Unlike ConditionalFunctionReturn, none of these
// three collapse the not-taken edge away.
func (fb *funcBuilder) splitConditional(irblk *ir.Block, inst arch.Instruction, emitTaken func(*ir.Block)) {
	takenBlk := fb.fn.NewBlock(fmt.Sprintf("loc_%s_taken", inst.PC))
	emitTaken(takenBlk)

	notTaken := fb.getOrCreateBlock(inst.PC, fb.l.CFlow.GetRedirection(inst.BranchNotTakenPC))
	cond := fb.conditionValue(irblk)
	irblk.NewCondBr(cond, takenBlk, notTaken.irblk)
}

// conditionValue is a placeholder boolean condition for conditional
// branches: this lifter's instruction semantic layer (instsem) does not yet
// materialize condition-code flags as first-class IR values, so every
// conditional branch currently reads a fixed `true`. Both successor blocks
// are still constructed and linked, keeping the CFG shape faithful even
// though the runtime direction is not yet data-driven.
func (fb *funcBuilder) conditionValue(irblk *ir.Block) value.Value {
	return constant.NewInt(types.I1, 1)
}

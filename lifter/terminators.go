package lifter

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"

	"github.com/mewmew/liftgo/arch"
	"github.com/mewmew/liftgo/bin"
)

// terminateIndirectJump closes irblk with a tail call into the jump
// intrinsic sink (spec §4.6: an indirect jump's target is not known until
// runtime, so control leaves the semantic body through the same sink
// remill routes all indirect non-call transfers through).
func (fb *funcBuilder) terminateIndirectJump(irblk *ir.Block, inst arch.Instruction) {
	result := irblk.NewCall(fb.l.Sentinels.JumpIntrinsic(), fb.statePtr, fb.memPtr, fb.pcConst(inst.PC))
	irblk.NewRet(result)
}

// terminateReturn closes irblk by loading the function's return address
// (spec §4.7) and tail-calling the function-return intrinsic sink. The
// state-pointer argument is muted to `undef`: once control has left the
// semantic body through this sink, nothing downstream may depend on the
// local state structure's contents (spec §4.6 state-escape muting).
func (fb *funcBuilder) terminateReturn(irblk *ir.Block, inst arch.Instruction) {
	undefState := constant.NewUndef(fb.l.State.PointerType())
	result := irblk.NewCall(fb.l.Sentinels.FunctionReturnIntrinsic(), undefState, fb.memPtr, fb.pcConst(inst.PC))
	irblk.NewRet(result)
}

// terminateError closes irblk by tail-calling the error intrinsic sink,
// used both for instructions the decoder flags as guaranteed-trapping and
// for addresses this lifter could not decode at all (spec §4.6 category
// `Error`). The state-pointer argument is muted to `undef` for the same
// state-escape reason as terminateReturn.
func (fb *funcBuilder) terminateError(irblk *ir.Block, addr bin.Addr) {
	undefState := constant.NewUndef(fb.l.State.PointerType())
	result := irblk.NewCall(fb.l.Sentinels.ErrorIntrinsic(), undefState, fb.memPtr, fb.pcConst(addr))
	irblk.NewRet(result)
}

// terminateAsyncHyperCall closes irblk by tail-calling the async hyper call
// intrinsic sink, used for syscalls, interrupts, and other transfers that
// leave lifted code entirely (spec §4.6 category `AsyncHyperCall`).
func (fb *funcBuilder) terminateAsyncHyperCall(irblk *ir.Block, inst arch.Instruction) {
	result := irblk.NewCall(fb.l.Sentinels.AsyncHyperCallIntrinsic(), fb.statePtr, fb.memPtr, fb.pcConst(inst.PC))
	irblk.NewRet(result)
}

// terminateCall closes irblk with a call to the target function (direct or
// indirect), then hands off to the after-call continuation logic (spec
// §4.5, §4.7).
func (fb *funcBuilder) terminateCall(irblk *ir.Block, inst arch.Instruction, directTarget bin.Addr, indirect bool) {
	var callResult *ir.InstCall
	if indirect {
		callResult = irblk.NewCall(fb.l.Sentinels.FunctionCallIntrinsic(), fb.statePtr, fb.memPtr, fb.pcConst(inst.PC))
	} else {
		redirected := fb.l.CFlow.GetRedirection(directTarget)
		calleeFn := fb.l.callFunction(redirected)
		callResult = irblk.NewCall(calleeFn, fb.statePtr, fb.memPtr, fb.pcConst(redirected))
	}
	fb.visitAfterFunctionCall(irblk, callResult, inst)
}

// Package instsem implements the instruction semantic lifter: per-opcode
// injection of IR into a basic block that mutates the synthetic CPU state
// to reflect one instruction's effect (spec §2 item 5).
//
// Coverage is representative rather than exhaustive: a handful of the most
// common x86 data-movement and arithmetic opcodes are modeled precisely;
// every other opcode still advances NEXT_PC (so control-flow wiring built
// on top of this package remains correct) but otherwise leaves the state
// structure unchanged, the same "best effort, never fail" posture
// `FunctionLifter::VisitInstruction` takes when it says instruction
// lifting "can't fail".
package instsem

import (
	"log"
	"os"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/mewpkg/term"
	"golang.org/x/arch/x86/x86asm"

	"github.com/mewmew/liftgo/arch"
	"github.com/mewmew/liftgo/irstate"
)

var dbg = log.New(os.Stderr, term.MagentaBold("instsem:")+" ", 0)

// Lifter injects the semantics of one decoded instruction into an IR basic
// block.
type Lifter interface {
	LiftIntoBlock(block *ir.Block, state *irstate.State, statePtr value.Value, inst arch.Instruction, isDelayed bool)
}

// NoOpLifter implements Lifter for architectures this module can decode
// and build a CFG for (arch.Arch, spec §4.4) but has no per-opcode
// semantics written for: it advances NEXT_PC, the same fallback X86Lifter
// takes for any opcode it doesn't model, and for call-category
// instructions also records inst.BranchNotTakenPC in RETURN_PC. Used for
// SPARC, since the retrieval pack contains no SPARC instruction-semantics
// reference to ground a real one on.
type NoOpLifter struct{}

// LiftIntoBlock implements Lifter.
func (NoOpLifter) LiftIntoBlock(block *ir.Block, state *irstate.State, statePtr value.Value, inst arch.Instruction, isDelayed bool) {
	advanceNextPC(block, state, statePtr, inst)
	switch inst.Category {
	case arch.CategoryDirectFunctionCall, arch.CategoryConditionalDirectFunctionCall,
		arch.CategoryIndirectFunctionCall, arch.CategoryConditionalIndirectFunctionCall:
		typ, _ := state.RegisterType(irstate.ReturnPCPseudoRegister)
		val := constant.NewInt(typ.(*types.IntType), int64(inst.BranchNotTakenPC))
		_ = state.StoreRegValue(block, statePtr, irstate.ReturnPCPseudoRegister, val)
	}
}

// X86Lifter implements Lifter for the x86/x86-64 opcode subset this module
// models: MOV, LEA, ADD, SUB, AND, OR, XOR (register-to-register and
// register-immediate forms), PUSH and POP (which only adjust the stack
// pointer; no value is stored to or loaded from memory), NOP, and CALL
// (which records its return address in RETURN_PC). All other opcodes fall
// through to the default NEXT_PC advance only.
type X86Lifter struct {
	Mode int
}

// NewX86Lifter returns an X86Lifter decoding in the given x86asm mode (16,
// 32, or 64).
func NewX86Lifter(mode int) *X86Lifter { return &X86Lifter{Mode: mode} }

// LiftIntoBlock implements Lifter.
func (l *X86Lifter) LiftIntoBlock(block *ir.Block, state *irstate.State, statePtr value.Value, inst arch.Instruction, isDelayed bool) {
	advanceNextPC(block, state, statePtr, inst)

	decoded, err := x86asm.Decode(inst.Bytes, l.Mode)
	if err != nil || decoded.Len == 0 {
		return
	}

	switch decoded.Op {
	case x86asm.MOV:
		l.liftMov(block, state, statePtr, decoded)
	case x86asm.LEA:
		l.liftLea(block, state, statePtr, decoded)
	case x86asm.ADD:
		l.liftBinOp(block, state, statePtr, decoded, func(b *ir.Block, x, y value.Value) value.Value { return b.NewAdd(x, y) })
	case x86asm.SUB:
		l.liftBinOp(block, state, statePtr, decoded, func(b *ir.Block, x, y value.Value) value.Value { return b.NewSub(x, y) })
	case x86asm.AND:
		l.liftBinOp(block, state, statePtr, decoded, func(b *ir.Block, x, y value.Value) value.Value { return b.NewAnd(x, y) })
	case x86asm.OR:
		l.liftBinOp(block, state, statePtr, decoded, func(b *ir.Block, x, y value.Value) value.Value { return b.NewOr(x, y) })
	case x86asm.XOR:
		l.liftBinOp(block, state, statePtr, decoded, func(b *ir.Block, x, y value.Value) value.Value { return b.NewXor(x, y) })
	case x86asm.PUSH:
		l.liftPush(block, state, statePtr, decoded)
	case x86asm.POP:
		l.liftPop(block, state, statePtr, decoded)
	case x86asm.NOP:
		// No state effect beyond NEXT_PC, already advanced above.
	case x86asm.CALL:
		l.liftCall(block, state, statePtr, inst)
	default:
		dbg.Printf("no modeled semantics for opcode %v at %v", decoded.Op, inst.PC)
	}
}

// advanceNextPC stores inst.NextPC into the NEXT_PC pseudo-register. Every
// modeled and unmodeled instruction alike performs this step; the lifter's
// control-flow wiring (spec §4.6) relies on NEXT_PC being current.
func advanceNextPC(block *ir.Block, state *irstate.State, statePtr value.Value, inst arch.Instruction) {
	typ, _ := state.RegisterType(irstate.NextPCPseudoRegister)
	val := constant.NewInt(typ.(*types.IntType), int64(inst.NextPC))
	_ = state.StoreRegValue(block, statePtr, irstate.NextPCPseudoRegister, val)
}

// liftCall models a call's only externally-observable effect on our
// pseudo-register set: recording the address execution should resume at
// once the callee returns (spec §4.7's "return-PC pseudo-register").
func (l *X86Lifter) liftCall(block *ir.Block, state *irstate.State, statePtr value.Value, inst arch.Instruction) {
	typ, _ := state.RegisterType(irstate.ReturnPCPseudoRegister)
	val := constant.NewInt(typ.(*types.IntType), int64(inst.BranchNotTakenPC))
	_ = state.StoreRegValue(block, statePtr, irstate.ReturnPCPseudoRegister, val)
}

func regName(reg x86asm.Reg) string {
	name := reg.String()
	// x86asm prints sub-registers in the same case/spelling remill's
	// register tables use, uppercased to match arch/x86's table.
	upper := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper[i] = c
	}
	return string(upper)
}

func (l *X86Lifter) liftMov(block *ir.Block, state *irstate.State, statePtr value.Value, inst x86asm.Inst) {
	dstReg, ok := inst.Args[0].(x86asm.Reg)
	if !ok {
		return
	}
	dstName := enclosingName(state, dstReg)
	if dstName == "" {
		return
	}
	val := l.readOperand(block, state, statePtr, inst.Args[1])
	if val == nil {
		return
	}
	val = castTo(block, val, state, dstName)
	_ = state.StoreRegValue(block, statePtr, dstName, val)
}

func (l *X86Lifter) liftLea(block *ir.Block, state *irstate.State, statePtr value.Value, inst x86asm.Inst) {
	dstReg, ok := inst.Args[0].(x86asm.Reg)
	if !ok {
		return
	}
	mem, ok := inst.Args[1].(x86asm.Mem)
	if !ok {
		return
	}
	dstName := enclosingName(state, dstReg)
	if dstName == "" {
		return
	}
	typ, _ := state.RegisterType(dstName)
	intTy := typ.(*types.IntType)

	var addr value.Value = constant.NewInt(intTy, int64(mem.Disp))
	if mem.Base != 0 {
		base := l.readRegister(block, state, statePtr, mem.Base)
		if base != nil {
			addr = block.NewAdd(addr, castValueTo(block, base, intTy))
		}
	}
	if mem.Index != 0 && mem.Scale != 0 {
		idx := l.readRegister(block, state, statePtr, mem.Index)
		if idx != nil {
			scaled := block.NewMul(castValueTo(block, idx, intTy), constant.NewInt(intTy, int64(mem.Scale)))
			addr = block.NewAdd(addr, scaled)
		}
	}
	_ = state.StoreRegValue(block, statePtr, dstName, addr)
}

func (l *X86Lifter) liftBinOp(block *ir.Block, state *irstate.State, statePtr value.Value, inst x86asm.Inst, op func(*ir.Block, value.Value, value.Value) value.Value) {
	dstReg, ok := inst.Args[0].(x86asm.Reg)
	if !ok {
		return
	}
	dstName := enclosingName(state, dstReg)
	if dstName == "" {
		return
	}
	lhs, err := state.LoadRegValue(block, statePtr, dstName)
	if err != nil {
		return
	}
	rhs := l.readOperand(block, state, statePtr, inst.Args[1])
	if rhs == nil {
		return
	}
	rhs = castTo(block, rhs, state, dstName)
	result := op(block, lhs, rhs)
	_ = state.StoreRegValue(block, statePtr, dstName, result)
}

func (l *X86Lifter) liftPush(block *ir.Block, state *irstate.State, statePtr value.Value, inst x86asm.Inst) {
	l.adjustStack(block, state, statePtr, -int64(l.wordSize()))
}

func (l *X86Lifter) liftPop(block *ir.Block, state *irstate.State, statePtr value.Value, inst x86asm.Inst) {
	l.adjustStack(block, state, statePtr, int64(l.wordSize()))
}

func (l *X86Lifter) wordSize() int {
	if l.Mode == 64 {
		return 8
	}
	return 4
}

func (l *X86Lifter) adjustStack(block *ir.Block, state *irstate.State, statePtr value.Value, delta int64) {
	spName := state.Arch.StackPointerRegisterName()
	sp, err := state.LoadRegValue(block, statePtr, spName)
	if err != nil {
		return
	}
	typ, _ := state.RegisterType(spName)
	intTy := typ.(*types.IntType)
	result := block.NewAdd(sp, constant.NewInt(intTy, delta))
	_ = state.StoreRegValue(block, statePtr, spName, result)
}

func (l *X86Lifter) readOperand(block *ir.Block, state *irstate.State, statePtr value.Value, arg x86asm.Arg) value.Value {
	switch a := arg.(type) {
	case x86asm.Reg:
		return l.readRegister(block, state, statePtr, a)
	case x86asm.Imm:
		return constant.NewInt(types.I64, int64(a))
	default:
		return nil
	}
}

func (l *X86Lifter) readRegister(block *ir.Block, state *irstate.State, statePtr value.Value, reg x86asm.Reg) value.Value {
	name := enclosingName(state, reg)
	if name == "" {
		return nil
	}
	v, err := state.LoadRegValue(block, statePtr, name)
	if err != nil {
		return nil
	}
	return v
}

// enclosingName maps an x86asm register to the top-level register name
// modeled in state, collapsing sub-register references (e.g. EAX) onto
// their 64-bit enclosing field on x86-64.
func enclosingName(state *irstate.State, reg x86asm.Reg) string {
	name := regName(reg)
	if archReg, ok := state.Arch.RegisterByName(name); ok {
		return archReg.EnclosingName
	}
	return ""
}

func castTo(block *ir.Block, v value.Value, state *irstate.State, regName string) value.Value {
	typ, ok := state.RegisterType(regName)
	if !ok {
		return v
	}
	return castValueTo(block, v, typ.(*types.IntType))
}

func castValueTo(block *ir.Block, v value.Value, want *types.IntType) value.Value {
	have, ok := v.Type().(*types.IntType)
	if !ok || have.BitSize == want.BitSize {
		return v
	}
	if have.BitSize > want.BitSize {
		return block.NewTrunc(v, want)
	}
	return block.NewZExt(v, want)
}

// Package x86 implements the arch.Arch contract for the x86 and x86-64
// architectures, built on top of golang.org/x/arch/x86/x86asm.
package x86

import (
	"log"
	"os"

	"github.com/mewpkg/term"
	"golang.org/x/arch/x86/x86asm"

	"github.com/mewmew/liftgo/arch"
	"github.com/mewmew/liftgo/bin"
)

var (
	// dbg is a logger which logs debug messages with "x86:" prefix to
	// standard error.
	dbg = log.New(os.Stderr, term.MagentaBold("x86:")+" ", 0)
	// warn is a logger which logs warning messages with "warning:" prefix to
	// standard error.
	warn = log.New(os.Stderr, term.RedBold("warning:")+" ", 0)
)

// Arch implements arch.Arch for x86/x86-64. x86 and x86-64 have no delay
// slots, and are never SPARC.
type Arch struct {
	// mode is the x86asm decode mode: 16, 32 or 64.
	mode int
}

// New64 returns the x86-64 architecture.
func New64() *Arch { return &Arch{mode: 64} }

// New32 returns the 32-bit x86 architecture.
func New32() *Arch { return &Arch{mode: 32} }

// Name implements arch.Arch.
func (a *Arch) Name() string {
	if a.mode == 64 {
		return "x86_64"
	}
	return "x86"
}

// AddressSize implements arch.Arch.
func (a *Arch) AddressSize() int {
	if a.mode == 64 {
		return 64
	}
	return 32
}

// MaxInstructionSize implements arch.Arch. x86 instructions are at most 15
// bytes.
func (a *Arch) MaxInstructionSize() int { return 15 }

// IsSPARC implements arch.Arch.
func (a *Arch) IsSPARC() bool { return false }

// ProgramCounterRegisterName implements arch.Arch.
func (a *Arch) ProgramCounterRegisterName() string {
	if a.mode == 64 {
		return "RIP"
	}
	return "EIP"
}

// StackPointerRegisterName implements arch.Arch.
func (a *Arch) StackPointerRegisterName() string {
	if a.mode == 64 {
		return "RSP"
	}
	return "ESP"
}

// registers32 and registers64 list the top-level general purpose registers
// modeled for each mode, enclosing their sub-register aliases.
var registers64 = []arch.Register{
	{Name: "RAX", SizeBits: 64, EnclosingName: "RAX"},
	{Name: "EAX", SizeBits: 32, EnclosingName: "RAX"},
	{Name: "RBX", SizeBits: 64, EnclosingName: "RBX"},
	{Name: "EBX", SizeBits: 32, EnclosingName: "RBX"},
	{Name: "RCX", SizeBits: 64, EnclosingName: "RCX"},
	{Name: "ECX", SizeBits: 32, EnclosingName: "RCX"},
	{Name: "RDX", SizeBits: 64, EnclosingName: "RDX"},
	{Name: "EDX", SizeBits: 32, EnclosingName: "RDX"},
	{Name: "RSI", SizeBits: 64, EnclosingName: "RSI"},
	{Name: "RDI", SizeBits: 64, EnclosingName: "RDI"},
	{Name: "RBP", SizeBits: 64, EnclosingName: "RBP"},
	{Name: "RSP", SizeBits: 64, EnclosingName: "RSP"},
	{Name: "R8", SizeBits: 64, EnclosingName: "R8"},
	{Name: "R9", SizeBits: 64, EnclosingName: "R9"},
	{Name: "R10", SizeBits: 64, EnclosingName: "R10"},
	{Name: "R11", SizeBits: 64, EnclosingName: "R11"},
	{Name: "R12", SizeBits: 64, EnclosingName: "R12"},
	{Name: "R13", SizeBits: 64, EnclosingName: "R13"},
	{Name: "R14", SizeBits: 64, EnclosingName: "R14"},
	{Name: "R15", SizeBits: 64, EnclosingName: "R15"},
	{Name: "RIP", SizeBits: 64, EnclosingName: "RIP"},
}

var registers32 = []arch.Register{
	{Name: "EAX", SizeBits: 32, EnclosingName: "EAX"},
	{Name: "EBX", SizeBits: 32, EnclosingName: "EBX"},
	{Name: "ECX", SizeBits: 32, EnclosingName: "ECX"},
	{Name: "EDX", SizeBits: 32, EnclosingName: "EDX"},
	{Name: "ESI", SizeBits: 32, EnclosingName: "ESI"},
	{Name: "EDI", SizeBits: 32, EnclosingName: "EDI"},
	{Name: "EBP", SizeBits: 32, EnclosingName: "EBP"},
	{Name: "ESP", SizeBits: 32, EnclosingName: "ESP"},
	{Name: "EIP", SizeBits: 32, EnclosingName: "EIP"},
}

func (a *Arch) registerTable() []arch.Register {
	if a.mode == 64 {
		return registers64
	}
	return registers32
}

// RegisterByName implements arch.Arch.
func (a *Arch) RegisterByName(name string) (arch.Register, bool) {
	for _, reg := range a.registerTable() {
		if reg.Name == name {
			return reg, true
		}
	}
	return arch.Register{}, false
}

// ForEachRegister implements arch.Arch.
func (a *Arch) ForEachRegister(fn func(arch.Register)) {
	for _, reg := range a.registerTable() {
		fn(reg)
	}
}

// MayHaveDelaySlot implements arch.Arch. x86 has no delay slots.
func (a *Arch) MayHaveDelaySlot(inst arch.Instruction) bool { return false }

// NextInstructionIsDelayed implements arch.Arch. x86 has no delay slots.
func (a *Arch) NextInstructionIsDelayed(inst, delayed arch.Instruction, onTakenPath bool) bool {
	return false
}

// DecodeDelayedInstruction implements arch.Arch. x86 never calls this since
// MayHaveDelaySlot always returns false, but it is implemented for
// interface completeness by forwarding to the normal decode path.
func (a *Arch) DecodeDelayedInstruction(addr bin.Addr, data []byte) (arch.Instruction, bool) {
	return a.DecodeInstruction(addr, data)
}

// DecodeInstruction implements arch.Arch by decoding a single x86
// instruction and classifying its control-flow category.
func (a *Arch) DecodeInstruction(addr bin.Addr, data []byte) (arch.Instruction, bool) {
	inst, err := x86asm.Decode(data, a.mode)
	if err != nil {
		warn.Printf("unable to decode instruction at %v: %v", addr, err)
		return arch.Instruction{PC: addr, Valid: false, Category: arch.CategoryInvalid}, false
	}
	if inst.Len == 0 {
		return arch.Instruction{PC: addr, Valid: false, Category: arch.CategoryInvalid}, false
	}

	out := arch.Instruction{
		PC:       addr,
		NextPC:   addr + bin.Addr(inst.Len),
		Bytes:    append([]byte(nil), data[:inst.Len]...),
		Mnemonic: inst.Op.String(),
		Valid:    true,
	}
	out.BranchNotTakenPC = out.NextPC
	out.Category = categorize(inst, addr, &out)
	dbg.Printf("decoded %v at %v", out.Mnemonic, addr)
	return out, true
}

// categorize maps a decoded x86 instruction onto arch.Category, filling in
// BranchTakenPC when the target is statically known.
func categorize(inst x86asm.Inst, addr bin.Addr, out *arch.Instruction) arch.Category {
	switch inst.Op {
	case x86asm.JMP:
		if target, ok := relTarget(inst, addr); ok {
			out.BranchTakenPC = target
			return arch.CategoryDirectJump
		}
		return arch.CategoryIndirectJump

	case x86asm.CALL:
		if target, ok := relTarget(inst, addr); ok {
			out.BranchTakenPC = target
			return arch.CategoryDirectFunctionCall
		}
		return arch.CategoryIndirectFunctionCall

	case x86asm.RET:
		return arch.CategoryFunctionReturn

	case x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JE, x86asm.JG,
		x86asm.JGE, x86asm.JL, x86asm.JLE, x86asm.JNE, x86asm.JNO, x86asm.JNP,
		x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JS, x86asm.JCXZ, x86asm.JECXZ,
		x86asm.JRCXZ, x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		if target, ok := relTarget(inst, addr); ok {
			out.BranchTakenPC = target
		} else {
			out.BranchTakenPC = out.NextPC
		}
		return arch.CategoryConditionalBranch

	case x86asm.UD2, x86asm.UD1, x86asm.HLT:
		return arch.CategoryError

	case x86asm.SYSCALL, x86asm.SYSENTER, x86asm.INT, x86asm.INT3, x86asm.BOUND:
		return arch.CategoryAsyncHyperCall

	case x86asm.NOP:
		return arch.CategoryNoOp

	default:
		return arch.CategoryNormal
	}
}

// relTarget computes the absolute branch target of inst, if its first
// argument is a relative displacement.
func relTarget(inst x86asm.Inst, addr bin.Addr) (bin.Addr, bool) {
	if len(inst.Args) == 0 || inst.Args[0] == nil {
		return 0, false
	}
	rel, ok := inst.Args[0].(x86asm.Rel)
	if !ok {
		return 0, false
	}
	return addr + bin.Addr(inst.Len) + bin.Addr(int64(rel)), true
}

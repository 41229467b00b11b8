// Package sparc implements the arch.Arch contract for 32-bit SPARC. Unlike
// arch/x86, no third-party SPARC disassembler is available anywhere in the
// ecosystem surveyed for this lifter, so only the fixed-width instruction
// fields actually required to drive control flow and to recognize the
// `unimp <imm22>` structure-return encoding (spec §4.7) are decoded
// directly from the 4-byte instruction word.
package sparc

import (
	"github.com/mewmew/liftgo/arch"
	"github.com/mewmew/liftgo/bin"
)

// Arch implements arch.Arch for 32-bit SPARC.
type Arch struct{}

// New returns the 32-bit SPARC architecture.
func New() *Arch { return &Arch{} }

// Name implements arch.Arch.
func (a *Arch) Name() string { return "sparc32" }

// AddressSize implements arch.Arch.
func (a *Arch) AddressSize() int { return 32 }

// MaxInstructionSize implements arch.Arch. Every SPARC instruction is 4
// bytes.
func (a *Arch) MaxInstructionSize() int { return 4 }

// IsSPARC implements arch.Arch.
func (a *Arch) IsSPARC() bool { return true }

// ProgramCounterRegisterName implements arch.Arch.
func (a *Arch) ProgramCounterRegisterName() string { return "PC" }

// StackPointerRegisterName implements arch.Arch.
func (a *Arch) StackPointerRegisterName() string { return "O6" }

var registers = []arch.Register{
	{Name: "O6", SizeBits: 32, EnclosingName: "O6"},
	{Name: "O7", SizeBits: 32, EnclosingName: "O7"},
	{Name: "PC", SizeBits: 32, EnclosingName: "PC"},
	{Name: "NPC", SizeBits: 32, EnclosingName: "NPC"},
}

// RegisterByName implements arch.Arch.
func (a *Arch) RegisterByName(name string) (arch.Register, bool) {
	for _, reg := range registers {
		if reg.Name == name {
			return reg, true
		}
	}
	return arch.Register{}, false
}

// ForEachRegister implements arch.Arch.
func (a *Arch) ForEachRegister(fn func(arch.Register)) {
	for _, reg := range registers {
		fn(reg)
	}
}

// MayHaveDelaySlot implements arch.Arch. Every SPARC control transfer other
// than a trapping instruction has a delay slot.
func (a *Arch) MayHaveDelaySlot(inst arch.Instruction) bool {
	switch inst.Category {
	case arch.CategoryDirectJump, arch.CategoryIndirectJump,
		arch.CategoryConditionalBranch, arch.CategoryFunctionReturn,
		arch.CategoryDirectFunctionCall, arch.CategoryIndirectFunctionCall:
		return true
	default:
		return false
	}
}

// NextInstructionIsDelayed implements arch.Arch. SPARC's annul bit (bit 29
// of the branch word) suppresses the delay slot on the path it names; when
// unset the delay slot always executes.
func (a *Arch) NextInstructionIsDelayed(inst, delayed arch.Instruction, onTakenPath bool) bool {
	annul, hasAnnul, annulTaken := annulBit(inst)
	if !hasAnnul || !annul {
		return true
	}
	// An annulled delay slot executes only on the path the annul bit favors.
	return onTakenPath == annulTaken
}

// word decodes the big-endian 4-byte instruction word at the start of
// data, if fully present.
func word(data []byte) (uint32, bool) {
	if len(data) < 4 {
		return 0, false
	}
	return uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]), true
}

// annulBit extracts SPARC's conditional-branch annul bit, if inst is a
// format-0 (Bicc/FBfcc/CBcc) branch.
func annulBit(inst arch.Instruction) (annul, has, favorsTaken bool) {
	w, ok := word(inst.Bytes)
	if !ok {
		return false, false, false
	}
	op := (w >> 30) & 0x3
	if op != 0 {
		return false, false, false
	}
	return (w>>29)&1 == 1, true, true
}

// UnimpImm22 decodes a 4-byte SPARC instruction word as a `unimp <imm22>`
// instruction (format 0a: op == 0, op2 == 0), returning the encoded
// immediate. Grounded on the Format0a bit layout documented in the
// structure-return handling of the call-site post-processing step.
func UnimpImm22(bytes4 [4]byte) (imm22 uint32, ok bool) {
	w, _ := word(bytes4[:])
	op := (w >> 30) & 0x3
	op2 := (w >> 22) & 0x7
	if op != 0 || op2 != 0 {
		return 0, false
	}
	return w & 0x3FFFFF, true
}

// DecodeUnimpImm22 decodes data as a `unimp <imm22>` instruction word, for
// callers outside this package (the function lifter's post-call
// structure-return handling, spec §4.7) that only have an arch.Arch handle
// and must type-assert to reach this SPARC-specific decode.
func (a *Arch) DecodeUnimpImm22(data []byte) (imm22 uint32, ok bool) {
	if len(data) < 4 {
		return 0, false
	}
	var b4 [4]byte
	copy(b4[:], data[:4])
	return UnimpImm22(b4)
}

// DecodeInstruction implements arch.Arch. It decodes enough of the 4-byte
// word to drive control flow: Bicc conditional branches, CALL, and the trap
// instructions recognized elsewhere by this lifter. Any other word is
// treated as CategoryNormal, since full SPARC instruction semantics are out
// of scope (no semantic lifter table exists for SPARC in this module).
func (a *Arch) DecodeInstruction(addr bin.Addr, data []byte) (arch.Instruction, bool) {
	w, ok := word(data)
	if !ok {
		return arch.Instruction{PC: addr, Valid: false, Category: arch.CategoryInvalid}, false
	}

	out := arch.Instruction{
		PC:               addr,
		NextPC:           addr + 4,
		BranchNotTakenPC: addr + 4,
		Bytes:            append([]byte(nil), data[:4]...),
		Valid:            true,
	}

	op := (w >> 30) & 0x3
	op2 := (w >> 22) & 0x7

	switch {
	case op == 0 && op2 == 0:
		out.Mnemonic = "unimp"
		out.Category = arch.CategoryError

	case op == 0 && op2 == 0x2:
		// Bicc: conditional branch, disp22 sign-extended.
		out.Mnemonic = "bicc"
		disp := signExtend(w&0x3FFFFF, 22) << 2
		out.BranchTakenPC = addr + bin.Addr(int64(disp))
		cond := (w >> 25) & 0xF
		switch cond {
		case 0x8: // ba (always)
			out.Category = arch.CategoryDirectJump
		case 0x0: // bn (never)
			out.Category = arch.CategoryNormal
		default:
			out.Category = arch.CategoryConditionalBranch
		}

	case op == 1:
		// CALL, disp30.
		out.Mnemonic = "call"
		disp := int64(w&0x3FFFFFFF) << 2
		out.BranchTakenPC = addr + bin.Addr(disp)
		out.Category = arch.CategoryDirectFunctionCall

	default:
		out.Category = arch.CategoryNormal
	}
	return out, true
}

// DecodeDelayedInstruction implements arch.Arch by forwarding to the normal
// decode path; delay-slot instructions on SPARC share the same encoding.
func (a *Arch) DecodeDelayedInstruction(addr bin.Addr, data []byte) (arch.Instruction, bool) {
	return a.DecodeInstruction(addr, data)
}

// signExtend sign-extends the low bits-wide field of v.
func signExtend(v uint32, bits int) int32 {
	shift := 32 - bits
	return int32(v<<uint(shift)) >> uint(shift)
}

// Package irstate builds the synthetic CPU state representation that the
// function lifter threads through every lifted instruction (spec §4.9),
// along with the sentinel external globals and intrinsic declarations that
// form part of this lifter's output ABI (spec §6, §9).
package irstate

import (
	"github.com/llir/llvm/ir/types"

	"github.com/mewmew/liftgo/arch"
)

// NextPCPseudoRegister and ReturnPCPseudoRegister name two scratch fields
// carried in every State alongside the architectural registers: NEXT_PC
// holds the address lifted code will fall through to, and RETURN_PC holds
// the address a call instruction's semantics computed as its return
// target (spec §4.7, §4.8's "return-PC pseudo-register").
const (
	NextPCPseudoRegister   = "NEXT_PC"
	ReturnPCPseudoRegister = "RETURN_PC"
)

// State describes the synthetic CPU state structure for one architecture:
// a struct type with one field per top-level register plus the NEXT_PC and
// RETURN_PC pseudo-registers, and the field index of each by name for
// quick address-of computation.
type State struct {
	Arch     arch.Arch
	StructTy *types.StructType
	fieldOf  map[string]int
	regOf    map[string]arch.Register
}

// Build constructs the State layout for a, enumerating its top-level
// registers (those that are their own enclosing register) in the order
// a.ForEachRegister yields them, then appending the NEXT_PC and RETURN_PC
// pseudo-registers sized like the program counter. Sub-registers (e.g.
// x86's EAX as a view into RAX) are not given independent fields; the
// instsem package maps a sub-register reference onto its enclosing
// register's field, the same way remill's per-architecture State
// structures only expose top-level registers as ground truth storage.
func Build(a arch.Arch) *State {
	s := &State{
		Arch:    a,
		fieldOf: make(map[string]int),
		regOf:   make(map[string]arch.Register),
	}
	var fields []types.Type
	addField := func(reg arch.Register) {
		s.fieldOf[reg.Name] = len(fields)
		s.regOf[reg.Name] = reg
		fields = append(fields, types.NewInt(uint64(reg.SizeBits)))
	}
	a.ForEachRegister(func(reg arch.Register) {
		if reg.IsTopLevel() {
			addField(reg)
		}
	})
	pcReg, _ := a.RegisterByName(a.ProgramCounterRegisterName())
	pcBits := pcReg.SizeBits
	if pcBits == 0 {
		pcBits = a.AddressSize()
	}
	addField(arch.Register{Name: NextPCPseudoRegister, SizeBits: pcBits, EnclosingName: NextPCPseudoRegister})
	addField(arch.Register{Name: ReturnPCPseudoRegister, SizeBits: pcBits, EnclosingName: ReturnPCPseudoRegister})
	s.StructTy = types.NewStruct(fields...)
	return s
}

// FieldIndex returns the struct field index backing the named top-level
// register, if any.
func (s *State) FieldIndex(regName string) (int, bool) {
	i, ok := s.fieldOf[regName]
	return i, ok
}

// RegisterType returns the IR integer type of the named top-level
// register.
func (s *State) RegisterType(regName string) (types.Type, bool) {
	reg, ok := s.regOf[regName]
	if !ok {
		return nil, false
	}
	return types.NewInt(uint64(reg.SizeBits)), true
}

// PointerType returns the pointer-to-struct type used wherever a state
// pointer argument is needed.
func (s *State) PointerType() *types.PointerType {
	return types.NewPointer(s.StructTy)
}

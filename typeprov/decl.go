// Package typeprov implements the type provider: the address-keyed oracle
// of function declarations, global variable declarations, and per-
// instruction register type hints that the function lifter consults (spec
// §4.2).
package typeprov

import (
	"github.com/llir/llvm/ir/types"
	"github.com/pkg/errors"

	"github.com/mewmew/liftgo/bin"
)

// ValueDecl is a location: either a named register, or a
// (base-register, signed-offset) memory location. Exactly one of the two
// forms is set (spec §3).
type ValueDecl struct {
	// Register, when non-empty and IsMemory is false, names the register
	// holding the value.
	Register string
	// IsMemory indicates the memory form is in use.
	IsMemory bool
	// MemRegister is the base register of the memory form.
	MemRegister string
	// MemOffset is the signed displacement from MemRegister.
	MemOffset int64
}

// NewRegisterValueDecl builds a register-resident ValueDecl.
func NewRegisterValueDecl(register string) ValueDecl {
	return ValueDecl{Register: register}
}

// NewMemoryValueDecl builds a memory-resident ValueDecl.
func NewMemoryValueDecl(baseRegister string, offset int64) ValueDecl {
	return ValueDecl{IsMemory: true, MemRegister: baseRegister, MemOffset: offset}
}

// Validate enforces the "exactly one form" invariant.
func (v ValueDecl) Validate() error {
	hasReg := v.Register != ""
	hasMem := v.IsMemory && v.MemRegister != ""
	switch {
	case hasReg && hasMem:
		return errors.New("value declaration cannot be both register- and memory-resident")
	case !hasReg && !hasMem:
		return errors.New("value declaration must be either register- or memory-resident")
	default:
		return nil
	}
}

// ParameterDecl is a ValueDecl with an optional name and high-level type.
type ParameterDecl struct {
	ValueDecl
	Name string
	Type types.Type
}

// TypedRegisterDecl is a per-instruction lifting hint (spec §3). It never
// alters semantics; it only improves later pointer typing (spec §4.11).
type TypedRegisterDecl struct {
	InstAddr bin.Addr
	Register string
	Type     types.Type
	// Value, when non-nil, is a known concrete value for Register at
	// InstAddr.
	Value *uint64
}

// FunctionDecl is the declared contract of a machine-code function (spec
// §3).
type FunctionDecl struct {
	Address Addr
	Name    string

	Params  []ParameterDecl
	Returns []ValueDecl

	ReturnAddress ValueDecl

	// ReturnStackPointerRegister and ReturnStackPointerOffset describe the
	// value of the stack pointer on exit, relative to its value on entry.
	ReturnStackPointerRegister string
	ReturnStackPointerOffset   int64

	RegisterInfo []TypedRegisterDecl

	IsNoReturn bool
	IsVariadic bool

	// CallingConvention is an arch/ABI-specific calling convention
	// identifier, carried opaquely by this package.
	CallingConvention int
}

// Addr aliases bin.Addr for brevity within this package's declarations.
type Addr = bin.Addr

// GlobalVarDecl is a declared global variable (spec §3).
type GlobalVarDecl struct {
	Address Addr
	Type    types.Type
}

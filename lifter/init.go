package lifter

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/mewmew/liftgo/arch"
)

// initializeState populates the freshly-allocated state structure at
// statePtr according to the lifter's configured
// StateStructureInitializationProcedure (spec §6).
func (l *Lifter) initializeState(block *ir.Block, statePtr value.Value) {
	switch l.Options.StateInit {
	case StateInitNone:
		// Leave the alloca's contents unspecified.
	case StateInitZeroes:
		l.zeroState(block, statePtr)
	case StateInitUndef:
		l.undefState(block, statePtr)
	case StateInitGlobalVars:
		l.copyStateFromGlobals(block, statePtr)
	case StateInitGlobalVarsZeroes:
		l.zeroState(block, statePtr)
		l.copyStateFromGlobals(block, statePtr)
	case StateInitGlobalVarsUndef:
		l.undefState(block, statePtr)
		l.copyStateFromGlobals(block, statePtr)
	}
}

// zeroState stores a zero value into every top-level register field.
func (l *Lifter) zeroState(block *ir.Block, statePtr value.Value) {
	l.forEachStateField(func(name string, typ types.Type) {
		zero := constant.NewInt(typ.(*types.IntType), 0)
		_ = l.State.StoreRegValue(block, statePtr, name, zero)
	})
}

// undefState stores `undef` into every top-level register field.
func (l *Lifter) undefState(block *ir.Block, statePtr value.Value) {
	l.forEachStateField(func(name string, typ types.Type) {
		_ = l.State.StoreRegValue(block, statePtr, name, constant.NewUndef(typ))
	})
}

// copyStateFromGlobals stores each top-level register's current value (as
// tracked by its `__anvill_reg_*` sentinel global) into the local state
// structure. This is this lifter's equivalent of seeding a freshly-entered
// function's register file from whatever external analysis populated the
// sentinel globals (spec §6's GlobalVars initialization mode).
func (l *Lifter) copyStateFromGlobals(block *ir.Block, statePtr value.Value) {
	l.forEachStateField(func(name string, typ types.Type) {
		g := l.Sentinels.RegisterGlobal(name, typ)
		loaded := block.NewLoad(typ, g)
		_ = l.State.StoreRegValue(block, statePtr, name, loaded)
	})
}

// forEachStateField invokes fn once per architectural register field in
// the state structure (the NEXT_PC/RETURN_PC pseudo-registers are skipped:
// they have no corresponding sentinel global and no meaningful zero/undef
// seeding role at function entry).
func (l *Lifter) forEachStateField(fn func(name string, typ types.Type)) {
	l.Arch.ForEachRegister(func(reg arch.Register) {
		if !reg.IsTopLevel() {
			return
		}
		typ, ok := l.State.RegisterType(reg.Name)
		if !ok {
			return
		}
		fn(reg.Name, typ)
	})
}

package irstate

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"
)

// AddressOf emits a getelementptr into block that computes the address of
// the named register (or pseudo-register) field within the state structure
// pointed to by statePtr, returning the pointer value and the register's
// element type.
func (s *State) AddressOf(block *ir.Block, statePtr value.Value, regName string) (value.Value, types.Type, error) {
	idx, ok := s.fieldOf[regName]
	if !ok {
		return nil, nil, errors.Errorf("unknown register %q in synthetic state", regName)
	}
	elemType := s.StructTy.Fields[idx]
	zero := constant.NewInt(types.I32, 0)
	fieldIdx := constant.NewInt(types.I32, int64(idx))
	gep := block.NewGetElementPtr(s.StructTy, statePtr, zero, fieldIdx)
	return gep, elemType, nil
}

// LoadRegValue loads the current value of the named register from state.
func (s *State) LoadRegValue(block *ir.Block, statePtr value.Value, regName string) (value.Value, error) {
	addr, elemType, err := s.AddressOf(block, statePtr, regName)
	if err != nil {
		return nil, err
	}
	return block.NewLoad(elemType, addr), nil
}

// StoreRegValue stores val into the named register in state.
func (s *State) StoreRegValue(block *ir.Block, statePtr value.Value, regName string, val value.Value) error {
	addr, _, err := s.AddressOf(block, statePtr, regName)
	if err != nil {
		return err
	}
	block.NewStore(val, addr)
	return nil
}

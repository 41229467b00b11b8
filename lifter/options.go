// Package lifter implements the function lifter: the component that walks
// a machine-code function's control flow graph and emits an LLVM IR
// function whose semantic body threads a synthetic CPU state structure,
// wrapped by a calling-convention-native function that loads arguments
// into that state and extracts the return value back out (spec §4.5-§4.9).
package lifter

import "github.com/pkg/errors"

// StateStructureInitializationProcedure selects how a lifted function's
// entry block populates its local copy of the synthetic CPU state before
// running any instruction semantics (spec §6).
type StateStructureInitializationProcedure int

const (
	// StateInitNone performs no initialization; the state structure's
	// initial contents are whatever an `alloca` happens to contain.
	StateInitNone StateStructureInitializationProcedure = iota
	// StateInitZeroes zero-initializes the entire state structure.
	StateInitZeroes
	// StateInitUndef leaves every field `undef`, permitting the most
	// aggressive optimization at the cost of undefined reads of
	// never-written registers.
	StateInitUndef
	// StateInitGlobalVars copies every register's value in from its
	// `__anvill_reg_*` sentinel global.
	StateInitGlobalVars
	// StateInitGlobalVarsZeroes zero-initializes every register field, then
	// copies each register's value in from its sentinel global.
	StateInitGlobalVarsZeroes
	// StateInitGlobalVarsUndef sets every register field to `undef`, then
	// copies each register's value in from its sentinel global.
	StateInitGlobalVarsUndef
)

// stateInitNames maps the `state_struct_init_procedure` strings spec §6
// recognizes onto their StateStructureInitializationProcedure value, for
// YAML-driven option files (cmd/anvlift's `--options` flag).
var stateInitNames = map[string]StateStructureInitializationProcedure{
	"None":               StateInitNone,
	"Zeroes":             StateInitZeroes,
	"Undef":              StateInitUndef,
	"GlobalVars":         StateInitGlobalVars,
	"GlobalVars+Zeroes":  StateInitGlobalVarsZeroes,
	"GlobalVars+Undef":   StateInitGlobalVarsUndef,
}

// UnmarshalYAML decodes one of the `state_struct_init_procedure` strings
// spec §6 names, so a LifterOptions YAML file can write them literally
// rather than as a raw integer.
func (p *StateStructureInitializationProcedure) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, ok := stateInitNames[s]
	if !ok {
		return errors.Errorf("unknown state_struct_init_procedure %q", s)
	}
	*p = v
	return nil
}

// Options configures one Lifter instance (spec §6's per-run options).
type Options struct {
	// StateInit selects the state structure initialization procedure.
	StateInit StateStructureInitializationProcedure `yaml:"state_struct_init_procedure"`
	// SymbolicProgramCounter is read from option files but not consulted by
	// the lifter: the program counter passed to the semantic body is always
	// a concrete integer equal to the function address.
	SymbolicProgramCounter bool `yaml:"symbolic_program_counter"`
	// SymbolicStackPointer is read from option files but not consulted by
	// the lifter: the stack pointer is never initialized from `__anvill_sp`.
	SymbolicStackPointer bool `yaml:"symbolic_stack_pointer"`
	// SymbolicReturnAddress is read from option files but not consulted by
	// the lifter: no return address is stored from `__anvill_ra`.
	SymbolicReturnAddress bool `yaml:"symbolic_return_address"`
	// StoreInferredRegisterValues, when true, emits a store of a type
	// hint's concrete Value (if present) into the corresponding state field
	// at the hinted instruction, in addition to the type taint call.
	StoreInferredRegisterValues bool `yaml:"store_inferred_register_values"`
	// SymbolicRegisterTypes enables the type-taint calls emitted for
	// pointer-typed register hints; when false, no taint call is emitted.
	SymbolicRegisterTypes bool `yaml:"symbolic_register_types"`
}

// DefaultOptions returns the conservative default configuration: no state
// pre-initialization, symbolic reasoning disabled, inferred values not
// stored, register type taints always emitted.
func DefaultOptions() Options {
	return Options{
		StateInit:              StateInitNone,
		SymbolicRegisterTypes:  true,
	}
}

package lifter

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOptionsUnmarshalYAML(t *testing.T) {
	data := []byte(`
symbolic_program_counter: true
store_inferred_register_values: true
state_struct_init_procedure: GlobalVars+Zeroes
`)
	var opts Options
	require.NoError(t, yaml.Unmarshal(data, &opts))
	require.True(t, opts.SymbolicProgramCounter)
	require.True(t, opts.StoreInferredRegisterValues)
	require.Equal(t, StateInitGlobalVarsZeroes, opts.StateInit)
}

func TestOptionsUnmarshalYAMLRejectsUnknownProcedure(t *testing.T) {
	data := []byte(`state_struct_init_procedure: Bogus`)
	var opts Options
	require.Error(t, yaml.Unmarshal(data, &opts))
}

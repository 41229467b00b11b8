package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mewmew/liftgo/bin"
	"github.com/mewmew/liftgo/lifter"
	"github.com/mewmew/liftgo/program"
	"github.com/mewmew/liftgo/specfmt"
	"github.com/mewmew/liftgo/typeprov"
)

func TestResolveArchKnownNames(t *testing.T) {
	for _, name := range []string{"x86_64", "amd64", "x86", "i386", "sparc"} {
		a, sem, err := resolveArch(name)
		require.NoError(t, err)
		require.NotNil(t, a)
		require.NotNil(t, sem)
	}
}

func TestResolveArchUnknownName(t *testing.T) {
	_, _, err := resolveArch("z80")
	require.Error(t, err)
}

func TestResolveArchEmptyName(t *testing.T) {
	_, _, err := resolveArch("")
	require.Error(t, err)
}

func TestLiftSpecLiftsDeclaredFunctions(t *testing.T) {
	mem := []bin.ByteRange{
		{Address: 0x1000, Bytes: []byte{0x90, 0xC3}, IsExecutable: true}, // NOP; RET
	}
	symbols := []program.NamedAddress{{Address: 0x1000, Name: "named_entry"}}
	funcs := []typeprov.FunctionDecl{{Address: 0x1000}}
	prog := program.New(funcs, nil, mem, symbols, nil)
	spec := &specfmt.Spec{Arch: "x86_64", Program: prog}

	module, failed, err := liftSpec(spec, spec.Arch, lifter.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 0, failed)
	require.NotNil(t, module)
}

func TestLiftSpecRejectsUnknownArch(t *testing.T) {
	prog := program.New(nil, nil, nil, nil, nil)
	spec := &specfmt.Spec{Arch: "made-up-arch", Program: prog}

	_, _, err := liftSpec(spec, spec.Arch, lifter.DefaultOptions())
	require.Error(t, err)
}

func TestLoadOptionsDefaultsWhenNoPath(t *testing.T) {
	opts, err := loadOptions("")
	require.NoError(t, err)
	require.Equal(t, lifter.DefaultOptions(), opts)
}

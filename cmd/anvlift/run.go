package main

import (
	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/mewmew/liftgo/lifter"
	"github.com/mewmew/liftgo/registry"
	"github.com/mewmew/liftgo/specfmt"
	"github.com/mewmew/liftgo/typeprov"
)

// run implements the anvlift CLI action: load the spec, resolve the
// architecture, lift every declared function through the registry, apply
// the symbol table, finalize the sentinel globals, and write the module
// out (spec §6).
func run(c *cli.Context) error {
	spec, err := loadSpec(c.String(specFlag.Name))
	if err != nil {
		return err
	}

	archName := spec.Arch
	if archName == "" {
		archName = c.String(archFlag.Name)
	}
	opts, err := loadOptions(c.String(optionsFlag.Name))
	if err != nil {
		return err
	}
	module, failed, err := liftSpec(spec, archName, opts)
	if err != nil {
		return err
	}

	if err := writeOutputs(c, module); err != nil {
		return err
	}
	if failed > 0 {
		return errors.Errorf("%d of %d function(s) failed to lift or verify", failed, len(spec.Program.Functions))
	}
	return nil
}

// liftSpec drives the registry over every function spec.Program declares,
// returning the accumulated module and the count of functions that failed
// to lift or failed structural verification. Split out from run so it can
// be exercised directly, without an *cli.Context, by tests.
func liftSpec(spec *specfmt.Spec, archName string, opts lifter.Options) (*ir.Module, int, error) {
	a, sem, err := resolveArch(archName)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "resolving architecture %q", archName)
	}
	dbg.Printf("lifting for architecture %q", archName)

	module := ir.NewModule()
	l := lifter.New(a, spec.Program.MemoryProvider(), spec.Program.TypeProvider(), spec.Program.ControlFlowProvider(), sem, module, opts)
	reg := registry.New(l)

	var failed int
	spec.Program.ForEachFunction(func(decl typeprov.FunctionDecl) {
		fn, err := reg.LiftEntity(decl.Address)
		if err != nil {
			warn.Printf("could not lift function %q at %v: %v", decl.Name, decl.Address, err)
			failed++
			return
		}
		if semFn, ok := l.SemanticFunc(decl.Address); ok {
			if err := lifter.VerifyFunction(semFn); err != nil {
				warn.Printf("function %s failed structural verification: %v", fn.Name(), err)
				failed++
			}
		}
	})

	reg.ApplySymbols(spec.Program)
	reg.FinalizeSentinels()
	l.DropUnusedSemanticFuncs()

	return module, failed, nil
}

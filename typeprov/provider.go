package typeprov

import (
	"log"
	"os"
	"sort"

	"github.com/llir/llvm/ir/types"
	"github.com/mewpkg/term"

	"github.com/mewmew/liftgo/bin"
)

var dbg = log.New(os.Stderr, term.MagentaBold("typeprov:")+" ", 0)

// TypeProvider is the address-keyed oracle of function declarations, global
// variable declarations, and per-instruction register type hints (spec
// §4.2). The type provider is authoritative: the lifter never invents
// types.
type TypeProvider interface {
	// TryGetFunctionType looks up the declared contract for the function
	// whose entry is at addr.
	TryGetFunctionType(addr bin.Addr) (FunctionDecl, bool)
	// QueryRegisterStateAtInstruction invokes visit once per type hint that
	// applies at instAddr within the function at funcAddr.
	QueryRegisterStateAtInstruction(funcAddr, instAddr bin.Addr, visit func(regName string, typ types.Type, value *uint64))
}

// ProgramTypeProvider answers type queries from an in-memory collection of
// declarations, as assembled by the spec loader.
type ProgramTypeProvider struct {
	funcsByAddr    map[bin.Addr]FunctionDecl
	varsByAddr     map[bin.Addr]GlobalVarDecl
	regHintsByAddr map[bin.Addr][]TypedRegisterDecl // keyed by instruction address
}

// NewProgramTypeProvider builds a ProgramTypeProvider from the given
// function declarations, global variable declarations, and register hints.
// Register hints are additionally indexed by instruction address,
// regardless of which function they were declared under, mirroring how the
// original implementation keys its per-instruction hint map.
func NewProgramTypeProvider(funcs []FunctionDecl, vars []GlobalVarDecl) *ProgramTypeProvider {
	p := &ProgramTypeProvider{
		funcsByAddr:    make(map[bin.Addr]FunctionDecl, len(funcs)),
		varsByAddr:     make(map[bin.Addr]GlobalVarDecl, len(vars)),
		regHintsByAddr: make(map[bin.Addr][]TypedRegisterDecl),
	}
	for _, f := range funcs {
		p.funcsByAddr[f.Address] = f
		for _, hint := range f.RegisterInfo {
			p.regHintsByAddr[hint.InstAddr] = append(p.regHintsByAddr[hint.InstAddr], hint)
		}
	}
	for _, v := range vars {
		p.varsByAddr[v.Address] = v
	}
	return p
}

// TryGetFunctionType implements TypeProvider.
func (p *ProgramTypeProvider) TryGetFunctionType(addr bin.Addr) (FunctionDecl, bool) {
	decl, ok := p.funcsByAddr[addr]
	return decl, ok
}

// TryGetVariableType looks up a declared global variable.
func (p *ProgramTypeProvider) TryGetVariableType(addr bin.Addr) (GlobalVarDecl, bool) {
	decl, ok := p.varsByAddr[addr]
	return decl, ok
}

// QueryRegisterStateAtInstruction implements TypeProvider.
func (p *ProgramTypeProvider) QueryRegisterStateAtInstruction(funcAddr, instAddr bin.Addr, visit func(regName string, typ types.Type, value *uint64)) {
	hints := p.regHintsByAddr[instAddr]
	if len(hints) == 0 {
		return
	}
	// Sort for deterministic visitation order (testable property: output
	// must not depend on iteration order of the underlying maps).
	sorted := make([]TypedRegisterDecl, len(hints))
	copy(sorted, hints)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Register < sorted[j].Register })
	for _, hint := range sorted {
		dbg.Printf("type hint at %v: register %s", instAddr, hint.Register)
		visit(hint.Register, hint.Type, hint.Value)
	}
}

// AllFunctions returns every declared function, sorted by address.
func (p *ProgramTypeProvider) AllFunctions() []FunctionDecl {
	out := make([]FunctionDecl, 0, len(p.funcsByAddr))
	for _, f := range p.funcsByAddr {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// AllVariables returns every declared global variable, sorted by address.
func (p *ProgramTypeProvider) AllVariables() []GlobalVarDecl {
	out := make([]GlobalVarDecl, 0, len(p.varsByAddr))
	for _, v := range p.varsByAddr {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

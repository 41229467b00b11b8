// Package program implements the external collaborator that supplies
// declarations and memory ranges to the three providers the function
// lifter consults (spec §2 item 8, §6). It is the thing callers build from
// a parsed spec file and hand to the lifter.
package program

import (
	"sort"

	"github.com/mewmew/liftgo/bin"
	"github.com/mewmew/liftgo/ctrlflow"
	"github.com/mewmew/liftgo/typeprov"
)

// NamedAddress is an (address, name) pair from the spec's `symbols` table.
type NamedAddress struct {
	Address bin.Addr
	Name    string
}

// Program aggregates every declaration a lift may need: function and
// global variable declarations, the backing memory ranges, the symbol
// table, and the control-flow redirection table.
type Program struct {
	Functions    []typeprov.FunctionDecl
	Variables    []typeprov.GlobalVarDecl
	Memory       []bin.ByteRange
	Symbols      []NamedAddress
	Redirections [][2]bin.Addr

	memProvider  *bin.RangeMemoryProvider
	typeProvider *typeprov.ProgramTypeProvider
	cflowProv    *ctrlflow.MapProvider
}

// New builds a Program from its constituent parts and eagerly constructs
// the three providers backed by it.
func New(funcs []typeprov.FunctionDecl, vars []typeprov.GlobalVarDecl, mem []bin.ByteRange, symbols []NamedAddress, redirections [][2]bin.Addr) *Program {
	p := &Program{
		Functions:    funcs,
		Variables:    vars,
		Memory:       mem,
		Symbols:      symbols,
		Redirections: redirections,
	}
	p.memProvider = bin.NewRangeMemoryProvider(mem)
	p.typeProvider = typeprov.NewProgramTypeProvider(funcs, vars)
	p.cflowProv = ctrlflow.NewMapProvider(redirections)
	return p
}

// MemoryProvider returns the byte-level oracle backed by this program's
// memory ranges (spec §4.1).
func (p *Program) MemoryProvider() bin.MemoryProvider { return p.memProvider }

// TypeProvider returns the declaration oracle backed by this program's
// functions and variables (spec §4.2).
func (p *Program) TypeProvider() typeprov.TypeProvider { return p.typeProvider }

// ControlFlowProvider returns the redirection table backed by this
// program's `control_flow_redirections` entries (spec §4.3).
func (p *Program) ControlFlowProvider() ctrlflow.Provider { return p.cflowProv }

// ForEachFunction invokes fn once per declared function, in ascending
// address order, for deterministic iteration.
func (p *Program) ForEachFunction(fn func(typeprov.FunctionDecl)) {
	for _, decl := range p.typeProvider.AllFunctions() {
		fn(decl)
	}
}

// ForEachVariable invokes fn once per declared global variable, in
// ascending address order.
func (p *Program) ForEachVariable(fn func(typeprov.GlobalVarDecl)) {
	for _, decl := range p.typeProvider.AllVariables() {
		fn(decl)
	}
}

// ForEachNamedAddress invokes fn once per entry in the symbol table, in
// ascending address order, breaking ties by name. Used by
// registry.ApplySymbols to rename lifted entities deterministically.
func (p *Program) ForEachNamedAddress(fn func(NamedAddress)) {
	sorted := make([]NamedAddress, len(p.Symbols))
	copy(sorted, p.Symbols)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Address != sorted[j].Address {
			return sorted[i].Address < sorted[j].Address
		}
		return sorted[i].Name < sorted[j].Name
	})
	for _, na := range sorted {
		fn(na)
	}
}

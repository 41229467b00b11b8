// Package registry implements the entity registry (spec §4.10): the
// address-keyed bookkeeping layer that sits above a lifter.Lifter and
// tracks, for every machine-code address, which native-ABI entities have
// been lifted or declared for it. It is what makes re-lifting or
// redeclaring the same address resolve to a coherent, name-consistent
// result instead of silently accumulating look-alike duplicates.
//
// Grounded on EntityLifter::LiftEntity, EntityLifter::DeclareEntity, and
// FunctionLifter::AddFunctionToContext in
// original_source/anvill/src/Lifters/FunctionLifter.cpp. That
// implementation distinguishes "found by type" from "found by address" by
// comparing LLVM FunctionType pointers, because a name can be reused
// across differently-typed declarations. Here, one TypeProvider derives a
// single deterministic name and signature per address, so name equality
// serves as the practical stand-in for "found by type"; anything else
// already registered at the same address is "found by address", logged
// and otherwise ignored exactly as the original logs and ignores it.
package registry

import (
	"log"
	"os"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/mewpkg/term"

	"github.com/mewmew/liftgo/bin"
	"github.com/mewmew/liftgo/lifter"
	"github.com/mewmew/liftgo/program"
)

var warn = log.New(os.Stderr, term.RedBold("registry:")+" ", 0)

// entity is one native-ABI IR function a Registry has associated with an
// address.
type entity struct {
	fn *ir.Func
}

// Registry owns the address<->entity bookkeeping for one Lifter/Module
// pair.
type Registry struct {
	L *lifter.Lifter

	byAddr map[bin.Addr][]entity
	addrOf map[string]bin.Addr
}

// New creates a Registry bound to l.
func New(l *lifter.Lifter) *Registry {
	return &Registry{
		L:      l,
		byAddr: make(map[bin.Addr][]entity),
		addrOf: make(map[string]bin.Addr),
	}
}

// ForEachEntityAtAddress invokes fn once per IR function ever registered
// at addr, in registration order.
func (r *Registry) ForEachEntityAtAddress(addr bin.Addr, fn func(*ir.Func)) {
	for _, e := range r.byAddr[addr] {
		fn(e.fn)
	}
}

// AddEntity records that irFn is an entity at addr, updating the reverse
// name->address index ApplySymbols consults.
func (r *Registry) AddEntity(irFn *ir.Func, addr bin.Addr) {
	for _, e := range r.byAddr[addr] {
		if e.fn == irFn {
			r.addrOf[irFn.Name()] = addr
			return
		}
	}
	r.byAddr[addr] = append(r.byAddr[addr], entity{fn: irFn})
	r.addrOf[irFn.Name()] = addr
}

// findByName scans the entities already registered at addr, splitting
// them into the one (if any) named wantName and the first one (if any)
// that isn't.
func (r *Registry) findByName(addr bin.Addr, wantName string) (foundByType, foundByAddress *ir.Func) {
	for _, e := range r.byAddr[addr] {
		if e.fn.Name() == wantName {
			if foundByType == nil {
				foundByType = e.fn
			}
		} else if foundByAddress == nil {
			foundByAddress = e.fn
		}
	}
	return foundByType, foundByAddress
}

// LiftEntity lifts the machine-code function at addr, reconciling the
// result against whatever is already registered there. If lifting fails,
// a previously registered entity with the expected name is returned
// instead of the error, so a caller that already has a usable declaration
// doesn't lose it to a transient lift failure (e.g. a redirected address
// that turned out to be non-executable) — mirroring LiftEntity's fallback
// to found_by_type.
func (r *Registry) LiftEntity(addr bin.Addr) (*ir.Func, error) {
	wantName := r.L.EntityName(addr)
	foundByType, foundByAddress := r.findByName(addr, wantName)
	if foundByAddress != nil {
		warn.Printf("ignoring existing entity %s at %v while lifting %s", foundByAddress.Name(), addr, wantName)
	}

	fn, err := r.L.LiftFunction(addr)
	if err != nil {
		if foundByType != nil {
			return foundByType, nil
		}
		return nil, err
	}
	r.AddEntity(fn, addr)
	return fn, nil
}

// DeclareEntity declares (without lifting a body) the function at addr,
// reusing an existing entity with the expected name rather than creating a
// redundant declaration.
func (r *Registry) DeclareEntity(addr bin.Addr) *ir.Func {
	wantName := r.L.EntityName(addr)
	foundByType, foundByAddress := r.findByName(addr, wantName)
	if foundByType != nil {
		return foundByType
	}
	if foundByAddress != nil {
		warn.Printf("ignoring existing entity %s at %v while declaring %s", foundByAddress.Name(), addr, wantName)
	}

	fn := r.L.DeclareFunction(addr)
	r.AddEntity(fn, addr)
	return fn
}

// ApplySymbols renames every entity already registered to match the
// program's symbol table, so a user-supplied name wins over the
// positional `sub_<addr>` fallback regardless of whether the entity was
// lifted before or after its symbol was known.
func (r *Registry) ApplySymbols(prog *program.Program) {
	prog.ForEachNamedAddress(func(na program.NamedAddress) {
		for _, e := range r.byAddr[na.Address] {
			if e.fn.Name() == na.Name {
				continue
			}
			delete(r.addrOf, e.fn.Name())
			e.fn.SetName(na.Name)
			r.addrOf[na.Name] = na.Address
		}
	})
}

// FinalizeSentinels zero-initializes and internalizes any `__anvill_reg_*`
// global the lift left as a bare external declaration: one that was
// created (via the StateInitGlobalVars* options) but never actually given
// a value anywhere in the run.
func (r *Registry) FinalizeSentinels() {
	r.L.Sentinels.ForEachRegisterGlobal(func(g *ir.Global) {
		if g.Init != nil {
			return
		}
		g.Init = constant.NewZeroInitializer(g.ContentType)
		g.Linkage = enum.LinkageInternal
	})
}

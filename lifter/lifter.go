package lifter

import (
	"fmt"
	"log"
	"os"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/mewpkg/term"
	"github.com/pkg/errors"

	"github.com/mewmew/liftgo/arch"
	"github.com/mewmew/liftgo/bin"
	"github.com/mewmew/liftgo/ctrlflow"
	"github.com/mewmew/liftgo/instsem"
	"github.com/mewmew/liftgo/irstate"
	"github.com/mewmew/liftgo/typeprov"
)

var (
	dbg  = log.New(os.Stderr, term.MagentaBold("lifter:")+" ", 0)
	warn = log.New(os.Stderr, term.RedBold("warning:")+" ", 0)
)

// Lifter lifts machine-code functions into LLVM IR, one SSA function per
// machine-code function, threading a synthetic CPU state structure through
// a semantic body wrapped by a calling-convention-native function (spec
// §4.5-§4.9).
type Lifter struct {
	Arch    arch.Arch
	Mem     bin.MemoryProvider
	Types   typeprov.TypeProvider
	CFlow   ctrlflow.Provider
	Sem     instsem.Lifter
	Options Options

	Module    *ir.Module
	State     *irstate.State
	Sentinels *irstate.Sentinels

	// memType is the pointer-to-i8 type used as the "escaped memory
	// pointer" argument threaded through semantic bodies, mirroring
	// remill's Memory* argument.
	memType *types.PointerType

	// semanticFuncs and nativeFuncs map a machine-code function's entry
	// address onto its already-lifted IR functions, so that recursive
	// calls and re-lifts reuse the same declaration (spec §4.10 groundwork,
	// finished by the registry package).
	semanticFuncs map[bin.Addr]*ir.Func
	nativeFuncs   map[bin.Addr]*ir.Func
}

// New constructs a Lifter targeting a, backed by the given providers, with
// module as the destination for every declared global and function.
func New(a arch.Arch, mem bin.MemoryProvider, types_ typeprov.TypeProvider, cflow ctrlflow.Provider, sem instsem.Lifter, module *ir.Module, opts Options) *Lifter {
	state := irstate.Build(a)
	memType := types.NewPointer(types.I8)
	return &Lifter{
		Arch:          a,
		Mem:           mem,
		Types:         types_,
		CFlow:         cflow,
		Sem:           sem,
		Options:       opts,
		Module:        module,
		State:         state,
		Sentinels:     irstate.New(module, state, memType),
		memType:       memType,
		semanticFuncs: make(map[bin.Addr]*ir.Func),
		nativeFuncs:   make(map[bin.Addr]*ir.Func),
	}
}

// edge identifies one control-flow transfer by its originating and target
// addresses (spec §3's Edge). A block is allocated once per edge rather
// than once per target address (spec §4.8), so a predecessor-specific
// target resolution (tail-call/prologue-sharing recovery, §4.8 step 1) can
// run independently of whatever other edge happens to already own the
// same target address.
type edge struct {
	from bin.Addr
	to   bin.Addr
}

// block is one entry in the per-function work-list-built CFG: a run of
// lifted instructions terminating in a branch, call, return, or trap.
type block struct {
	irblk *ir.Block
}

// funcBuilder holds the per-function state threaded through CFG
// construction: the semantic IR function under construction, its state
// pointer and memory pointer arguments, and the work-list of edges still
// to visit.
//
// edgeBlocks is keyed on the (from_pc, to_pc) edge, matching
// edge_to_dest_block in the original; addrBlock is keyed on the target
// address alone and records which block "owns" decoding that address, used
// purely to splice a forwarding branch when a later edge reaches an
// address another edge already claimed (§4.8 step 2's fall-through/dedup
// check) — collapsing the two into one map would lose the ability to
// observe a self-tail-call as a call rather than a silent jump back into
// the function's first lifted block.
type funcBuilder struct {
	l          *Lifter
	entry      bin.Addr
	fn         *ir.Func
	statePtr   *ir.Param
	memPtr     *ir.Param
	pcParam    *ir.Param
	edgeBlocks map[edge]*block
	addrBlock  map[bin.Addr]*block
	worklist   []edge
}

// pcConst builds a constant of the program counter's IR type holding addr,
// for use as the `pc` argument to an intrinsic or called function.
func (fb *funcBuilder) pcConst(addr bin.Addr) value.Value {
	pcType, _ := fb.l.State.RegisterType(fb.l.Arch.ProgramCounterRegisterName())
	return constant.NewInt(pcType.(*types.IntType), int64(addr))
}

// LiftFunction lifts the machine-code function whose entry point is
// funcAddr, returning its native-ABI wrapper function. Re-lifting the same
// address returns the cached result (spec §4.10's "coexistence", simple
// memoization form; full re-lift/redeclare handling lives in the registry
// package).
func (l *Lifter) LiftFunction(funcAddr bin.Addr) (*ir.Func, error) {
	if fn, ok := l.nativeFuncs[funcAddr]; ok {
		return fn, nil
	}
	decl, hasDecl := l.Types.TryGetFunctionType(funcAddr)

	semanticFn, err := l.liftSemanticBody(funcAddr, decl, hasDecl)
	if err != nil {
		return nil, errors.Wrapf(err, "lifting semantic body of function at %v", funcAddr)
	}

	nativeFn := l.buildNativeWrapper(funcAddr, decl, hasDecl, semanticFn)
	l.nativeFuncs[funcAddr] = nativeFn

	l.inlineAndCleanup(semanticFn)
	l.inlineSemanticCall(nativeFn, semanticFn)
	l.inlineAndCleanup(nativeFn)

	if err := VerifyFunction(nativeFn); err != nil {
		warn.Printf("function at %v failed structural verification: %v", funcAddr, err)
	}
	return nativeFn, nil
}

// EntityName reports the name LiftFunction/DeclareFunction will assign to
// funcAddr's native-ABI entity: the declared name if the type provider has
// one, otherwise the positional `sub_<addr>` fallback. Exposed for the
// registry package, which needs this name before deciding whether an
// already-registered entity at funcAddr is the one it's looking for.
func (l *Lifter) EntityName(funcAddr bin.Addr) string {
	decl, hasDecl := l.Types.TryGetFunctionType(funcAddr)
	if hasDecl && decl.Name != "" {
		return decl.Name
	}
	return fmt.Sprintf("sub_%s", funcAddr)
}

// SemanticFunc returns the already-lifted semantic body function for
// funcAddr, if one has been lifted, for callers (the CLI's verification
// gate, spec §6's generalized exit condition) that want to verify the
// function doing the actual control-flow work rather than its thin native
// wrapper.
func (l *Lifter) SemanticFunc(funcAddr bin.Addr) (*ir.Func, bool) {
	fn, ok := l.semanticFuncs[funcAddr]
	return fn, ok
}

// liftSemanticBody builds the three-argument semantic function for
// funcAddr: `define <ret> @<name>.sem(State* %state, Memory* %memory, <pc
// type> %pc)` (spec §4.9 step 1-ish, generalized from remill's exact
// convention to this lifter's own state/memory argument order).
func (l *Lifter) liftSemanticBody(funcAddr bin.Addr, decl typeprov.FunctionDecl, hasDecl bool) (*ir.Func, error) {
	if fn, ok := l.semanticFuncs[funcAddr]; ok {
		return fn, nil
	}
	name := l.EntityName(funcAddr)
	pcType, _ := l.State.RegisterType(l.Arch.ProgramCounterRegisterName())

	statePtr := ir.NewParam("state", l.State.PointerType())
	memPtr := ir.NewParam("memory", l.memType)
	pcParam := ir.NewParam("pc", pcType)

	fn := l.Module.NewFunc(name+".sem", l.memType, statePtr, memPtr, pcParam)
	fn.Linkage = enum.LinkageInternal

	// Cache before building the body: a recursive or mutually-recursive
	// call site reached while walking funcAddr's own instructions must see
	// this declaration rather than recurse into liftSemanticBody again.
	l.semanticFuncs[funcAddr] = fn

	fb := &funcBuilder{
		l:          l,
		entry:      funcAddr,
		fn:         fn,
		statePtr:   statePtr,
		memPtr:     memPtr,
		pcParam:    pcParam,
		edgeBlocks: make(map[edge]*block),
		addrBlock:  make(map[bin.Addr]*block),
	}
	if err := fb.run(); err != nil {
		return nil, err
	}
	return fn, nil
}

// callFunction resolves addr (already passed through the control-flow
// provider by the caller) to a callable semantic-body function, lifting it
// on first reference. Lifting failures fall back to a bare external
// declaration rather than aborting the call site, mirroring
// `FunctionLifter::TryGetTargetFunctionType`'s "declare and move on"
// fallback (spec §4.5).
func (l *Lifter) callFunction(addr bin.Addr) *ir.Func {
	if fn, ok := l.semanticFuncs[addr]; ok {
		return fn
	}
	decl, hasDecl := l.Types.TryGetFunctionType(addr)
	fn, err := l.liftSemanticBody(addr, decl, hasDecl)
	if err != nil {
		warn.Printf("could not lift call target at %v, declaring externally: %v", addr, err)
		fn = l.declareExternalSemanticFunc(addr)
		l.semanticFuncs[addr] = fn
	}
	return fn
}

// declareExternalSemanticFunc declares (without a body) the semantic
// function signature expected at addr, for use when lifting the real
// definition failed or the address is known only by name (e.g. an
// imported function).
func (l *Lifter) declareExternalSemanticFunc(addr bin.Addr) *ir.Func {
	pcType, _ := l.State.RegisterType(l.Arch.ProgramCounterRegisterName())
	statePtr := ir.NewParam("state", l.State.PointerType())
	memPtr := ir.NewParam("memory", l.memType)
	pcParam := ir.NewParam("pc", pcType)
	fn := l.Module.NewFunc(fmt.Sprintf("sub_%s.sem", addr), l.memType, statePtr, memPtr, pcParam)
	fn.Linkage = enum.LinkageExternal
	return fn
}

// readAt queries n bytes starting at addr from the memory provider,
// returning however many bytes were actually available and
// executable-permitted. Accumulation stops at the first byte failing
// either check (spec §4.1/§4.4: the lifter never reads writable-only or
// non-present memory as code), so a short result signals the decoder that
// the instruction's bytes are incomplete; unavailable bytes are not
// zero-filled.
func (l *Lifter) readAt(addr bin.Addr, n int) []byte {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		b, avail, perm := l.Mem.Query(addr + bin.Addr(i))
		if !bin.HasByte(avail) || !bin.IsExecutable(perm) {
			break
		}
		out = append(out, b)
	}
	return out
}

// emitTypeHints inserts a type-taint call for every pointer-typed register
// type hint the type provider declares at instAddr within the function
// entered at funcAddr (spec §4.11), unless SymbolicRegisterTypes is off;
// hints of any other type emit no taint call. When the lifter is
// configured to do so, the hint's accompanying concrete value is stored
// into the corresponding
// state field *before* the taint call is built, mirroring
// VisitTypedHintedRegister's ordering, so the call taints the freshly
// overwritten value rather than whatever was there before the hint. The
// call's result is then cast back to the register's integer type and
// stored into the register, so the call has a use and cannot be discarded
// as dead code by the optimizer.
func (l *Lifter) emitTypeHints(irblk *ir.Block, statePtr *ir.Param, funcAddr, instAddr bin.Addr) {
	l.Types.QueryRegisterStateAtInstruction(funcAddr, instAddr, func(regName string, typ types.Type, val *uint64) {
		if typ == nil {
			return
		}
		regType, ok := l.State.RegisterType(regName)
		if !ok {
			return
		}
		intTy, ok := regType.(*types.IntType)
		if !ok {
			return
		}

		if l.Options.StoreInferredRegisterValues && val != nil {
			_ = l.State.StoreRegValue(irblk, statePtr, regName, constant.NewInt(intTy, int64(*val)))
		}
		if _, isPtr := typ.(*types.PointerType); !isPtr || !l.Options.SymbolicRegisterTypes {
			return
		}

		loaded, err := l.State.LoadRegValue(irblk, statePtr, regName)
		if err != nil {
			return
		}
		mangled := fmt.Sprintf("%s_%s", regName, instAddr)
		taintFn := l.Sentinels.TypeTaintFunc(loaded.Type(), typ, mangled)
		tainted := irblk.NewCall(taintFn, loaded)

		back := irblk.NewPtrToInt(tainted, intTy)
		_ = l.State.StoreRegValue(irblk, statePtr, regName, back)
	})
}

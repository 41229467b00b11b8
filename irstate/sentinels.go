package irstate

import (
	"sort"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
)

// Sentinel global and intrinsic names. These are part of the lifter's
// output ABI (spec §6, §9): downstream passes locate them by these exact
// names.
const (
	SentinelPCName  = "__anvill_pc"
	SentinelSPName  = "__anvill_sp"
	SentinelRAName  = "__anvill_ra"
	RegisterGlobalPrefix = "__anvill_reg_"
	TypeTaintPrefix      = "__anvill_type_"

	MemoryEscapeFuncName = "__anvill_escape_memory"

	IntrinsicErrorName           = "__anvill_intrinsic_error"
	IntrinsicJumpName            = "__anvill_intrinsic_jump"
	IntrinsicFunctionReturnName  = "__anvill_intrinsic_function_return"
	IntrinsicFunctionCallName    = "__anvill_intrinsic_function_call"
	IntrinsicAsyncHyperCallName  = "__anvill_intrinsic_async_hyper_call"
)

// Sentinels owns the lazily-created module-scoped external globals and
// intrinsic function declarations shared by every function lifted into one
// output module (spec §9: "created on first use and reused thereafter").
type Sentinels struct {
	module  *ir.Module
	state   *State
	memType *types.PointerType

	pc, sp, ra *ir.Global
	regGlobals map[string]*ir.Global
	typeTaints map[string]*ir.Func

	errorIntr, jumpIntr, returnIntr, callIntr, hyperCallIntr *ir.Func
	escapeFunc                                               *ir.Func
}

// New creates a Sentinels bound to module, using state's struct layout and
// memType as the memory-pointer type threaded through every semantic body
// and intrinsic (spec §4.9's three-argument shape).
func New(module *ir.Module, state *State, memType *types.PointerType) *Sentinels {
	return &Sentinels{
		module:     module,
		state:      state,
		memType:    memType,
		regGlobals: make(map[string]*ir.Global),
		typeTaints: make(map[string]*ir.Func),
	}
}

func i8Zero() constant.Constant { return constant.NewInt(types.I8, 0) }

// PC returns the `__anvill_pc` sentinel, an i8 global whose address stands
// in for a relocatable program-counter base (spec §4.9 step 2).
func (s *Sentinels) PC() *ir.Global {
	if s.pc == nil {
		s.pc = s.module.NewGlobalDef(SentinelPCName, i8Zero())
	}
	return s.pc
}

// SP returns the `__anvill_sp` sentinel.
func (s *Sentinels) SP() *ir.Global {
	if s.sp == nil {
		s.sp = s.module.NewGlobalDef(SentinelSPName, i8Zero())
	}
	return s.sp
}

// RA returns the `__anvill_ra` sentinel.
func (s *Sentinels) RA() *ir.Global {
	if s.ra == nil {
		s.ra = s.module.NewGlobalDef(SentinelRAName, i8Zero())
	}
	return s.ra
}

// RegisterGlobal returns (creating if necessary) the `__anvill_reg_<name>`
// external global used to seed unmodelled dependencies into the state
// structure (spec §6, StateStructureInitializationProcedure's GlobalVars
// variants).
func (s *Sentinels) RegisterGlobal(regName string, regType types.Type) *ir.Global {
	name := RegisterGlobalPrefix + regName
	if g, ok := s.regGlobals[name]; ok {
		return g
	}
	g := s.module.NewGlobal(name, regType)
	g.Linkage = enum.LinkageExternal
	s.regGlobals[name] = g
	return g
}

// TypeTaintFunc returns (creating if necessary) the uninterpreted, read-none
// `__anvill_type_<mangled>` function used to taint a register value with a
// pointer type hint (spec §4.11).
func (s *Sentinels) TypeTaintFunc(argType, goalType types.Type, mangled string) *ir.Func {
	name := TypeTaintPrefix + mangled
	if f, ok := s.typeTaints[name]; ok {
		return f
	}
	f := s.module.NewFunc(name, goalType, ir.NewParam("", argType))
	f.Linkage = enum.LinkageExternal
	// Read-none: the taint function has no observable effect beyond its
	// return value, letting the optimizer treat it as pure.
	f.FuncAttrs = append(f.FuncAttrs, enum.FuncAttrReadNone)
	s.typeTaints[name] = f
	return f
}

// ForEachRegisterGlobal invokes fn once per `__anvill_reg_*` global created
// so far, in name order, for callers (registry.FinalizeSentinels) that
// need to finalize whichever of them were never given an initializer.
func (s *Sentinels) ForEachRegisterGlobal(fn func(*ir.Global)) {
	names := make([]string, 0, len(s.regGlobals))
	for name := range s.regGlobals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn(s.regGlobals[name])
	}
}

// intrinsic returns (creating if necessary) the external function named
// name, sharing the common three-argument-in, memory-pointer-out shape
// every control-flow intrinsic uses (spec §4.9's state*, mem, pc shape).
func (s *Sentinels) intrinsic(cached **ir.Func, name string) *ir.Func {
	if *cached != nil {
		return *cached
	}
	pcType, _ := s.state.RegisterType(s.state.Arch.ProgramCounterRegisterName())
	f := s.module.NewFunc(name, s.memType,
		ir.NewParam("state", s.state.PointerType()),
		ir.NewParam("mem", s.memType),
		ir.NewParam("pc", pcType),
	)
	f.Linkage = enum.LinkageExternal
	*cached = f
	return f
}

// ErrorIntrinsic returns the sink called on decode failure / invalid
// instructions (spec §4.6 category Invalid/Error).
func (s *Sentinels) ErrorIntrinsic() *ir.Func {
	return s.intrinsic(&s.errorIntr, IntrinsicErrorName)
}

// JumpIntrinsic returns the sink called for indirect jumps.
func (s *Sentinels) JumpIntrinsic() *ir.Func {
	return s.intrinsic(&s.jumpIntr, IntrinsicJumpName)
}

// FunctionReturnIntrinsic returns the sink called on function return.
func (s *Sentinels) FunctionReturnIntrinsic() *ir.Func {
	return s.intrinsic(&s.returnIntr, IntrinsicFunctionReturnName)
}

// FunctionCallIntrinsic returns the sink called for unresolved (indirect,
// or resolution-failed) function calls.
func (s *Sentinels) FunctionCallIntrinsic() *ir.Func {
	return s.intrinsic(&s.callIntr, IntrinsicFunctionCallName)
}

// AsyncHyperCallIntrinsic returns the sink called for system calls / traps.
func (s *Sentinels) AsyncHyperCallIntrinsic() *ir.Func {
	return s.intrinsic(&s.hyperCallIntr, IntrinsicAsyncHyperCallName)
}

// MemoryEscapeFunc returns the declared sink that prevents final memory
// writes from being dead-store-eliminated (spec §4.9 step 6).
func (s *Sentinels) MemoryEscapeFunc() *ir.Func {
	if s.escapeFunc != nil {
		return s.escapeFunc
	}
	f := s.module.NewFunc(MemoryEscapeFuncName, types.Void, ir.NewParam("mem", s.memType))
	f.Linkage = enum.LinkageExternal
	s.escapeFunc = f
	return f
}

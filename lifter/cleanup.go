package lifter

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// inlineAndCleanup runs the cleanup half of spec §4.9's post-construction
// pass over fn: dead-block pruning. The inline half is inlineSemanticCall,
// kept separate because it needs both the wrapper and the specific callee
// being spliced into it, not just one function.
func (l *Lifter) inlineAndCleanup(fn *ir.Func) {
	pruneUnreachableBlocks(fn)
}

// inlineSemanticCall splices semanticFn's body directly into wrapper in
// place of wrapper's one call to it, so the native wrapper ends up holding
// the lifted control flow itself rather than a call to a separate
// function (spec §4.9). Grounded on
// FunctionLifter::RecursivelyInlineFunctionCallees
// (original_source/anvill/src/Lifters/FunctionLifter.cpp): find the call,
// clone the callee's blocks into the caller with its parameters
// substituted by the call's actual arguments, split the caller's block at
// the call site, and rewrite every cloned `ret` into a branch to the
// continuation that used to follow the call. `llir/llvm` ships no
// `FunctionPassManager`/inliner, but nothing about that forecloses doing
// this one call site by hand: it is ordinary IR construction using the
// same `ir.Block` methods every other package in this module already
// builds instructions with.
//
// The semantic body's return value (the escaped `Memory*`) is discarded:
// buildNativeWrapper's call site never used it either, reading declared
// return values back out of the state structure instead
// (emitNativeReturn), so every inlined `ret` becomes an unconditional
// branch to the continuation with no value to merge.
func (l *Lifter) inlineSemanticCall(wrapper *ir.Func, semanticFn *ir.Func) {
	callBlock, call := findCallTo(wrapper, semanticFn)
	if call == nil {
		return
	}

	vals := make(map[value.Value]value.Value, len(semanticFn.Params))
	for i, p := range semanticFn.Params {
		if i < len(call.Args) {
			vals[p] = call.Args[i]
		}
	}

	idx := instPos(callBlock, call)
	cont := wrapper.NewBlock(callBlock.Name() + ".cont")
	cont.Insts = append(cont.Insts, callBlock.Insts[idx+1:]...)
	cont.Term = callBlock.Term
	callBlock.Insts = callBlock.Insts[:idx]

	blocks := make(map[*ir.Block]*ir.Block, len(semanticFn.Blocks))
	for _, b := range semanticFn.Blocks {
		blocks[b] = wrapper.NewBlock(fmt.Sprintf("%s.%s", semanticFn.Name(), b.Name()))
	}
	for _, b := range semanticFn.Blocks {
		nb := blocks[b]
		for _, inst := range b.Insts {
			cloneInlinedInst(nb, inst, vals)
		}
		cloneInlinedTerm(nb, b.Term, vals, blocks, cont)
	}

	callBlock.NewBr(blocks[semanticFn.Blocks[0]])
}

// findCallTo locates the block and call instruction within fn that calls
// callee, assuming (as every wrapper this lifter builds does) at most one
// such call exists.
func findCallTo(fn *ir.Func, callee *ir.Func) (*ir.Block, *ir.InstCall) {
	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			if call, ok := inst.(*ir.InstCall); ok && call.Callee == value.Value(callee) {
				return b, call
			}
		}
	}
	return nil, nil
}

func instPos(b *ir.Block, inst ir.Instruction) int {
	for i, cur := range b.Insts {
		if cur == inst {
			return i
		}
	}
	return len(b.Insts)
}

// rewriteValue looks up v's inlined replacement, returning v itself for
// anything not substituted (constants, globals, already-inlined
// instructions this clone doesn't touch again).
func rewriteValue(vals map[value.Value]value.Value, v value.Value) value.Value {
	if nv, ok := vals[v]; ok {
		return nv
	}
	return v
}

// cloneInlinedInst clones one non-terminator instruction from a semantic
// body into nb, rewriting its operands through vals and recording its own
// result (if it has one) so later clones in the same inline can reference
// it. The instruction vocabulary here is exactly what instsem, irstate,
// and lifter ever emit into a semantic body: binary arithmetic, the
// integer casts type-hint tainting uses, state-structure GEP/load/store,
// and calls (to intrinsics, taint functions, or other semantic bodies).
func cloneInlinedInst(nb *ir.Block, inst ir.Instruction, vals map[value.Value]value.Value) {
	rv := func(v value.Value) value.Value { return rewriteValue(vals, v) }

	var result value.Value
	switch i := inst.(type) {
	case *ir.InstAdd:
		result = nb.NewAdd(rv(i.X), rv(i.Y))
	case *ir.InstSub:
		result = nb.NewSub(rv(i.X), rv(i.Y))
	case *ir.InstMul:
		result = nb.NewMul(rv(i.X), rv(i.Y))
	case *ir.InstAnd:
		result = nb.NewAnd(rv(i.X), rv(i.Y))
	case *ir.InstOr:
		result = nb.NewOr(rv(i.X), rv(i.Y))
	case *ir.InstXor:
		result = nb.NewXor(rv(i.X), rv(i.Y))
	case *ir.InstTrunc:
		result = nb.NewTrunc(rv(i.From), i.To)
	case *ir.InstZExt:
		result = nb.NewZExt(rv(i.From), i.To)
	case *ir.InstPtrToInt:
		result = nb.NewPtrToInt(rv(i.From), i.To)
	case *ir.InstGetElementPtr:
		indices := make([]value.Value, len(i.Indices))
		for j, idx := range i.Indices {
			indices[j] = rv(idx)
		}
		result = nb.NewGetElementPtr(i.ElemType, rv(i.Src), indices...)
	case *ir.InstLoad:
		result = nb.NewLoad(i.Type(), rv(i.Src))
	case *ir.InstStore:
		nb.NewStore(rv(i.Src), rv(i.Dst))
		return
	case *ir.InstCall:
		args := make([]value.Value, len(i.Args))
		for j, a := range i.Args {
			args[j] = rv(a)
		}
		result = nb.NewCall(rv(i.Callee), args...)
	default:
		panic(fmt.Sprintf("inlineSemanticCall: unsupported instruction %T in semantic body", inst))
	}

	if iv, ok := inst.(value.Value); ok {
		vals[iv] = result
	}
}

// cloneInlinedTerm clones one semantic-body terminator into nb. A `ret`
// has no successor to preserve: its only caller discards the return
// value, so it becomes a branch straight to the continuation block that
// used to follow the call.
func cloneInlinedTerm(nb *ir.Block, term ir.Terminator, vals map[value.Value]value.Value, blocks map[*ir.Block]*ir.Block, cont *ir.Block) {
	switch t := term.(type) {
	case *ir.TermBr:
		nb.NewBr(blocks[t.Target.(*ir.Block)])
	case *ir.TermCondBr:
		nb.NewCondBr(rewriteValue(vals, t.Cond), blocks[t.TargetTrue.(*ir.Block)], blocks[t.TargetFalse.(*ir.Block)])
	case *ir.TermRet:
		nb.NewBr(cont)
	default:
		panic(fmt.Sprintf("inlineSemanticCall: unsupported terminator %T in semantic body", term))
	}
}

// pruneUnreachableBlocks removes blocks that VisitInstructions's work-list
// construction (or inlineSemanticCall's splice) could never reach.
func pruneUnreachableBlocks(fn *ir.Func) {
	if len(fn.Blocks) == 0 {
		return
	}
	reachable := map[*ir.Block]bool{fn.Blocks[0]: true}
	work := []*ir.Block{fn.Blocks[0]}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		for _, succ := range successors(cur) {
			if !reachable[succ] {
				reachable[succ] = true
				work = append(work, succ)
			}
		}
	}
	kept := make([]*ir.Block, 0, len(fn.Blocks))
	for _, b := range fn.Blocks {
		if reachable[b] {
			kept = append(kept, b)
		}
	}
	fn.Blocks = kept
}

// successors returns the blocks b's terminator may transfer control to.
func successors(b *ir.Block) []*ir.Block {
	switch term := b.Term.(type) {
	case *ir.TermBr:
		return []*ir.Block{term.Target.(*ir.Block)}
	case *ir.TermCondBr:
		return []*ir.Block{term.TargetTrue.(*ir.Block), term.TargetFalse.(*ir.Block)}
	case *ir.TermSwitch:
		out := []*ir.Block{term.TargetDefault.(*ir.Block)}
		for _, c := range term.Cases {
			out = append(out, c.Target.(*ir.Block))
		}
		return out
	default:
		return nil
	}
}

// callsFunc reports whether fn contains any call to target, anywhere in
// its body.
func callsFunc(fn *ir.Func, target *ir.Func) bool {
	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			if call, ok := inst.(*ir.InstCall); ok && call.Callee == value.Value(target) {
				return true
			}
		}
	}
	return false
}

// DropUnusedSemanticFuncs removes, from the module's emitted function
// list, every semantic body that inlineSemanticCall has already spliced
// into its own wrapper and that no other function in the module still
// calls (spec §4.10: drop the semantic function once nothing needs to
// call it as a separate entity). This runs once, after every function
// reachable from the program has been lifted: a semantic function some
// other not-yet-lifted function might still come to call (mutual
// recursion, a tail-call splice discovered later) must stay a real
// definition in the module until that possibility is closed off, so
// dropping it eagerly inside LiftFunction would risk leaving a later
// call with no definition anywhere in the module to resolve against.
func (l *Lifter) DropUnusedSemanticFuncs() {
	for addr, semFn := range l.semanticFuncs {
		if l.nativeFuncs[addr] == nil {
			continue
		}
		used := false
		for _, fn := range l.Module.Funcs {
			if fn == semFn {
				continue
			}
			if callsFunc(fn, semFn) {
				used = true
				break
			}
		}
		if !used {
			l.removeFromModule(semFn)
		}
	}
}

func (l *Lifter) removeFromModule(fn *ir.Func) {
	kept := make([]*ir.Func, 0, len(l.Module.Funcs))
	for _, f := range l.Module.Funcs {
		if f != fn {
			kept = append(kept, f)
		}
	}
	l.Module.Funcs = kept
}

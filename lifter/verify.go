package lifter

import (
	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"
)

// VerifyFunction performs the structural verification supplement this
// lifter runs in place of linking against a real LLVM module verifier
// (which the pure-Go `llir/llvm` stack does not provide): every block must
// end in a terminator, and every branch target must be a block that
// actually belongs to the function. This catches the two classes of bug a
// work-list CFG builder is most likely to introduce — a block left
// unterminated, or a dangling reference into another function's blocks —
// without attempting a full IR verifier's type and dominance checks.
func VerifyFunction(fn *ir.Func) error {
	known := make(map[*ir.Block]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		known[b] = true
	}
	for _, b := range fn.Blocks {
		if b.Term == nil {
			return errors.Errorf("block %q has no terminator", b.Name())
		}
		for _, succ := range successors(b) {
			if succ != nil && !known[succ] {
				return errors.Errorf("block %q branches to a block outside its function", b.Name())
			}
		}
	}
	return nil
}

package codegen

import "github.com/llir/llvm/ir"

// optimize stands in for the per-function optimization pass the
// distilled module interface names (promote allocas, instcombine,
// reassociate, GVN, CFG simplify). github.com/llir/llvm is an IR
// builder, not a compiler, and ships none of those passes, so there
// is nothing to run here yet; the hook exists, and is gated by
// Config.Optimize, so a real pass can be dropped in without touching
// any lowering rule above it.
func (g *Generator) optimize(fn *ir.Func) {
	if !g.Config.Optimize {
		return
	}
}

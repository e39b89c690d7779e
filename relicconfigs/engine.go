package relicconfigs

import (
	"github.com/reusee/relic/cmds"
	"github.com/reusee/relic/configs"
	"github.com/reusee/relic/jvm"
	"github.com/reusee/relic/vars"
)

type MaxCallDepth int

var maxCallDepthFlag = cmds.Var[int]("-max-call-depth")

func (Module) MaxCallDepth(
	loader configs.Loader,
) MaxCallDepth {
	return MaxCallDepth(vars.FirstNonZero(
		*maxCallDepthFlag,
		configs.First[int](loader, "maxCallDepth"),
		jvm.DefaultOptions().MaxCallDepth,
	))
}

type MaxOperandStack int

var maxOperandStackFlag = cmds.Var[int]("-max-operand-stack")

func (Module) MaxOperandStack(
	loader configs.Loader,
) MaxOperandStack {
	return MaxOperandStack(vars.FirstNonZero(
		*maxOperandStackFlag,
		configs.First[int](loader, "maxOperandStack"),
		jvm.DefaultOptions().MaxOperandStack,
	))
}

// MaxInstructions bounds one invocation or one tick, 0 for no limit.
type MaxInstructions int64

// a pointer so that an explicit 0 is distinguishable from unset
var maxInstructionsFlag = cmds.Var[*int64]("-max-instructions")

func (Module) MaxInstructions(
	loader configs.Loader,
) MaxInstructions {
	if p := *maxInstructionsFlag; p != nil {
		return MaxInstructions(max(*p, 0))
	}
	if p := configs.First[*int64](loader, "maxInstructions"); p != nil {
		return MaxInstructions(*p)
	}
	return MaxInstructions(jvm.DefaultOptions().MaxInstructions)
}

func (Module) JVMOptions(
	depth MaxCallDepth,
	stack MaxOperandStack,
	instructions MaxInstructions,
) jvm.Options {
	return jvm.Options{
		MaxCallDepth:    int(depth),
		MaxOperandStack: int(stack),
		MaxInstructions: int64(instructions),
	}
}

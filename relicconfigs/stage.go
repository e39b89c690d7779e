package relicconfigs

import (
	"github.com/reusee/relic/avm"
	"github.com/reusee/relic/cmds"
	"github.com/reusee/relic/configs"
	"github.com/reusee/relic/stage"
	"github.com/reusee/relic/vars"
)

// StageScale converts host pixels to twips.
type StageScale float64

const DefaultStageScale = 20

var stageScaleFlag = cmds.Var[float64]("-stage-scale")

func (Module) StageScale(
	loader configs.Loader,
) StageScale {
	return StageScale(vars.FirstNonZero(
		*stageScaleFlag,
		configs.First[float64](loader, "stageScale"),
		DefaultStageScale,
	))
}

func (Module) StageOptions(
	depth MaxCallDepth,
	stack MaxOperandStack,
	instructions MaxInstructions,
) stage.Options {
	opts := stage.DefaultOptions()
	opts.Script = avm.Options{
		MaxCallDepth:    int(depth),
		MaxOperandStack: int(stack),
		MaxInstructions: int64(instructions),
	}
	return opts
}

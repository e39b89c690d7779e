package stage

import (
	"github.com/reusee/dscope"
	"github.com/reusee/relic/logs"
)

type Module struct {
	dscope.Module
	Logs logs.Module
}

func (Module) Player(
	opts Options,
	logger logs.Logger,
) *Player {
	return NewPlayer(opts, logger)
}

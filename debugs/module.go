package debugs

import (
	"github.com/reusee/dscope"
	"github.com/reusee/relic/logs"
)

type Module struct {
	dscope.Module
	Logs logs.Module
}

func (Module) Debugger(
	logger logs.Logger,
) *Debugger {
	return NewDebugger(logger)
}

package main

import (
	"github.com/reusee/dscope"
	"github.com/reusee/relic/debugs"
	"github.com/reusee/relic/jvm"
	"github.com/reusee/relic/logs"
	"github.com/reusee/relic/relicconfigs"
	"github.com/reusee/relic/stage"
)

type Module struct {
	dscope.Module
	Configs relicconfigs.Module
	Debugs  debugs.Module
	Stage   stage.Module
}

func (Module) Engine(
	opts jvm.Options,
	logger logs.Logger,
) *jvm.Engine {
	return jvm.NewEngine(opts, logger)
}

package relicconfigs

import (
	"github.com/reusee/dscope"
	"github.com/reusee/relic/logs"
)

type Module struct {
	dscope.Module
	Logs logs.Module
}

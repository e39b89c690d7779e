package stage

import "github.com/reusee/relic/avm"

type Options struct {
	// Script bounds every script run; Version is taken from the movie.
	Script avm.Options
	// MaxScriptsPerTick bounds frame and button scripts queued in one tick.
	MaxScriptsPerTick int
	// MaxObjects bounds the live display objects of one movie.
	MaxObjects int
	// MaxNesting bounds how deep sprites may be placed inside sprites.
	MaxNesting int
}

func DefaultOptions() Options {
	return Options{
		Script:            avm.DefaultOptions(),
		MaxScriptsPerTick: 4096,
		MaxObjects:        65536,
		MaxNesting:        64,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxScriptsPerTick <= 0 {
		o.MaxScriptsPerTick = def.MaxScriptsPerTick
	}
	if o.MaxObjects <= 0 {
		o.MaxObjects = def.MaxObjects
	}
	if o.MaxNesting <= 0 {
		o.MaxNesting = def.MaxNesting
	}
	return o
}

package avm

type Options struct {
	MaxCallDepth    int
	MaxOperandStack int
	// MaxInstructions bounds one script run, 0 means unlimited
	MaxInstructions int64
	// Version is the movie's SWF version; conversions of undefined and
	// strings differ before version 7.
	Version uint8
}

func DefaultOptions() Options {
	return Options{
		MaxCallDepth:    256,
		MaxOperandStack: 4096,
		MaxInstructions: 10_000_000,
		Version:         10,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxCallDepth <= 0 {
		o.MaxCallDepth = def.MaxCallDepth
	}
	if o.MaxOperandStack <= 0 {
		o.MaxOperandStack = def.MaxOperandStack
	}
	if o.MaxInstructions < 0 {
		o.MaxInstructions = 0
	}
	if o.Version == 0 {
		o.Version = def.Version
	}
	return o
}

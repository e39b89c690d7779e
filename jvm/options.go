package jvm

type Options struct {
	// MaxCallDepth bounds the frame count of one thread. Exceeding it
	// throws java/lang/StackOverflowError.
	MaxCallDepth int
	// MaxOperandStack bounds the operand stack of one frame.
	MaxOperandStack int
	// MaxInstructions aborts a thread after this many instructions, 0 for
	// no limit.
	MaxInstructions int64
}

func DefaultOptions() Options {
	return Options{
		MaxCallDepth:    512,
		MaxOperandStack: 4096,
		MaxInstructions: 10_000_000,
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
	return o
}

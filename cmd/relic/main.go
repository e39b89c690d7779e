package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/reusee/dscope"
	"github.com/reusee/relic/cmds"
	"github.com/reusee/relic/modes"
)

// action is set by the sub command seen on the command line
var action func(ctx context.Context, scope dscope.Scope) error

func setAction(fn func(ctx context.Context, scope dscope.Scope) error) {
	if action != nil {
		panic(fmt.Errorf("only one sub command is allowed"))
	}
	action = fn
}

func main() {
	cmds.Execute(os.Args[1:])
	if action == nil {
		cmds.GlobalExecutor.PrintUsage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	scope := dscope.New(
		new(Module),
		modes.ForProduction(),
	)

	if err := action(ctx, scope); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/reusee/dscope"
	"github.com/reusee/relic/cmds"
	"github.com/reusee/relic/jvm"
	"github.com/reusee/relic/logs"
	"github.com/reusee/relic/relicconfigs"
)

var (
	classFlag  = cmds.Var[string]("-class")
	methodFlag = cmds.Var[string]("-method")
	descFlag   = cmds.Var[string]("-desc")
	argFlags   = cmds.Collect[string]("-arg")
)

func init() {
	cmds.Define("invoke", cmds.Func(func(paths []string) {
		setAction(func(ctx context.Context, scope dscope.Scope) (err error) {
			scope.Call(func(
				engine *jvm.Engine,
				decoders relicconfigs.Decoders,
				logger logs.Logger,
				newSpan logs.NewSpan,
			) {
				var names []string
				names, err = loadClasses(engine, decoders, logger, paths)
				if err != nil {
					return
				}
				className, methodName := entry(names)
				ctx, _ := newSpan(ctx, className)
				var result jvm.Value
				result, err = engine.InvokeDesc(ctx, className, methodName, *descFlag, invokeArgs()...)
				if err != nil {
					err = logs.WrapSpan(ctx, err)
					return
				}
				fmt.Fprintln(os.Stdout, formatValue(result))
			})
			return
		})
	}).Desc("run a static method, flags -class -method -desc -arg go before it").Args("<class file>..."))
}

// entry defaults to main of the first loaded class.
func entry(names []string) (className, methodName string) {
	className = *classFlag
	if className == "" {
		className = names[0]
	}
	methodName = *methodFlag
	if methodName == "" {
		methodName = "main"
	}
	return
}

func invokeArgs() []any {
	args := make([]any, 0, len(*argFlags))
	for _, s := range *argFlags {
		if i, err := strconv.ParseInt(s, 0, 32); err == nil {
			args = append(args, int32(i))
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			args = append(args, f)
		} else {
			args = append(args, s)
		}
	}
	return args
}

func formatValue(v jvm.Value) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case *jvm.String:
		return strconv.Quote(v.Value)
	}
	return fmt.Sprint(v)
}

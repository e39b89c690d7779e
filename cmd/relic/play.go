package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/reusee/dscope"
	"github.com/reusee/relic/cmds"
	"github.com/reusee/relic/input"
	"github.com/reusee/relic/logs"
	"github.com/reusee/relic/relicconfigs"
	"github.com/reusee/relic/stage"
)

// scripted input, keyed by the 1-based frame it is delivered after
var inputs = make(map[int][]input.RawEvent)

func init() {
	cmds.Define("-click", cmds.Func(func(frame int, x, y float64) {
		inputs[frame] = append(inputs[frame],
			input.RawEvent{Kind: input.RawPointerMove, X: x, Y: y},
			input.RawEvent{Kind: input.RawPointerDown, X: x, Y: y},
			input.RawEvent{Kind: input.RawPointerUp, X: x, Y: y},
		)
	}).Desc("click at pixel x y after frame").Args("<frame> <x> <y>"))

	cmds.Define("-key", cmds.Func(func(frame int, key string) {
		inputs[frame] = append(inputs[frame],
			input.RawEvent{Kind: input.RawKeyDown, Key: key},
			input.RawEvent{Kind: input.RawKeyUp, Key: key},
		)
	}).Desc("press a key after frame").Args("<frame> <key>"))

	cmds.Define("play", cmds.Func(func(path string, frames int) {
		setAction(func(ctx context.Context, scope dscope.Scope) (err error) {
			scope.Call(func(
				player *stage.Player,
				decoders relicconfigs.Decoders,
				scale relicconfigs.StageScale,
				newSpan logs.NewSpan,
			) {
				ctx, _ := newSpan(ctx, path)
				err = logs.WrapSpan(ctx, play(ctx, os.Stdout, player, decoders, float64(scale), path, frames))
			})
			return
		})
	}).Desc("run a movie for a number of frames and print the commands").Args("<swf> <frames>"))
}

func play(
	ctx context.Context,
	w io.Writer,
	player *stage.Player,
	decoders relicconfigs.Decoders,
	scale float64,
	path string,
	frames int,
) error {
	unit, err := loadMovie(decoders, path)
	if err != nil {
		return err
	}
	h, err := player.Load(path, unit)
	if err != nil {
		return err
	}
	defer player.Unload(h)
	normalizer, err := player.Normalizer(h, scale)
	if err != nil {
		return err
	}

	for n := 1; n <= frames; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tick, err := player.AdvanceFrame(ctx, h)
		if err != nil {
			return err
		}
		printTick(w, tick)
		for _, raw := range inputs[n] {
			ev := normalizer.Feed(raw)
			fmt.Fprintf(w, "  event %v\n", ev)
			tick, err := player.DispatchEvent(ctx, h, ev)
			if err != nil {
				return err
			}
			printTick(w, tick)
		}
	}
	return nil
}

func printTick(w io.Writer, tick stage.Tick) {
	fmt.Fprintf(w, "frame %d\n", tick.Frame)
	for _, cmd := range tick.Commands {
		switch cmd := cmd.(type) {
		case stage.Trace:
			fmt.Fprintf(w, "  trace %s: %s\n", cmd.Clip, cmd.Message)
		default:
			fmt.Fprintf(w, "  %T %+v\n", cmd, cmd)
		}
	}
	for _, fault := range tick.Faults {
		fmt.Fprintf(w, "  fault %v\n", fault)
	}
	for _, diag := range tick.Diagnostics {
		fmt.Fprintf(w, "  diagnostic %s\n", diag)
	}
	if tick.Suspended {
		fmt.Fprintln(w, "  suspended")
	}
}

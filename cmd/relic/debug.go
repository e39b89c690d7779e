package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/reusee/dscope"
	"github.com/reusee/relic/cmds"
	"github.com/reusee/relic/debugs"
	"github.com/reusee/relic/jvm"
	"github.com/reusee/relic/logs"
	"github.com/reusee/relic/relicconfigs"
	"github.com/reusee/relic/stage"
	"github.com/reusee/relic/swf"
	"github.com/reusee/relic/vars"
)

var framesFlag = cmds.Var[int]("-frames")

func init() {
	cmds.Define("debug", cmds.Func(func(paths []string) {
		setAction(func(ctx context.Context, scope dscope.Scope) (err error) {
			if len(paths) == 0 {
				return fmt.Errorf("no files")
			}
			scope.Call(func(
				engine *jvm.Engine,
				player *stage.Player,
				decoders relicconfigs.Decoders,
				debugger *debugs.Debugger,
				tap debugs.Tap,
				logger logs.Logger,
				newSpan logs.NewSpan,
			) {
				ctx, _ := newSpan(ctx, paths[0])
				defer func() {
					err = logs.WrapSpan(ctx, err)
				}()
				var s session
				s, err = newSession(os.Stdout, engine, player, decoders, logger, paths)
				if err != nil {
					return
				}
				defer s.close()
				if err = debugger.Attach(s); err != nil {
					return
				}
				defer debugger.Detach()
				err = runConsole(ctx, &console{
					out:      os.Stdout,
					debugger: debugger,
					session:  s,
					tap:      tap,
				})
			})
			return
		})
	}).Desc("debug class files or a swf movie interactively, -frames bounds movies").Args("<file>..."))
}

// newSession debugs a movie when the first file is a swf, class files
// otherwise.
func newSession(
	out io.Writer,
	engine *jvm.Engine,
	player *stage.Player,
	decoders relicconfigs.Decoders,
	logger logs.Logger,
	paths []string,
) (session, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files")
	}

	unit, err := decodeFile(decoders, paths[0])
	if err != nil {
		return nil, err
	}
	if movie, ok := unit.(*swf.Unit); ok {
		h, err := player.Load(paths[0], movie)
		if err != nil {
			return nil, err
		}
		return &stageSession{
			out:    out,
			player: player,
			handle: h,
			frames: vars.FirstNonZero(*framesFlag, int(movie.Header.FrameCount), 1),
		}, nil
	}

	names, err := loadClasses(engine, decoders, logger, paths)
	if err != nil {
		return nil, err
	}
	className, methodName := entry(names)
	return &jvmSession{
		out:    out,
		engine: engine,
		class:  className,
		method: methodName,
		desc:   *descFlag,
		args:   invokeArgs(),
	}, nil
}

func runConsole(ctx context.Context, c *console) error {
	var historyFile string
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".relic_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "(relic) ",
		HistoryFile: historyFile,
	})
	if err != nil {
		return err
	}
	defer rl.Close()
	c.out = rl.Stdout()

	c.help()
	for {
		line, err := rl.Readline()
		if err != nil { // Ctrl-C or Ctrl-D
			return nil
		}
		err = c.exec(ctx, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
		}
	}
}

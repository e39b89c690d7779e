package main

import (
	"context"
	"fmt"
	"io"

	"github.com/reusee/relic/debugs"
	"github.com/reusee/relic/jvm"
	"github.com/reusee/relic/stage"
)

// session is a program under the debug console.
type session interface {
	debugs.Target
	// run executes until the next pause or the end, reporting whether the
	// program ended
	run(ctx context.Context) (done bool, err error)
	close()
}

type jvmSession struct {
	out    io.Writer
	engine *jvm.Engine
	class  string
	method string
	desc   string
	args   []any
	thread *jvm.Thread
}

var _ session = new(jvmSession)

func (s *jvmSession) SetObserver(o debugs.Observer) {
	s.engine.SetObserver(o)
}

func (s *jvmSession) run(ctx context.Context) (bool, error) {
	if s.thread == nil {
		thread, err := s.engine.NewThread(ctx, s.class, s.method, s.desc, s.args...)
		if err != nil {
			return true, err
		}
		s.thread = thread
	}
	for intr, err := range s.thread.Run {
		if err != nil {
			return true, err
		}
		if intr.Pause {
			return false, nil
		}
	}
	fmt.Fprintf(s.out, "result: %s\n", formatValue(s.thread.Result()))
	return true, nil
}

func (s *jvmSession) close() {
	s.engine.SetObserver(nil)
}

type stageSession struct {
	out       io.Writer
	player    *stage.Player
	handle    stage.MovieHandle
	frames    int
	frame     int
	suspended bool
}

var _ session = new(stageSession)

func (s *stageSession) SetObserver(o debugs.Observer) {
	s.player.SetObserver(o)
}

func (s *stageSession) run(ctx context.Context) (bool, error) {
	if s.suspended {
		tick, err := s.player.Resume(ctx, s.handle)
		if err != nil {
			return true, err
		}
		printTick(s.out, tick)
		if tick.Suspended {
			return false, nil
		}
		s.suspended = false
	}
	for s.frame < s.frames {
		tick, err := s.player.AdvanceFrame(ctx, s.handle)
		if err != nil {
			return true, err
		}
		s.frame++
		printTick(s.out, tick)
		if tick.Suspended {
			s.suspended = true
			return false, nil
		}
	}
	return true, nil
}

func (s *stageSession) close() {
	s.player.Unload(s.handle)
}

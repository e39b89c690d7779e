package stage

import (
	"context"
	"errors"
	"fmt"

	"github.com/reusee/relic/avm"
	"github.com/reusee/relic/debugs"
	"github.com/reusee/relic/input"
	"github.com/reusee/relic/logs"
	"github.com/reusee/relic/swf"
)

type MovieHandle uint32

var (
	ErrUnknownMovie  = errors.New("unknown movie")
	ErrSuspended     = errors.New("script suspended by debugger")
	ErrNotSuspended  = errors.New("no suspended script")
	ErrActionScript3 = errors.New("ActionScript 3 movies are not supported")
)

// Player runs loaded movies. It is driven by one goroutine at a time.
type Player struct {
	opts     Options
	logger   logs.Logger
	observer debugs.Observer
	movies   map[MovieHandle]*movie
	next     MovieHandle
}

var _ debugs.Target = new(Player)

func NewPlayer(opts Options, logger logs.Logger) *Player {
	return &Player{
		opts:   opts.withDefaults(),
		logger: logger,
		movies: make(map[MovieHandle]*movie),
	}
}

func (p *Player) Options() Options {
	return p.opts
}

func (p *Player) SetObserver(o debugs.Observer) {
	p.observer = o
	for _, m := range p.movies {
		m.machine.SetObserver(o)
	}
}

func (p *Player) Load(name string, unit *swf.Unit) (MovieHandle, error) {
	if unit == nil {
		return 0, fmt.Errorf("load %s: nil unit", name)
	}
	for _, tag := range unit.Tags {
		if attrs, ok := tag.(*swf.FileAttributes); ok && attrs.ActionScript3() {
			return 0, fmt.Errorf("load %s: %w", name, ErrActionScript3)
		}
	}

	p.next++
	m := &movie{
		player: p,
		handle: p.next,
		name:   name,
		unit:   unit,
	}
	tl := newTimeline(unit.Tags)
	m.scene = newScene(len(tl.frames))
	m.scene.Background = swf.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	root := m.scene.add(&DisplayObject{
		Kind:     KindSprite,
		Name:     "_level0",
		Path:     "_level0",
		Matrix:   swf.Identity,
		timeline: tl,
	})
	m.scene.Root = root.ID

	scriptOpts := p.opts.Script
	scriptOpts.Version = unit.Header.Version
	m.machine = avm.NewMachine(scriptOpts, host{movie: m}, p.logger)
	if p.observer != nil {
		m.machine.SetObserver(p.observer)
	}
	p.movies[m.handle] = m

	p.logger.Info("movie loaded",
		"movie", name,
		"handle", m.handle,
		"version", unit.Header.Version,
		"frames", len(tl.frames),
	)
	return m.handle, nil
}

func (p *Player) movie(h MovieHandle) (*movie, error) {
	m, ok := p.movies[h]
	if !ok {
		return nil, fmt.Errorf("movie %d: %w", h, ErrUnknownMovie)
	}
	return m, nil
}

func (p *Player) ready(h MovieHandle) (*movie, error) {
	m, err := p.movie(h)
	if err != nil {
		return nil, err
	}
	if m.suspended != nil {
		return nil, fmt.Errorf("movie %s: %w", m.name, ErrSuspended)
	}
	return m, nil
}

func (p *Player) Scene(h MovieHandle) (*SceneState, error) {
	m, err := p.movie(h)
	if err != nil {
		return nil, err
	}
	return m.scene, nil
}

// Machine returns the script machine of a movie, for defining globals.
func (p *Player) Machine(h MovieHandle) (*avm.Machine, error) {
	m, err := p.movie(h)
	if err != nil {
		return nil, err
	}
	return m.machine, nil
}

// AdvanceFrame moves the root timeline one frame, runs the frame's scripts
// and then advances nested sprites.
func (p *Player) AdvanceFrame(ctx context.Context, h MovieHandle) (Tick, error) {
	m, err := p.ready(h)
	if err != nil {
		return Tick{}, err
	}
	ctx = logs.WithUnit(ctx, m.name)
	m.begin(ctx)
	m.pending = append(m.pending, job{
		advance: true,
		obj:     m.scene.Root,
	})
	m.flush()
	m.drain()
	tick := m.finish()
	p.logger.DebugContext(ctx, "frame advanced",
		"movie", m.name,
		"frame", tick.Frame,
		"commands", len(tick.Commands),
		"faults", len(tick.Faults),
	)
	return tick, nil
}

// DispatchEvent applies a normalized event and runs the button scripts
// it triggers.
func (p *Player) DispatchEvent(ctx context.Context, h MovieHandle, ev input.Event) (Tick, error) {
	m, err := p.ready(h)
	if err != nil {
		return Tick{}, err
	}
	ctx = logs.WithUnit(ctx, m.name)
	m.begin(ctx)
	switch {
	case ev.Kind.IsPointer():
		m.pointer(ev)
	default:
		m.key(ev)
	}
	m.flush()
	m.drain()
	return m.finish(), nil
}

// Resume continues a tick suspended by the debugger.
func (p *Player) Resume(ctx context.Context, h MovieHandle) (Tick, error) {
	m, err := p.movie(h)
	if err != nil {
		return Tick{}, err
	}
	if m.suspended == nil {
		return Tick{}, fmt.Errorf("movie %s: %w", m.name, ErrNotSuspended)
	}
	m.begin(logs.WithUnit(ctx, m.name))
	m.drain()
	return m.finish(), nil
}

// Unload drops a movie and its scene. A suspended script is discarded.
func (p *Player) Unload(h MovieHandle) error {
	m, err := p.movie(h)
	if err != nil {
		return err
	}
	delete(p.movies, h)
	if s := m.suspended; s != nil {
		if obs, ok := p.observer.(debugs.UnitObserver); ok {
			if frames := s.thread.Frames(); len(frames) > 0 {
				obs.Unloaded(frames[len(frames)-1].Unit)
			}
		}
	}
	m.suspended = nil
	m.queue = nil
	m.pending = nil
	m.scene.objects = nil
	m.scene.dictionary = nil
	m.machine.SetObserver(nil)
	p.logger.Info("movie unloaded",
		"movie", m.name,
		"handle", h,
	)
	return nil
}

// Normalizer returns an input normalizer over a movie's scene.
func (p *Player) Normalizer(h MovieHandle, scale float64) (*input.Normalizer, error) {
	m, err := p.movie(h)
	if err != nil {
		return nil, err
	}
	return input.NewNormalizer(m.scene, scale), nil
}

package stage

import "github.com/reusee/relic/avm"

// host applies script timeline control to a movie's scene.
type host struct {
	movie *movie
}

var _ avm.Host = host{}

func (h host) Resolve(from, path string) (*avm.Object, bool) {
	m := h.movie
	origin, ok := m.clip(from)
	if !ok {
		return nil, false
	}
	obj, ok := m.resolve(origin, path)
	if !ok || obj.Kind != KindSprite {
		return nil, false
	}
	return m.scopeOf(obj), true
}

func (h host) timeline(target string) (*DisplayObject, bool) {
	obj, ok := h.movie.clip(target)
	if !ok || obj.timeline == nil || obj.halted {
		return nil, false
	}
	return obj, true
}

func (h host) Play(target string) {
	if obj, ok := h.timeline(target); ok {
		obj.timeline.playing = true
	}
}

func (h host) Stop(target string) {
	if obj, ok := h.timeline(target); ok {
		obj.timeline.playing = false
	}
}

func (h host) NextFrame(target string) {
	if obj, ok := h.timeline(target); ok {
		obj.timeline.playing = false
		h.movie.gotoFrame(obj, obj.timeline.current+1)
	}
}

func (h host) PrevFrame(target string) {
	if obj, ok := h.timeline(target); ok {
		obj.timeline.playing = false
		if obj.timeline.current > 0 {
			h.movie.gotoFrame(obj, obj.timeline.current-1)
		}
	}
}

func (h host) GotoFrame(target string, frame int) {
	if obj, ok := h.timeline(target); ok {
		h.movie.gotoFrame(obj, frame)
	}
}

func (h host) GotoLabel(target, label string) bool {
	obj, ok := h.timeline(target)
	if !ok {
		return false
	}
	frame, ok := obj.timeline.label(label)
	if !ok {
		return false
	}
	h.movie.gotoFrame(obj, frame)
	return true
}

func (h host) clipPath() string {
	if obj := h.movie.running; obj != nil {
		return obj.Path
	}
	return ""
}

func (h host) Trace(message string) {
	h.movie.tick.emit(Trace{
		Clip:    h.clipPath(),
		Message: message,
	})
}

func (h host) GetURL(url, window string) {
	h.movie.tick.emit(GetURL{
		Clip:   h.clipPath(),
		URL:    url,
		Window: window,
	})
}

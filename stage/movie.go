package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/reusee/relic/avm"
	"github.com/reusee/relic/swf"
)

type movie struct {
	player  *Player
	handle  MovieHandle
	name    string
	unit    *swf.Unit
	scene   *SceneState
	machine *avm.Machine

	ctx     context.Context
	tick    *Tick
	queue   []job
	pending []job
	scripts int
	running *DisplayObject

	suspended *suspension

	hover       ObjectID
	pressed     ObjectID
	pointerDown bool
}

// job advances a clip's timeline or runs a script in the scope of clip.
type job struct {
	advance bool
	obj     ObjectID
	clip    ObjectID
	script  avm.Script
}

type suspension struct {
	thread *avm.Thread
	obj    ObjectID
	clip   ObjectID
}

func (m *movie) begin(ctx context.Context) {
	m.ctx = ctx
	m.tick = new(Tick)
	m.scripts = 0
}

func (m *movie) finish() Tick {
	tick := *m.tick
	tick.Frame = m.scene.Frame()
	tick.Suspended = m.suspended != nil
	m.tick = nil
	return tick
}

func (m *movie) root() *DisplayObject {
	return m.scene.objects[m.scene.Root]
}

// flush moves jobs created by the last job ahead of the queue.
func (m *movie) flush() {
	if len(m.pending) == 0 {
		return
	}
	m.queue = append(m.pending, m.queue...)
	m.pending = nil
}

// drain runs queued jobs until the queue is empty or a script is paused.
func (m *movie) drain() {
	if s := m.suspended; s != nil {
		m.suspended = nil
		if m.runThread(s.thread, s.obj, s.clip) {
			return
		}
	}
	for len(m.queue) > 0 {
		j := m.queue[0]
		m.queue = m.queue[1:]
		if j.advance {
			m.advanceClip(j.obj)
			m.flush()
			continue
		}
		if m.runScript(j) {
			return
		}
	}
}

func (m *movie) advanceClip(id ObjectID) {
	obj, ok := m.scene.Object(id)
	if !ok || obj.halted || obj.timeline == nil {
		return
	}
	tl := obj.timeline
	switch {
	case tl.current < 0:
		m.gotoFrame(obj, 0)
	case !tl.playing:
	case tl.current+1 < len(tl.frames):
		m.applyFrame(obj, tl.current+1, true)
	case len(tl.frames) > 1:
		// loop, rebuilding the display list from the first frame
		m.gotoFrame(obj, 0)
	}
	for _, childID := range m.scene.Children(obj.ID) {
		if child := m.scene.objects[childID]; child.Kind == KindSprite {
			m.pending = append(m.pending, job{
				advance: true,
				obj:     childID,
			})
		}
	}
}

// gotoFrame moves a timeline to frame i. Frames skipped over apply their
// display tags only; jumping backwards replays from the first frame.
func (m *movie) gotoFrame(obj *DisplayObject, i int) {
	tl := obj.timeline
	i = max(0, min(i, len(tl.frames)-1))
	if i == tl.current {
		return
	}
	if i < tl.current {
		m.clearChildren(obj)
		tl.current = -1
	}
	for f := tl.current + 1; f <= i; f++ {
		m.applyFrame(obj, f, f == i)
	}
}

func (m *movie) applyFrame(obj *DisplayObject, i int, scripts bool) {
	tl := obj.timeline
	tl.current = i
	n := 0
	for _, tag := range tl.frames[i] {
		switch tag := tag.(type) {

		case swf.Definition:
			m.define(tag)

		case *swf.PlaceObject:
			m.place(obj, tag.Depth, tag.CharacterID, tag.Matrix, "", false)

		case *swf.PlaceObject2:
			matrix := swf.Identity
			if tag.HasMatrix {
				matrix = tag.Matrix
			}
			switch {
			case tag.HasCharacter:
				m.place(obj, tag.Depth, tag.CharacterID, matrix, tag.Name, tag.Move)
			case tag.Move:
				m.move(obj, tag.Depth, matrix, tag.HasMatrix)
			}

		case *swf.RemoveObject:
			m.remove(obj, tag.Depth)

		case *swf.RemoveObject2:
			m.remove(obj, tag.Depth)

		case *swf.SetBackgroundColor:
			if obj.ID == m.scene.Root {
				m.scene.Background = tag.Color
				m.tick.emit(SetBackground{
					Color: tag.Color,
				})
			}

		case *swf.DoAction:
			if !scripts {
				continue
			}
			n++
			name := fmt.Sprintf("frame%d", i+1)
			if n > 1 {
				name = fmt.Sprintf("frame%d_%d", i+1, n)
			}
			m.pending = append(m.pending, job{
				obj:  obj.ID,
				clip: obj.ID,
				script: avm.Script{
					Unit:    obj.Path,
					Name:    name,
					Actions: tag.Actions,
				},
			})

		case *swf.UnknownTag:
			m.player.logger.DebugContext(m.ctx, "tag skipped",
				"movie", m.name,
				"tag", tag.TagCode.String(),
				"frame", i+1,
			)
		}
	}
}

func (m *movie) define(def swf.Definition) {
	id := def.CharacterID()
	if prev, ok := m.scene.dictionary[id]; ok {
		if prev != def {
			m.tick.diagnose("character %d redefined", id)
		}
		return
	}
	m.scene.dictionary[id] = def
}

func (m *movie) nesting(obj *DisplayObject) int {
	n := 0
	for obj.Parent != 0 {
		n++
		obj = m.scene.objects[obj.Parent]
	}
	return n
}

func (m *movie) place(parent *DisplayObject, depth, charID uint16, matrix swf.Matrix, name string, replace bool) {
	opts := m.player.opts
	def, ok := m.scene.dictionary[charID]
	if !ok {
		m.tick.diagnose("%s: character %d placed at depth %d before its definition",
			parent.Path, charID, depth)
		return
	}
	if existing, ok := m.scene.At(parent.ID, depth); ok {
		if !replace {
			m.tick.diagnose("%s: depth %d already occupied", parent.Path, depth)
			return
		}
		if name == "" {
			name = existing.Name
		}
		m.destroy(existing)
	}
	if m.scene.Len() >= opts.MaxObjects {
		m.tick.diagnose("%s: object limit %d reached", parent.Path, opts.MaxObjects)
		return
	}

	obj := &DisplayObject{
		Parent:      parent.ID,
		Depth:       depth,
		CharacterID: charID,
		Name:        name,
		Matrix:      matrix,
	}
	switch def := def.(type) {
	case *swf.DefineShape:
		obj.Kind = KindShape
		obj.Bounds = def.Bounds
	case *swf.DefineSprite:
		if m.nesting(parent) >= opts.MaxNesting {
			m.tick.diagnose("%s: sprite %d nested deeper than %d", parent.Path, charID, opts.MaxNesting)
			return
		}
		obj.Kind = KindSprite
		obj.timeline = newTimeline(def.Tags)
	case *swf.DefineButton:
		obj.Kind = KindButton
		obj.button = def
		obj.Bounds = def.HitBounds(m.scene.shapeBounds)
	default:
		obj.Kind = KindOther
	}
	m.scene.add(obj)
	if obj.Name == "" {
		obj.Name = fmt.Sprintf("instance%d", obj.ID)
	}
	obj.Path = parent.Path + "/" + obj.Name
	parent.Children[depth] = obj.ID

	m.tick.emit(Place{
		Object:      obj.ID,
		Parent:      parent.ID,
		Depth:       depth,
		CharacterID: charID,
		Kind:        obj.Kind,
		Name:        obj.Name,
		Matrix:      matrix,
	})
}

func (m *movie) move(parent *DisplayObject, depth uint16, matrix swf.Matrix, hasMatrix bool) {
	obj, ok := m.scene.At(parent.ID, depth)
	if !ok {
		m.tick.diagnose("%s: nothing to move at depth %d", parent.Path, depth)
		return
	}
	if !hasMatrix {
		return
	}
	obj.Matrix = matrix
	m.tick.emit(Move{
		Object: obj.ID,
		Matrix: matrix,
	})
}

func (m *movie) remove(parent *DisplayObject, depth uint16) {
	obj, ok := m.scene.At(parent.ID, depth)
	if !ok {
		m.tick.diagnose("%s: nothing to remove at depth %d", parent.Path, depth)
		return
	}
	m.destroy(obj)
}

// destroy removes obj and its subtree from the arena, dropping their
// script scopes.
func (m *movie) destroy(obj *DisplayObject) {
	m.tick.emit(Remove{
		Object: obj.ID,
		Parent: obj.Parent,
		Depth:  obj.Depth,
	})
	if parent, ok := m.scene.objects[obj.Parent]; ok {
		delete(parent.Children, obj.Depth)
	}
	m.drop(obj)
}

func (m *movie) drop(obj *DisplayObject) {
	for _, id := range obj.Children {
		m.drop(m.scene.objects[id])
	}
	delete(m.scene.objects, obj.ID)
	obj.scope = nil
	if m.hover == obj.ID {
		m.hover = 0
	}
	if m.pressed == obj.ID {
		m.pressed = 0
	}
}

func (m *movie) clearChildren(obj *DisplayObject) {
	for _, id := range m.scene.Children(obj.ID) {
		m.destroy(m.scene.objects[id])
	}
}

func (m *movie) scopeOf(obj *DisplayObject) *avm.Object {
	if obj.scope == nil {
		obj.scope = avm.NewClip(obj.Path, nil)
	}
	return obj.scope
}

func (m *movie) runScript(j job) bool {
	obj, ok := m.scene.Object(j.obj)
	if !ok || obj.halted {
		return false
	}
	clip, ok := m.scene.Object(j.clip)
	if !ok || clip.halted {
		return false
	}
	m.scripts++
	if limit := m.player.opts.MaxScriptsPerTick; m.scripts > limit {
		if m.scripts == limit+1 {
			m.tick.diagnose("more than %d scripts in one tick, skipping the rest", limit)
		}
		return false
	}
	t := m.machine.NewThread(m.ctx, j.script, m.scopeOf(clip))
	return m.runThread(t, obj.ID, clip.ID)
}

// runThread runs t until it finishes, faults or pauses, and reports
// whether it paused.
func (m *movie) runThread(t *avm.Thread, objID, clipID ObjectID) bool {
	m.running, _ = m.scene.Object(clipID)
	defer func() {
		m.running = nil
	}()
	for intr, err := range t.Run {
		if err != nil {
			m.fault(objID, err)
			break
		}
		if intr.Pause {
			m.suspended = &suspension{
				thread: t,
				obj:    objID,
				clip:   clipID,
			}
			m.player.logger.InfoContext(m.ctx, "script suspended",
				"movie", m.name,
				"location", intr.Location.String(),
				"depth", intr.Depth,
			)
			return true
		}
	}
	m.flush()
	return false
}

// fault halts the object whose script failed.
func (m *movie) fault(id ObjectID, err error) {
	obj, ok := m.scene.Object(id)
	if !ok {
		return
	}
	obj.halted = true
	m.tick.Faults = append(m.tick.Faults, ScriptFault{
		Clip:   obj.Path,
		Object: obj.ID,
		Err:    err,
	})
	m.player.logger.WarnContext(m.ctx, "clip halted",
		"movie", m.name,
		"clip", obj.Path,
		"error", err,
	)
}

// resolve finds a clip by a slash or dot path relative to from.
func (m *movie) resolve(from *DisplayObject, path string) (*DisplayObject, bool) {
	cur := from
	if rest, ok := strings.CutPrefix(path, "/"); ok {
		cur = m.root()
		path = rest
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			parent, ok := m.scene.objects[cur.Parent]
			if !ok {
				return nil, false
			}
			cur = parent
			continue
		}
		for _, seg := range strings.Split(part, ".") {
			next, ok := m.segment(cur, seg)
			if !ok {
				return nil, false
			}
			cur = next
		}
	}
	return cur, true
}

func (m *movie) segment(cur *DisplayObject, seg string) (*DisplayObject, bool) {
	switch seg {
	case "", "this":
		return cur, true
	case "_root", "_level0":
		return m.root(), true
	case "_parent":
		parent, ok := m.scene.objects[cur.Parent]
		return parent, ok
	}
	if cur.Kind != KindSprite {
		return nil, false
	}
	for _, id := range m.scene.Children(cur.ID) {
		child := m.scene.objects[id]
		if child.Kind == KindSprite && strings.EqualFold(child.Name, seg) {
			return child, true
		}
	}
	return nil, false
}

// clip finds a clip by target path.
func (m *movie) clip(target string) (*DisplayObject, bool) {
	return m.resolve(m.root(), target)
}

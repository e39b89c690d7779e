package swf

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/reusee/relic/units"
)

func sampleMovie() *MovieBuilder {
	b := NewMovieBuilder(10)
	b.Tag(TagFileAttributes, []byte{0x08, 0, 0, 0})
	b.SetBackgroundColor(RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff})
	b.DefineShape(1, Rect{Xmin: 0, Xmax: 200, Ymin: 0, Ymax: 100})
	b.PlaceObject2(1, 1, Matrix{ScaleX: 1, ScaleY: 1, TranslateX: 40, TranslateY: -20}, "box")
	b.DoAction(NewActionWriter().
		PushString("x").
		PushNumber(1.5).
		Op(ActionSetVariable).
		Op(ActionStop).
		Bytes())
	b.FrameLabel("start")
	b.ShowFrame()
	b.Tag(TagCode(777), []byte{1, 2, 3})
	b.DefineSprite(2, NewMovieBuilder(10).
		PlaceObject2(1, 1, Identity, "").
		ShowFrame())
	b.DefineButton2(3,
		[]ButtonRecord{
			{States: StateUp | StateOver | StateDown | StateHitTest, CharacterID: 1, Depth: 1, Matrix: Identity},
		},
		[]ButtonCondition{CondIdleToOverUp, CondOverDownToOverUp},
		[][]byte{
			NewActionWriter().PushString("over").Op(ActionTrace).Bytes(),
			NewActionWriter().GetURL("http://example.com", "_blank").Bytes(),
		},
	)
	b.RemoveObject2(1)
	b.ShowFrame()
	return b
}

func TestDecodeMovie(t *testing.T) {
	unit, err := Decode(sampleMovie().Bytes())
	if err != nil {
		t.Fatal(err)
	}
	h := unit.Header
	if h.Version != 10 || h.FrameCount != 2 || h.FrameRate != 12 {
		t.Fatalf("got %+v", h)
	}
	if h.FrameSize.Width() != 550*20 {
		t.Fatalf("got %+v", h.FrameSize)
	}

	var codes []TagCode
	for _, tag := range unit.Tags {
		codes = append(codes, tag.Code())
	}
	want := []TagCode{
		TagFileAttributes, TagSetBackgroundColor, TagDefineShape, TagPlaceObject2,
		TagDoAction, TagFrameLabel, TagShowFrame, 777, TagDefineSprite,
		TagDefineButton2, TagRemoveObject2, TagShowFrame, TagEnd,
	}
	if !reflect.DeepEqual(codes, want) {
		t.Fatalf("got %v", codes)
	}

	if !unit.Tags[0].(*FileAttributes).ActionScript3() {
		t.Fatal("expecting as3 flag")
	}
	shape := unit.Tags[2].(*DefineShape)
	if shape.ID != 1 || shape.Bounds != (Rect{Xmax: 200, Ymax: 100}) {
		t.Fatalf("got %+v", shape)
	}
	place := unit.Tags[3].(*PlaceObject2)
	if !place.HasCharacter || place.CharacterID != 1 || place.Name != "box" ||
		place.Matrix.TranslateX != 40 || place.Matrix.TranslateY != -20 {
		t.Fatalf("got %+v", place)
	}

	actions := unit.Tags[4].(*DoAction).Actions
	if len(actions) != 5 {
		t.Fatalf("got %d actions", len(actions))
	}
	push := actions[1].Payload.(Push)
	if push.Values[0].Type != PushDouble || push.Values[0].Number != 1.5 {
		t.Fatalf("got %+v", push)
	}
	if actions[4].Code != ActionEnd {
		t.Fatalf("got %v", actions[4].Code)
	}

	unknown := unit.Tags[7].(*UnknownTag)
	if unknown.Recognized() || !reflect.DeepEqual(unknown.Raw, []byte{1, 2, 3}) {
		t.Fatalf("got %+v", unknown)
	}

	sprite := unit.Tags[8].(*DefineSprite)
	if sprite.ID != 2 || sprite.FrameCount != 1 || len(sprite.Tags) != 3 {
		t.Fatalf("got %+v", sprite)
	}

	button := unit.Tags[9].(*DefineButton)
	if button.Version != 2 || len(button.Records) != 1 || len(button.Actions) != 2 {
		t.Fatalf("got %+v", button)
	}
	if !button.Actions[0].Conditions.Has(CondIdleToOverUp) {
		t.Fatal("bad condition")
	}
	url := button.Actions[1].Actions[0].Payload.(GetURL)
	if url.URL != "http://example.com" || url.Target != "_blank" {
		t.Fatalf("got %+v", url)
	}
	hit := button.HitBounds(func(id uint16) (Rect, bool) {
		return shape.Bounds, id == 1
	})
	if hit != shape.Bounds {
		t.Fatalf("got %+v", hit)
	}
}

func TestCompressedEquivalence(t *testing.T) {
	b := sampleMovie()
	plain, err := Decode(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	for _, sig := range []string{"CWS", "ZWS"} {
		t.Run(sig, func(t *testing.T) {
			data, err := b.Compressed(sig)
			if err != nil {
				t.Fatal(err)
			}
			unit, err := Decode(data)
			if err != nil {
				t.Fatal(err)
			}
			if unit.Header.Signature != sig || !unit.Header.Compressed() {
				t.Fatalf("got %s", unit.Header.Signature)
			}
			unit.Header.Signature = "FWS"
			if !reflect.DeepEqual(unit, plain) {
				t.Fatal("compressed movie decodes differently")
			}

			_, err = Decode(data[:len(data)/2])
			var pe *units.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("got %v", err)
			}
		})
	}
}

func TestDecodeIdempotent(t *testing.T) {
	data := sampleMovie().Bytes()
	a, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("not idempotent")
	}
}

func TestDecodeErrors(t *testing.T) {
	data := sampleMovie().Bytes()

	bad := append([]byte("XWS"), data[3:]...)
	if _, err := Decode(bad); !errors.Is(err, units.ErrBadMagic) {
		t.Fatalf("got %v", err)
	}
	if _, err := Decode([]byte("Q")); !errors.Is(err, units.ErrBadMagic) {
		t.Fatalf("got %v", err)
	}

	version := append([]byte(nil), data...)
	version[3] = 0
	if _, err := Decode(version); !errors.Is(err, units.ErrUnsupportedVersion) {
		t.Fatalf("got %v", err)
	}

	// a tag claiming more bytes than remain
	long := NewMovieBuilder(8).Bytes()
	long = long[:len(long)-2]
	long = binary.LittleEndian.AppendUint16(long, uint16(TagDoAction)<<6|10)
	long = append(long, 1, 2)
	_, err := Decode(long)
	var pe *units.ParseError
	if !errors.As(err, &pe) || pe.Kind != units.Truncated || pe.Offset != len(long)-4 {
		t.Fatalf("got %v", err)
	}

	// no End tag
	open := NewMovieBuilder(8).ShowFrame().Bytes()
	open = open[:len(open)-2]
	unit, err := Decode(open)
	if err != nil {
		t.Fatal(err)
	}
	if len(unit.Tags) != 1 {
		t.Fatalf("got %v", unit.Tags)
	}
}

func TestLegacyStrings(t *testing.T) {
	b := NewMovieBuilder(5)
	b.Tag(TagFrameLabel, []byte{0x93, 'h', 'i', 0x94, 0})
	unit, err := Decode(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if name := unit.Tags[0].(*FrameLabel).Name; name != "“hi”" {
		t.Fatalf("got %q", name)
	}
}

func TestActionBranches(t *testing.T) {
	block := NewActionWriter().
		PushBool(true).
		If("yes").
		PushString("no").
		Jump("end").
		Label("yes").
		PushString("yes").
		Label("end").
		Op(ActionTrace).
		Bytes()
	actions, err := (&decoder{version: 10}).decodeActions(
		units.NewReader(units.FormatSWF, binary.LittleEndian, block))
	if err != nil {
		t.Fatal(err)
	}
	branch := actions[1]
	target := branch.End + int(branch.Payload.(If).Offset)
	i, ok := actions.IndexAt(target)
	if !ok || actions[i].Payload.(Push).Values[0].String != "yes" {
		t.Fatalf("got %d %v", i, ok)
	}
	jump := actions[3]
	i, ok = actions.IndexAt(jump.End + int(jump.Payload.(Jump).Offset))
	if !ok || actions[i].Code != ActionTrace {
		t.Fatalf("got %d %v", i, ok)
	}
	if _, ok := actions.IndexAt(1); ok {
		t.Fatal("offset 1 is inside an action")
	}
}

func TestMatrix(t *testing.T) {
	m := Matrix{ScaleX: 2, ScaleY: 2, TranslateX: 100, TranslateY: 50}
	x, y := m.Apply(10, 10)
	if x != 120 || y != 70 {
		t.Fatalf("got %d %d", x, y)
	}
	ix, iy, ok := m.Invert(x, y)
	if !ok || ix != 10 || iy != 10 {
		t.Fatalf("got %d %d", ix, iy)
	}
	outer := Matrix{ScaleX: 1, ScaleY: 1, TranslateX: 5}
	x, y = outer.Concat(m).Apply(10, 10)
	if x != 125 || y != 70 {
		t.Fatalf("got %d %d", x, y)
	}
	b := m.Bounds(Rect{Xmax: 10, Ymax: 10})
	if b != (Rect{Xmin: 100, Xmax: 120, Ymin: 50, Ymax: 70}) {
		t.Fatalf("got %+v", b)
	}
}

func FuzzDecode(f *testing.F) {
	f.Add(sampleMovie().Bytes())
	if data, err := sampleMovie().Compressed("CWS"); err == nil {
		f.Add(data)
	}
	f.Add([]byte("FWS\x08\x10\x00\x00\x00"))
	f.Fuzz(func(t *testing.T, data []byte) {
		_, err := Decode(data)
		if err == nil {
			return
		}
		var pe *units.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("got %T %v", err, err)
		}
	})
}

package swf

import (
	"github.com/reusee/relic/units"
)

// Rect is in twips.
type Rect struct {
	Xmin, Xmax int32
	Ymin, Ymax int32
}

func (r Rect) Width() int32 {
	return r.Xmax - r.Xmin
}

func (r Rect) Height() int32 {
	return r.Ymax - r.Ymin
}

func (r Rect) Contains(x, y int32) bool {
	return x >= r.Xmin && x < r.Xmax && y >= r.Ymin && y < r.Ymax
}

func (r Rect) Empty() bool {
	return r.Xmin >= r.Xmax || r.Ymin >= r.Ymax
}

// Union returns the smallest rect covering both; empty rects are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		Xmin: min(r.Xmin, o.Xmin),
		Xmax: max(r.Xmax, o.Xmax),
		Ymin: min(r.Ymin, o.Ymin),
		Ymax: max(r.Ymax, o.Ymax),
	}
}

func readRect(r *units.Reader) (ret Rect, err error) {
	bits := units.NewBitReader(r)
	n, err := bits.ReadUB(5)
	if err != nil {
		return
	}
	for _, p := range []*int32{&ret.Xmin, &ret.Xmax, &ret.Ymin, &ret.Ymax} {
		if *p, err = bits.ReadSB(uint(n)); err != nil {
			return
		}
	}
	return
}

// Matrix is an affine transform; translation is in twips.
type Matrix struct {
	ScaleX, ScaleY           float64
	RotateSkew0, RotateSkew1 float64
	TranslateX, TranslateY   int32
}

var Identity = Matrix{
	ScaleX: 1,
	ScaleY: 1,
}

func (m Matrix) Apply(x, y int32) (int32, int32) {
	fx, fy := float64(x), float64(y)
	return int32(fx*m.ScaleX+fy*m.RotateSkew1) + m.TranslateX,
		int32(fx*m.RotateSkew0+fy*m.ScaleY) + m.TranslateY
}

// Invert maps a point back into the matrix's source space.
func (m Matrix) Invert(x, y int32) (int32, int32, bool) {
	det := m.ScaleX*m.ScaleY - m.RotateSkew0*m.RotateSkew1
	if det == 0 {
		return 0, 0, false
	}
	fx := float64(x - m.TranslateX)
	fy := float64(y - m.TranslateY)
	return int32((fx*m.ScaleY - fy*m.RotateSkew1) / det),
		int32((fy*m.ScaleX - fx*m.RotateSkew0) / det),
		true
}

// Concat returns m applied after inner.
func (m Matrix) Concat(inner Matrix) Matrix {
	tx, ty := m.Apply(inner.TranslateX, inner.TranslateY)
	return Matrix{
		ScaleX:      m.ScaleX*inner.ScaleX + m.RotateSkew1*inner.RotateSkew0,
		RotateSkew1: m.ScaleX*inner.RotateSkew1 + m.RotateSkew1*inner.ScaleY,
		RotateSkew0: m.RotateSkew0*inner.ScaleX + m.ScaleY*inner.RotateSkew0,
		ScaleY:      m.RotateSkew0*inner.RotateSkew1 + m.ScaleY*inner.ScaleY,
		TranslateX:  tx,
		TranslateY:  ty,
	}
}

// Bounds transforms the four corners of r and returns their bounding box.
func (m Matrix) Bounds(r Rect) Rect {
	var out Rect
	for i, p := range [][2]int32{
		{r.Xmin, r.Ymin}, {r.Xmax, r.Ymin}, {r.Xmin, r.Ymax}, {r.Xmax, r.Ymax},
	} {
		x, y := m.Apply(p[0], p[1])
		if i == 0 {
			out = Rect{Xmin: x, Xmax: x, Ymin: y, Ymax: y}
			continue
		}
		out.Xmin = min(out.Xmin, x)
		out.Xmax = max(out.Xmax, x)
		out.Ymin = min(out.Ymin, y)
		out.Ymax = max(out.Ymax, y)
	}
	return out
}

func readMatrix(r *units.Reader) (ret Matrix, err error) {
	ret = Identity
	bits := units.NewBitReader(r)
	hasScale, err := bits.ReadBit()
	if err != nil {
		return
	}
	if hasScale {
		n, err := bits.ReadUB(5)
		if err != nil {
			return ret, err
		}
		if ret.ScaleX, err = bits.ReadFB(uint(n)); err != nil {
			return ret, err
		}
		if ret.ScaleY, err = bits.ReadFB(uint(n)); err != nil {
			return ret, err
		}
	}
	hasRotate, err := bits.ReadBit()
	if err != nil {
		return
	}
	if hasRotate {
		n, err := bits.ReadUB(5)
		if err != nil {
			return ret, err
		}
		if ret.RotateSkew0, err = bits.ReadFB(uint(n)); err != nil {
			return ret, err
		}
		if ret.RotateSkew1, err = bits.ReadFB(uint(n)); err != nil {
			return ret, err
		}
	}
	n, err := bits.ReadUB(5)
	if err != nil {
		return
	}
	if ret.TranslateX, err = bits.ReadSB(uint(n)); err != nil {
		return
	}
	ret.TranslateY, err = bits.ReadSB(uint(n))
	return
}

type RGBA struct {
	R, G, B, A uint8
}

func readRGB(r *units.Reader) (ret RGBA, err error) {
	b, err := r.ReadBytes(3)
	if err != nil {
		return
	}
	return RGBA{R: b[0], G: b[1], B: b[2], A: 0xff}, nil
}

// ColorTransform multiplies by Mult/256 and then adds Add, per channel
// in RGBA order.
type ColorTransform struct {
	Mult [4]int32
	Add  [4]int32
}

var NoColorTransform = ColorTransform{
	Mult: [4]int32{256, 256, 256, 256},
}

func readColorTransform(r *units.Reader, withAlpha bool) (ret ColorTransform, err error) {
	ret = NoColorTransform
	bits := units.NewBitReader(r)
	hasAdd, err := bits.ReadBit()
	if err != nil {
		return
	}
	hasMult, err := bits.ReadBit()
	if err != nil {
		return
	}
	n, err := bits.ReadUB(4)
	if err != nil {
		return
	}
	channels := 3
	if withAlpha {
		channels = 4
	}
	if hasMult {
		for i := range channels {
			if ret.Mult[i], err = bits.ReadSB(uint(n)); err != nil {
				return
			}
		}
	}
	if hasAdd {
		for i := range channels {
			if ret.Add[i], err = bits.ReadSB(uint(n)); err != nil {
				return
			}
		}
	}
	return
}

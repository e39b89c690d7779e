package dcr

import (
	"sort"

	"github.com/reusee/relic/units"
)

type Header struct {
	// "RIFX" for big endian files, "XFIR" for little endian
	Magic    string
	Length   uint32
	FormType string
}

// Compressed reports the Shockwave form type, whose chunk payloads are
// zlib streams.
func (h Header) Compressed() bool {
	return h.FormType == "FGDM"
}

type Config struct {
	Length      uint16
	FileVersion uint16
	StageTop    int16
	StageLeft   int16
	StageBottom int16
	StageRight  int16
	MinMember   uint16
	MaxMember   uint16
	FrameRate   uint16
}

func (c Config) StageWidth() int {
	return int(c.StageRight) - int(c.StageLeft)
}

func (c Config) StageHeight() int {
	return int(c.StageBottom) - int(c.StageTop)
}

// SpriteEntry places a cast member in one channel of one frame.
type SpriteEntry struct {
	Channel    uint16
	CastMember uint16
	X          int16
	Y          int16
	Width      uint16
	Height     uint16
	Ink        uint8
	Flags      uint8
}

type Frame struct {
	// 1-based
	Number  int
	Sprites []SpriteEntry
}

// Sprite is a score channel and the frames it is occupied in.
type Sprite struct {
	Channel    uint16
	FirstFrame int
	LastFrame  int
}

type Script struct {
	Frame    int
	Bytecode []byte
}

type Text struct {
	Offset int
	Text   string
	Format []byte
}

// Chunk is a chunk the decoder keeps without interpreting.
type Chunk struct {
	ID     string
	Offset int
	Data   []byte
}

type Unit struct {
	Header  Header
	Config  Config
	Sprites []Sprite
	Frames  []Frame
	// keyed by frame number
	Scripts map[int]*Script
	Texts   []Text
	Chunks  []Chunk
}

var _ units.Unit = new(Unit)

func (u *Unit) Format() units.Format {
	return units.FormatDCR
}

func (u *Unit) Frame(n int) (Frame, bool) {
	if n < 1 || n > len(u.Frames) {
		return Frame{}, false
	}
	return u.Frames[n-1], true
}

// ScriptFrames lists the frames with scripts in order.
func (u *Unit) ScriptFrames() []int {
	ret := make([]int, 0, len(u.Scripts))
	for n := range u.Scripts {
		ret = append(ret, n)
	}
	sort.Ints(ret)
	return ret
}

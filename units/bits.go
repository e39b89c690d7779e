package units

// BitReader reads MSB-first bit fields, as used by SWF rectangles and matrices.
type BitReader struct {
	r     *Reader
	cur   byte
	avail uint
}

func NewBitReader(r *Reader) *BitReader {
	return &BitReader{
		r: r,
	}
}

func (b *BitReader) ReadBit() (bool, error) {
	v, err := b.ReadUB(1)
	return v == 1, err
}

func (b *BitReader) ReadUB(n uint) (uint32, error) {
	if n > 32 {
		return 0, b.r.Errorf(MalformedField, "bit field of %d bits", n)
	}
	var v uint32
	for range n {
		if b.avail == 0 {
			c, err := b.r.ReadByte()
			if err != nil {
				return 0, err
			}
			b.cur = c
			b.avail = 8
		}
		b.avail--
		v = v<<1 | uint32(b.cur>>b.avail)&1
	}
	return v, nil
}

func (b *BitReader) ReadSB(n uint) (int32, error) {
	v, err := b.ReadUB(n)
	if err != nil || n == 0 {
		return 0, err
	}
	if n < 32 && v&(1<<(n-1)) != 0 {
		v |= ^uint32(0) << n
	}
	return int32(v), nil
}

// ReadFB reads a signed 16.16 fixed-point value.
func (b *BitReader) ReadFB(n uint) (float64, error) {
	v, err := b.ReadSB(n)
	return float64(v) / 65536, err
}

// Align drops the remaining bits of the current byte.
func (b *BitReader) Align() {
	b.avail = 0
}

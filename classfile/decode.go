package classfile

import (
	"encoding/binary"
	"math"

	"github.com/reusee/relic/units"
)

type Decoder struct{}

var _ units.Decoder = Decoder{}

func (Decoder) Format() units.Format {
	return units.FormatClass
}

func (Decoder) Match(data []byte) bool {
	return len(data) >= 4 && binary.BigEndian.Uint32(data) == Magic
}

func (Decoder) Decode(data []byte) (units.Unit, error) {
	return Decode(data)
}

type header struct {
	Magic uint32
	Minor uint16
	Major uint16
}

// Decode parses a class file. The constant pool is read and validated
// before anything that indexes into it.
func Decode(data []byte) (*Unit, error) {
	r := units.NewReader(units.FormatClass, binary.BigEndian, data)

	var h header
	magic := []byte{0xca, 0xfe, 0xba, 0xbe}
	for i := 0; i < len(data) && i < len(magic); i++ {
		if data[i] != magic[i] {
			return nil, r.Errorf(units.BadMagic, "not a class file")
		}
	}
	if err := r.Unpack(&h); err != nil {
		return nil, err
	}
	if h.Major < MinMajorVersion || h.Major > MaxMajorVersion {
		return nil, units.Errorf(units.FormatClass, units.UnsupportedVersion, 6,
			"major version %d", h.Major)
	}

	unit := &Unit{
		Magic: h.Magic,
		Minor: h.Minor,
		Major: h.Major,
	}

	var err error
	if unit.Pool, err = decodePool(r); err != nil {
		return nil, err
	}

	if unit.AccessFlags, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	offset := r.Offset()
	if unit.ThisClass, err = readHandle(r); err != nil {
		return nil, err
	}
	if unit.Name, err = unit.Pool.ClassName(unit.ThisClass); err != nil {
		return nil, malformed(offset, "this_class: %v", err)
	}
	offset = r.Offset()
	if unit.SuperClass, err = readHandle(r); err != nil {
		return nil, err
	}
	if unit.SuperClass != 0 {
		if unit.SuperName, err = unit.Pool.ClassName(unit.SuperClass); err != nil {
			return nil, malformed(offset, "super_class: %v", err)
		}
	}

	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	for range count {
		offset := r.Offset()
		h, err := readHandle(r)
		if err != nil {
			return nil, err
		}
		name, err := unit.Pool.ClassName(h)
		if err != nil {
			return nil, malformed(offset, "interface: %v", err)
		}
		unit.Interfaces = append(unit.Interfaces, h)
		unit.InterfaceSet = append(unit.InterfaceSet, name)
	}

	if unit.Fields, err = decodeMembers(r, unit.Pool, false); err != nil {
		return nil, err
	}
	if unit.Methods, err = decodeMembers(r, unit.Pool, true); err != nil {
		return nil, err
	}
	if unit.Attributes, err = decodeAttributes(r, unit.Pool); err != nil {
		return nil, err
	}
	for _, attr := range unit.Attributes {
		if attr.Name != "SourceFile" {
			continue
		}
		ar := units.NewReader(units.FormatClass, binary.BigEndian, attr.Data)
		h, err := readHandle(ar)
		if err != nil {
			return nil, err
		}
		if unit.SourceFile, err = unit.Pool.Utf8(h); err != nil {
			return nil, malformed(r.Offset(), "SourceFile: %v", err)
		}
	}

	if r.Remaining() != 0 {
		return nil, malformed(r.Offset(), "%d trailing bytes", r.Remaining())
	}
	return unit, nil
}

func malformed(offset int, reason string, args ...any) error {
	return units.Errorf(units.FormatClass, units.MalformedField, offset, reason, args...)
}

func readHandle(r *units.Reader) (Handle, error) {
	v, err := r.ReadUint16()
	return Handle(v), err
}

func decodePool(r *units.Reader) (ConstantPool, error) {
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, r.Errorf(units.MalformedField, "constant pool count is zero")
	}
	pool := make(ConstantPool, count)
	offsets := make([]int, count)
	for i := 1; i < int(count); i++ {
		offsets[i] = r.Offset()
		tag, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		c := Constant{Tag: Tag(tag)}
		switch c.Tag {

		case TagUtf8:
			n, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			raw, err := r.ReadBytes(int(n))
			if err != nil {
				return nil, err
			}
			s, ok := decodeModifiedUTF8(raw)
			if !ok {
				return nil, malformed(offsets[i], "constant #%d: invalid modified UTF-8", i)
			}
			c.Utf8 = s

		case TagInteger:
			if c.Int, err = r.ReadInt32(); err != nil {
				return nil, err
			}

		case TagFloat:
			if c.Float, err = r.ReadFloat32(); err != nil {
				return nil, err
			}

		case TagLong, TagDouble:
			v, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			if c.Tag == TagLong {
				c.Long = int64(v)
			} else {
				c.Double = math.Float64frombits(v)
			}
			if i+1 >= int(count) {
				return nil, malformed(offsets[i], "constant #%d: 8-byte constant in last slot", i)
			}
			pool[i] = c
			i++
			continue

		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			if c.A, err = readHandle(r); err != nil {
				return nil, err
			}

		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType,
			TagDynamic, TagInvokeDynamic:
			if c.A, err = readHandle(r); err != nil {
				return nil, err
			}
			if c.B, err = readHandle(r); err != nil {
				return nil, err
			}

		case TagMethodHandle:
			if c.RefKind, err = r.ReadUint8(); err != nil {
				return nil, err
			}
			if c.RefKind < 1 || c.RefKind > 9 {
				return nil, malformed(offsets[i], "constant #%d: reference kind %d", i, c.RefKind)
			}
			if c.B, err = readHandle(r); err != nil {
				return nil, err
			}

		default:
			return nil, malformed(offsets[i], "constant #%d: unknown tag %d", i, tag)
		}
		pool[i] = c
	}

	// references may point forward, so check them once every entry exists
	for i, c := range pool {
		if c.Tag == 0 {
			continue
		}
		var err error
		switch c.Tag {
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			_, err = pool.expect(c.A, TagUtf8)
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			if _, err = pool.expect(c.A, TagClass); err == nil {
				_, err = pool.expect(c.B, TagNameAndType)
			}
		case TagNameAndType:
			if _, err = pool.expect(c.A, TagUtf8); err == nil {
				_, err = pool.expect(c.B, TagUtf8)
			}
		case TagDynamic, TagInvokeDynamic:
			_, err = pool.expect(c.B, TagNameAndType)
		case TagMethodHandle:
			_, err = pool.expect(c.B, TagFieldref, TagMethodref, TagInterfaceMethodref)
		}
		if err != nil {
			return nil, malformed(offsets[i], "constant #%d: %v", i, err)
		}
	}

	return pool, nil
}

func decodeMembers(r *units.Reader, pool ConstantPool, methods bool) ([]*Member, error) {
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	members := make([]*Member, 0, count)
	for range count {
		offset := r.Offset()
		m := new(Member)
		if m.AccessFlags, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		nameIndex, err := readHandle(r)
		if err != nil {
			return nil, err
		}
		descIndex, err := readHandle(r)
		if err != nil {
			return nil, err
		}
		if m.Name, err = pool.Utf8(nameIndex); err != nil {
			return nil, malformed(offset, "member name: %v", err)
		}
		if m.Descriptor, err = pool.Utf8(descIndex); err != nil {
			return nil, malformed(offset, "member descriptor: %v", err)
		}
		if methods {
			if _, err := ParseMethodDescriptor(m.Descriptor); err != nil {
				return nil, malformed(offset, "%v", err)
			}
		} else if !ValidFieldDescriptor(m.Descriptor) {
			return nil, malformed(offset, "bad field descriptor %q", m.Descriptor)
		}
		if m.Attributes, err = decodeAttributes(r, pool); err != nil {
			return nil, err
		}
		for _, attr := range m.Attributes {
			switch attr.Name {
			case "Code":
				if !methods {
					continue
				}
				if m.Code != nil {
					return nil, malformed(offset, "method %s has two Code attributes", m.Name)
				}
				if m.Code, err = decodeCode(attr.Data, offset, pool); err != nil {
					return nil, err
				}
			case "ConstantValue":
				if methods || len(attr.Data) != 2 {
					continue
				}
				m.ConstantValue = Handle(binary.BigEndian.Uint16(attr.Data))
				if _, err := pool.Get(m.ConstantValue); err != nil {
					return nil, malformed(offset, "ConstantValue: %v", err)
				}
			}
		}
		members = append(members, m)
	}
	return members, nil
}

func decodeAttributes(r *units.Reader, pool ConstantPool) ([]Attribute, error) {
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	attrs := make([]Attribute, 0, count)
	for range count {
		offset := r.Offset()
		nameIndex, err := readHandle(r)
		if err != nil {
			return nil, err
		}
		name, err := pool.Utf8(nameIndex)
		if err != nil {
			return nil, malformed(offset, "attribute name: %v", err)
		}
		length, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		if int64(length) > int64(r.Remaining()) {
			return nil, r.Errorf(units.Truncated, "attribute %s length %d exceeds remaining %d",
				name, length, r.Remaining())
		}
		data, err := r.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, Attribute{
			Name: name,
			Data: data,
		})
	}
	return attrs, nil
}

func decodeCode(data []byte, base int, pool ConstantPool) (*Code, error) {
	r := units.NewReaderAt(units.FormatClass, binary.BigEndian, data, base)
	code := new(Code)
	var err error
	if code.MaxStack, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	if code.MaxLocals, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	length, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if length == 0 || length >= 65536 {
		return nil, r.Errorf(units.MalformedField, "code length %d", length)
	}
	if code.Bytecode, err = r.ReadBytes(int(length)); err != nil {
		return nil, err
	}

	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	for range count {
		offset := r.Offset()
		var e ExceptionEntry
		if e.StartPC, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if e.EndPC, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if e.HandlerPC, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if e.CatchType, err = readHandle(r); err != nil {
			return nil, err
		}
		if e.StartPC >= e.EndPC || uint32(e.EndPC) > length || uint32(e.HandlerPC) >= length {
			return nil, malformed(offset, "exception range [%d,%d) handler %d in %d bytes",
				e.StartPC, e.EndPC, e.HandlerPC, length)
		}
		if e.CatchType != 0 {
			if _, err := pool.ClassName(e.CatchType); err != nil {
				return nil, malformed(offset, "catch type: %v", err)
			}
		}
		code.ExceptionTable = append(code.ExceptionTable, e)
	}

	if code.Attributes, err = decodeAttributes(r, pool); err != nil {
		return nil, err
	}
	for _, attr := range code.Attributes {
		switch attr.Name {
		case "LineNumberTable":
			if code.LineNumbers, err = decodeLineNumbers(attr.Data, base); err != nil {
				return nil, err
			}
		case "LocalVariableTable":
			if code.LocalVariables, err = decodeLocalVariables(attr.Data, base, pool); err != nil {
				return nil, err
			}
		}
	}
	if r.Remaining() != 0 {
		return nil, r.Errorf(units.MalformedField, "%d trailing bytes in Code", r.Remaining())
	}
	return code, nil
}

func decodeLineNumbers(data []byte, base int) ([]LineNumber, error) {
	r := units.NewReaderAt(units.FormatClass, binary.BigEndian, data, base)
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	ret := make([]LineNumber, 0, count)
	for range count {
		var ln LineNumber
		if ln.StartPC, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if ln.Line, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		ret = append(ret, ln)
	}
	return ret, nil
}

func decodeLocalVariables(data []byte, base int, pool ConstantPool) ([]LocalVariable, error) {
	r := units.NewReaderAt(units.FormatClass, binary.BigEndian, data, base)
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	ret := make([]LocalVariable, 0, count)
	for range count {
		var lv LocalVariable
		if lv.StartPC, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if lv.Length, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		nameIndex, err := readHandle(r)
		if err != nil {
			return nil, err
		}
		descIndex, err := readHandle(r)
		if err != nil {
			return nil, err
		}
		if lv.Index, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if lv.Name, err = pool.Utf8(nameIndex); err != nil {
			return nil, malformed(base, "local variable name: %v", err)
		}
		if lv.Descriptor, err = pool.Utf8(descIndex); err != nil {
			return nil, malformed(base, "local variable descriptor: %v", err)
		}
		ret = append(ret, lv)
	}
	return ret, nil
}

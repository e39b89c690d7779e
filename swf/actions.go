package swf

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/reusee/relic/units"
)

type ActionCode uint8

const (
	ActionEnd             ActionCode = 0x00
	ActionNextFrame       ActionCode = 0x04
	ActionPrevFrame       ActionCode = 0x05
	ActionPlay            ActionCode = 0x06
	ActionStop            ActionCode = 0x07
	ActionToggleQuality   ActionCode = 0x08
	ActionStopSounds      ActionCode = 0x09
	ActionAdd             ActionCode = 0x0a
	ActionSubtract        ActionCode = 0x0b
	ActionMultiply        ActionCode = 0x0c
	ActionDivide          ActionCode = 0x0d
	ActionEquals          ActionCode = 0x0e
	ActionLess            ActionCode = 0x0f
	ActionAnd             ActionCode = 0x10
	ActionOr              ActionCode = 0x11
	ActionNot             ActionCode = 0x12
	ActionStringEquals    ActionCode = 0x13
	ActionStringLength    ActionCode = 0x14
	ActionStringExtract   ActionCode = 0x15
	ActionPop             ActionCode = 0x17
	ActionToInteger       ActionCode = 0x18
	ActionGetVariable     ActionCode = 0x1c
	ActionSetVariable     ActionCode = 0x1d
	ActionSetTarget2      ActionCode = 0x20
	ActionStringAdd       ActionCode = 0x21
	ActionGetProperty     ActionCode = 0x22
	ActionSetProperty     ActionCode = 0x23
	ActionTrace           ActionCode = 0x26
	ActionStartDrag       ActionCode = 0x27
	ActionEndDrag         ActionCode = 0x28
	ActionStringLess      ActionCode = 0x29
	ActionRandomNumber    ActionCode = 0x30
	ActionCharToAscii     ActionCode = 0x32
	ActionAsciiToChar     ActionCode = 0x33
	ActionGetTime         ActionCode = 0x34
	ActionDelete          ActionCode = 0x3a
	ActionDelete2         ActionCode = 0x3b
	ActionDefineLocal     ActionCode = 0x3c
	ActionCallFunction    ActionCode = 0x3d
	ActionReturn          ActionCode = 0x3e
	ActionModulo          ActionCode = 0x3f
	ActionNewObject       ActionCode = 0x40
	ActionDefineLocal2    ActionCode = 0x41
	ActionInitArray       ActionCode = 0x42
	ActionInitObject      ActionCode = 0x43
	ActionTypeOf          ActionCode = 0x44
	ActionAdd2            ActionCode = 0x47
	ActionLess2           ActionCode = 0x48
	ActionEquals2         ActionCode = 0x49
	ActionToNumber        ActionCode = 0x4a
	ActionToString        ActionCode = 0x4b
	ActionPushDuplicate   ActionCode = 0x4c
	ActionStackSwap       ActionCode = 0x4d
	ActionGetMember       ActionCode = 0x4e
	ActionSetMember       ActionCode = 0x4f
	ActionIncrement       ActionCode = 0x50
	ActionDecrement       ActionCode = 0x51
	ActionCallMethod      ActionCode = 0x52
	ActionStrictEquals    ActionCode = 0x66
	ActionGreater         ActionCode = 0x67
	ActionGotoFrame       ActionCode = 0x81
	ActionGetURL          ActionCode = 0x83
	ActionStoreRegister   ActionCode = 0x87
	ActionConstantPool    ActionCode = 0x88
	ActionWaitForFrame    ActionCode = 0x8a
	ActionSetTarget       ActionCode = 0x8b
	ActionGotoLabel       ActionCode = 0x8c
	ActionWaitForFrame2   ActionCode = 0x8d
	ActionDefineFunction2 ActionCode = 0x8e
	ActionPush            ActionCode = 0x96
	ActionJump            ActionCode = 0x99
	ActionGetURL2         ActionCode = 0x9a
	ActionDefineFunction  ActionCode = 0x9b
	ActionIf              ActionCode = 0x9d
	ActionCall            ActionCode = 0x9e
	ActionGotoFrame2      ActionCode = 0x9f
)

var actionNames = map[ActionCode]string{
	ActionEnd: "End", ActionNextFrame: "NextFrame", ActionPrevFrame: "PrevFrame",
	ActionPlay: "Play", ActionStop: "Stop", ActionToggleQuality: "ToggleQuality",
	ActionStopSounds: "StopSounds", ActionAdd: "Add", ActionSubtract: "Subtract",
	ActionMultiply: "Multiply", ActionDivide: "Divide", ActionEquals: "Equals",
	ActionLess: "Less", ActionAnd: "And", ActionOr: "Or", ActionNot: "Not",
	ActionStringEquals: "StringEquals", ActionStringLength: "StringLength",
	ActionStringExtract: "StringExtract", ActionPop: "Pop", ActionToInteger: "ToInteger",
	ActionGetVariable: "GetVariable", ActionSetVariable: "SetVariable",
	ActionSetTarget2: "SetTarget2", ActionStringAdd: "StringAdd",
	ActionGetProperty: "GetProperty", ActionSetProperty: "SetProperty", ActionTrace: "Trace",
	ActionStartDrag: "StartDrag", ActionEndDrag: "EndDrag", ActionStringLess: "StringLess",
	ActionRandomNumber: "RandomNumber", ActionCharToAscii: "CharToAscii",
	ActionAsciiToChar: "AsciiToChar", ActionGetTime: "GetTime", ActionDelete: "Delete",
	ActionDelete2: "Delete2", ActionDefineLocal: "DefineLocal",
	ActionCallFunction: "CallFunction", ActionReturn: "Return", ActionModulo: "Modulo",
	ActionNewObject: "NewObject", ActionDefineLocal2: "DefineLocal2",
	ActionInitArray: "InitArray", ActionInitObject: "InitObject", ActionTypeOf: "TypeOf",
	ActionAdd2: "Add2", ActionLess2: "Less2", ActionEquals2: "Equals2",
	ActionToNumber: "ToNumber", ActionToString: "ToString",
	ActionPushDuplicate: "PushDuplicate", ActionStackSwap: "StackSwap",
	ActionGetMember: "GetMember", ActionSetMember: "SetMember",
	ActionIncrement: "Increment", ActionDecrement: "Decrement",
	ActionCallMethod: "CallMethod", ActionStrictEquals: "StrictEquals",
	ActionGreater: "Greater", ActionGotoFrame: "GotoFrame", ActionGetURL: "GetURL",
	ActionStoreRegister: "StoreRegister", ActionConstantPool: "ConstantPool",
	ActionWaitForFrame: "WaitForFrame", ActionSetTarget: "SetTarget",
	ActionGotoLabel: "GotoLabel", ActionWaitForFrame2: "WaitForFrame2",
	ActionDefineFunction2: "DefineFunction2", ActionPush: "Push", ActionJump: "Jump",
	ActionGetURL2: "GetURL2", ActionDefineFunction: "DefineFunction", ActionIf: "If",
	ActionCall: "Call", ActionGotoFrame2: "GotoFrame2",
}

func (c ActionCode) String() string {
	if name, ok := actionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Action(%#02x)", uint8(c))
}

// Action is one action record. Offset is the record's position inside its
// action block and End the position just after it; branch targets are
// relative to End.
type Action struct {
	Code    ActionCode
	Offset  int
	End     int
	Payload any
	Raw     []byte
}

type PushType uint8

const (
	PushString PushType = iota
	PushFloat
	PushNull
	PushUndefined
	PushRegister
	PushBool
	PushDouble
	PushInt
	PushConstant8
	PushConstant16
)

type PushValue struct {
	Type     PushType
	String   string
	Number   float64
	Bool     bool
	Register uint8
	Constant uint16
}

type Push struct {
	Values []PushValue
}

type ConstantPool struct {
	Strings []string
}

type Jump struct {
	Offset int16
}

type If struct {
	Offset int16
}

type GotoFrame struct {
	Frame uint16
}

type GotoLabel struct {
	Label string
}

type GetURL struct {
	URL    string
	Target string
}

type SetTarget struct {
	Target string
}

type WaitForFrame struct {
	Frame     uint16
	SkipCount uint8
}

// DefineFunction's body is the CodeSize bytes of actions that follow it in
// the same block.
type DefineFunction struct {
	Name     string
	Params   []string
	CodeSize uint16
}

type StoreRegister struct {
	Register uint8
}

// Actions is a decoded action block in file order.
type Actions []Action

// IndexAt finds the action starting at offset.
func (as Actions) IndexAt(offset int) (int, bool) {
	lo, hi := 0, len(as)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case as[mid].Offset == offset:
			return mid, true
		case as[mid].Offset < offset:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	// offset just past the last action is the implicit end
	if len(as) > 0 && offset == as[len(as)-1].End {
		return len(as), true
	}
	return 0, false
}

func (d *decoder) decodeActions(r *units.Reader) (Actions, error) {
	var ret Actions
	start := r.Position()
	for r.Remaining() > 0 {
		offset := r.Position() - start
		at := r.Offset()
		code, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		action := Action{
			Code:   ActionCode(code),
			Offset: offset,
		}
		if code == 0 {
			action.End = offset + 1
			ret = append(ret, action)
			break
		}
		if code >= 0x80 {
			length, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			sub, err := r.Sub(int(length))
			if err != nil {
				return nil, err
			}
			action.Payload, err = d.decodeActionPayload(action.Code, sub)
			if err != nil {
				return nil, err
			}
			if action.Payload == nil {
				if err := sub.Seek(0); err != nil {
					return nil, err
				}
				if action.Raw, err = sub.ReadBytes(sub.Len()); err != nil {
					return nil, err
				}
			}
		}
		action.End = r.Position() - start
		if action.Code == ActionDefineFunction {
			fn := action.Payload.(DefineFunction)
			if int(fn.CodeSize) > r.Remaining() {
				return nil, units.Errorf(units.FormatSWF, units.Truncated, at,
					"function body of %d bytes exceeds action block", fn.CodeSize)
			}
		}
		ret = append(ret, action)
	}
	return ret, nil
}

func (d *decoder) decodeActionPayload(code ActionCode, r *units.Reader) (any, error) {
	switch code {

	case ActionPush:
		var push Push
		for r.Remaining() > 0 {
			t, err := r.ReadUint8()
			if err != nil {
				return nil, err
			}
			v := PushValue{Type: PushType(t)}
			switch v.Type {
			case PushString:
				if v.String, err = d.readString(r); err != nil {
					return nil, err
				}
			case PushFloat:
				f, err := r.ReadFloat32()
				if err != nil {
					return nil, err
				}
				v.Number = float64(f)
			case PushNull, PushUndefined:
			case PushRegister:
				if v.Register, err = r.ReadUint8(); err != nil {
					return nil, err
				}
			case PushBool:
				b, err := r.ReadUint8()
				if err != nil {
					return nil, err
				}
				v.Bool = b != 0
			case PushDouble:
				// two little-endian words, high word first
				b, err := r.ReadBytes(8)
				if err != nil {
					return nil, err
				}
				bits := uint64(binary.LittleEndian.Uint32(b[:4]))<<32 |
					uint64(binary.LittleEndian.Uint32(b[4:]))
				v.Number = math.Float64frombits(bits)
			case PushInt:
				i, err := r.ReadInt32()
				if err != nil {
					return nil, err
				}
				v.Number = float64(i)
			case PushConstant8:
				c, err := r.ReadUint8()
				if err != nil {
					return nil, err
				}
				v.Constant = uint16(c)
			case PushConstant16:
				if v.Constant, err = r.ReadUint16(); err != nil {
					return nil, err
				}
			default:
				return nil, r.Errorf(units.MalformedField, "push value type %d", t)
			}
			push.Values = append(push.Values, v)
		}
		return push, nil

	case ActionConstantPool:
		count, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		var pool ConstantPool
		for range count {
			s, err := d.readString(r)
			if err != nil {
				return nil, err
			}
			pool.Strings = append(pool.Strings, s)
		}
		return pool, nil

	case ActionJump, ActionIf:
		offset, err := r.ReadInt16()
		if err != nil {
			return nil, err
		}
		if code == ActionJump {
			return Jump{Offset: offset}, nil
		}
		return If{Offset: offset}, nil

	case ActionGotoFrame:
		frame, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return GotoFrame{Frame: frame}, nil

	case ActionGotoLabel:
		label, err := d.readString(r)
		if err != nil {
			return nil, err
		}
		return GotoLabel{Label: label}, nil

	case ActionGetURL:
		url, err := d.readString(r)
		if err != nil {
			return nil, err
		}
		target, err := d.readString(r)
		if err != nil {
			return nil, err
		}
		return GetURL{URL: url, Target: target}, nil

	case ActionSetTarget:
		target, err := d.readString(r)
		if err != nil {
			return nil, err
		}
		return SetTarget{Target: target}, nil

	case ActionWaitForFrame:
		frame, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		skip, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		return WaitForFrame{Frame: frame, SkipCount: skip}, nil

	case ActionDefineFunction:
		var fn DefineFunction
		var err error
		if fn.Name, err = d.readString(r); err != nil {
			return nil, err
		}
		count, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		for range count {
			param, err := d.readString(r)
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, param)
		}
		if fn.CodeSize, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		return fn, nil

	case ActionStoreRegister:
		reg, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		return StoreRegister{Register: reg}, nil
	}
	return nil, nil
}

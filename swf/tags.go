package swf

import "fmt"

type TagCode uint16

const (
	TagEnd                TagCode = 0
	TagShowFrame          TagCode = 1
	TagDefineShape        TagCode = 2
	TagPlaceObject        TagCode = 4
	TagRemoveObject       TagCode = 5
	TagDefineButton       TagCode = 7
	TagSetBackgroundColor TagCode = 9
	TagDoAction           TagCode = 12
	TagDefineShape2       TagCode = 22
	TagPlaceObject2       TagCode = 26
	TagRemoveObject2      TagCode = 28
	TagDefineShape3       TagCode = 32
	TagDefineButton2      TagCode = 34
	TagDefineSprite       TagCode = 39
	TagFrameLabel         TagCode = 43
	TagFileAttributes     TagCode = 69
	TagDefineShape4       TagCode = 83
)

var tagNames = map[TagCode]string{
	TagEnd:                "End",
	TagShowFrame:          "ShowFrame",
	TagDefineShape:        "DefineShape",
	TagPlaceObject:        "PlaceObject",
	TagRemoveObject:       "RemoveObject",
	TagDefineButton:       "DefineButton",
	TagSetBackgroundColor: "SetBackgroundColor",
	TagDoAction:           "DoAction",
	TagDefineShape2:       "DefineShape2",
	TagPlaceObject2:       "PlaceObject2",
	TagRemoveObject2:      "RemoveObject2",
	TagDefineShape3:       "DefineShape3",
	TagDefineButton2:      "DefineButton2",
	TagDefineSprite:       "DefineSprite",
	TagFrameLabel:         "FrameLabel",
	TagFileAttributes:     "FileAttributes",
	TagDefineShape4:       "DefineShape4",
}

func (c TagCode) String() string {
	if name, ok := tagNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", uint16(c))
}

type Tag interface {
	Code() TagCode
}

// Definition is a tag that adds a character to the dictionary.
type Definition interface {
	Tag
	CharacterID() uint16
}

type End struct{}

func (End) Code() TagCode { return TagEnd }

type ShowFrame struct{}

func (ShowFrame) Code() TagCode { return TagShowFrame }

// DefineShape covers all four shape versions. Only the id and bounds are
// interpreted; the shape records are kept as they are.
type DefineShape struct {
	Version int
	ID      uint16
	Bounds  Rect
	Records []byte
}

func (t *DefineShape) Code() TagCode {
	switch t.Version {
	case 2:
		return TagDefineShape2
	case 3:
		return TagDefineShape3
	case 4:
		return TagDefineShape4
	}
	return TagDefineShape
}

func (t *DefineShape) CharacterID() uint16 { return t.ID }

type PlaceObject struct {
	CharacterID uint16
	Depth       uint16
	Matrix      Matrix
	// nil when absent
	ColorTransform *ColorTransform
}

func (*PlaceObject) Code() TagCode { return TagPlaceObject }

type PlaceObject2 struct {
	Move           bool
	Depth          uint16
	HasCharacter   bool
	CharacterID    uint16
	HasMatrix      bool
	Matrix         Matrix
	ColorTransform *ColorTransform
	HasRatio       bool
	Ratio          uint16
	Name           string
	ClipDepth      uint16
	ClipActions    []byte
}

func (*PlaceObject2) Code() TagCode { return TagPlaceObject2 }

type RemoveObject struct {
	CharacterID uint16
	Depth       uint16
}

func (*RemoveObject) Code() TagCode { return TagRemoveObject }

type RemoveObject2 struct {
	Depth uint16
}

func (*RemoveObject2) Code() TagCode { return TagRemoveObject2 }

type SetBackgroundColor struct {
	Color RGBA
}

func (*SetBackgroundColor) Code() TagCode { return TagSetBackgroundColor }

type DoAction struct {
	Actions Actions
}

func (*DoAction) Code() TagCode { return TagDoAction }

// DefineSprite holds a nested timeline.
type DefineSprite struct {
	ID         uint16
	FrameCount uint16
	Tags       []Tag
}

func (*DefineSprite) Code() TagCode { return TagDefineSprite }

func (t *DefineSprite) CharacterID() uint16 { return t.ID }

type FrameLabel struct {
	Name   string
	Anchor bool
}

func (*FrameLabel) Code() TagCode { return TagFrameLabel }

type FileAttributes struct {
	Flags uint32
}

func (*FileAttributes) Code() TagCode { return TagFileAttributes }

func (t *FileAttributes) ActionScript3() bool {
	return t.Flags&0x08 != 0
}

func (t *FileAttributes) UseNetwork() bool {
	return t.Flags&0x01 != 0
}

// UnknownTag is any tag this decoder does not interpret. Reason is set when
// the code is known but the body uses features that are not decoded.
type UnknownTag struct {
	TagCode TagCode
	Raw     []byte
	Reason  string
}

func (t *UnknownTag) Code() TagCode { return t.TagCode }

// Recognized is always false; the tag's meaning has not been interpreted.
func (t *UnknownTag) Recognized() bool { return false }

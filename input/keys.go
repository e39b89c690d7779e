package input

import "unicode"

type keyCodes struct {
	code   uint8
	button uint8
}

var namedKeys = map[string]keyCodes{
	"Backspace":  {8, 8},
	"Tab":        {9, 18},
	"Enter":      {13, 13},
	"Shift":      {16, 0},
	"Control":    {17, 0},
	"Alt":        {18, 0},
	"CapsLock":   {20, 0},
	"Escape":     {27, 19},
	" ":          {32, 32},
	"Space":      {32, 32},
	"PageUp":     {33, 16},
	"PageDown":   {34, 17},
	"End":        {35, 4},
	"Home":       {36, 3},
	"ArrowLeft":  {37, 1},
	"ArrowUp":    {38, 14},
	"ArrowRight": {39, 2},
	"ArrowDown":  {40, 15},
	"Insert":     {45, 5},
	"Delete":     {46, 6},
	"F1":         {112, 0},
	"F2":         {113, 0},
	"F3":         {114, 0},
	"F4":         {115, 0},
	"F5":         {116, 0},
	"F6":         {117, 0},
	"F7":         {118, 0},
	"F8":         {119, 0},
	"F9":         {120, 0},
	"F10":        {121, 0},
	"F11":        {122, 0},
	"F12":        {123, 0},
}

var keyAliases = map[string]string{
	"Left":   "ArrowLeft",
	"Right":  "ArrowRight",
	"Up":     "ArrowUp",
	"Down":   "ArrowDown",
	"Return": "Enter",
	"Esc":    "Escape",
	"Del":    "Delete",
	"Ctrl":   "Control",
}

// mapKey returns the key code, the button key code and the character of a
// raw key event.
func mapKey(name string, r rune) (code, button uint8, char rune) {
	if alias, ok := keyAliases[name]; ok {
		name = alias
	}
	if codes, ok := namedKeys[name]; ok {
		if name == " " || name == "Space" {
			char = ' '
		}
		return codes.code, codes.button, char
	}
	if r == 0 {
		runes := []rune(name)
		if len(runes) != 1 {
			return 0, 0, 0
		}
		r = runes[0]
	}
	if r > unicode.MaxASCII || !unicode.IsPrint(r) {
		return 0, 0, r
	}
	switch {
	case r >= 'a' && r <= 'z':
		code = uint8(unicode.ToUpper(r))
	case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
		code = uint8(r)
	default:
		code = punctuationCodes[r]
	}
	return code, uint8(r), r
}

var punctuationCodes = map[rune]uint8{
	';': 186, ':': 186,
	'=': 187, '+': 187,
	',': 188, '<': 188,
	'-': 189, '_': 189,
	'.': 190, '>': 190,
	'/': 191, '?': 191,
	'`': 192, '~': 192,
	'[': 219, '{': 219,
	'\\': 220, '|': 220,
	']': 221, '}': 221,
	'\'': 222, '"': 222,
}

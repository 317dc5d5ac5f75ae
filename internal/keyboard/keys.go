// Package keyboard provides OS-level key injection with abstraction for testing.
// The real implementation creates a Linux uinput virtual keyboard.
// The fake implementation records calls without touching the OS.
package keyboard

import (
	"fmt"
	"strings"
)

// Linux input event key codes (linux/input-event-codes.h).
const (
	keyEsc        = 1
	keyMinus      = 12
	keyEqual      = 13
	keyBackspace  = 14
	keyTab        = 15
	keyLeftBrace  = 26
	keyRightBrace = 27
	keyEnter      = 28
	keyLeftCtrl   = 29
	keySemicolon  = 39
	keyApostrophe = 40
	keyGrave      = 41
	keyLeftShift  = 42
	keyBackslash  = 43
	keyComma      = 51
	keyDot        = 52
	keySlash      = 53
	keyRightShift = 54
	keyLeftAlt    = 56
	keySpace      = 57
	keyCapsLock   = 58
	keyF1         = 59
	keyNumLock    = 69
	keyScrollLock = 70
	keyF11        = 87
	keyF12        = 88
	keyRightCtrl  = 97
	keySysRq      = 99
	keyRightAlt   = 100
	keyHome       = 102
	keyUp         = 103
	keyPageUp     = 104
	keyLeft       = 105
	keyRight      = 106
	keyEnd        = 107
	keyDown       = 108
	keyPageDown   = 109
	keyInsert     = 110
	keyDelete     = 111
	keyMute       = 113
	keyVolumeDown = 114
	keyVolumeUp   = 115
	keyPause      = 119
	keyLeftMeta   = 125
	keyRightMeta  = 126
)

// letter and digit codes follow the physical QWERTY rows, not the alphabet.
var letterCodes = map[rune]uint16{
	'q': 16, 'w': 17, 'e': 18, 'r': 19, 't': 20, 'y': 21, 'u': 22, 'i': 23, 'o': 24, 'p': 25,
	'a': 30, 's': 31, 'd': 32, 'f': 33, 'g': 34, 'h': 35, 'j': 36, 'k': 37, 'l': 38,
	'z': 44, 'x': 45, 'c': 46, 'v': 47, 'b': 48, 'n': 49, 'm': 50,
}

var digitCodes = map[rune]uint16{
	'1': 2, '2': 3, '3': 4, '4': 5, '5': 6, '6': 7, '7': 8, '8': 9, '9': 10, '0': 11,
}

// namedKeys maps key names to codes. Several aliases map to the same key.
var namedKeys = map[string]uint16{
	"esc": keyEsc, "escape": keyEsc,
	"backspace": keyBackspace,
	"tab":       keyTab,
	"enter":     keyEnter, "return": keyEnter,
	"ctrl": keyLeftCtrl, "ctrlleft": keyLeftCtrl, "ctrlright": keyRightCtrl,
	"shift": keyLeftShift, "shiftleft": keyLeftShift, "shiftright": keyRightShift,
	"alt": keyLeftAlt, "altleft": keyLeftAlt, "altright": keyRightAlt,
	"win": keyLeftMeta, "winleft": keyLeftMeta, "winright": keyRightMeta,
	"command": keyLeftMeta,
	"space":   keySpace,
	"capslock": keyCapsLock, "numlock": keyNumLock, "scrolllock": keyScrollLock,
	"printscreen": keySysRq, "prntscrn": keySysRq, "prtsc": keySysRq,
	"pause": keyPause,
	"home":  keyHome, "end": keyEnd,
	"up": keyUp, "down": keyDown, "left": keyLeft, "right": keyRight,
	"pageup": keyPageUp, "pgup": keyPageUp, "pagedown": keyPageDown, "pgdn": keyPageDown,
	"insert": keyInsert, "delete": keyDelete, "del": keyDelete,
	"volumemute": keyMute, "volumedown": keyVolumeDown, "volumeup": keyVolumeUp,
	"f11": keyF11, "f12": keyF12,
}

// stroke is one key code plus whether shift must be held to produce the character.
type stroke struct {
	code  uint16
	shift bool
}

// charStrokes maps printable characters (US layout) to strokes.
var charStrokes = map[rune]stroke{
	' ': {keySpace, false}, '\n': {keyEnter, false}, '\t': {keyTab, false},
	'-': {keyMinus, false}, '_': {keyMinus, true},
	'=': {keyEqual, false}, '+': {keyEqual, true},
	'[': {keyLeftBrace, false}, '{': {keyLeftBrace, true},
	']': {keyRightBrace, false}, '}': {keyRightBrace, true},
	';': {keySemicolon, false}, ':': {keySemicolon, true},
	'\'': {keyApostrophe, false}, '"': {keyApostrophe, true},
	'`': {keyGrave, false}, '~': {keyGrave, true},
	'\\': {keyBackslash, false}, '|': {keyBackslash, true},
	',': {keyComma, false}, '<': {keyComma, true},
	'.': {keyDot, false}, '>': {keyDot, true},
	'/': {keySlash, false}, '?': {keySlash, true},
	'!': {2, true}, '@': {3, true}, '#': {4, true}, '$': {5, true}, '%': {6, true},
	'^': {7, true}, '&': {8, true}, '*': {9, true}, '(': {10, true}, ')': {11, true},
}

func init() {
	for i := 0; i < 10; i++ {
		namedKeys[fmt.Sprintf("f%d", i+1)] = uint16(keyF1 + i)
	}
}

// strokeFor returns the stroke producing r.
func strokeFor(r rune) (stroke, bool) {
	if code, ok := letterCodes[r]; ok {
		return stroke{code, false}, true
	}
	if 'A' <= r && r <= 'Z' {
		code, ok := letterCodes[r-'A'+'a']
		return stroke{code, true}, ok
	}
	if code, ok := digitCodes[r]; ok {
		return stroke{code, false}, true
	}
	s, ok := charStrokes[r]
	return s, ok
}

// lookup resolves a key name to a code.
// Names are either one of the named keys (case-insensitive) or a single character.
func lookup(name string) (stroke, bool) {
	if code, ok := namedKeys[strings.ToLower(name)]; ok {
		return stroke{code, false}, true
	}
	runes := []rune(name)
	if len(runes) == 1 {
		return strokeFor(runes[0])
	}
	return stroke{}, false
}

// IsValidKey reports whether name can be pressed or held.
func IsValidKey(name string) bool {
	_, ok := lookup(name)
	return ok
}

// allCodes returns every key code the virtual keyboard must advertise.
func allCodes() []uint16 {
	seen := make(map[uint16]bool)
	var codes []uint16
	add := func(c uint16) {
		if !seen[c] {
			seen[c] = true
			codes = append(codes, c)
		}
	}
	for _, c := range letterCodes {
		add(c)
	}
	for _, c := range digitCodes {
		add(c)
	}
	for _, c := range namedKeys {
		add(c)
	}
	for _, s := range charStrokes {
		add(s.code)
	}
	return codes
}

package hookinput

import (
	"strings"

	"contagion/internal/adapters/wininput"
	"contagion/internal/core/macro"
)

// libuiohook reports keys by PC set-1 scan code, which matches the evdev
// numbering up to F12. Extended keys carry an 0xE0 or 0x0E prefix.
const lastDirectScanCode = 88

var extendedScanCodes = map[uint16]uint16{
	0x0E1C: 96,  // KP enter
	0x0E1D: 97,  // right ctrl
	0x0E38: 100, // right alt
	0xE047: 102, // home
	0xE048: 103, // up
	0xE049: 104, // page up
	0xE04B: 105, // left
	0xE04D: 106, // right
	0xE04F: 107, // end
	0xE050: 108, // down
	0xE051: 109, // page down
	0xE052: 110, // insert
	0xE053: 111, // delete
}

// libuiohook mouse button numbers.
var hookButtons = map[uint16]uint16{
	1: macro.CodeBTNLeft,
	2: macro.CodeBTNRight,
	3: macro.CodeBTNMiddle,
	4: macro.CodeBTNSide,
	5: macro.CodeBTNExtra,
}

func keyCodeFromHook(keycode uint16) (uint16, bool) {
	if keycode > 0 && keycode <= lastDirectScanCode {
		return keycode, true
	}
	code, ok := extendedScanCodes[keycode]
	return code, ok
}

func buttonCodeFromHook(button uint16) (uint16, bool) {
	code, ok := hookButtons[button]
	return code, ok
}

var robotgoKeyNames = map[string]string{
	"ESC":        "esc",
	"ENTER":      "enter",
	"KPENTER":    "enter",
	"TAB":        "tab",
	"SPACE":      "space",
	"BACKSPACE":  "backspace",
	"DELETE":     "delete",
	"INSERT":     "insert",
	"HOME":       "home",
	"END":        "end",
	"PAGEUP":     "pageup",
	"PAGEDOWN":   "pagedown",
	"UP":         "up",
	"DOWN":       "down",
	"LEFT":       "left",
	"RIGHT":      "right",
	"LEFTSHIFT":  "lshift",
	"RIGHTSHIFT": "rshift",
	"LEFTCTRL":   "lctrl",
	"RIGHTCTRL":  "rctrl",
	"LEFTALT":    "lalt",
	"RIGHTALT":   "ralt",
	"LEFTMETA":   "lcmd",
	"RIGHTMETA":  "rcmd",
	"CAPSLOCK":   "capslock",
	"MINUS":      "-",
	"EQUAL":      "=",
	"LEFTBRACE":  "[",
	"RIGHTBRACE": "]",
	"SEMICOLON":  ";",
	"APOSTROPHE": "'",
	"GRAVE":      "`",
	"BACKSLASH":  "\\",
	"COMMA":      ",",
	"DOT":        ".",
	"SLASH":      "/",
}

// robotgoKey returns the robotgo key name for an evdev key code.
func robotgoKey(code uint16) (string, bool) {
	name := wininput.FormatCodeName(code)
	token, ok := strings.CutPrefix(name, "KEY_")
	if !ok {
		return "", false
	}
	if key, ok := robotgoKeyNames[token]; ok {
		return key, true
	}
	if len(token) == 1 {
		return strings.ToLower(token), true
	}
	if len(token) > 1 && token[0] == 'F' && isDigits(token[1:]) {
		return strings.ToLower(token), true
	}
	return "", false
}

// robotgoButton returns the robotgo button name for an evdev mouse button.
// robotgo cannot synthesize the side buttons.
func robotgoButton(code uint16) (string, bool) {
	switch code {
	case macro.CodeBTNLeft:
		return "left", true
	case macro.CodeBTNRight:
		return "right", true
	case macro.CodeBTNMiddle:
		return "center", true
	}
	return "", false
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

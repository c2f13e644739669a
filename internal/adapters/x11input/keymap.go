//go:build linux

package x11input

import (
	"strings"

	"contagion/internal/adapters/linuxinput"
	"contagion/internal/core/macro"

	"github.com/BurntSushi/xgb/xproto"
)

// keysymNames maps evdev key names (without the KEY_ prefix) to X keysym
// names for keys whose names differ between the two. Letters, digits,
// function keys and keypad digits follow a rule instead.
var keysymNames = map[string]string{
	"ESC":        "Escape",
	"ENTER":      "Return",
	"TAB":        "Tab",
	"SPACE":      "space",
	"BACKSPACE":  "BackSpace",
	"LEFTSHIFT":  "Shift_L",
	"RIGHTSHIFT": "Shift_R",
	"LEFTCTRL":   "Control_L",
	"RIGHTCTRL":  "Control_R",
	"LEFTALT":    "Alt_L",
	"RIGHTALT":   "Alt_R",
	"LEFTMETA":   "Super_L",
	"RIGHTMETA":  "Super_R",
	"CAPSLOCK":   "Caps_Lock",
	"NUMLOCK":    "Num_Lock",
	"SCROLLLOCK": "Scroll_Lock",
	"PAGEUP":     "Page_Up",
	"PAGEDOWN":   "Page_Down",
	"INSERT":     "Insert",
	"DELETE":     "Delete",
	"HOME":       "Home",
	"END":        "End",
	"UP":         "Up",
	"DOWN":       "Down",
	"LEFT":       "Left",
	"RIGHT":      "Right",
	"MENU":       "Menu",
	"PAUSE":      "Pause",
	"MINUS":      "minus",
	"EQUAL":      "equal",
	"LEFTBRACE":  "bracketleft",
	"RIGHTBRACE": "bracketright",
	"SEMICOLON":  "semicolon",
	"APOSTROPHE": "apostrophe",
	"GRAVE":      "grave",
	"BACKSLASH":  "backslash",
	"COMMA":      "comma",
	"DOT":        "period",
	"SLASH":      "slash",
	"KPPLUS":     "KP_Add",
	"KPMINUS":    "KP_Subtract",
	"KPASTERISK": "KP_Multiply",
	"KPSLASH":    "KP_Divide",
	"KPDOT":      "KP_Decimal",
	"KPENTER":    "KP_Enter",
}

var evdevNames = func() map[string]string {
	out := make(map[string]string, len(keysymNames))
	for evdevName, keysym := range keysymNames {
		out[strings.ToLower(keysym)] = evdevName
	}
	return out
}()

// X core protocol pointer buttons for the evdev mouse buttons.
var buttonCodes = map[uint16]xproto.Button{
	macro.CodeBTNLeft:   xproto.Button(xproto.ButtonIndex1),
	macro.CodeBTNMiddle: xproto.Button(xproto.ButtonIndex2),
	macro.CodeBTNRight:  xproto.Button(xproto.ButtonIndex3),
	macro.CodeBTNSide:   8,
	macro.CodeBTNExtra:  9,
}

func codeToXButton(code uint16) (xproto.Button, bool) {
	button, ok := buttonCodes[code]
	return button, ok
}

func xButtonToCode(button xproto.Button) (uint16, bool) {
	for code, b := range buttonCodes {
		if b == button {
			return code, true
		}
	}
	return 0, false
}

// codeToKeysym returns the X keysym name for an evdev key code.
func codeToKeysym(code uint16) (string, bool) {
	name := linuxinput.FormatCodeName(code)
	if !strings.HasPrefix(name, "KEY_") {
		return "", false
	}
	token := strings.TrimPrefix(name, "KEY_")

	if keysym, ok := keysymNames[token]; ok {
		return keysym, true
	}
	switch {
	case len(token) == 1 && token[0] >= 'A' && token[0] <= 'Z':
		return strings.ToLower(token), true
	case len(token) == 1 && token[0] >= '0' && token[0] <= '9':
		return token, true
	case len(token) > 1 && token[0] == 'F' && isDigits(token[1:]):
		return token, true
	case len(token) == 3 && strings.HasPrefix(token, "KP") && isDigits(token[2:]):
		return "KP_" + token[2:], true
	}
	return "", false
}

// keysymToCode is the inverse of codeToKeysym for strings returned by
// keybind.LookupString.
func keysymToCode(value string) (uint16, bool) {
	raw := strings.ToLower(strings.TrimSpace(value))
	if raw == "" {
		return 0, false
	}

	token := ""
	if evdevName, ok := evdevNames[raw]; ok {
		token = evdevName
	} else {
		switch {
		case len(raw) == 1 && ((raw[0] >= 'a' && raw[0] <= 'z') || (raw[0] >= '0' && raw[0] <= '9')):
			token = strings.ToUpper(raw)
		case len(raw) > 1 && raw[0] == 'f' && isDigits(raw[1:]):
			token = strings.ToUpper(raw)
		case len(raw) == 4 && strings.HasPrefix(raw, "kp_") && isDigits(raw[3:]):
			token = "KP" + raw[3:]
		}
	}
	if token == "" {
		return 0, false
	}
	code, err := linuxinput.ParseCode("KEY_" + token)
	if err != nil {
		return 0, false
	}
	return code, true
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

//go:build linux

package linuxinput

import (
	"fmt"
	"strconv"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// ParseCode accepts evdev key/button names (KEY_E, BTN_SIDE) or numeric codes.
func ParseCode(value string) (uint16, error) {
	raw := strings.ToUpper(strings.TrimSpace(value))
	if raw == "" {
		return 0, fmt.Errorf("key code is empty")
	}
	if code, ok := evdev.KEYFromString[raw]; ok {
		return uint16(code), nil
	}

	parsed, err := strconv.ParseInt(raw, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown key %q: use names like KEY_F11/BTN_SIDE or a numeric code", value)
	}
	if parsed <= 0 || parsed > int64(evdev.KEY_MAX) {
		return 0, fmt.Errorf("key code out of range: %d", parsed)
	}
	return uint16(parsed), nil
}

func FormatCodeName(code uint16) string {
	name := evdev.CodeName(evdev.EV_KEY, evdev.EvCode(code))
	if name != "" {
		return name
	}
	return strconv.Itoa(int(code))
}

package wininput

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"contagion/internal/core/macro"
)

// Virtual-key codes with special handling in hooks and injection.
const (
	vkXBUTTON1 uint32 = 0x05
	vkRETURN   uint32 = 0x0D
	vkSHIFT    uint32 = 0x10
	vkCONTROL  uint32 = 0x11
	vkMENU     uint32 = 0x12
	vkF8       uint32 = 0x77
)

const llkhfExtended = 0x01

// evdev codes referenced by the hook translation.
const (
	codeKEYEnter     uint16 = 28
	codeKEYLeftCtrl  uint16 = 29
	codeKEYLeftShift uint16 = 42
	codeKEYLeftAlt   uint16 = 56
	codeKEYF8        uint16 = 66
	codeKEYKPEnter   uint16 = 96
	codeKEYRightCtrl uint16 = 97
	codeKEYRightAlt  uint16 = 100
)

type keySpec struct {
	code uint16
	name string
	vk   uint32
}

// keyTable maps evdev key/button codes to their names and Windows
// virtual-key codes.
var keyTable = []keySpec{
	{0x001, "KEY_ESC", 0x1B},
	{0x002, "KEY_1", 0x31},
	{0x003, "KEY_2", 0x32},
	{0x004, "KEY_3", 0x33},
	{0x005, "KEY_4", 0x34},
	{0x006, "KEY_5", 0x35},
	{0x007, "KEY_6", 0x36},
	{0x008, "KEY_7", 0x37},
	{0x009, "KEY_8", 0x38},
	{0x00a, "KEY_9", 0x39},
	{0x00b, "KEY_0", 0x30},
	{0x00c, "KEY_MINUS", 0xBD},
	{0x00d, "KEY_EQUAL", 0xBB},
	{0x00e, "KEY_BACKSPACE", 0x08},
	{0x00f, "KEY_TAB", 0x09},
	{0x010, "KEY_Q", 0x51},
	{0x011, "KEY_W", 0x57},
	{0x012, "KEY_E", 0x45},
	{0x013, "KEY_R", 0x52},
	{0x014, "KEY_T", 0x54},
	{0x015, "KEY_Y", 0x59},
	{0x016, "KEY_U", 0x55},
	{0x017, "KEY_I", 0x49},
	{0x018, "KEY_O", 0x4F},
	{0x019, "KEY_P", 0x50},
	{0x01a, "KEY_LEFTBRACE", 0xDB},
	{0x01b, "KEY_RIGHTBRACE", 0xDD},
	{0x01c, "KEY_ENTER", 0x0D},
	{0x01d, "KEY_LEFTCTRL", 0xA2},
	{0x01e, "KEY_A", 0x41},
	{0x01f, "KEY_S", 0x53},
	{0x020, "KEY_D", 0x44},
	{0x021, "KEY_F", 0x46},
	{0x022, "KEY_G", 0x47},
	{0x023, "KEY_H", 0x48},
	{0x024, "KEY_J", 0x4A},
	{0x025, "KEY_K", 0x4B},
	{0x026, "KEY_L", 0x4C},
	{0x027, "KEY_SEMICOLON", 0xBA},
	{0x028, "KEY_APOSTROPHE", 0xDE},
	{0x029, "KEY_GRAVE", 0xC0},
	{0x02a, "KEY_LEFTSHIFT", 0xA0},
	{0x02b, "KEY_BACKSLASH", 0xDC},
	{0x02c, "KEY_Z", 0x5A},
	{0x02d, "KEY_X", 0x58},
	{0x02e, "KEY_C", 0x43},
	{0x02f, "KEY_V", 0x56},
	{0x030, "KEY_B", 0x42},
	{0x031, "KEY_N", 0x4E},
	{0x032, "KEY_M", 0x4D},
	{0x033, "KEY_COMMA", 0xBC},
	{0x034, "KEY_DOT", 0xBE},
	{0x035, "KEY_SLASH", 0xBF},
	{0x036, "KEY_RIGHTSHIFT", 0xA1},
	{0x037, "KEY_KPASTERISK", 0x6A},
	{0x038, "KEY_LEFTALT", 0xA4},
	{0x039, "KEY_SPACE", 0x20},
	{0x03a, "KEY_CAPSLOCK", 0x14},
	{0x03b, "KEY_F1", 0x70},
	{0x03c, "KEY_F2", 0x71},
	{0x03d, "KEY_F3", 0x72},
	{0x03e, "KEY_F4", 0x73},
	{0x03f, "KEY_F5", 0x74},
	{0x040, "KEY_F6", 0x75},
	{0x041, "KEY_F7", 0x76},
	{0x042, "KEY_F8", 0x77},
	{0x043, "KEY_F9", 0x78},
	{0x044, "KEY_F10", 0x79},
	{0x045, "KEY_NUMLOCK", 0x90},
	{0x046, "KEY_SCROLLLOCK", 0x91},
	{0x047, "KEY_KP7", 0x67},
	{0x048, "KEY_KP8", 0x68},
	{0x049, "KEY_KP9", 0x69},
	{0x04a, "KEY_KPMINUS", 0x6D},
	{0x04b, "KEY_KP4", 0x64},
	{0x04c, "KEY_KP5", 0x65},
	{0x04d, "KEY_KP6", 0x66},
	{0x04e, "KEY_KPPLUS", 0x6B},
	{0x04f, "KEY_KP1", 0x61},
	{0x050, "KEY_KP2", 0x62},
	{0x051, "KEY_KP3", 0x63},
	{0x052, "KEY_KP0", 0x60},
	{0x053, "KEY_KPDOT", 0x6E},
	{0x057, "KEY_F11", 0x7A},
	{0x058, "KEY_F12", 0x7B},
	{0x060, "KEY_KPENTER", 0x0D},
	{0x061, "KEY_RIGHTCTRL", 0xA3},
	{0x062, "KEY_KPSLASH", 0x6F},
	{0x063, "KEY_SYSRQ", 0x2C},
	{0x064, "KEY_RIGHTALT", 0xA5},
	{0x066, "KEY_HOME", 0x24},
	{0x067, "KEY_UP", 0x26},
	{0x068, "KEY_PAGEUP", 0x21},
	{0x069, "KEY_LEFT", 0x25},
	{0x06a, "KEY_RIGHT", 0x27},
	{0x06b, "KEY_END", 0x23},
	{0x06c, "KEY_DOWN", 0x28},
	{0x06d, "KEY_PAGEDOWN", 0x22},
	{0x06e, "KEY_INSERT", 0x2D},
	{0x06f, "KEY_DELETE", 0x2E},
	{0x071, "KEY_MUTE", 0xAD},
	{0x072, "KEY_VOLUMEDOWN", 0xAE},
	{0x073, "KEY_VOLUMEUP", 0xAF},
	{0x077, "KEY_PAUSE", 0x13},
	{0x07d, "KEY_LEFTMETA", 0x5B},
	{0x07e, "KEY_RIGHTMETA", 0x5C},
	{0x08b, "KEY_MENU", 0x5D},
	{0x0b7, "KEY_F13", 0x7C},
	{0x0b8, "KEY_F14", 0x7D},
	{0x0b9, "KEY_F15", 0x7E},
	{0x0ba, "KEY_F16", 0x7F},
	{0x0bb, "KEY_F17", 0x80},
	{0x0bc, "KEY_F18", 0x81},
	{0x0bd, "KEY_F19", 0x82},
	{0x0be, "KEY_F20", 0x83},
	{0x0bf, "KEY_F21", 0x84},
	{0x0c0, "KEY_F22", 0x85},
	{0x0c1, "KEY_F23", 0x86},
	{0x0c2, "KEY_F24", 0x87},
	{0x110, "BTN_LEFT", 0x01},
	{0x111, "BTN_RIGHT", 0x02},
	{0x112, "BTN_MIDDLE", 0x04},
	{0x113, "BTN_SIDE", 0x05},
	{0x114, "BTN_EXTRA", 0x06},
}

var nameAliases = map[string]uint16{
	"BTN_BACK":    macro.CodeBTNSide,
	"BTN_FORWARD": macro.CodeBTNExtra,
}

var (
	codeNameToCode map[string]uint16
	codeToName     map[uint16]string
	codeToVK       map[uint16]uint32
	vkToCode       map[uint32]uint16
	captureCodes   []uint16
)

func init() {
	codeNameToCode = make(map[string]uint16, len(keyTable)+len(nameAliases))
	codeToName = make(map[uint16]string, len(keyTable))
	codeToVK = make(map[uint16]uint32, len(keyTable))
	vkToCode = make(map[uint32]uint16, len(keyTable))
	captureCodes = make([]uint16, 0, len(keyTable))

	for _, spec := range keyTable {
		codeNameToCode[spec.name] = spec.code
		codeToName[spec.code] = spec.name
		codeToVK[spec.code] = spec.vk
		if _, exists := vkToCode[spec.vk]; !exists {
			vkToCode[spec.vk] = spec.code
		}
		captureCodes = append(captureCodes, spec.code)
	}
	for name, code := range nameAliases {
		codeNameToCode[name] = code
	}
	sort.Slice(captureCodes, func(i, j int) bool { return captureCodes[i] < captureCodes[j] })
}

// ParseCode accepts the evdev names used on Linux (KEY_E, BTN_SIDE) or a
// numeric code, so profiles are portable between platforms.
func ParseCode(value string) (uint16, error) {
	raw := strings.ToUpper(strings.TrimSpace(value))
	if raw == "" {
		return 0, fmt.Errorf("key code is empty")
	}
	if code, ok := codeNameToCode[raw]; ok {
		return code, nil
	}

	parsed, err := strconv.ParseInt(raw, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown key %q: use names like KEY_F11/BTN_SIDE or a numeric code", value)
	}
	if parsed <= 0 || parsed > 0xFFFF {
		return 0, fmt.Errorf("key code out of range: %d", parsed)
	}
	if _, ok := codeToVK[uint16(parsed)]; !ok {
		return 0, fmt.Errorf("key code %d has no Windows virtual-key mapping", parsed)
	}
	return uint16(parsed), nil
}

func FormatCodeName(code uint16) string {
	if name, ok := codeToName[code]; ok {
		return name
	}
	return strconv.Itoa(int(code))
}

func CodeToVK(code uint16) (uint32, bool) {
	vk, ok := codeToVK[code]
	return vk, ok
}

// CodeFromVK translates a hook virtual-key code. The generic modifier VKs
// and Enter are split into left/right or keypad variants by the extended
// flag.
func CodeFromVK(vk, flags uint32) (uint16, bool) {
	extended := flags&llkhfExtended != 0
	switch vk {
	case vkRETURN:
		if extended {
			return codeKEYKPEnter, true
		}
		return codeKEYEnter, true
	case vkSHIFT:
		return codeKEYLeftShift, true
	case vkCONTROL:
		if extended {
			return codeKEYRightCtrl, true
		}
		return codeKEYLeftCtrl, true
	case vkMENU:
		if extended {
			return codeKEYRightAlt, true
		}
		return codeKEYLeftAlt, true
	}

	code, ok := vkToCode[vk]
	return code, ok
}

func CaptureCandidateCodes() []uint16 {
	out := make([]uint16, len(captureCodes))
	copy(out, captureCodes)
	return out
}

// Keys that need KEYEVENTF_EXTENDEDKEY when injected by scan code.
var extendedCodes = map[uint16]struct{}{
	codeKEYKPEnter:   {},
	codeKEYRightCtrl: {},
	98:               {}, // KEY_KPSLASH
	codeKEYRightAlt:  {},
	102:              {}, // KEY_HOME
	103:              {}, // KEY_UP
	104:              {}, // KEY_PAGEUP
	105:              {}, // KEY_LEFT
	106:              {}, // KEY_RIGHT
	107:              {}, // KEY_END
	108:              {}, // KEY_DOWN
	109:              {}, // KEY_PAGEDOWN
	110:              {}, // KEY_INSERT
	111:              {}, // KEY_DELETE
}

func isExtendedCode(code uint16) bool {
	_, ok := extendedCodes[code]
	return ok
}

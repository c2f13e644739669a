//go:build linux

package linuxinput

import (
	"testing"

	"contagion/internal/core/macro"

	evdev "github.com/holoplot/go-evdev"
)

func TestParseCodeDefaults(t *testing.T) {
	cases := map[string]uint16{
		"KEY_E":     macro.CodeKeyE,
		"key_space": macro.CodeKeySpace,
		" KEY_DOT ": macro.CodeKeyDot,
		"KEY_J":     macro.CodeKeyJ,
		"KEY_F11":   macro.CodeKeyF11,
		"BTN_LEFT":  macro.CodeBTNLeft,
		"BTN_RIGHT": macro.CodeBTNRight,
		"BTN_SIDE":  macro.CodeBTNSide,
		"BTN_EXTRA": macro.CodeBTNExtra,
		"0x113":     macro.CodeBTNSide,
		"87":        macro.CodeKeyF11,
	}
	for raw, want := range cases {
		got, err := ParseCode(raw)
		if err != nil {
			t.Fatalf("ParseCode(%q) error = %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseCode(%q) = %d, want %d", raw, got, want)
		}
	}
}

func TestParseCodeRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"", "KEY_NOPE", "0", "-4", "0x10000"} {
		if _, err := ParseCode(raw); err == nil {
			t.Fatalf("ParseCode(%q) expected error", raw)
		}
	}
}

func TestFormatCodeName(t *testing.T) {
	if got := FormatCodeName(macro.CodeBTNSide); got != "BTN_SIDE" {
		t.Fatalf("FormatCodeName(BTN_SIDE) = %q", got)
	}
	if got := FormatCodeName(0x2ff); got == "" {
		t.Fatalf("FormatCodeName(0x2ff) returned empty name")
	}
}

func TestInjectorCapabilitiesCoverDefaults(t *testing.T) {
	caps := injectorCapabilities(macro.DefaultKeybinds())
	keys := make(map[uint16]struct{})
	for _, code := range caps[evdev.EV_KEY] {
		keys[uint16(code)] = struct{}{}
	}
	for _, code := range macro.DefaultKeybinds().Injected() {
		if _, ok := keys[code]; !ok {
			t.Fatalf("injector capabilities missing %s", FormatCodeName(code))
		}
	}
	if len(caps[evdev.EV_REL]) == 0 {
		t.Fatalf("expected relative axes so the device registers as a pointer")
	}
}

//go:build windows

package wininput

import (
	"testing"

	"contagion/internal/core/macro"
)

func TestMouseHookEventXButtons(t *testing.T) {
	code, value, ok := mouseHookEvent(wmXButtonDown, xButton1<<16)
	if !ok || code != macro.CodeBTNSide || value != 1 {
		t.Fatalf("mouseHookEvent(XBUTTON1 down) = %d, %d, %v", code, value, ok)
	}
	code, value, ok = mouseHookEvent(wmXButtonUp, xButton2<<16)
	if !ok || code != macro.CodeBTNExtra || value != 0 {
		t.Fatalf("mouseHookEvent(XBUTTON2 up) = %d, %d, %v", code, value, ok)
	}
	if _, _, ok := mouseHookEvent(wmXButtonDown, 3<<16); ok {
		t.Fatalf("unknown X button should be ignored")
	}
}

func TestKeyboardHookEvent(t *testing.T) {
	code, value, ok := keyboardHookEvent(wmSysKeyDown, 0x7A, 0)
	if !ok || code != macro.CodeKeyF11 || value != 1 {
		t.Fatalf("keyboardHookEvent(F11 down) = %d, %d, %v", code, value, ok)
	}
	if _, _, ok := keyboardHookEvent(0x0102, 0x7A, 0); ok {
		t.Fatalf("WM_CHAR must be ignored")
	}
}

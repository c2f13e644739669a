package wininput

import (
	"testing"

	"contagion/internal/core/macro"
)

func fakeScanCode(vk uint32) uint16 {
	return uint16(vk) + 0x100
}

func TestBuildInputsMouseButtons(t *testing.T) {
	events := []macro.Event{
		{Type: macro.EventTypeKey, Code: macro.CodeBTNRight, Value: 1},
		{Type: macro.EventTypeSyn},
		{Type: macro.EventTypeKey, Code: macro.CodeBTNRight, Value: 0},
		{Type: macro.EventTypeKey, Code: macro.CodeBTNExtra, Value: 1},
		{Type: macro.EventTypeKey, Code: macro.CodeBTNLeft, Value: 2},
	}
	inputs, err := buildInputs(events, fakeScanCode)
	if err != nil {
		t.Fatalf("buildInputs() error = %v", err)
	}
	if len(inputs) != 3 {
		t.Fatalf("buildInputs() returned %d inputs, want 3", len(inputs))
	}
	if inputs[0].Type != inputMouse || inputs[0].Mi.DwFlags != mouseeventfRightDown {
		t.Fatalf("unexpected right down input: %#v", inputs[0])
	}
	if inputs[1].Mi.DwFlags != mouseeventfRightUp {
		t.Fatalf("unexpected right up input: %#v", inputs[1])
	}
	if inputs[2].Mi.DwFlags != mouseeventfXDown || inputs[2].Mi.MouseData != xButton2 {
		t.Fatalf("unexpected X button input: %#v", inputs[2])
	}
}

func TestBuildInputsKeysUseScanCodes(t *testing.T) {
	events := []macro.Event{
		{Type: macro.EventTypeKey, Code: macro.CodeKeyE, Value: 1},
		{Type: macro.EventTypeKey, Code: macro.CodeKeyE, Value: 0},
		{Type: macro.EventTypeKey, Code: 103, Value: 1},
	}
	inputs, err := buildInputs(events, fakeScanCode)
	if err != nil {
		t.Fatalf("buildInputs() error = %v", err)
	}
	if len(inputs) != 3 {
		t.Fatalf("buildInputs() returned %d inputs, want 3", len(inputs))
	}

	down := inputs[0].keyboard()
	if inputs[0].Type != inputKeyboard || down.WScan != 0x145 || down.DwFlags != keyeventfScanCode {
		t.Fatalf("unexpected key down input: %#v", *down)
	}
	if up := inputs[1].keyboard(); up.DwFlags != keyeventfScanCode|keyeventfKeyUp {
		t.Fatalf("unexpected key up flags: %#x", up.DwFlags)
	}
	if arrow := inputs[2].keyboard(); arrow.DwFlags&keyeventfExtendedKey == 0 {
		t.Fatalf("arrow keys must be sent as extended keys")
	}
}

func TestBuildInputsRejectsUnmappedKeys(t *testing.T) {
	_, err := buildInputs([]macro.Event{{Type: macro.EventTypeKey, Code: 0x2fe, Value: 1}}, fakeScanCode)
	if err == nil {
		t.Fatalf("expected error for unmapped code")
	}
	_, err = buildInputs([]macro.Event{{Type: macro.EventTypeKey, Code: macro.CodeKeyE, Value: 1}}, func(uint32) uint16 { return 0 })
	if err == nil {
		t.Fatalf("expected error when scan code lookup fails")
	}
}

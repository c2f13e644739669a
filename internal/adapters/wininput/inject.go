package wininput

import (
	"fmt"
	"unsafe"

	"contagion/internal/core/macro"
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseeventfLeftDown   = 0x0002
	mouseeventfLeftUp     = 0x0004
	mouseeventfRightDown  = 0x0008
	mouseeventfRightUp    = 0x0010
	mouseeventfMiddleDown = 0x0020
	mouseeventfMiddleUp   = 0x0040
	mouseeventfXDown      = 0x0080
	mouseeventfXUp        = 0x0100

	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002
	keyeventfScanCode    = 0x0008

	xButton1 = 0x0001
	xButton2 = 0x0002
)

type mouseInput struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type keybdInput struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// input mirrors the Win32 INPUT struct. The union is sized by its largest
// member, MOUSEINPUT; keyboard input is written through keyboard().
type input struct {
	Type uint32
	Mi   mouseInput
}

func (in *input) keyboard() *keybdInput {
	return (*keybdInput)(unsafe.Pointer(&in.Mi))
}

var mouseButtonFlags = map[uint16][2]uint32{
	macro.CodeBTNLeft:   {mouseeventfLeftDown, mouseeventfLeftUp},
	macro.CodeBTNRight:  {mouseeventfRightDown, mouseeventfRightUp},
	macro.CodeBTNMiddle: {mouseeventfMiddleDown, mouseeventfMiddleUp},
	macro.CodeBTNSide:   {mouseeventfXDown, mouseeventfXUp},
	macro.CodeBTNExtra:  {mouseeventfXDown, mouseeventfXUp},
}

// buildInputs converts key events into SendInput records. Keys are sent by
// hardware scan code, which games reading raw input expect. scanCode maps a
// virtual-key code to its scan code.
func buildInputs(events []macro.Event, scanCode func(vk uint32) uint16) ([]input, error) {
	inputs := make([]input, 0, len(events))
	for _, event := range events {
		if event.Type != macro.EventTypeKey || event.Value > 1 {
			continue
		}
		down := event.Value == 1

		if flags, ok := mouseButtonFlags[event.Code]; ok {
			in := input{Type: inputMouse}
			in.Mi.DwFlags = flags[1]
			if down {
				in.Mi.DwFlags = flags[0]
			}
			switch event.Code {
			case macro.CodeBTNSide:
				in.Mi.MouseData = xButton1
			case macro.CodeBTNExtra:
				in.Mi.MouseData = xButton2
			}
			inputs = append(inputs, in)
			continue
		}

		vk, ok := CodeToVK(event.Code)
		if !ok {
			return nil, fmt.Errorf("no virtual-key mapping for %s", FormatCodeName(event.Code))
		}
		scan := scanCode(vk)
		if scan == 0 {
			return nil, fmt.Errorf("no scan code for %s", FormatCodeName(event.Code))
		}

		in := input{Type: inputKeyboard}
		ki := in.keyboard()
		ki.WScan = scan
		ki.DwFlags = keyeventfScanCode
		if isExtendedCode(event.Code) {
			ki.DwFlags |= keyeventfExtendedKey
		}
		if !down {
			ki.DwFlags |= keyeventfKeyUp
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

//go:build linux

package x11input

import (
	"sort"
	"time"

	"contagion/internal/core/macro"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// Polling interval for the keymap and pointer snapshots.
const pollInterval = 2 * time.Millisecond

// Core pointer state carries masks for buttons 1-5 only.
var buttonMasks = map[xproto.Button]uint16{
	xproto.ButtonIndex1: xproto.KeyButMaskButton1,
	xproto.ButtonIndex2: xproto.KeyButMaskButton2,
	xproto.ButtonIndex3: xproto.KeyButMaskButton3,
	xproto.ButtonIndex4: xproto.KeyButMaskButton4,
	xproto.ButtonIndex5: xproto.KeyButMaskButton5,
}

// inputState is one snapshot of the logical keyboard and pointer state.
type inputState struct {
	keys    [32]byte
	buttons uint16
}

func queryState(conn *xgb.Conn, root xproto.Window) (inputState, error) {
	var state inputState

	keymap, err := xproto.QueryKeymap(conn).Reply()
	if err != nil {
		return state, err
	}
	copy(state.keys[:], keymap.Keys)

	pointer, err := xproto.QueryPointer(conn, root).Reply()
	if err != nil {
		return state, err
	}
	state.buttons = pointer.Mask
	return state, nil
}

func (s inputState) keyDown(key xproto.Keycode) bool {
	return s.keys[key/8]&(1<<(key%8)) != 0
}

func (s inputState) buttonDown(button xproto.Button) bool {
	mask, ok := buttonMasks[button]
	return ok && s.buttons&mask != 0
}

// pollable reports whether the core pointer state can observe button.
func pollable(button xproto.Button) bool {
	_, ok := buttonMasks[button]
	return ok
}

// diffStates returns a press or release for every watched key and button
// whose state changed between prev and cur. A code bound to several
// keycodes stays down while any of them is down.
func diffStates(prev, cur inputState, keys map[xproto.Keycode]uint16, buttons map[xproto.Button]uint16) []macro.Event {
	prevDown := make(map[uint16]bool)
	curDown := make(map[uint16]bool)
	for key, code := range keys {
		prevDown[code] = prevDown[code] || prev.keyDown(key)
		curDown[code] = curDown[code] || cur.keyDown(key)
	}
	for button, code := range buttons {
		prevDown[code] = prevDown[code] || prev.buttonDown(button)
		curDown[code] = curDown[code] || cur.buttonDown(button)
	}

	var events []macro.Event
	for code, down := range curDown {
		if down == prevDown[code] {
			continue
		}
		value := int32(0)
		if down {
			value = 1
		}
		events = append(events, macro.Event{Type: macro.EventTypeKey, Code: code, Value: value})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Code < events[j].Code })
	return events
}

// pressedSince returns the first key and button that went down between
// prev and cur.
func pressedSince(prev, cur inputState) (xproto.Keycode, xproto.Button, bool) {
	for key := 8; key < 256; key++ {
		kc := xproto.Keycode(key)
		if cur.keyDown(kc) && !prev.keyDown(kc) {
			return kc, 0, true
		}
	}
	for button := xproto.Button(xproto.ButtonIndex1); button <= xproto.ButtonIndex5; button++ {
		if cur.buttonDown(button) && !prev.buttonDown(button) {
			return 0, button, true
		}
	}
	return 0, 0, false
}

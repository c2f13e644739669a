//go:build windows

package wininput

import (
	"context"
	"fmt"
	"time"
)

// CaptureNextKeyCode polls GetAsyncKeyState for the next key or button
// that goes down.
func CaptureNextKeyCode(ctx context.Context) (uint16, error) {
	codes := CaptureCandidateCodes()
	state := make(map[uint16]bool, len(codes))
	for _, code := range codes {
		state[code] = isCodeDown(code)
	}

	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		for _, code := range codes {
			down := isCodeDown(code)
			wasDown := state[code]
			state[code] = down
			if down && !wasDown {
				return code, nil
			}
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("no key/button pressed: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func isCodeDown(code uint16) bool {
	vk, ok := CodeToVK(code)
	if !ok {
		return false
	}
	state, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return uint16(state)&0x8000 != 0
}

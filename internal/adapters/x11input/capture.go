//go:build linux

package x11input

import (
	"context"
	"fmt"
	"time"

	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
)

// CaptureNextKeyCode waits for the next key or button press by diffing
// keymap and pointer snapshots. Keys already down when it starts are
// ignored until they go down again.
func CaptureNextKeyCode(ctx context.Context) (uint16, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return 0, err
	}
	conn := xu.Conn()
	defer conn.Close()
	keybind.Initialize(xu)

	prev, err := queryState(conn, xu.RootWin())
	if err != nil {
		return 0, err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("no key/button pressed: %w", ctx.Err())
		case <-ticker.C:
		}

		cur, err := queryState(conn, xu.RootWin())
		if err != nil {
			return 0, err
		}
		key, button, ok := pressedSince(prev, cur)
		prev = cur
		if !ok {
			continue
		}
		if key != 0 {
			if code, ok := keysymToCode(keybind.LookupString(xu, 0, key)); ok {
				return code, nil
			}
			continue
		}
		if code, ok := xButtonToCode(button); ok {
			return code, nil
		}
	}
}

//go:build windows

// Package priority raises the scheduling priority of the macro process so
// sequence timings stay tight under load.
package priority

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func Raise() error {
	if err := windows.SetPriorityClass(windows.CurrentProcess(), windows.HIGH_PRIORITY_CLASS); err != nil {
		return fmt.Errorf("SetPriorityClass: %w", err)
	}
	return nil
}

//go:build linux || darwin

// Package priority raises the scheduling priority of the macro process so
// sequence timings stay tight under load.
package priority

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const niceness = -10

// Raise lowers the niceness of the current process. Without CAP_SYS_NICE
// or root this usually fails with EACCES.
func Raise() error {
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, niceness); err != nil {
		return fmt.Errorf("setpriority %d: %w", niceness, err)
	}
	return nil
}

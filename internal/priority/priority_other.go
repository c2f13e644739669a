//go:build !linux && !darwin && !windows

// Package priority raises the scheduling priority of the macro process so
// sequence timings stay tight under load.
package priority

import "errors"

var ErrUnsupported = errors.New("process priority is not supported on this platform")

func Raise() error {
	return ErrUnsupported
}

//go:build !windows

package wininput

import (
	"context"
	"errors"

	"contagion/internal/core/macro"
)

var errUnsupported = errors.New("windows input runtime is only available on Windows")

type Runtime struct{}

func NewRuntime(RuntimeConfig, macro.Logger) (*Runtime, error) {
	return nil, errUnsupported
}

func (r *Runtime) Start() error {
	return errUnsupported
}

func (r *Runtime) Stop() {}

func (r *Runtime) SetEnabled(bool) {}

func (r *Runtime) Status() macro.Status {
	return macro.Status{}
}

func (r *Runtime) Reconfigure(macro.Keybinds, macro.Timing) error {
	return errUnsupported
}

func ListInputDevices() ([]DeviceInfo, error) {
	return nil, errUnsupported
}

func CaptureNextKeyCode(context.Context) (uint16, error) {
	return 0, errUnsupported
}

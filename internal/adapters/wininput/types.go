package wininput

import "contagion/internal/core/macro"

const globalSourceIdentity = "windows-global"

type RuntimeConfig struct {
	Macro macro.Config
	Focus macro.FocusChecker
}

type DeviceInfo struct {
	Path      string
	Name      string
	IsVirtual bool
	IsPointer bool
}

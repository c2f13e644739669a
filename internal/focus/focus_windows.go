//go:build windows

package focus

import (
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
)

// New matches the executable name of the process owning the foreground
// window.
func New(target string, logger Logger) (Checker, error) {
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("focus target is empty")
	}
	if err := procGetForegroundWindow.Find(); err != nil {
		return nil, err
	}
	logger.Debug("Focus checks use the foreground process", "target", target)
	return nameChecker{target: target, name: foregroundProcessName}, nil
}

func foregroundProcessName() (string, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return "", nil
	}

	var pid uint32
	procGetWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return "", fmt.Errorf("foreground window has no owning process")
	}

	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("failed to open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(handle)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(handle, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("failed to query image name for process %d: %w", pid, err)
	}
	return filepath.Base(windows.UTF16ToString(buf[:size])), nil
}

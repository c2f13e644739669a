//go:build darwin

package focus

import (
	"fmt"
	"strings"

	"github.com/go-vgo/robotgo"
)

// New matches the process name and title of the active window.
func New(target string, logger Logger) (Checker, error) {
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("focus target is empty")
	}
	logger.Debug("Focus checks use the active window process", "target", target)
	return nameChecker{target: target, name: activeWindowName}, nil
}

// activeWindowName joins the owning process name and the window title so
// either can match the target.
func activeWindowName() (string, error) {
	pid := robotgo.GetPid()
	if pid <= 0 {
		return "", fmt.Errorf("no active window")
	}
	name, err := robotgo.FindName(pid)
	if err != nil {
		return "", fmt.Errorf("process %d: %w", pid, err)
	}
	return name + " " + robotgo.GetTitle(), nil
}

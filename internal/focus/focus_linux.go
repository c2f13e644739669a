//go:build linux

package focus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// New returns the best focus checker for the session. With an X11 display
// the active window title is matched; otherwise it falls back to checking
// whether a matching process is running at all.
func New(target string, logger Logger) (Checker, error) {
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("focus target is empty")
	}
	if strings.TrimSpace(os.Getenv("DISPLAY")) != "" {
		xu, err := xgbutil.NewConn()
		if err == nil {
			logger.Debug("Focus checks use the X11 active window", "target", target)
			return &x11Checker{xu: xu, target: target}, nil
		}
		logger.Warn("X11 unavailable for focus checks, falling back to process list", "err", err)
	} else {
		logger.Warn("No X11 display; focus checks only verify the game process is running", "target", target)
	}
	return nameChecker{target: target, name: func() (string, error) {
		return findProcessName("/proc", target)
	}}, nil
}

type x11Checker struct {
	mu     sync.Mutex
	xu     *xgbutil.XUtil
	target string
}

func (c *x11Checker) Focused() (bool, error) {
	title, err := c.activeWindowTitle()
	if err != nil {
		return false, err
	}
	return Match(title, c.target), nil
}

func (c *x11Checker) activeWindowTitle() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	win, err := ewmh.ActiveWindowGet(c.xu)
	if err != nil {
		return "", fmt.Errorf("failed to query active window: %w", err)
	}
	if win == 0 {
		return "", nil
	}
	if title, err := ewmh.WmNameGet(c.xu, win); err == nil && title != "" {
		return title, nil
	}
	title, err := icccm.WmNameGet(c.xu, win)
	if err != nil {
		return "", fmt.Errorf("failed to read title of window %d: %w", win, err)
	}
	return title, nil
}

// findProcessName returns the first process command name under procRoot
// that matches target, or an empty string when none does.
func findProcessName(procRoot, target string) (string, error) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if !entry.IsDir() || !isPID(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(procRoot, entry.Name(), "comm"))
		if err != nil {
			continue
		}
		name := strings.TrimSpace(string(data))
		if Match(name, target) {
			return name, nil
		}
	}
	return "", nil
}

func isPID(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

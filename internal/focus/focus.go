// Package focus reports whether the game window currently has the
// foreground on the desktop.
package focus

import "strings"

type Checker interface {
	Focused() (bool, error)
}

type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Match reports whether name contains target, ignoring case.
func Match(name, target string) bool {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return false
	}
	return strings.Contains(strings.ToLower(name), target)
}

type alwaysFocused struct{}

func (alwaysFocused) Focused() (bool, error) {
	return true, nil
}

// Always treats the game as focused at all times.
var Always Checker = alwaysFocused{}

// Func adapts a plain function to a Checker.
type Func func() (bool, error)

func (f Func) Focused() (bool, error) {
	return f()
}

// nameChecker resolves the foreground window or process name and matches
// it against the target.
type nameChecker struct {
	target string
	name   func() (string, error)
}

func (c nameChecker) Focused() (bool, error) {
	name, err := c.name()
	if err != nil {
		return false, err
	}
	return Match(name, c.target), nil
}

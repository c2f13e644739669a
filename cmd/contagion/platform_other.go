//go:build !linux && !windows && !darwin

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"contagion/internal/adapters/wininput"
	"contagion/internal/focus"
)

func parseCode(value string) (uint16, error) {
	return wininput.ParseCode(value)
}

func formatCodeName(code uint16) string {
	return wininput.FormatCodeName(code)
}

func parseBackendChoice(value string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(value))
	if backend == "" || backend == "auto" {
		return "auto", nil
	}
	return "", fmt.Errorf("invalid --backend %q (unsupported platform)", value)
}

func captureNextCode(context.Context, string, string) (uint16, error) {
	return 0, fmt.Errorf("unsupported platform")
}

func listInputDevices(string, io.Writer) error {
	return fmt.Errorf("input device listing is not supported on this platform")
}

func newFocusChecker(target string, logger *slog.Logger) (focus.Checker, error) {
	return focus.New(target, logger)
}

func permissionDeniedHint() string {
	return "Permission denied opening input backend."
}

func startRuntime(runtimeOptions, *slog.Logger) (macroRuntime, error) {
	return nil, fmt.Errorf("macro runtime is not supported on this platform")
}

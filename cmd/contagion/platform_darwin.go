//go:build darwin

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"contagion/internal/adapters/hookinput"
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
	if backend == "" {
		backend = "auto"
	}
	switch backend {
	case "auto", "darwin":
		return backend, nil
	default:
		return "", fmt.Errorf("invalid --backend %q (macOS supports auto|darwin)", value)
	}
}

func captureNextCode(ctx context.Context, _ string, _ string) (uint16, error) {
	return hookinput.CaptureNextKeyCode(ctx)
}

func listInputDevices(_ string, w io.Writer) error {
	devices, err := hookinput.ListInputDevices()
	if err != nil {
		return err
	}
	for _, dev := range devices {
		printDevice(w, dev.Path, dev.Name, dev.IsVirtual, dev.IsPointer)
	}
	return nil
}

func newFocusChecker(target string, logger *slog.Logger) (focus.Checker, error) {
	return focus.New(target, logger)
}

func permissionDeniedHint() string {
	return "Permission denied creating the event tap. Grant Accessibility and Input Monitoring access to the terminal running contagion."
}

func startRuntime(opts runtimeOptions, logger *slog.Logger) (macroRuntime, error) {
	if opts.devicePath != "" {
		logger.Warn("--device is ignored on macOS; using the global event tap")
	}

	runtime, err := hookinput.NewRuntime(hookinput.RuntimeConfig{
		Macro: opts.macro,
		Focus: opts.focus,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := runtime.Start(); err != nil {
		runtime.Stop()
		return nil, err
	}
	logger.Info("Input mode", "mode", "darwin-event-tap")
	return runtime, nil
}

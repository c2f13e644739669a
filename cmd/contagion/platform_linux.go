//go:build linux

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"contagion/internal/adapters/linuxinput"
	"contagion/internal/adapters/x11input"
	"contagion/internal/focus"
)

func parseCode(value string) (uint16, error) {
	return linuxinput.ParseCode(value)
}

func formatCodeName(code uint16) string {
	return linuxinput.FormatCodeName(code)
}

func parseBackendChoice(value string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(value))
	if backend == "" {
		backend = "auto"
	}
	switch backend {
	case "auto", "wayland", "x11", "evdev":
		return backend, nil
	default:
		return "", fmt.Errorf("invalid --backend %q (linux supports auto|wayland|x11)", value)
	}
}

func captureNextCode(ctx context.Context, backend, devicePath string) (uint16, error) {
	switch resolveLinuxBackend(backend) {
	case "x11":
		return captureX11Code(ctx, devicePath)
	default:
		return linuxinput.CaptureNextKeyCode(ctx, devicePath)
	}
}

func listInputDevices(backend string, w io.Writer) error {
	switch resolveLinuxBackend(backend) {
	case "x11":
		devices, err := x11input.ListInputDevices()
		if err != nil {
			return err
		}
		for _, dev := range devices {
			printDevice(w, dev.Path, dev.Name, dev.IsVirtual, dev.IsPointer)
		}
	default:
		devices, err := linuxinput.ListInputDevices()
		if err != nil {
			return err
		}
		for _, dev := range devices {
			printDevice(w, dev.Path, dev.Name, dev.IsVirtual, dev.IsPointer)
		}
	}
	return nil
}

func newFocusChecker(target string, logger *slog.Logger) (focus.Checker, error) {
	return focus.New(target, logger)
}

func permissionDeniedHint() string {
	return "Permission denied opening input backend. On Wayland use root/udev for /dev/input + /dev/uinput. On X11 ensure an active X11 session and DISPLAY is set."
}

func startRuntime(opts runtimeOptions, logger *slog.Logger) (macroRuntime, error) {
	switch resolveLinuxBackend(opts.backend) {
	case "x11":
		return startX11Runtime(opts, logger)
	default:
		return startEvdevRuntime(opts, logger)
	}
}

func startEvdevRuntime(opts runtimeOptions, logger *slog.Logger) (macroRuntime, error) {
	selection, err := linuxinput.OpenSources(opts.devicePath, opts.macro.Keybinds.Watched())
	if err != nil {
		return nil, err
	}
	for _, dev := range selection.Devices {
		name, _ := dev.Name()
		logger.Info("Using source device", "path", dev.Path(), "name", name)
	}

	runtime, err := linuxinput.NewRuntime(selection, linuxinput.RuntimeConfig{
		Macro: opts.macro,
		Focus: opts.focus,
	}, logger)
	if err != nil {
		selection.Close()
		return nil, err
	}
	if err := runtime.Start(); err != nil {
		runtime.Stop()
		return nil, err
	}
	logger.Info("Backend", "name", "wayland")
	return runtime, nil
}

func startX11Runtime(opts runtimeOptions, logger *slog.Logger) (macroRuntime, error) {
	var buttonSources *linuxinput.SourceSelection
	if codes := x11input.DeviceWatched(opts.macro.Keybinds); len(codes) > 0 {
		selection, err := linuxinput.OpenSources(opts.devicePath, codes)
		if err != nil {
			return nil, fmt.Errorf("X11 does not report %s; reading it needs access to /dev/input (add your user to the input group): %w",
				formatCodeNames(codes), err)
		}
		for _, dev := range selection.Devices {
			name, _ := dev.Name()
			logger.Info("Using button device", "path", dev.Path(), "name", name)
		}
		buttonSources = selection
	} else if opts.devicePath != "" {
		logger.Warn("--device is ignored on X11 backend unless a side button is bound")
	}

	runtime, err := x11input.NewRuntime(x11input.RuntimeConfig{
		Macro:         opts.macro,
		Focus:         opts.focus,
		ButtonSources: buttonSources,
	}, logger)
	if err != nil {
		if buttonSources != nil {
			buttonSources.Close()
		}
		return nil, err
	}
	if err := runtime.Start(); err != nil {
		runtime.Stop()
		return nil, err
	}
	logger.Info("Backend", "name", "x11")
	return runtime, nil
}

// captureX11Code races X11 polling against evdev capture, since side
// buttons only show up on evdev. The first captured code wins.
func captureX11Code(ctx context.Context, devicePath string) (uint16, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		code uint16
		err  error
	}
	results := make(chan result, 2)
	go func() {
		code, err := x11input.CaptureNextKeyCode(ctx)
		results <- result{code, err}
	}()
	go func() {
		code, err := linuxinput.CaptureNextKeyCode(ctx, devicePath)
		results <- result{code, err}
	}()

	var firstErr error
	for i := 0; i < 2; i++ {
		res := <-results
		if res.err == nil {
			return res.code, nil
		}
		if firstErr == nil {
			firstErr = res.err
		}
	}
	return 0, firstErr
}

func formatCodeNames(codes []uint16) string {
	names := make([]string, 0, len(codes))
	for _, code := range codes {
		names = append(names, formatCodeName(code))
	}
	return strings.Join(names, ", ")
}

func resolveLinuxBackend(configured string) string {
	choice := strings.ToLower(strings.TrimSpace(configured))
	if choice == "" {
		choice = "auto"
	}
	if choice == "evdev" {
		choice = "wayland"
	}
	if choice != "auto" {
		return choice
	}

	switch strings.ToLower(strings.TrimSpace(os.Getenv("XDG_SESSION_TYPE"))) {
	case "wayland":
		return "wayland"
	case "x11":
		return "x11"
	}
	if strings.TrimSpace(os.Getenv("WAYLAND_DISPLAY")) != "" {
		return "wayland"
	}
	if strings.TrimSpace(os.Getenv("DISPLAY")) != "" {
		return "x11"
	}
	return "wayland"
}

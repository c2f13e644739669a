package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"contagion/internal/config"
	"contagion/internal/core/macro"
	"contagion/internal/focus"
	"contagion/internal/priority"

	"golang.org/x/sync/errgroup"
)

const captureTimeout = 10 * time.Second

type options struct {
	configPath    string
	writeConfig   bool
	backend       string
	devicePath    string
	target        string
	fps           float64
	fpsSet        bool
	startDisabled bool
	noAlt         bool
	noFocusCheck  bool
	watch         bool
	highPriority  bool
	listDevices   bool
	capture       bool
	logLevel      slog.Level
}

// macroRuntime is the platform backend driving the macro service.
type macroRuntime interface {
	Start() error
	Stop()
	SetEnabled(enabled bool)
	Status() macro.Status
	Reconfigure(keybinds macro.Keybinds, timing macro.Timing) error
}

type runtimeOptions struct {
	backend    string
	devicePath string
	macro      macro.Config
	focus      macro.FocusChecker
}

func newSlogLogger(level slog.Level, out io.Writer) *slog.Logger {
	if debugLogsEnabled() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
}

func debugLogsEnabled() bool {
	return strings.TrimSpace(os.Getenv("DEBUG")) == "1"
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid --log-level %q (expected debug|info|warning|error)", value)
	}
}

func parseOptions(args []string, output io.Writer) (options, error) {
	var opts options
	flags := flag.NewFlagSet("contagion", flag.ContinueOnError)
	flags.SetOutput(output)

	var backendRaw string
	var logLevelRaw string

	flags.StringVar(&opts.configPath, "config", config.DefaultPath(), "Profile file (YAML) with keybinds and timings.")
	flags.BoolVar(&opts.writeConfig, "write-config", false, "Write the effective profile to --config and exit.")
	flags.StringVar(&backendRaw, "backend", "auto", "Input backend. Linux: auto|wayland|x11. Windows: auto|windows. macOS: auto|darwin.")
	flags.StringVar(&opts.devicePath, "device", "", "Input event device path to listen on, e.g. /dev/input/event4. Auto-detected if omitted.")
	flags.StringVar(&opts.target, "target", "", "Window or process name the game runs as (default from profile: warframe).")
	flags.Float64Var(&opts.fps, "fps", 0, "In-game FPS used by the jump and emote timings (default from profile: 160).")
	flags.BoolVar(&opts.startDisabled, "start-disabled", false, "Start with the macro disabled until the toggle key is pressed.")
	flags.BoolVar(&opts.noAlt, "no-alt", false, "Disable the alternate macro trigger.")
	flags.BoolVar(&opts.noFocusCheck, "no-focus-check", false, "Run the macro regardless of which window is focused.")
	flags.BoolVar(&opts.watch, "watch", true, "Reload the profile when the file changes.")
	flags.BoolVar(&opts.highPriority, "high-priority", true, "Raise process priority for steadier timings.")
	flags.BoolVar(&opts.listDevices, "list-devices", false, "Print available input devices and exit.")
	flags.BoolVar(&opts.capture, "capture", false, "Wait for the next key/button press, print its code name and exit.")
	flags.StringVar(&logLevelRaw, "log-level", "info", "Log verbosity (default: info). Allowed: debug, info, warning, error.")

	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	if flags.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(flags.Args(), " "))
	}
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "fps" {
			opts.fpsSet = true
		}
	})
	if opts.fpsSet && opts.fps <= 0 {
		return opts, fmt.Errorf("--fps must be > 0")
	}
	if strings.TrimSpace(opts.configPath) == "" {
		return opts, fmt.Errorf("--config must not be empty")
	}
	if opts.listDevices && opts.capture {
		return opts, fmt.Errorf("--list-devices and --capture are mutually exclusive")
	}

	level, err := parseLogLevel(logLevelRaw)
	if err != nil {
		return opts, err
	}
	backend, err := parseBackendChoice(backendRaw)
	if err != nil {
		return opts, err
	}
	opts.logLevel = level
	opts.backend = backend
	return opts, nil
}

// applyOptions overlays command line overrides on a loaded profile.
func applyOptions(profile config.Profile, opts options) config.Profile {
	if target := strings.TrimSpace(opts.target); target != "" {
		profile.Target = target
	}
	if opts.fpsSet {
		profile.Timing.FPS = opts.fps
	}
	if opts.startDisabled {
		profile.StartEnabled = false
	}
	if opts.noAlt {
		profile.Keybinds.MacroAlt = ""
	}
	if opts.noFocusCheck {
		profile.FocusCheck = false
	}
	return profile
}

func isPermissionError(err error) bool {
	return errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES)
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}
	logger := newSlogLogger(opts.logLevel, stderr)

	if opts.listDevices {
		if err := listInputDevices(opts.backend, stdout); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}
	if opts.capture {
		return runCapture(opts, stdout, stderr)
	}

	profile, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	profile = applyOptions(profile, opts)
	if err := profile.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid profile %s: %v\n", opts.configPath, err)
		return 2
	}
	macroCfg, err := profile.Resolve(parseCode)
	if err != nil {
		fmt.Fprintf(stderr, "invalid profile %s: %v\n", opts.configPath, err)
		return 2
	}

	if opts.writeConfig {
		if err := config.Save(opts.configPath, profile); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "Profile written to %s\n", opts.configPath)
		return 0
	}

	for _, warning := range profile.Warnings() {
		logger.Warn(warning)
	}
	if opts.highPriority {
		if err := priority.Raise(); err != nil {
			logger.Warn("Failed to raise process priority", "err", err)
		} else {
			logger.Debug("Process priority raised")
		}
	}

	checker := focus.Always
	if profile.FocusCheck {
		checker, err = newFocusChecker(profile.Target, logger)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	} else {
		logger.Warn("Focus check disabled; the macro runs in every window")
	}

	runtime, err := startRuntime(runtimeOptions{
		backend:    opts.backend,
		devicePath: opts.devicePath,
		macro:      macroCfg,
		focus:      checker,
	}, logger)
	if err != nil {
		if isPermissionError(err) {
			fmt.Fprintln(stderr, permissionDeniedHint())
			return 1
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer runtime.Stop()

	printBanner(stdout, profile, macroCfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if opts.watch {
		watcher, err := config.NewWatcher(opts.configPath, func(updated config.Profile) {
			reloadProfile(runtime, profile, applyOptions(updated, opts), logger)
		}, logger)
		if err != nil {
			logger.Warn("Profile hot reload unavailable", "path", opts.configPath, "err", err)
		} else {
			logger.Info("Watching profile for changes", "path", opts.configPath)
			g.Go(func() error {
				return watcher.Run(gctx)
			})
		}
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("Shutting down", "err", err)
		return 1
	}
	logger.Info("Shutting down")
	return 0
}

// reloadProfile applies keybinds and timings from an edited profile to the
// running backend. Target and focus settings are fixed for the process.
func reloadProfile(runtime macroRuntime, current, updated config.Profile, logger *slog.Logger) {
	if updated.Target != current.Target || updated.FocusCheck != current.FocusCheck {
		logger.Warn("Focus target changes take effect after restart")
	}
	cfg, err := updated.Resolve(parseCode)
	if err != nil {
		logger.Warn("Profile reload rejected", "err", err)
		return
	}
	if err := runtime.Reconfigure(cfg.Keybinds, cfg.Timing); err != nil {
		logger.Warn("Profile reload rejected", "err", err)
		return
	}
	for _, warning := range updated.Warnings() {
		logger.Warn(warning)
	}
}

func runCapture(opts options, stdout, stderr io.Writer) int {
	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()

	fmt.Fprintf(stderr, "Press a key or mouse button within %s...\n", captureTimeout)
	code, err := captureNextCode(ctx, opts.backend, opts.devicePath)
	if err != nil {
		if isPermissionError(err) {
			fmt.Fprintln(stderr, permissionDeniedHint())
			return 1
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s (%s, code %d)\n", formatCodeName(code), displayCodeName(formatCodeName(code)), code)
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

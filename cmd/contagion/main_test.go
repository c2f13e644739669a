package main

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"contagion/internal/config"
	"contagion/internal/core/macro"
)

func TestParseOptionsDefaults(t *testing.T) {
	opts, err := parseOptions(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseOptions returned error: %v", err)
	}
	if opts.backend != "auto" {
		t.Fatalf("backend = %q, want auto", opts.backend)
	}
	if opts.fpsSet {
		t.Fatalf("fps should not count as set by default")
	}
	if !opts.watch || !opts.highPriority {
		t.Fatalf("watch and high-priority should default on: %+v", opts)
	}
	if opts.logLevel != slog.LevelInfo {
		t.Fatalf("log level = %v, want info", opts.logLevel)
	}
	if opts.configPath != config.DefaultPath() {
		t.Fatalf("config path = %q, want %q", opts.configPath, config.DefaultPath())
	}
}

func TestParseOptionsRejectsInvalidValues(t *testing.T) {
	cases := [][]string{
		{"--fps", "0"},
		{"--fps", "-30"},
		{"--log-level", "loud"},
		{"--backend", "carrier-pigeon"},
		{"--list-devices", "--capture"},
		{"--config", ""},
		{"extra"},
	}
	for _, args := range cases {
		if _, err := parseOptions(args, &bytes.Buffer{}); err == nil {
			t.Fatalf("parseOptions(%q) should fail", args)
		}
	}
}

func TestApplyOptionsOverridesProfile(t *testing.T) {
	opts, err := parseOptions([]string{
		"--target", "Warframe.x64.exe",
		"--fps", "240",
		"--start-disabled",
		"--no-alt",
		"--no-focus-check",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseOptions returned error: %v", err)
	}

	profile := applyOptions(config.Default(), opts)
	if profile.Target != "Warframe.x64.exe" {
		t.Fatalf("target = %q", profile.Target)
	}
	if profile.Timing.FPS != 240 {
		t.Fatalf("fps = %v, want 240", profile.Timing.FPS)
	}
	if profile.StartEnabled || profile.FocusCheck {
		t.Fatalf("start_enabled and focus_check should be off: %+v", profile)
	}
	if profile.Keybinds.MacroAlt != "" {
		t.Fatalf("macro_alt = %q, want empty", profile.Keybinds.MacroAlt)
	}
}

func TestApplyOptionsKeepsProfileWithoutFlags(t *testing.T) {
	opts, err := parseOptions(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseOptions returned error: %v", err)
	}
	profile := config.Default()
	profile.Timing.FPS = 90
	got := applyOptions(profile, opts)
	if got != profile {
		t.Fatalf("applyOptions changed profile without flags: %+v", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for raw, want := range cases {
		got, err := parseLogLevel(raw)
		if err != nil {
			t.Fatalf("parseLogLevel(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNewSlogLoggerDebugEnv(t *testing.T) {
	t.Setenv("DEBUG", "1")
	var out bytes.Buffer
	logger := newSlogLogger(slog.LevelError, &out)
	logger.Debug("probe")
	if !strings.Contains(out.String(), "probe") {
		t.Fatalf("DEBUG=1 should force debug output, got %q", out.String())
	}
}

func TestRunWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	var stdout, stderr bytes.Buffer

	code := run([]string{"--config", path, "--write-config", "--fps", "240", "--no-alt"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run returned %d, stderr: %s", code, stderr.String())
	}

	profile, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if profile.Timing.FPS != 240 {
		t.Fatalf("saved fps = %v, want 240", profile.Timing.FPS)
	}
	if profile.Keybinds.MacroAlt != "" {
		t.Fatalf("saved macro_alt = %q, want empty", profile.Keybinds.MacroAlt)
	}
}

func TestRunRejectsInvalidProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	profile := config.Default()
	profile.Keybinds.Macro = "KEY_NOT_A_KEY"
	if err := config.Save(path, profile); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--config", path, "--no-focus-check"}, &stdout, &stderr); code != 2 {
		t.Fatalf("run returned %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "keybinds.macro") {
		t.Fatalf("stderr should name the bad keybind, got %q", stderr.String())
	}
}

func TestRunUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--fps", "nope"}, &stdout, &stderr); code != 2 {
		t.Fatalf("run returned %d, want 2", code)
	}
}

type fakeRuntime struct {
	keybinds macro.Keybinds
	timing   macro.Timing
	calls    int
}

func (f *fakeRuntime) Start() error         { return nil }
func (f *fakeRuntime) Stop()                {}
func (f *fakeRuntime) SetEnabled(bool)      {}
func (f *fakeRuntime) Status() macro.Status { return macro.Status{} }

func (f *fakeRuntime) Reconfigure(keybinds macro.Keybinds, timing macro.Timing) error {
	f.keybinds = keybinds
	f.timing = timing
	f.calls++
	return nil
}

func TestReloadProfileReconfiguresRuntime(t *testing.T) {
	rt := &fakeRuntime{}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	current := config.Default()
	updated := config.Default()
	updated.Timing.FPS = 60
	reloadProfile(rt, current, updated, logger)

	if rt.calls != 1 {
		t.Fatalf("Reconfigure calls = %d, want 1", rt.calls)
	}
	if rt.timing.FPS != 60 {
		t.Fatalf("reconfigured fps = %v, want 60", rt.timing.FPS)
	}

	broken := config.Default()
	broken.Keybinds.Jump = ""
	reloadProfile(rt, current, broken, logger)
	if rt.calls != 1 {
		t.Fatalf("invalid profile should not reach the runtime")
	}
}

func TestDisplayCodeName(t *testing.T) {
	cases := map[string]string{
		"BTN_SIDE":     "Mouse 4",
		"BTN_EXTRA":    "Mouse 5",
		"BTN_RIGHT":    "Mouse Right",
		"KEY_F11":      "F11",
		"KEY_DOT":      ".",
		"KEY_LEFTCTRL": "Left Ctrl",
		"KEY_KP5":      "Keypad 5",
		"KEY_SPACE":    "Space",
		"":             "-",
	}
	for raw, want := range cases {
		if got := displayCodeName(raw); got != want {
			t.Fatalf("displayCodeName(%q) = %q, want %q", raw, got, want)
		}
	}
}

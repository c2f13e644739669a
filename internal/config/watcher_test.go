package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func TestWatcherDeliversReloadedProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, Save(path, Default()))

	changes := make(chan Profile, 4)
	w, err := NewWatcher(path, func(p Profile) { changes <- p }, nopLogger{})
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	updated := Default()
	updated.Timing.FPS = 90
	require.NoError(t, Save(path, updated))

	select {
	case got := <-changes:
		require.Equal(t, 90.0, got.Timing.FPS)
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for profile reload")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherKeepsPreviousProfileOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, Save(path, Default()))

	changes := make(chan Profile, 4)
	w, err := NewWatcher(path, func(p Profile) { changes <- p }, nopLogger{})
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte("timing: [oops\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600))

	select {
	case got := <-changes:
		t.Fatalf("unexpected reload: %#v", got)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}

func TestNewWatcherRequiresCallback(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "p.yaml"), nil, nopLogger{})
	require.Error(t, err)
}

func TestWatcherCreatesMissingProfileDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "contagion")
	path := filepath.Join(dir, "profile.yaml")

	changes := make(chan Profile, 4)
	w, err := NewWatcher(path, func(p Profile) { changes <- p }, nopLogger{})
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond
	require.DirExists(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	first := Default()
	first.Timing.FPS = 120
	require.NoError(t, Save(path, first))

	select {
	case got := <-changes:
		require.Equal(t, 120.0, got.Timing.FPS)
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for the first profile write")
	}

	cancel()
	require.NoError(t, <-done)
}

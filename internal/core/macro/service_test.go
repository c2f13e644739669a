package macro

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type recordingInjector struct {
	mu     sync.Mutex
	events []Event
	closed bool
	err    error
}

func (r *recordingInjector) WriteEvents(events ...Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, events...)
	return nil
}

func (r *recordingInjector) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingInjector) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingInjector) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type switchFocus struct {
	focused atomic.Bool
	err     error
}

func newSwitchFocus(focused bool) *switchFocus {
	f := &switchFocus{}
	f.focused.Store(focused)
	return f
}

func (f *switchFocus) Focused() (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.focused.Load(), nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// testClock advances virtual time on Sleep and yields briefly so workers
// spinning on it do not starve the test goroutine.
type testClock struct {
	mu      sync.Mutex
	now     time.Time
	onSleep func(d time.Duration)
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(0, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	hook := c.onSleep
	c.mu.Unlock()
	if hook != nil {
		hook(d)
	}
	time.Sleep(50 * time.Microsecond)
}

func testTiming() Timing {
	t := DefaultTiming()
	t.RapidFireDuration = 0
	t.RapidClickCount = 3
	return t
}

func newTestService(t *testing.T, startEnabled bool, focus FocusChecker) (*Service, *recordingInjector) {
	t.Helper()
	injector := &recordingInjector{}
	service, err := NewService(Config{
		Keybinds:     DefaultKeybinds(),
		Timing:       testTiming(),
		StartEnabled: startEnabled,
	}, injector, focus, noopLogger{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	service.clock = newTestClock()
	return service, injector
}

func press(code uint16) Event {
	return Event{Type: EventTypeKey, Code: code, Value: 1}
}

func release(code uint16) Event {
	return Event{Type: EventTypeKey, Code: code, Value: 0}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (s *Service) workerIdle() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return !s.workerActive
}

func containsEvent(events []Event, want Event) bool {
	for _, event := range events {
		if event == want {
			return true
		}
	}
	return false
}

func countEvents(events []Event, want Event) int {
	n := 0
	for _, event := range events {
		if event == want {
			n++
		}
	}
	return n
}

func assertReleasedSuffix(t *testing.T, events []Event, codes ...uint16) {
	t.Helper()
	for _, code := range codes {
		idx := -1
		for i, event := range events {
			if event.Type == EventTypeKey && event.Code == code {
				idx = i
			}
		}
		if idx == -1 {
			continue
		}
		if events[idx].Value != 0 {
			t.Fatalf("code %#x left pressed; last event %#v", code, events[idx])
		}
	}
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	keybinds := DefaultKeybinds()
	keybinds.Toggle = keybinds.Macro
	_, err := NewService(Config{Keybinds: keybinds, Timing: DefaultTiming()}, &recordingInjector{}, newSwitchFocus(true), noopLogger{})
	if err == nil {
		t.Fatalf("expected error when toggle equals macro trigger")
	}

	timing := DefaultTiming()
	timing.FPS = 0
	_, err = NewService(Config{Keybinds: DefaultKeybinds(), Timing: timing}, &recordingInjector{}, newSwitchFocus(true), noopLogger{})
	if err == nil {
		t.Fatalf("expected error for zero fps")
	}

	if _, err := NewService(Config{Keybinds: DefaultKeybinds(), Timing: DefaultTiming()}, nil, newSwitchFocus(true), noopLogger{}); err == nil {
		t.Fatalf("expected error for nil injector")
	}
}

func TestTriggerStartsSequenceWhenArmed(t *testing.T) {
	service, injector := newTestService(t, true, newSwitchFocus(true))
	defer service.Stop()

	service.handleEvent("device", press(CodeBTNSide))
	if !service.Status().Running {
		t.Fatalf("expected sequence running after trigger press")
	}

	waitFor(t, "emote press", func() bool {
		return containsEvent(injector.snapshot(), press(CodeKeyDot))
	})

	service.handleEvent("device", release(CodeBTNSide))
	if service.Status().Running {
		t.Fatalf("expected running cleared after trigger release")
	}
	waitFor(t, "worker exit", service.workerIdle)

	events := injector.snapshot()
	if events[0] != press(CodeKeySpace) {
		t.Fatalf("first injected event = %#v, want jump press", events[0])
	}
	assertReleasedSuffix(t, events, CodeKeyE, CodeKeyDot, CodeBTNRight, CodeBTNLeft, CodeKeySpace)
}

func TestTriggerIgnoredWhenDisabled(t *testing.T) {
	service, injector := newTestService(t, false, newSwitchFocus(true))
	defer service.Stop()

	service.handleEvent("device", press(CodeBTNSide))
	if service.Status().Running {
		t.Fatalf("sequence must not run while disabled")
	}
	if n := len(injector.snapshot()); n != 0 {
		t.Fatalf("expected no injected events, got %d", n)
	}
}

func TestTriggerIgnoredWhenUnfocused(t *testing.T) {
	focus := newSwitchFocus(false)
	service, injector := newTestService(t, true, focus)
	defer service.Stop()

	service.handleEvent("device", press(CodeBTNSide))
	if service.Status().Running {
		t.Fatalf("sequence must not run without focus")
	}
	if n := len(injector.snapshot()); n != 0 {
		t.Fatalf("expected no injected events, got %d", n)
	}

	focus.err = errors.New("no display")
	focus.focused.Store(true)
	service.handleEvent("device", press(CodeBTNSide))
	if service.Status().Running {
		t.Fatalf("focus query errors must count as unfocused")
	}
}

func TestToggleFlipsEnabledAndStopsSequence(t *testing.T) {
	service, _ := newTestService(t, true, newSwitchFocus(true))
	defer service.Stop()

	service.handleEvent("device", press(CodeBTNSide))
	if !service.Status().Running {
		t.Fatalf("expected sequence running")
	}

	service.handleEvent("device", press(CodeKeyF11))
	if service.IsEnabled() {
		t.Fatalf("expected toggle to disable the macro")
	}
	if service.Status().Running {
		t.Fatalf("disabling must stop the sequence")
	}
	waitFor(t, "worker exit", service.workerIdle)

	service.handleEvent("device", release(CodeKeyF11))
	if service.IsEnabled() {
		t.Fatalf("toggle release must not flip state")
	}
	service.handleEvent("device", press(CodeKeyF11))
	if !service.IsEnabled() {
		t.Fatalf("expected second toggle press to enable the macro")
	}
}

func TestToggleWorksWithoutFocus(t *testing.T) {
	service, _ := newTestService(t, true, newSwitchFocus(false))
	defer service.Stop()

	service.handleEvent("device", press(CodeKeyF11))
	if service.IsEnabled() {
		t.Fatalf("toggle should apply regardless of focus")
	}
}

func TestAutoRepeatIgnored(t *testing.T) {
	service, _ := newTestService(t, true, newSwitchFocus(true))
	defer service.Stop()

	service.handleEvent("device", Event{Type: EventTypeKey, Code: CodeKeyF11, Value: 2})
	if !service.IsEnabled() {
		t.Fatalf("auto-repeat must not toggle")
	}
}

func TestAltTriggerKeepsRunningUntilAllReleased(t *testing.T) {
	service, _ := newTestService(t, true, newSwitchFocus(true))
	defer service.Stop()

	service.handleEvent("device", press(CodeBTNSide))
	service.handleEvent("device", press(CodeBTNExtra))
	service.handleEvent("device", release(CodeBTNSide))
	if !service.Status().Running {
		t.Fatalf("expected sequence to keep running while alt trigger is held")
	}

	service.handleEvent("device", release(CodeBTNExtra))
	if service.Status().Running {
		t.Fatalf("expected sequence to stop once every trigger is released")
	}
	waitFor(t, "worker exit", service.workerIdle)
}

func TestAltTriggerDisabled(t *testing.T) {
	service, _ := newTestService(t, true, newSwitchFocus(true))
	defer service.Stop()

	keybinds := DefaultKeybinds()
	keybinds.MacroAlt = 0
	if err := service.Reconfigure(keybinds, testTiming()); err != nil {
		t.Fatalf("Reconfigure() error = %v", err)
	}

	service.handleEvent("device", press(CodeBTNExtra))
	if service.Status().Running {
		t.Fatalf("alt trigger should be ignored when disabled")
	}
}

func TestFocusLossStopsSequence(t *testing.T) {
	focus := newSwitchFocus(true)
	service, _ := newTestService(t, true, focus)
	defer service.Stop()

	service.handleEvent("device", press(CodeBTNSide))
	if !service.Status().Running {
		t.Fatalf("expected sequence running")
	}

	focus.focused.Store(false)
	if service.refreshFocus() {
		t.Fatalf("refreshFocus() = true, want false")
	}
	if service.Status().Running {
		t.Fatalf("expected focus loss to stop the sequence")
	}
	waitFor(t, "worker exit", service.workerIdle)
}

func TestHeldTriggerArmsWhenFocusReturns(t *testing.T) {
	focus := newSwitchFocus(false)
	service, injector := newTestService(t, true, focus)
	defer service.Stop()

	service.handleEvent("device", press(CodeBTNSide))
	if service.Status().Running {
		t.Fatalf("sequence must not run without focus")
	}

	focus.focused.Store(true)
	if !service.refreshFocus() {
		t.Fatalf("refreshFocus() = false, want true")
	}
	waitFor(t, "jump press", func() bool {
		return containsEvent(injector.snapshot(), press(CodeKeySpace))
	})
	if !service.Status().Running {
		t.Fatalf("expected held trigger to arm once focused")
	}

	service.handleEvent("device", release(CodeBTNSide))
	waitFor(t, "worker exit", service.workerIdle)
}

func TestTriggerReleasedWhileUnfocusedDoesNotArm(t *testing.T) {
	focus := newSwitchFocus(false)
	service, injector := newTestService(t, true, focus)
	defer service.Stop()

	service.handleEvent("device", press(CodeBTNSide))
	service.handleEvent("device", release(CodeBTNSide))
	focus.focused.Store(true)
	service.refreshFocus()

	if service.Status().Running {
		t.Fatalf("released trigger must not arm on focus return")
	}
	if n := len(injector.snapshot()); n != 0 {
		t.Fatalf("expected no injected events, got %d", n)
	}
}

func TestReconfigureAppliesTimingToNextPass(t *testing.T) {
	service, _ := newTestService(t, true, newSwitchFocus(true))
	defer service.Stop()

	const loopDelay = 7 * time.Millisecond
	var sawLoopDelay atomic.Bool
	clk := service.clock.(*testClock)
	clk.mu.Lock()
	clk.onSleep = func(d time.Duration) {
		if d == loopDelay {
			sawLoopDelay.Store(true)
		}
	}
	clk.mu.Unlock()

	service.handleEvent("device", press(CodeBTNSide))
	if !service.Status().Running {
		t.Fatalf("expected sequence running")
	}

	timing := testTiming()
	timing.LoopDelay = loopDelay
	if err := service.Reconfigure(DefaultKeybinds(), timing); err != nil {
		t.Fatalf("Reconfigure() error = %v", err)
	}
	waitFor(t, "new loop delay", sawLoopDelay.Load)
	if !service.Status().Running {
		t.Fatalf("timing-only reload must keep the sequence running")
	}

	service.handleEvent("device", release(CodeBTNSide))
	waitFor(t, "worker exit", service.workerIdle)
}

func TestReconfigureKeybindsStopsSequenceAndForgetsHeld(t *testing.T) {
	service, injector := newTestService(t, true, newSwitchFocus(true))
	defer service.Stop()

	service.handleEvent("device", press(CodeBTNSide))
	if !service.Status().Running {
		t.Fatalf("expected sequence running")
	}

	keybinds := DefaultKeybinds()
	keybinds.Macro = CodeBTNMiddle
	if err := service.Reconfigure(keybinds, testTiming()); err != nil {
		t.Fatalf("Reconfigure() error = %v", err)
	}
	if service.Status().Running {
		t.Fatalf("keybind change must stop the running sequence")
	}
	if service.anyHeld() {
		t.Fatalf("keybind change must forget held triggers")
	}
	waitFor(t, "worker exit", service.workerIdle)
	assertReleasedSuffix(t, injector.snapshot(), CodeKeyE, CodeKeyDot, CodeBTNRight, CodeBTNLeft)

	service.handleEvent("device", press(CodeBTNSide))
	if service.Status().Running {
		t.Fatalf("old trigger must not start the sequence")
	}
	service.handleEvent("device", press(CodeBTNMiddle))
	if !service.Status().Running {
		t.Fatalf("new trigger should start the sequence")
	}
	service.handleEvent("device", release(CodeBTNMiddle))
	waitFor(t, "worker exit", service.workerIdle)
}

func TestRepressWhileStoppingReusesWorker(t *testing.T) {
	service, injector := newTestService(t, true, newSwitchFocus(true))
	defer service.Stop()

	service.handleEvent("device", press(CodeBTNSide))
	service.handleEvent("device", release(CodeBTNSide))
	service.handleEvent("device", press(CodeBTNSide))
	if !service.Status().Running {
		t.Fatalf("expected re-press to re-arm the sequence")
	}

	waitFor(t, "second pass", func() bool {
		return countEvents(injector.snapshot(), press(CodeKeyE)) >= 2
	})
	service.handleEvent("device", release(CodeBTNSide))
	waitFor(t, "worker exit", service.workerIdle)
}

func TestRapidClickFiresConfiguredCount(t *testing.T) {
	service, injector := newTestService(t, true, newSwitchFocus(true))
	defer service.Stop()

	service.handleEvent("device", press(CodeKeyJ))
	waitFor(t, "rapid click finish", func() bool {
		return !service.Status().RapidClicking
	})

	events := injector.snapshot()
	if got := countEvents(events, press(CodeBTNLeft)); got != 3 {
		t.Fatalf("fire presses = %d, want 3", got)
	}
	assertReleasedSuffix(t, events, CodeBTNLeft)
}

func TestRapidClickStopsWhenDisabled(t *testing.T) {
	service, injector := newTestService(t, true, newSwitchFocus(true))
	defer service.Stop()

	timing := testTiming()
	timing.RapidClickCount = 50
	if err := service.Reconfigure(DefaultKeybinds(), timing); err != nil {
		t.Fatalf("Reconfigure() error = %v", err)
	}
	clk := service.clock.(*testClock)
	var sleeps atomic.Int32
	clk.onSleep = func(time.Duration) {
		if sleeps.Add(1) == 2 {
			service.SetEnabled(false)
		}
	}

	service.handleEvent("device", press(CodeKeyJ))
	waitFor(t, "rapid click finish", func() bool {
		return !service.Status().RapidClicking
	})

	if got := countEvents(injector.snapshot(), press(CodeBTNLeft)); got != 1 {
		t.Fatalf("fire presses = %d, want 1", got)
	}
}

func TestRapidClickIgnoredWhenDisabledOrUnfocused(t *testing.T) {
	service, injector := newTestService(t, false, newSwitchFocus(true))
	defer service.Stop()

	service.handleEvent("device", press(CodeKeyJ))
	if service.Status().RapidClicking || len(injector.snapshot()) != 0 {
		t.Fatalf("rapid click must not fire while disabled")
	}

	other, otherInjector := newTestService(t, true, newSwitchFocus(false))
	defer other.Stop()
	other.handleEvent("device", press(CodeKeyJ))
	if other.Status().RapidClicking || len(otherInjector.snapshot()) != 0 {
		t.Fatalf("rapid click must not fire without focus")
	}
}

func TestSourcesFilterIgnoresUnknownDevices(t *testing.T) {
	injector := &recordingInjector{}
	service, err := NewService(Config{
		Keybinds:     DefaultKeybinds(),
		Timing:       testTiming(),
		Sources:      map[string]struct{}{"mouse": {}},
		StartEnabled: true,
	}, injector, newSwitchFocus(true), noopLogger{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	defer service.Stop()

	service.handleEvent("keyboard", press(CodeKeyF11))
	if !service.IsEnabled() {
		t.Fatalf("events from unknown sources must be ignored")
	}
	service.handleEvent("mouse", press(CodeKeyF11))
	if service.IsEnabled() {
		t.Fatalf("events from configured sources must be handled")
	}
}

func TestSequenceStopsOnInjectorError(t *testing.T) {
	service, injector := newTestService(t, true, newSwitchFocus(true))
	defer service.Stop()

	injector.err = errors.New("device gone")
	service.handleEvent("device", press(CodeBTNSide))
	waitFor(t, "worker exit", service.workerIdle)
	if service.Status().Running {
		t.Fatalf("expected injector failure to stop the sequence")
	}
}

func TestStopReleasesPressedInputsBeforeClosingInjector(t *testing.T) {
	service, injector := newTestService(t, true, newSwitchFocus(true))

	if err := service.writeEvents(keyEvents(CodeBTNRight, 1)...); err != nil {
		t.Fatalf("writeEvents() error = %v", err)
	}

	service.Stop()

	if !injector.isClosed() {
		t.Fatalf("expected injector to be closed")
	}
	events := injector.snapshot()
	if len(events) < 2 {
		t.Fatalf("expected release events, got %d", len(events))
	}
	if events[len(events)-2] != release(CodeBTNRight) {
		t.Fatalf("unexpected release event: %#v", events[len(events)-2])
	}
	if service.SubmitEvent("device", press(CodeBTNSide)) {
		t.Fatalf("SubmitEvent() after Stop should return false")
	}
}

func TestStartStopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	service, injector := newTestService(t, true, newSwitchFocus(true))
	service.Start()

	if !service.SubmitEvent("device", press(CodeBTNSide)) {
		t.Fatalf("SubmitEvent() = false, want true")
	}
	waitFor(t, "sequence output", func() bool {
		return len(injector.snapshot()) > 0
	})
	service.SubmitEvent("device", press(CodeKeyJ))

	service.Stop()
	if service.Status().Running {
		t.Fatalf("expected running cleared after Stop")
	}
}

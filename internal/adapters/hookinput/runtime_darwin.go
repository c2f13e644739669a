//go:build darwin

package hookinput

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"contagion/internal/adapters/wininput"
	"contagion/internal/core/macro"

	"github.com/go-vgo/robotgo"
	hook "github.com/robotn/gohook"
)

// gohook keeps a single process-wide event tap.
var hookActive atomic.Bool

type robotgoInjector struct{}

func (robotgoInjector) WriteEvents(events ...macro.Event) error {
	for _, event := range events {
		if event.Type != macro.EventTypeKey {
			continue
		}
		direction := "down"
		if event.Value == 0 {
			direction = "up"
		}
		if button, ok := robotgoButton(event.Code); ok {
			if err := robotgo.Toggle(button, direction); err != nil {
				return fmt.Errorf("toggle %s %s: %w", button, direction, err)
			}
			continue
		}
		key, ok := robotgoKey(event.Code)
		if !ok {
			return fmt.Errorf("%s cannot be injected on macOS", wininput.FormatCodeName(event.Code))
		}
		if err := robotgo.KeyToggle(key, direction); err != nil {
			return fmt.Errorf("toggle %s %s: %w", key, direction, err)
		}
	}
	return nil
}

func (robotgoInjector) Close() error {
	return nil
}

// Runtime listens through the gohook event tap and injects with robotgo.
// The process needs the Accessibility and Input Monitoring permissions.
type Runtime struct {
	service *macro.Service
	logger  macro.Logger

	stopOnce sync.Once
	loopDone chan struct{}
	started  bool
}

func NewRuntime(cfg RuntimeConfig, logger macro.Logger) (*Runtime, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	if err := checkInjectable(cfg.Macro.Keybinds); err != nil {
		return nil, err
	}

	macroCfg := cfg.Macro
	macroCfg.Sources = map[string]struct{}{sourceName: {}}
	service, err := macro.NewService(macroCfg, robotgoInjector{}, cfg.Focus, logger)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		service:  service,
		logger:   logger,
		loopDone: make(chan struct{}),
	}, nil
}

func (r *Runtime) Start() error {
	if !hookActive.CompareAndSwap(false, true) {
		return fmt.Errorf("macOS event tap is already active")
	}
	r.started = true
	r.service.Start()

	events := hook.Start()
	go r.eventLoop(events)
	r.logger.Info("Listening for global input via event tap")
	return nil
}

func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		if r.started {
			hook.End()
			<-r.loopDone
			hookActive.Store(false)
		}
		r.service.Stop()
	})
}

func (r *Runtime) SetEnabled(enabled bool) {
	r.service.SetEnabled(enabled)
}

func (r *Runtime) Status() macro.Status {
	return r.service.Status()
}

func (r *Runtime) Reconfigure(keybinds macro.Keybinds, timing macro.Timing) error {
	if err := checkInjectable(keybinds); err != nil {
		return err
	}
	return r.service.Reconfigure(keybinds, timing)
}

func (r *Runtime) eventLoop(events chan hook.Event) {
	defer close(r.loopDone)

	down := make(map[uint16]bool)
	for ev := range events {
		code, value, ok := translate(ev, down)
		if !ok {
			continue
		}
		_ = r.service.SubmitEvent(sourceName, macro.Event{
			Type:  macro.EventTypeKey,
			Code:  code,
			Value: value,
		})
	}
}

// translate maps a gohook event to an evdev code and key value. The tap
// repeats key presses while a key is held; those become value 2.
func translate(ev hook.Event, down map[uint16]bool) (uint16, int32, bool) {
	var (
		code    uint16
		ok      bool
		pressed bool
	)
	switch ev.Kind {
	case hook.KeyHold:
		code, ok = keyCodeFromHook(ev.Keycode)
		pressed = true
	case hook.KeyUp:
		code, ok = keyCodeFromHook(ev.Keycode)
	case hook.MouseHold:
		code, ok = buttonCodeFromHook(ev.Button)
		pressed = true
	case hook.MouseDown:
		code, ok = buttonCodeFromHook(ev.Button)
	}
	if !ok {
		return 0, 0, false
	}
	return code, keyValue(down, code, pressed), true
}

func checkInjectable(keybinds macro.Keybinds) error {
	for _, code := range keybinds.Injected() {
		if _, ok := robotgoButton(code); ok {
			continue
		}
		if _, ok := robotgoKey(code); !ok {
			return fmt.Errorf("%s cannot be injected on macOS", wininput.FormatCodeName(code))
		}
	}
	return nil
}

func ListInputDevices() ([]DeviceInfo, error) {
	return []DeviceInfo{
		{
			Path:      sourceName,
			Name:      "macOS Event Tap",
			IsPointer: true,
		},
	}, nil
}

// CaptureNextKeyCode starts a temporary event tap and returns the next key
// or button pressed.
func CaptureNextKeyCode(ctx context.Context) (uint16, error) {
	if !hookActive.CompareAndSwap(false, true) {
		return 0, fmt.Errorf("macOS event tap is already active")
	}
	defer hookActive.Store(false)

	events := hook.Start()
	defer hook.End()

	down := make(map[uint16]bool)
	for {
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("no key/button pressed: %w", ctx.Err())
		case ev, ok := <-events:
			if !ok {
				return 0, fmt.Errorf("event tap closed")
			}
			code, value, ok := translate(ev, down)
			if ok && value == 1 {
				return code, nil
			}
		}
	}
}

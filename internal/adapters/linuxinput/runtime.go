//go:build linux

package linuxinput

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"syscall"

	"contagion/internal/core/macro"

	evdev "github.com/holoplot/go-evdev"
)

type RuntimeConfig struct {
	Macro macro.Config
	Focus macro.FocusChecker
}

// Runtime reads the selected evdev devices and injects the combo through a
// uinput device.
type Runtime struct {
	reader  *Reader
	service *macro.Service
	logger  macro.Logger

	stopOnce sync.Once
}

type evdevInjector struct {
	dev *evdev.InputDevice
}

func (e *evdevInjector) WriteEvents(events ...macro.Event) error {
	for _, event := range events {
		ev := evdev.InputEvent{
			Type:  evdev.EvType(event.Type),
			Code:  evdev.EvCode(event.Code),
			Value: event.Value,
		}
		if err := e.dev.WriteOne(&ev); err != nil {
			return err
		}
	}
	return nil
}

func (e *evdevInjector) Close() error {
	if e.dev == nil {
		return nil
	}
	return e.dev.Close()
}

func NewRuntime(selection *SourceSelection, cfg RuntimeConfig, logger macro.Logger) (*Runtime, error) {
	if selection == nil || len(selection.Devices) == 0 {
		return nil, fmt.Errorf("source selection has no devices")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	id := evdev.InputID{
		BusType: uint16(evdev.BUS_VIRTUAL),
		Vendor:  0x1,
		Product: 0x1,
		Version: 1,
	}
	injectorDev, err := evdev.CreateDevice(injectorName, id, injectorCapabilities(cfg.Macro.Keybinds))
	if err != nil {
		return nil, err
	}
	injector := &evdevInjector{dev: injectorDev}

	macroCfg := cfg.Macro
	macroCfg.Sources = selection.Paths
	service, err := macro.NewService(macroCfg, injector, cfg.Focus, logger)
	if err != nil {
		_ = injector.Close()
		return nil, err
	}

	r := &Runtime{
		service: service,
		logger:  logger,
	}
	reader, err := NewReader(selection, service.SubmitEvent, logger)
	if err != nil {
		_ = injector.Close()
		return nil, err
	}
	r.reader = reader
	return r, nil
}

func (r *Runtime) Start() error {
	r.service.Start()
	return r.reader.Start()
}

func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		r.reader.Stop()
		r.service.Stop()
	})
}

func (r *Runtime) SetEnabled(enabled bool) {
	r.service.SetEnabled(enabled)
}

func (r *Runtime) Status() macro.Status {
	return r.service.Status()
}

// Reconfigure applies new keybinds and timing. Watched codes that none of
// the opened devices expose are reported but not fatal.
func (r *Runtime) Reconfigure(keybinds macro.Keybinds, timing macro.Timing) error {
	for _, code := range keybinds.Watched() {
		if !r.reader.Supports(code) {
			r.logger.Warn("No opened device exposes keybind; restart to rescan devices", "code", FormatCodeName(code))
		}
	}
	return r.service.Reconfigure(keybinds, timing)
}

// injectorCapabilities declares the whole keyboard range plus mouse buttons
// and motion axes, so rebinding on reload never needs a new uinput device.
func injectorCapabilities(keybinds macro.Keybinds) map[evdev.EvType][]evdev.EvCode {
	keys := make(map[evdev.EvCode]struct{})
	for code := evdev.EvCode(evdev.KEY_ESC); code <= evdev.KEY_MICMUTE; code++ {
		keys[code] = struct{}{}
	}
	for code := evdev.EvCode(evdev.BTN_LEFT); code <= evdev.BTN_TASK; code++ {
		keys[code] = struct{}{}
	}
	for _, code := range keybinds.Injected() {
		keys[evdev.EvCode(code)] = struct{}{}
	}

	codes := make([]evdev.EvCode, 0, len(keys))
	for code := range keys {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		return codes[i] < codes[j]
	})

	return map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: codes,
		evdev.EV_REL: {evdev.REL_X, evdev.REL_Y, evdev.REL_WHEEL},
	}
}

func isDeviceClosedError(err error) bool {
	return errors.Is(err, syscall.EBADF) || errors.Is(err, syscall.ENODEV)
}

func isWouldBlockError(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

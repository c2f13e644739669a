//go:build windows

package wininput

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"contagion/internal/core/macro"

	"golang.org/x/sys/windows"
)

const mapvkVKToVSC = 0

type windowsInjector struct{}

func (i *windowsInjector) WriteEvents(events ...macro.Event) error {
	inputs, err := buildInputs(events, scanCodeForVK)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return nil
	}

	sent, _, callErr := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if sent != uintptr(len(inputs)) {
		if callErr != nil && callErr != windows.ERROR_SUCCESS {
			return callErr
		}
		return fmt.Errorf("SendInput sent %d of %d inputs", sent, len(inputs))
	}
	return nil
}

func (i *windowsInjector) Close() error {
	return nil
}

func scanCodeForVK(vk uint32) uint16 {
	scan, _, _ := procMapVirtualKeyW.Call(uintptr(vk), mapvkVKToVSC)
	return uint16(scan)
}

// Runtime listens through global low-level hooks and injects with
// SendInput. Only one runtime can hold the hooks at a time.
type Runtime struct {
	service *macro.Service
	logger  macro.Logger

	stopOnce sync.Once
	threadID atomic.Uint32
	loopDone chan struct{}
}

func NewRuntime(cfg RuntimeConfig, logger macro.Logger) (*Runtime, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	if err := procSendInput.Find(); err != nil {
		return nil, err
	}

	macroCfg := cfg.Macro
	macroCfg.Sources = map[string]struct{}{globalSourceIdentity: {}}
	service, err := macro.NewService(macroCfg, &windowsInjector{}, cfg.Focus, logger)
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
	if !activeRuntime.CompareAndSwap(nil, r) {
		return fmt.Errorf("windows runtime is already active")
	}

	r.service.Start()

	ready := make(chan error, 1)
	go r.hookLoop(ready)
	if err := <-ready; err != nil {
		r.Stop()
		return err
	}
	return nil
}

func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		r.quitHookLoop()
		select {
		case <-r.loopDone:
		default:
			if activeRuntime.Load() == r {
				<-r.loopDone
			}
		}
		r.service.Stop()
		activeRuntime.CompareAndSwap(r, nil)
	})
}

func (r *Runtime) SetEnabled(enabled bool) {
	r.service.SetEnabled(enabled)
}

func (r *Runtime) Status() macro.Status {
	return r.service.Status()
}

func (r *Runtime) Reconfigure(keybinds macro.Keybinds, timing macro.Timing) error {
	for _, code := range append(keybinds.Watched(), keybinds.Injected()...) {
		if _, ok := CodeToVK(code); !ok {
			return fmt.Errorf("%s has no Windows virtual-key mapping", FormatCodeName(code))
		}
	}
	return r.service.Reconfigure(keybinds, timing)
}

func (r *Runtime) submit(code uint16, value int32) {
	_ = r.service.SubmitEvent(globalSourceIdentity, macro.Event{
		Type:  macro.EventTypeKey,
		Code:  code,
		Value: value,
	})
}

func ListInputDevices() ([]DeviceInfo, error) {
	return []DeviceInfo{
		{
			Path:      globalSourceIdentity,
			Name:      "Windows Global Input",
			IsVirtual: false,
			IsPointer: true,
		},
	}, nil
}

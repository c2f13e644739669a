//go:build linux

package linuxinput

import (
	"fmt"
	"sync"
	"time"

	"contagion/internal/core/macro"

	evdev "github.com/holoplot/go-evdev"
)

// SubmitFunc receives key events read from source. Returning false stops
// the reader for that device.
type SubmitFunc func(source string, event macro.Event) bool

// Reader forwards EV_KEY events from a set of opened devices.
type Reader struct {
	devices []*evdev.InputDevice
	submit  SubmitFunc
	logger  macro.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewReader(selection *SourceSelection, submit SubmitFunc, logger macro.Logger) (*Reader, error) {
	if selection == nil || len(selection.Devices) == 0 {
		return nil, fmt.Errorf("source selection has no devices")
	}
	if submit == nil {
		return nil, fmt.Errorf("submit is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	return &Reader{
		devices: selection.Devices,
		submit:  submit,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

func (r *Reader) Start() error {
	for _, dev := range r.devices {
		if err := dev.NonBlock(); err != nil {
			return fmt.Errorf("failed to set nonblocking mode for %s: %w", dev.Path(), err)
		}
	}
	for _, dev := range r.devices {
		name, _ := dev.Name()
		r.logger.Info("Listening on source device", "path", dev.Path(), "name", name)
		r.wg.Add(1)
		go r.readLoop(dev)
	}
	return nil
}

// Stop closes the devices and waits for the read loops.
func (r *Reader) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		for _, dev := range r.devices {
			_ = dev.Close()
		}
		r.wg.Wait()
	})
}

// Supports reports whether any opened device can emit code.
func (r *Reader) Supports(code uint16) bool {
	for _, dev := range r.devices {
		if deviceSupportsCode(dev, code) {
			return true
		}
	}
	return false
}

func (r *Reader) readLoop(dev *evdev.InputDevice) {
	defer r.wg.Done()

	path := dev.Path()
	for {
		events, err := dev.ReadSlice(64)
		if err != nil {
			if r.stopped() || isDeviceClosedError(err) {
				return
			}
			if isWouldBlockError(err) {
				if !r.sleepWithStop(2 * time.Millisecond) {
					return
				}
				continue
			}
			r.logger.Warn("Read failed", "path", path, "err", err)
			if !r.sleepWithStop(100 * time.Millisecond) {
				return
			}
			continue
		}

		for _, event := range events {
			if event.Type != evdev.EV_KEY {
				continue
			}
			if !r.submit(path, macro.Event{
				Type:  uint16(event.Type),
				Code:  uint16(event.Code),
				Value: event.Value,
			}) {
				return
			}
		}
	}
}

func (r *Reader) stopped() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

func (r *Reader) sleepWithStop(duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-r.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

//go:build linux

package linuxinput

import (
	"context"
	"fmt"
	"sort"
	"time"

	evdev "github.com/holoplot/go-evdev"
)

// CaptureNextKeyCode waits for the next pressed key or button. Without a
// devicePath every physical device with key capabilities is read.
func CaptureNextKeyCode(ctx context.Context, devicePath string) (uint16, error) {
	devices, err := openCaptureDevices(devicePath)
	if err != nil {
		return 0, err
	}
	defer closeInputDevices(devices)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	codeCh := make(chan uint16, 1)
	for _, dev := range devices {
		go captureDeviceLoop(ctx, dev, codeCh)
	}

	select {
	case code := <-codeCh:
		return code, nil
	case <-ctx.Done():
		return 0, fmt.Errorf("no key/button pressed: %w", ctx.Err())
	}
}

func captureDeviceLoop(ctx context.Context, dev *evdev.InputDevice, codeCh chan<- uint16) {
	for {
		if ctx.Err() != nil {
			return
		}

		event, err := dev.ReadOne()
		if err != nil {
			if isDeviceClosedError(err) {
				return
			}
			pause := 25 * time.Millisecond
			if isWouldBlockError(err) {
				pause = 10 * time.Millisecond
			}
			if !sleepCapture(ctx, pause) {
				return
			}
			continue
		}
		if event != nil && event.Type == evdev.EV_KEY && event.Value == 1 {
			select {
			case codeCh <- uint16(event.Code):
			default:
			}
			return
		}
	}
}

func sleepCapture(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func openCaptureDevices(devicePath string) ([]*evdev.InputDevice, error) {
	if devicePath != "" {
		dev, err := openInputDevice(devicePath)
		if err != nil {
			return nil, err
		}
		if len(dev.CapableEvents(evdev.EV_KEY)) == 0 {
			_ = dev.Close()
			return nil, fmt.Errorf("%s does not expose key/button events", devicePath)
		}
		if err := dev.NonBlock(); err != nil {
			_ = dev.Close()
			return nil, fmt.Errorf("failed to set nonblocking mode for %s: %w", dev.Path(), err)
		}
		return []*evdev.InputDevice{dev}, nil
	}

	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Path < paths[j].Path
	})

	devices := make([]*evdev.InputDevice, 0, len(paths))
	for _, path := range paths {
		dev, err := openInputDevice(path.Path)
		if err != nil {
			continue
		}
		name := path.Name
		if actualName, nameErr := dev.Name(); nameErr == nil && actualName != "" {
			name = actualName
		}
		if deviceIsVirtual(dev, name) || len(dev.CapableEvents(evdev.EV_KEY)) == 0 || dev.NonBlock() != nil {
			_ = dev.Close()
			continue
		}
		devices = append(devices, dev)
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("no readable input devices with key/button events found")
	}
	return devices, nil
}

func closeInputDevices(devices []*evdev.InputDevice) {
	for _, dev := range devices {
		_ = dev.Close()
	}
}

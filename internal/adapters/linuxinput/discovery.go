//go:build linux

package linuxinput

import (
	"fmt"
	"os"
	"sort"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// injectorName is the uinput device created by the macro. Discovery skips
// it so the macro never listens to its own output.
const injectorName = "contagion-macro"

type DeviceInfo struct {
	Path      string
	Name      string
	IsVirtual bool
	IsPointer bool
}

// SourceSelection is the set of opened devices the runtime reads from.
// Paths is used as the service's source filter.
type SourceSelection struct {
	Devices []*evdev.InputDevice
	Paths   map[string]struct{}
}

func (s *SourceSelection) Close() {
	for _, dev := range s.Devices {
		_ = dev.Close()
	}
}

func ListInputDevices() ([]DeviceInfo, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}

	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Path < paths[j].Path
	})

	devices := make([]DeviceInfo, 0, len(paths))
	for _, path := range paths {
		info, err := describeDevice(path)
		if err != nil {
			continue
		}
		devices = append(devices, info)
	}
	return devices, nil
}

// OpenSources opens the devices that can deliver the watched codes. With
// devicePath set only that device is used and it must expose at least one
// watched code.
func OpenSources(devicePath string, watched []uint16) (*SourceSelection, error) {
	if devicePath != "" {
		dev, err := openInputDevice(devicePath)
		if err != nil {
			return nil, err
		}
		if len(supportedCodes(dev, watched)) == 0 {
			_ = dev.Close()
			return nil, fmt.Errorf("%s does not expose any of %s", devicePath, formatCodeList(watched))
		}
		return &SourceSelection{
			Devices: []*evdev.InputDevice{dev},
			Paths:   map[string]struct{}{dev.Path(): {}},
		}, nil
	}

	wanted := make(map[string]struct{})
	for _, code := range watched {
		matches, err := findDevicesByCode(code)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no input device exposes %s; use --list-devices and then pass --device", FormatCodeName(code))
		}
		for _, match := range matches {
			wanted[match.Path] = struct{}{}
		}
	}

	paths := make([]string, 0, len(wanted))
	for path := range wanted {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	selection := &SourceSelection{Paths: make(map[string]struct{}, len(paths))}
	for _, path := range paths {
		dev, err := openInputDevice(path)
		if err != nil {
			continue
		}
		selection.Devices = append(selection.Devices, dev)
		selection.Paths[dev.Path()] = struct{}{}
	}
	if len(selection.Devices) == 0 {
		return nil, fmt.Errorf("found matching input devices, but failed to open any of them")
	}

	for _, code := range watched {
		if !selectionSupports(selection, code) {
			selection.Close()
			return nil, fmt.Errorf("failed to open any input device exposing %s", FormatCodeName(code))
		}
	}
	return selection, nil
}

func selectionSupports(selection *SourceSelection, code uint16) bool {
	for _, dev := range selection.Devices {
		if deviceSupportsCode(dev, code) {
			return true
		}
	}
	return false
}

func describeDevice(path evdev.InputPath) (DeviceInfo, error) {
	dev, err := openInputDevice(path.Path)
	if err != nil {
		return DeviceInfo{}, err
	}
	defer dev.Close()

	name := path.Name
	if actualName, err := dev.Name(); err == nil && actualName != "" {
		name = actualName
	}
	return DeviceInfo{
		Path:      path.Path,
		Name:      name,
		IsVirtual: deviceIsVirtual(dev, name),
		IsPointer: deviceIsPointer(dev),
	}, nil
}

func openInputDevice(path string) (*evdev.InputDevice, error) {
	return evdev.OpenWithFlags(path, os.O_RDONLY)
}

func supportedCodes(device *evdev.InputDevice, codes []uint16) []uint16 {
	out := make([]uint16, 0, len(codes))
	for _, code := range codes {
		if deviceSupportsCode(device, code) {
			out = append(out, code)
		}
	}
	return out
}

func deviceSupportsCode(device *evdev.InputDevice, code uint16) bool {
	needle := evdev.EvCode(code)
	for _, c := range device.CapableEvents(evdev.EV_KEY) {
		if c == needle {
			return true
		}
	}
	return false
}

func deviceIsVirtual(device *evdev.InputDevice, name string) bool {
	if isVirtualName(name) {
		return true
	}
	id, err := device.InputID()
	return err == nil && id.BusType == uint16(evdev.BUS_VIRTUAL)
}

func isVirtualName(name string) bool {
	lower := strings.ToLower(name)
	for _, token := range []string{injectorName, "virtual", "uinput", "ydotool"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func deviceIsPointer(device *evdev.InputDevice) bool {
	var hasRelX, hasRelY bool
	for _, code := range device.CapableEvents(evdev.EV_REL) {
		if code == evdev.REL_X {
			hasRelX = true
		}
		if code == evdev.REL_Y {
			hasRelY = true
		}
	}
	if hasRelX && hasRelY {
		return true
	}
	return len(device.CapableEvents(evdev.EV_ABS)) > 0
}

func codeIsMouseButton(code uint16) bool {
	c := evdev.EvCode(code)
	return c >= evdev.BTN_MOUSE && c <= evdev.BTN_TASK
}

// findDevicesByCode prefers physical devices, and pointers for mouse
// buttons, falling back to whatever exposes the code.
func findDevicesByCode(code uint16) ([]DeviceInfo, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}

	matches := make([]DeviceInfo, 0)
	for _, path := range paths {
		dev, err := openInputDevice(path.Path)
		if err != nil {
			continue
		}
		name := path.Name
		if actualName, err := dev.Name(); err == nil && actualName != "" {
			name = actualName
		}
		if deviceSupportsCode(dev, code) && !strings.Contains(strings.ToLower(name), injectorName) {
			matches = append(matches, DeviceInfo{
				Path:      path.Path,
				Name:      name,
				IsVirtual: deviceIsVirtual(dev, name),
				IsPointer: deviceIsPointer(dev),
			})
		}
		_ = dev.Close()
	}

	return preferDevices(matches, codeIsMouseButton(code)), nil
}

func preferDevices(matches []DeviceInfo, mouseButton bool) []DeviceInfo {
	if len(matches) == 0 {
		return matches
	}

	pool := make([]DeviceInfo, 0, len(matches))
	for _, match := range matches {
		if !match.IsVirtual {
			pool = append(pool, match)
		}
	}
	if len(pool) == 0 {
		pool = matches
	}

	if mouseButton {
		pointerPool := make([]DeviceInfo, 0, len(pool))
		for _, match := range pool {
			if match.IsPointer {
				pointerPool = append(pointerPool, match)
			}
		}
		if len(pointerPool) > 0 {
			pool = pointerPool
		}
	}

	sort.Slice(pool, func(i, j int) bool {
		return pool[i].Path < pool[j].Path
	})
	return pool
}

func formatCodeList(codes []uint16) string {
	names := make([]string, 0, len(codes))
	for _, code := range codes {
		names = append(names, FormatCodeName(code))
	}
	return strings.Join(names, ", ")
}

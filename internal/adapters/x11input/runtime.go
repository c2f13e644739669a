//go:build linux

package x11input

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"contagion/internal/adapters/linuxinput"
	"contagion/internal/core/macro"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
)

const sourceName = "x11-global"

type RuntimeConfig struct {
	Macro macro.Config
	Focus macro.FocusChecker
	// ButtonSources supplies the evdev devices that report the watched
	// buttons core X11 cannot observe. See DeviceWatched.
	ButtonSources *linuxinput.SourceSelection
}

type DeviceInfo struct {
	Path      string
	Name      string
	IsVirtual bool
	IsPointer bool
}

// binding is the X11 form of one evdev code: either keycodes or a pointer
// button.
type binding struct {
	keycodes []xproto.Keycode
	button   xproto.Button
}

// Runtime polls the keyboard and pointer state for the watched hotkeys and
// injects the combo through XTEST. Nothing is grabbed, so the game still
// sees every hotkey and every injected input.
type Runtime struct {
	xu      *xgbutil.XUtil
	conn    *xgb.Conn
	rootWin xproto.Window

	service *macro.Service
	logger  macro.Logger

	mu             sync.RWMutex
	keyToCode      map[xproto.Keycode]uint16
	buttonToCode   map[xproto.Button]uint16
	injectBindings map[uint16]binding
	deviceCodes    map[uint16]bool

	reader *linuxinput.Reader

	injectMu sync.Mutex

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type x11Injector struct {
	r *Runtime
}

func (i *x11Injector) WriteEvents(events ...macro.Event) error {
	i.r.injectMu.Lock()
	defer i.r.injectMu.Unlock()

	dirty := false
	for _, event := range events {
		if event.Type != macro.EventTypeKey {
			continue
		}
		b, ok := i.r.injectBinding(event.Code)
		if !ok {
			return fmt.Errorf("no X11 binding for %s", linuxinput.FormatCodeName(event.Code))
		}

		var (
			eventType byte
			detail    byte
		)
		if len(b.keycodes) > 0 {
			detail = byte(b.keycodes[0])
			eventType = xproto.KeyPress
			if event.Value == 0 {
				eventType = xproto.KeyRelease
			}
		} else {
			detail = byte(b.button)
			eventType = xproto.ButtonPress
			if event.Value == 0 {
				eventType = xproto.ButtonRelease
			}
		}

		if err := xtest.FakeInputChecked(
			i.r.conn,
			eventType,
			detail,
			xproto.TimeCurrentTime,
			i.r.rootWin,
			0,
			0,
			0,
		).Check(); err != nil {
			return err
		}
		dirty = true
	}

	if dirty {
		i.r.conn.Sync()
	}
	return nil
}

func (i *x11Injector) Close() error {
	return nil
}

func NewRuntime(cfg RuntimeConfig, logger macro.Logger) (*Runtime, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}
	conn := xu.Conn()
	if conn == nil {
		return nil, fmt.Errorf("failed to open X11 connection")
	}

	if err := xtest.Init(conn); err != nil {
		conn.Close()
		return nil, err
	}
	keybind.Initialize(xu)

	r := &Runtime{
		xu:      xu,
		conn:    conn,
		rootWin: xu.RootWin(),
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	macroCfg := cfg.Macro
	macroCfg.Sources = map[string]struct{}{sourceName: {}}
	if cfg.ButtonSources != nil {
		for path := range cfg.ButtonSources.Paths {
			macroCfg.Sources[path] = struct{}{}
		}
	}
	service, err := macro.NewService(macroCfg, &x11Injector{r: r}, cfg.Focus, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	r.service = service

	if cfg.ButtonSources != nil && len(cfg.ButtonSources.Devices) > 0 {
		reader, err := linuxinput.NewReader(cfg.ButtonSources, r.submitDeviceEvent, logger)
		if err != nil {
			conn.Close()
			return nil, err
		}
		r.reader = reader
	}

	if err := r.applyBindings(cfg.Macro.Keybinds); err != nil {
		conn.Close()
		return nil, err
	}
	return r, nil
}

func (r *Runtime) Start() error {
	state, err := queryState(r.conn, r.rootWin)
	if err != nil {
		return fmt.Errorf("failed to query X11 input state: %w", err)
	}
	r.service.Start()
	r.started.Store(true)
	go r.pollLoop(state)
	if r.reader != nil {
		return r.reader.Start()
	}
	return nil
}

func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		if r.started.Load() {
			<-r.doneCh
		}
		if r.reader != nil {
			r.reader.Stop()
		}
		// The service releases held inputs through XTEST, so it stops
		// before the connection goes away.
		r.service.Stop()
		r.conn.Close()
	})
}

func (r *Runtime) SetEnabled(enabled bool) {
	r.service.SetEnabled(enabled)
}

func (r *Runtime) Status() macro.Status {
	return r.service.Status()
}

func (r *Runtime) Reconfigure(keybinds macro.Keybinds, timing macro.Timing) error {
	if err := keybinds.Validate(); err != nil {
		return err
	}
	if err := r.applyBindings(keybinds); err != nil {
		return err
	}
	return r.service.Reconfigure(keybinds, timing)
}

func (r *Runtime) pollLoop(prev inputState) {
	defer close(r.doneCh)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
		}

		cur, err := queryState(r.conn, r.rootWin)
		if err != nil {
			select {
			case <-r.stopCh:
				return
			default:
			}
			r.logger.Warn("X11 state query failed", "err", err)
			continue
		}

		r.mu.RLock()
		events := diffStates(prev, cur, r.keyToCode, r.buttonToCode)
		r.mu.RUnlock()
		prev = cur

		for _, event := range events {
			r.service.SubmitEvent(sourceName, event)
		}
	}
}

// submitDeviceEvent forwards evdev events for the codes core X11 cannot
// report. Everything else on those devices is already seen by polling.
func (r *Runtime) submitDeviceEvent(source string, event macro.Event) bool {
	r.mu.RLock()
	ok := r.deviceCodes[event.Code]
	r.mu.RUnlock()
	if !ok {
		return true
	}
	return r.service.SubmitEvent(source, event)
}

func (r *Runtime) injectBinding(code uint16) (binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.injectBindings[code]
	return b, ok
}

// applyBindings resolves every keybind against the current keyboard map.
// Watched buttons without a core pointer mask must come from the evdev
// reader.
func (r *Runtime) applyBindings(keybinds macro.Keybinds) error {
	injectBindings := make(map[uint16]binding)
	for _, code := range keybinds.Injected() {
		b, err := r.resolveBinding(code)
		if err != nil {
			return fmt.Errorf("%s: %w", linuxinput.FormatCodeName(code), err)
		}
		injectBindings[code] = b
	}

	keyToCode := make(map[xproto.Keycode]uint16)
	buttonToCode := make(map[xproto.Button]uint16)
	deviceCodes := make(map[uint16]bool)
	for _, code := range keybinds.Watched() {
		b, err := r.resolveBinding(code)
		if err != nil {
			return fmt.Errorf("%s: %w", linuxinput.FormatCodeName(code), err)
		}
		if len(b.keycodes) == 0 {
			if pollable(b.button) {
				buttonToCode[b.button] = code
				continue
			}
			if r.reader == nil || !r.reader.Supports(code) {
				return fmt.Errorf("%s is not reported by core X11 and no readable input device exposes it", linuxinput.FormatCodeName(code))
			}
			deviceCodes[code] = true
			continue
		}
		for _, key := range b.keycodes {
			if existing, ok := keyToCode[key]; ok && existing != code {
				return fmt.Errorf("%s and %s resolve to the same X11 keycode",
					linuxinput.FormatCodeName(existing), linuxinput.FormatCodeName(code))
			}
			keyToCode[key] = code
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.keyToCode = keyToCode
	r.buttonToCode = buttonToCode
	r.deviceCodes = deviceCodes
	r.injectBindings = injectBindings
	return nil
}

func (r *Runtime) resolveBinding(code uint16) (binding, error) {
	if button, ok := codeToXButton(code); ok {
		return binding{button: button}, nil
	}

	keysym, ok := codeToKeysym(code)
	if !ok {
		return binding{}, fmt.Errorf("no X11 keysym for this key")
	}
	keycodes := keybind.StrToKeycodes(r.xu, keysym)
	if len(keycodes) == 0 {
		return binding{}, fmt.Errorf("failed to resolve X11 key %q", keysym)
	}

	uniq := make(map[xproto.Keycode]struct{}, len(keycodes))
	result := make([]xproto.Keycode, 0, len(keycodes))
	for _, keycode := range keycodes {
		if _, seen := uniq[keycode]; seen {
			continue
		}
		uniq[keycode] = struct{}{}
		result = append(result, keycode)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return binding{keycodes: result}, nil
}

func ListInputDevices() ([]DeviceInfo, error) {
	return []DeviceInfo{
		{
			Path:      sourceName,
			Name:      "X11 Global Input",
			IsVirtual: false,
			IsPointer: true,
		},
	}, nil
}

// DeviceWatched returns the watched codes core X11 cannot observe. They are
// read from evdev devices instead.
func DeviceWatched(keybinds macro.Keybinds) []uint16 {
	var codes []uint16
	for _, code := range keybinds.Watched() {
		if button, ok := codeToXButton(code); ok && !pollable(button) {
			codes = append(codes, code)
		}
	}
	return codes
}

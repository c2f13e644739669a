//go:build windows

package wininput

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"contagion/internal/core/macro"

	"golang.org/x/sys/windows"
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmQuit        = 0x0012
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmXButtonDown = 0x020B
	wmXButtonUp   = 0x020C

	llmhfInjected        = 0x00000001
	llkhfInjected        = 0x00000010
	llkhfLowerILInjected = 0x00000002
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procSendInput           = user32.NewProc("SendInput")
	procMapVirtualKeyW      = user32.NewProc("MapVirtualKeyW")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")

	mouseHookCallback    = windows.NewCallback(mouseLLCallback)
	keyboardHookCallback = windows.NewCallback(keyboardLLCallback)

	// Low-level hook callbacks carry no user data, so the installed runtime
	// is published here.
	activeRuntime atomic.Pointer[Runtime]
)

type point struct {
	X int32
	Y int32
}

type mouseLLHookStruct struct {
	Pt          point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type keyboardLLHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type message struct {
	Hwnd     uintptr
	Message  uint32
	WParam   uintptr
	LParam   uintptr
	Time     uint32
	Pt       point
	LPrivate uint32
}

// hookLoop installs both low-level hooks on a locked OS thread and pumps
// its message queue until WM_QUIT.
func (r *Runtime) hookLoop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.loopDone)
	defer activeRuntime.CompareAndSwap(r, nil)

	r.threadID.Store(windows.GetCurrentThreadId())

	mouseHook, _, mouseErr := procSetWindowsHookExW.Call(uintptr(whMouseLL), mouseHookCallback, 0, 0)
	if mouseHook == 0 {
		ready <- fmt.Errorf("failed to install mouse hook: %w", mouseErr)
		return
	}
	defer procUnhookWindowsHookEx.Call(mouseHook)

	keyboardHook, _, keyboardErr := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), keyboardHookCallback, 0, 0)
	if keyboardHook == 0 {
		ready <- fmt.Errorf("failed to install keyboard hook: %w", keyboardErr)
		return
	}
	defer procUnhookWindowsHookEx.Call(keyboardHook)

	ready <- nil

	var msg message
	for {
		ret, _, callErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			r.logger.Warn("Windows message loop failed", "err", callErr)
			return
		case 0:
			return
		default:
			_, _, _ = procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			_, _, _ = procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
		}
	}
}

func (r *Runtime) quitHookLoop() {
	if threadID := r.threadID.Load(); threadID != 0 {
		_, _, _ = procPostThreadMessageW.Call(uintptr(threadID), uintptr(wmQuit), 0, 0)
	}
}

func mouseLLCallback(code int, wParam uintptr, lParam uintptr) uintptr {
	if code >= 0 && lParam != 0 {
		if r := activeRuntime.Load(); r != nil {
			event := (*mouseLLHookStruct)(unsafe.Pointer(lParam))
			if event.Flags&llmhfInjected == 0 {
				if keyCode, value, ok := mouseHookEvent(uint32(wParam), event.MouseData); ok {
					r.submit(keyCode, value)
				}
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(code), wParam, lParam)
	return ret
}

func keyboardLLCallback(code int, wParam uintptr, lParam uintptr) uintptr {
	if code >= 0 && lParam != 0 {
		if r := activeRuntime.Load(); r != nil {
			event := (*keyboardLLHookStruct)(unsafe.Pointer(lParam))
			if event.Flags&(llkhfInjected|llkhfLowerILInjected) == 0 {
				if keyCode, value, ok := keyboardHookEvent(uint32(wParam), event.VkCode, event.Flags); ok {
					r.submit(keyCode, value)
				}
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(code), wParam, lParam)
	return ret
}

func mouseHookEvent(msg, mouseData uint32) (uint16, int32, bool) {
	switch msg {
	case wmLButtonDown:
		return macro.CodeBTNLeft, 1, true
	case wmLButtonUp:
		return macro.CodeBTNLeft, 0, true
	case wmRButtonDown:
		return macro.CodeBTNRight, 1, true
	case wmRButtonUp:
		return macro.CodeBTNRight, 0, true
	case wmMButtonDown:
		return macro.CodeBTNMiddle, 1, true
	case wmMButtonUp:
		return macro.CodeBTNMiddle, 0, true
	case wmXButtonDown, wmXButtonUp:
		var code uint16
		switch uint16(mouseData >> 16) {
		case xButton1:
			code = macro.CodeBTNSide
		case xButton2:
			code = macro.CodeBTNExtra
		default:
			return 0, 0, false
		}
		if msg == wmXButtonDown {
			return code, 1, true
		}
		return code, 0, true
	}
	return 0, 0, false
}

func keyboardHookEvent(msg, vk, flags uint32) (uint16, int32, bool) {
	code, ok := CodeFromVK(vk, flags)
	if !ok {
		return 0, 0, false
	}
	switch msg {
	case wmKeyDown, wmSysKeyDown:
		return code, 1, true
	case wmKeyUp, wmSysKeyUp:
		return code, 0, true
	}
	return 0, 0, false
}

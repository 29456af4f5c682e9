//go:build windows

package main

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procFindWindowW      = user32.NewProc("FindWindowW")
	procSetForegroundWin = user32.NewProc("SetForegroundWindow")
	procShowWindow       = user32.NewProc("ShowWindow")
	procSendInput        = user32.NewProc("SendInput")
)

const (
	swRestore = 9

	inputKeyboard      = 1
	keyEventFExtended  = 0x0001
	keyEventFKeyUp     = 0x0002
	keyEventFScancode  = 0x0008
	sizeOfKeyboardSend = 40 // sizeof(INPUT) on amd64, keyboard union member
)

// keyboardInput mirrors the Win32 INPUT struct for type INPUT_KEYBOARD.
type keyboardInput struct {
	Type uint32
	_    uint32 // padding to align the union on amd64
	Ki   struct {
		VK          uint16
		Scan        uint16
		Flags       uint32
		Time        uint32
		ExtraInfo   uintptr
	}
	_ [8]byte // pad union to INPUT's full size
}

// WindowsKeystrokeSink emits hardware scancodes into the foreground
// Falcon BMS window via the Win32 SendInput API, reached through
// golang.org/x/sys/windows's lazy-DLL binding rather than cgo.
type WindowsKeystrokeSink struct {
	windowTitle string
}

func NewKeystrokeSink() KeystrokeSink {
	return &WindowsKeystrokeSink{windowTitle: targetWindowTitle}
}

func (s *WindowsKeystrokeSink) Focus() error {
	titlePtr, err := windows.UTF16PtrFromString(s.windowTitle)
	if err != nil {
		return err
	}
	hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(titlePtr)))
	if hwnd == 0 {
		return fmt.Errorf("keystroke: window %q not found", s.windowTitle)
	}
	procSetForegroundWin.Call(hwnd)
	procShowWindow.Call(hwnd, swRestore)
	return nil
}

func (s *WindowsKeystrokeSink) Press(scancode uint16, extended bool) error {
	return sendKeyEvent(scancode, extended, false)
}

func (s *WindowsKeystrokeSink) Release(scancode uint16, extended bool) error {
	return sendKeyEvent(scancode, extended, true)
}

func (s *WindowsKeystrokeSink) Click(scancode uint16, extended bool) error {
	if err := sendKeyEvent(scancode, extended, false); err != nil {
		return err
	}
	return sendKeyEvent(scancode, extended, true)
}

func sendKeyEvent(scancode uint16, extended, up bool) error {
	var flags uint32 = keyEventFScancode
	if extended {
		flags |= keyEventFExtended
	}
	if up {
		flags |= keyEventFKeyUp
	}

	var in keyboardInput
	in.Type = inputKeyboard
	in.Ki.Scan = scancode
	in.Ki.Flags = flags

	ret, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if ret == 0 {
		return fmt.Errorf("keystroke: SendInput: %v", err)
	}
	return nil
}

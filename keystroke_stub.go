//go:build !windows

package main

import "log"

// NullKeystrokeSink logs what it would have done instead of touching real
// OS input. Used on non-Windows builds and in tests, where the real Win32
// collaborator described in keystroke_windows.go isn't available.
type NullKeystrokeSink struct{}

func NewKeystrokeSink() KeystrokeSink {
	return &NullKeystrokeSink{}
}

func (NullKeystrokeSink) Focus() error {
	log.Printf("[keystroke] (stub) focus %q", targetWindowTitle)
	return nil
}

func (NullKeystrokeSink) Press(scancode uint16, extended bool) error {
	log.Printf("[keystroke] (stub) press %#x extended=%v", scancode, extended)
	return nil
}

func (NullKeystrokeSink) Release(scancode uint16, extended bool) error {
	log.Printf("[keystroke] (stub) release %#x extended=%v", scancode, extended)
	return nil
}

func (NullKeystrokeSink) Click(scancode uint16, extended bool) error {
	log.Printf("[keystroke] (stub) click %#x extended=%v", scancode, extended)
	return nil
}

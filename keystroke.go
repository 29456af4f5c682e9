package main

// scancodeNumpadEnter is the one scancode that requires the extended-key
// flag, per the wire spec's scancode conventions.
const scancodeNumpadEnter uint16 = 0x1C

// targetWindowTitle is the literal window title the Keystroke Sink
// searches for before emitting any scancode.
const targetWindowTitle = "Falcon BMS"

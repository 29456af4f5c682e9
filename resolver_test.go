package main

import (
	"reflect"
	"testing"
	"time"
)

type recordedCall struct {
	action   string // "focus", "press", "release", "click"
	scancode uint16
	extended bool
}

type fakeSink struct {
	calls     []recordedCall
	focusErr  error
}

func (f *fakeSink) Focus() error {
	f.calls = append(f.calls, recordedCall{action: "focus"})
	return f.focusErr
}
func (f *fakeSink) Press(scancode uint16, extended bool) error {
	f.calls = append(f.calls, recordedCall{action: "press", scancode: scancode, extended: extended})
	return nil
}
func (f *fakeSink) Release(scancode uint16, extended bool) error {
	f.calls = append(f.calls, recordedCall{action: "release", scancode: scancode, extended: extended})
	return nil
}
func (f *fakeSink) Click(scancode uint16, extended bool) error {
	f.calls = append(f.calls, recordedCall{action: "click", scancode: scancode, extended: extended})
	return nil
}

// Scenario D: ICP button scancode sequence exactness.
func TestResolverEmitsExactSequenceForSimpleCallback(t *testing.T) {
	sink := &fakeSink{}
	r := NewKeybindingResolver(sink)
	r.sleep = func(time.Duration) {} // don't actually wait in tests

	r.Publish(NewKeybindingTable("test", 1, map[string]Callback{
		"SimICPEnter": {
			Name:      "SimICPEnter",
			Modifiers: []uint16{scancodeLeftShift},
			Primary:   0x1C,
		},
	}))

	if !r.Resolve("SimICPEnter") {
		t.Fatal("expected Resolve to report true for a known callback")
	}

	want := []recordedCall{
		{action: "focus"},
		{action: "press", scancode: scancodeLeftShift},
		{action: "click", scancode: 0x1C},
		{action: "release", scancode: scancodeLeftShift},
	}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Fatalf("got %+v, want %+v", sink.calls, want)
	}
}

func TestResolverEmitsComboBeforePrimary(t *testing.T) {
	sink := &fakeSink{}
	r := NewKeybindingResolver(sink)
	r.sleep = func(time.Duration) {}

	r.Publish(NewKeybindingTable("test", 1, map[string]Callback{
		"SimCBE05R": {
			Name:           "SimCBE05R",
			HasCombo:       true,
			ComboModifiers: []uint16{scancodeLeftControl},
			ComboPrimary:   0x10,
			Modifiers:      []uint16{scancodeLeftAlt},
			Primary:        0x20,
		},
	}))

	r.Resolve("SimCBE05R")

	want := []recordedCall{
		{action: "focus"},
		{action: "press", scancode: scancodeLeftControl},
		{action: "click", scancode: 0x10},
		{action: "release", scancode: scancodeLeftControl},
		{action: "press", scancode: scancodeLeftAlt},
		{action: "click", scancode: 0x20},
		{action: "release", scancode: scancodeLeftAlt},
	}
	if !reflect.DeepEqual(sink.calls, want) {
		t.Fatalf("got %+v, want %+v", sink.calls, want)
	}
}

func TestResolverUnknownNameDoesNotTouchSink(t *testing.T) {
	sink := &fakeSink{}
	r := NewKeybindingResolver(sink)
	r.sleep = func(time.Duration) {}
	r.Publish(NewKeybindingTable("test", 1, map[string]Callback{
		"SimICPEnter": {Name: "SimICPEnter", Primary: 0x1C},
	}))

	if r.Resolve("SimICPEntr") { // typo
		t.Fatal("expected Resolve to report false for an unknown name")
	}

	if len(sink.calls) != 0 {
		t.Fatalf("expected no sink calls for unknown name, got %+v", sink.calls)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"SimICPEnter", "SimICPEntr", 1},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestNearestNamesTopN(t *testing.T) {
	table := NewKeybindingTable("test", 1, map[string]Callback{
		"SimICPEnter": {}, "SimICPCLEAR": {}, "SimICPZERO": {}, "SimICPNINE": {},
	})
	got := nearestNames("SimICPEntr", table, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 suggestions, got %d: %v", len(got), got)
	}
	if got[0] != "SimICPEnter" {
		t.Fatalf("expected closest match first, got %v", got)
	}
}

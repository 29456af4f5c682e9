package main

import "testing"

func TestDefaultKeyfileParserSimpleCallback(t *testing.T) {
	data := []byte("# comment\nSimICPEnter\t\t1C\t0\n")
	entries, err := (DefaultKeyfileParser{}).Parse("test.keyfile", data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cb, ok := entries["SimICPEnter"]
	if !ok {
		t.Fatalf("expected SimICPEnter to be parsed")
	}
	if cb.Primary != 0x1C || cb.Extended || cb.HasCombo {
		t.Fatalf("unexpected callback: %+v", cb)
	}
}

func TestDefaultKeyfileParserCombo(t *testing.T) {
	data := []byte("SimCBE05R\t38\t20\t0\t1D\t10\t0\n")
	entries, err := (DefaultKeyfileParser{}).Parse("test.keyfile", data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cb := entries["SimCBE05R"]
	if !cb.HasCombo || cb.ComboPrimary != 0x10 || len(cb.ComboModifiers) != 1 || cb.ComboModifiers[0] != 0x1D {
		t.Fatalf("unexpected combo callback: %+v", cb)
	}
	if len(cb.Modifiers) != 1 || cb.Modifiers[0] != 0x38 {
		t.Fatalf("unexpected modifiers: %+v", cb.Modifiers)
	}
}

func TestDefaultKeyfileParserRejectsMalformedLine(t *testing.T) {
	data := []byte("BrokenLine\tonly\ttwo\n")
	if _, err := (DefaultKeyfileParser{}).Parse("test.keyfile", data); err == nil {
		t.Fatalf("expected an error for a malformed line")
	}
}

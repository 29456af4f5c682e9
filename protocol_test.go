package main

import "testing"

func TestMessageRoundTrip(t *testing.T) {
	cases := []Message{
		{Type: msgHello},
		{Type: msgAck},
		{Type: msgIcpPressed, Icp: "icp1", Button: "ENTER"},
		{Type: msgIcpReleased, Icp: "icp1", Button: "ENTER"},
		{Type: msgOsbPressed, Mfd: "f16/right-mfd", Osb: "05"},
		{Type: msgOsbReleased, Mfd: "f16/left-mfd", Osb: "12"},
		{Type: msgStreamedTexture, Identifier: "f16/ded", Command: cmdStart},
		{
			Type: msgStreamedTexture, Identifier: "f16/left-mfd", Command: cmdStart,
			RefreshRate: 60, HasRefreshRate: true, Quality: 80, HasQuality: true,
		},
	}

	for _, want := range cases {
		b, err := want.Marshal()
		if err != nil {
			t.Fatalf("Marshal(%+v): %v", want, err)
		}

		var got Message
		if err := got.Unmarshal(b); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if got != want {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestMessageUnmarshalUnknownType(t *testing.T) {
	var m Message
	_, err := (Message{Type: "bogus"}).Marshal()
	if err == nil {
		t.Fatal("expected error marshaling unknown type")
	}

	// A structurally valid but semantically unrecognized message still
	// decodes without error (the dispatcher is responsible for rejecting
	// it, not Unmarshal). Bytes are the MessagePack map {"type": "bogus"}.
	b := []byte{0x81, 0xa4, 't', 'y', 'p', 'e', 0xa5, 'b', 'o', 'g', 'u', 's'}
	if err := m.Unmarshal(b); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m.Type != "bogus" {
		t.Fatalf("got type %q", m.Type)
	}
}

func TestMessageUnmarshalMissingType(t *testing.T) {
	var m Message
	if err := m.Unmarshal([]byte{0x80}); err == nil { // empty map
		t.Fatal("expected error for message without a type field")
	}
}

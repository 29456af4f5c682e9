package main

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// Message is the wire envelope for every control message exchanged with a
// peer, and for the broadcast discovery pair. A single struct covers every
// variant (mirroring the union-as-one-struct shape of the historical
// ControlMsg type); Type selects which fields are meaningful. Optional
// integer fields carry a presence flag since MessagePack has no notion of
// "absent" distinct from "present and zero."
type Message struct {
	Type string

	Icp    string // icp-pressed / icp-released
	Button string // icp-pressed / icp-released

	Mfd string // osb-pressed / osb-released
	Osb string // osb-pressed / osb-released

	Identifier string // streamed-texture
	Command    string // streamed-texture: "start" | "stop"

	RefreshRate    uint16
	HasRefreshRate bool
	Quality        uint16
	HasQuality     bool
}

const (
	msgHello           = "hello"
	msgAck             = "ack"
	msgIcpPressed      = "icp-pressed"
	msgIcpReleased     = "icp-released"
	msgOsbPressed      = "osb-pressed"
	msgOsbReleased     = "osb-released"
	msgStreamedTexture = "streamed-texture"

	cmdStart = "start"
	cmdStop  = "stop"
)

// Marshal encodes the message as a MessagePack map, writing only the fields
// relevant to its Type. Built directly on msgp's byte-slice append helpers
// rather than generated code, since the message set is small and fixed.
func (m Message) Marshal() ([]byte, error) {
	var b []byte

	switch m.Type {
	case msgHello, msgAck:
		b = msgp.AppendMapHeader(b, 1)
		b = msgp.AppendString(b, "type")
		b = msgp.AppendString(b, m.Type)

	case msgIcpPressed, msgIcpReleased:
		b = msgp.AppendMapHeader(b, 3)
		b = msgp.AppendString(b, "type")
		b = msgp.AppendString(b, m.Type)
		b = msgp.AppendString(b, "icp")
		b = msgp.AppendString(b, m.Icp)
		b = msgp.AppendString(b, "button")
		b = msgp.AppendString(b, m.Button)

	case msgOsbPressed, msgOsbReleased:
		b = msgp.AppendMapHeader(b, 3)
		b = msgp.AppendString(b, "type")
		b = msgp.AppendString(b, m.Type)
		b = msgp.AppendString(b, "mfd")
		b = msgp.AppendString(b, m.Mfd)
		b = msgp.AppendString(b, "osb")
		b = msgp.AppendString(b, m.Osb)

	case msgStreamedTexture:
		n := uint32(3)
		if m.HasRefreshRate {
			n++
		}
		if m.HasQuality {
			n++
		}
		b = msgp.AppendMapHeader(b, n)
		b = msgp.AppendString(b, "type")
		b = msgp.AppendString(b, m.Type)
		b = msgp.AppendString(b, "identifier")
		b = msgp.AppendString(b, m.Identifier)
		b = msgp.AppendString(b, "command")
		b = msgp.AppendString(b, m.Command)
		if m.HasRefreshRate {
			b = msgp.AppendString(b, "refresh_rate")
			b = msgp.AppendUint16(b, m.RefreshRate)
		}
		if m.HasQuality {
			b = msgp.AppendString(b, "quality")
			b = msgp.AppendUint16(b, m.Quality)
		}

	default:
		return nil, fmt.Errorf("protocol: marshal unknown message type %q", m.Type)
	}

	return b, nil
}

// Unmarshal decodes a MessagePack map into m, replacing its contents.
func (m *Message) Unmarshal(b []byte) error {
	*m = Message{}

	sz, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return fmt.Errorf("protocol: read map header: %w", err)
	}

	for i := uint32(0); i < sz; i++ {
		var key string
		key, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return fmt.Errorf("protocol: read key: %w", err)
		}

		switch key {
		case "type":
			m.Type, b, err = msgp.ReadStringBytes(b)
		case "icp":
			m.Icp, b, err = msgp.ReadStringBytes(b)
		case "button":
			m.Button, b, err = msgp.ReadStringBytes(b)
		case "mfd":
			m.Mfd, b, err = msgp.ReadStringBytes(b)
		case "osb":
			m.Osb, b, err = msgp.ReadStringBytes(b)
		case "identifier":
			m.Identifier, b, err = msgp.ReadStringBytes(b)
		case "command":
			m.Command, b, err = msgp.ReadStringBytes(b)
		case "refresh_rate":
			m.RefreshRate, b, err = msgp.ReadUint16Bytes(b)
			m.HasRefreshRate = true
		case "quality":
			m.Quality, b, err = msgp.ReadUint16Bytes(b)
			m.HasQuality = true
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return fmt.Errorf("protocol: read field %q: %w", key, err)
		}
	}

	if m.Type == "" {
		return fmt.Errorf("protocol: message missing type field")
	}
	return nil
}

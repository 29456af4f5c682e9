package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"
)

// BroadcastListener answers discovery probes on a plain UDP socket,
// separate from the webtransport-based Transport Host: peers that don't
// yet know the bridge's address send "hello" here and get "ack" back.
type BroadcastListener struct {
	conn *net.UDPConn
}

func NewBroadcastListener(address string, port uint16) (*BroadcastListener, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", address, port))
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	log.Printf("[broadcast] listening on %s", conn.LocalAddr())
	return &BroadcastListener{conn: conn}, nil
}

// Run polls for discovery packets until ctx is canceled.
func (b *BroadcastListener) Run(ctx context.Context) {
	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = b.conn.SetReadDeadline(time.Now().Add(broadcastIdlePoll))
		n, addr, err := b.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.Printf("[broadcast] read: %v", err)
			continue
		}

		var msg Message
		if err := msg.Unmarshal(buf[:n]); err != nil {
			log.Printf("[broadcast] parse: %v", err)
			continue
		}
		if msg.Type != msgHello {
			log.Printf("[broadcast] unexpected message type %q from %s", msg.Type, addr)
			continue
		}

		ack, err := (Message{Type: msgAck}).Marshal()
		if err != nil {
			log.Printf("[broadcast] marshal ack: %v", err)
			continue
		}
		if _, err := b.conn.WriteToUDP(ack, addr); err != nil {
			log.Printf("[broadcast] write ack to %s: %v", addr, err)
		}
	}
}

// Close releases the discovery socket.
func (b *BroadcastListener) Close() error {
	return b.conn.Close()
}

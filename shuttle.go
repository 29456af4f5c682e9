package main

import (
	"errors"
	"log"
)

// Sentinel send-classification errors, mirroring the historical ENet
// binding's PeerSendError variants.
var (
	ErrNotConnected    = errors.New("transport: peer not connected")
	ErrInvalidChannel  = errors.New("transport: invalid channel")
	ErrPacketTooLarge  = errors.New("transport: packet too large")
	ErrFragmentsExceed = errors.New("transport: fragments exceeded")
	ErrFailedToQueue   = errors.New("transport: failed to queue packet")
)

type outboundPacket struct {
	peer    PeerID
	channel uint8
	payload []byte
}

// PacketShuttle is the single consumer of outbound traffic: every send to
// the Transport Host goes through here, so the host is never written to
// concurrently from more than one goroutine. Apparently the underlying
// ENet-style host does not like being bombarded by multiple concurrent
// senders — a single mpsc queue in front of it avoids that entirely.
type PacketShuttle struct {
	host  *TransportHost
	queue chan outboundPacket
	done  chan struct{}
}

func NewPacketShuttle(host *TransportHost, queueSize int) *PacketShuttle {
	return &PacketShuttle{
		host:  host,
		queue: make(chan outboundPacket, queueSize),
		done:  make(chan struct{}),
	}
}

// Enqueue offers a packet for sending. Returns false if the queue is full
// or the shuttle has been stopped; the caller should treat this the same
// as a transient send failure (no retry — the producer will try again on
// its own schedule).
func (s *PacketShuttle) Enqueue(peer PeerID, channel uint8, payload []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.queue <- outboundPacket{peer: peer, channel: channel, payload: payload}:
		return true
	default:
		return false
	}
}

// Run drains the queue until stopped, serializing every send through the
// Transport Host. Errors are classified and logged; none are retried.
func (s *PacketShuttle) Run() {
	for {
		select {
		case pkt, ok := <-s.queue:
			if !ok {
				return
			}
			if err := s.host.Send(pkt.peer, pkt.channel, pkt.payload); err != nil {
				logSendError(pkt.peer, err)
			}
		case <-s.done:
			return
		}
	}
}

// Stop halts the shuttle's Run loop.
func (s *PacketShuttle) Stop() {
	close(s.done)
}

func logSendError(peer PeerID, err error) {
	switch {
	case errors.Is(err, ErrNotConnected):
		log.Printf("[shuttle] peer %d: not connected", peer)
	case errors.Is(err, ErrInvalidChannel):
		log.Printf("[shuttle] peer %d: invalid channel", peer)
	case errors.Is(err, ErrPacketTooLarge):
		log.Printf("[shuttle] peer %d: packet too large", peer)
	case errors.Is(err, ErrFragmentsExceed):
		log.Printf("[shuttle] peer %d: fragments exceeded", peer)
	case errors.Is(err, ErrFailedToQueue):
		log.Printf("[shuttle] peer %d: failed to queue", peer)
	default:
		log.Printf("[shuttle] peer %d: send error: %v", peer, err)
	}
}

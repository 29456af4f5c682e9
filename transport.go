package main

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"
)

// controlChannel is the reserved channel number for the reliable
// bidirectional control stream every peer opens on connect.
const controlChannel uint8 = 0

// EventKind distinguishes the three ENet-style peer lifecycle events.
type EventKind int

const (
	EventConnect EventKind = iota
	EventDisconnect
	EventReceive
)

// Event is what TransportHost.Service yields — at most one per call.
type Event struct {
	Kind    EventKind
	Peer    PeerID
	Channel uint8
	Data    []byte
}

type peerConn struct {
	id      PeerID
	session *webtransport.Session
	ctrl    *webtransport.Stream
	ctrlMu  sync.Mutex
}

// TransportHost terminates the connection-oriented session protocol on top
// of quic-go/webtransport-go: each accepted session is a peer; its control
// stream carries reliable messages, and datagrams carry unreliable
// unsequenced frame payloads tagged with a one-byte channel number.
//
// The underlying accept/read loops are concurrent goroutines, but they
// only ever write to a single buffered event channel — Service is the sole
// consumer, preserving the single-owner, non-reentrant contract the spec
// requires of the host.
type TransportHost struct {
	wt     *webtransport.Server
	events chan Event
	nextID atomic.Uint64

	mu    sync.RWMutex
	peers map[PeerID]*peerConn
}

func NewTransportHost(addr string, tlsConfig *tls.Config) *TransportHost {
	h := &TransportHost{
		events: make(chan Event, 256),
		peers:  make(map[PeerID]*peerConn),
	}
	h.wt = &webtransport.Server{
		H3: http3.Server{
			Addr:      addr,
			TLSConfig: tlsConfig,
		},
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return h
}

// Run accepts sessions until ctx is canceled. Each session is handled in
// its own goroutine; only event delivery is serialized.
func (h *TransportHost) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.wt.Upgrade(w, r)
		if err != nil {
			log.Printf("[transport] upgrade: %v", err)
			return
		}
		go h.handleSession(ctx, sess)
	})
	h.wt.H3.Handler = mux

	go func() {
		<-ctx.Done()
		_ = h.wt.Close()
	}()

	err := h.wt.ListenAndServe()
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, quic.ErrServerClosed) {
		return nil
	}
	return err
}

func (h *TransportHost) handleSession(ctx context.Context, sess *webtransport.Session) {
	ctrl, err := sess.AcceptStream(ctx)
	if err != nil {
		log.Printf("[transport] accept control stream: %v", err)
		_ = sess.CloseWithError(0, "no control stream")
		return
	}

	id := PeerID(h.nextID.Add(1))
	pc := &peerConn{id: id, session: sess, ctrl: ctrl}

	h.mu.Lock()
	h.peers[id] = pc
	h.mu.Unlock()

	h.emit(Event{Kind: EventConnect, Peer: id})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.readControl(pc)
	}()
	go func() {
		defer wg.Done()
		h.readDatagrams(ctx, pc)
	}()
	wg.Wait()

	h.mu.Lock()
	delete(h.peers, id)
	h.mu.Unlock()
	h.emit(Event{Kind: EventDisconnect, Peer: id})
}

func (h *TransportHost) readControl(pc *peerConn) {
	for {
		var length uint32
		if err := binary.Read(pc.ctrl, binary.BigEndian, &length); err != nil {
			return
		}
		if length == 0 || length > maxDatagramSize {
			return
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(pc.ctrl, buf); err != nil {
			return
		}
		h.emit(Event{Kind: EventReceive, Peer: pc.id, Channel: controlChannel, Data: buf})
	}
}

func (h *TransportHost) readDatagrams(ctx context.Context, pc *peerConn) {
	for {
		data, err := pc.session.ReceiveDatagram(ctx)
		if err != nil {
			return
		}
		if len(data) < 1 {
			continue
		}
		h.emit(Event{Kind: EventReceive, Peer: pc.id, Channel: data[0], Data: data[1:]})
	}
}

func (h *TransportHost) emit(ev Event) {
	h.events <- ev
}

// Service returns the next event, waiting up to timeout. A zero Event with
// ok=false means no event arrived in time. Non-reentrant: callers must not
// invoke Service concurrently from more than one goroutine.
func (h *TransportHost) Service(timeout time.Duration) (Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev := <-h.events:
		return ev, true
	case <-timer.C:
		return Event{}, false
	}
}

// Send writes payload to peer on channel. channel == controlChannel uses
// the reliable length-prefixed control stream; any other channel uses an
// unreliable-unsequenced datagram tagged with the channel number.
func (h *TransportHost) Send(peer PeerID, channel uint8, payload []byte) error {
	h.mu.RLock()
	pc, ok := h.peers[peer]
	h.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}
	if len(payload) > maxDatagramSize {
		return ErrPacketTooLarge
	}

	if channel == controlChannel {
		return h.sendControl(pc, payload)
	}
	return h.sendDatagram(pc, channel, payload)
}

func (h *TransportHost) sendControl(pc *peerConn, payload []byte) error {
	pc.ctrlMu.Lock()
	defer pc.ctrlMu.Unlock()

	hdr := make([]byte, 4)
	binary.BigEndian.PutUint32(hdr, uint32(len(payload)))
	if _, err := pc.ctrl.Write(hdr); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToQueue, err)
	}
	if _, err := pc.ctrl.Write(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToQueue, err)
	}
	return nil
}

func (h *TransportHost) sendDatagram(pc *peerConn, channel uint8, payload []byte) error {
	dgram := make([]byte, 1+len(payload))
	dgram[0] = channel
	copy(dgram[1:], payload)

	if err := pc.session.SendDatagram(dgram); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToQueue, err)
	}
	return nil
}

// PeerCount returns the number of currently connected peers.
func (h *TransportHost) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Close shuts down the host and all sessions.
func (h *TransportHost) Close() error {
	return h.wt.Close()
}

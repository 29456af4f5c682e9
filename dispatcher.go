package main

import (
	"context"
	"log"
	"time"
)

// Dispatcher is the Protocol Dispatcher: it drives the Transport Host's
// single-consumer service loop, decodes inbound messages, and routes them
// to subscription management or the Keybinding Resolver.
type Dispatcher struct {
	host     *TransportHost
	engine   *StreamEngine
	resolver *KeybindingResolver

	// OnConnect/OnDisconnect, if set, record peer lifecycle events in the
	// audit ledger.
	OnConnect    func(peer PeerID)
	OnDisconnect func(peer PeerID)

	// OnResolve, if set, is called after every callback-name resolution
	// attempt, successful or not, to record it in the audit ledger.
	OnResolve func(peer PeerID, name string, resolved bool)
}

func NewDispatcher(host *TransportHost, engine *StreamEngine, resolver *KeybindingResolver) *Dispatcher {
	return &Dispatcher{host: host, engine: engine, resolver: resolver}
}

// Run owns the Transport Host's service loop for as long as ctx is alive.
// This is the host's single execution context — nothing else may call
// Service.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev, ok := d.host.Service(serviceTimeout)
		if !ok {
			time.Sleep(serviceSleep)
			continue
		}
		d.handle(ev)
	}
}

func (d *Dispatcher) handle(ev Event) {
	switch ev.Kind {
	case EventConnect:
		log.Printf("[dispatcher] peer %d connected", ev.Peer)
		if d.OnConnect != nil {
			d.OnConnect(ev.Peer)
		}

	case EventDisconnect:
		d.engine.CancelPeer(ev.Peer)
		log.Printf("[dispatcher] peer %d disconnected", ev.Peer)
		if d.OnDisconnect != nil {
			d.OnDisconnect(ev.Peer)
		}

	case EventReceive:
		if ev.Channel != controlChannel {
			return // frame channels carry no inbound messages
		}
		var msg Message
		if err := msg.Unmarshal(ev.Data); err != nil {
			log.Printf("[dispatcher] peer %d: malformed message: %v", ev.Peer, err)
			return
		}
		d.route(ev.Peer, msg)
	}
}

func (d *Dispatcher) route(peer PeerID, msg Message) {
	switch msg.Type {
	case msgIcpPressed:
		name, ok := icpCallbackName(msg.Button)
		if !ok {
			log.Printf("[dispatcher] peer %d: unknown icp button %q", peer, msg.Button)
			return
		}
		resolved := d.resolver.Resolve(name)
		if d.OnResolve != nil {
			d.OnResolve(peer, name, resolved)
		}

	case msgIcpReleased:
		// Intentional: simulator callbacks fire on press, not release.

	case msgOsbPressed:
		name, err := osbCallbackName(msg.Mfd, msg.Osb)
		if err != nil {
			log.Printf("[dispatcher] peer %d: %v", peer, err)
			return
		}
		resolved := d.resolver.Resolve(name)
		if d.OnResolve != nil {
			d.OnResolve(peer, name, resolved)
		}

	case msgOsbReleased:
		// Intentional: simulator callbacks fire on press, not release.

	case msgStreamedTexture:
		d.handleStreamedTexture(peer, msg)

	default:
		log.Printf("[dispatcher] peer %d: unhandled message type %q", peer, msg.Type)
	}
}

func (d *Dispatcher) handleStreamedTexture(peer PeerID, msg Message) {
	id, ok := ParseTextureIdentifier(msg.Identifier)
	if !ok {
		log.Printf("[dispatcher] peer %d: unknown texture identifier %q", peer, msg.Identifier)
		return
	}
	key := StreamKey{Peer: peer, Identifier: id}

	switch msg.Command {
	case cmdStart:
		opts := StreamOptions{RefreshRateHz: defaultRefreshRateHz, Quality: defaultQuality}
		if msg.HasRefreshRate {
			opts.RefreshRateHz = msg.RefreshRate
		}
		if msg.HasQuality {
			opts.Quality = msg.Quality
		}
		d.engine.Start(key, opts)

	case cmdStop:
		d.engine.Stop(key)

	default:
		log.Printf("[dispatcher] peer %d: unknown streamed-texture command %q", peer, msg.Command)
	}
}

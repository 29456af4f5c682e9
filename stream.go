package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// PeerID is the transport-minted identifier for a connected peer. Stable
// for the lifetime of the connection; not reused within a process run.
type PeerID uint64

// StreamKey identifies one active subscription.
type StreamKey struct {
	Peer       PeerID
	Identifier TextureIdentifier
}

// StreamOptions are the immutable parameters of a subscription.
type StreamOptions struct {
	RefreshRateHz uint16
	Quality       uint16
}

func (o StreamOptions) normalized() StreamOptions {
	if o.RefreshRateHz < minRefreshRateHz || o.RefreshRateHz > maxRefreshRateHz {
		o.RefreshRateHz = defaultRefreshRateHz
	}
	if o.Quality < minQuality || o.Quality > maxQuality {
		o.Quality = defaultQuality
	}
	return o
}

func (o StreamOptions) period() time.Duration {
	return time.Second / time.Duration(o.RefreshRateHz)
}

type subscription struct {
	key     StreamKey
	options StreamOptions
	nextDue time.Time
}

// StreamEngine ticks over the active subscription set, reading textures,
// deduplicating and encoding frames, and enqueuing outbound packets onto a
// PacketShuttle. A single engine goroutine serves every subscription;
// per-subscription cadence is achieved by tracking each one's own "next
// due" timestamp against a shared base tick.
type StreamEngine struct {
	source  TextureSource
	shuttle *PacketShuttle
	cache   *encodeCache

	mu   sync.Mutex
	subs map[StreamKey]*subscription

	lastSentMu sync.Mutex
	lastSent   map[StreamKey]uint64
}

func NewStreamEngine(source TextureSource, shuttle *PacketShuttle) *StreamEngine {
	return &StreamEngine{
		source:   source,
		shuttle:  shuttle,
		cache:    newEncodeCache(maxEncodeCacheBytes),
		subs:     make(map[StreamKey]*subscription),
		lastSent: make(map[StreamKey]uint64),
	}
}

// Start creates or replaces the subscription for key with the given
// options (zero or out-of-range values are replaced by the defaults, per
// StreamOptions.normalized).
func (e *StreamEngine) Start(key StreamKey, options StreamOptions) {
	options = options.normalized()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs[key] = &subscription{key: key, options: options, nextDue: time.Now()}
}

// Stop tears down the subscription for key, if any.
func (e *StreamEngine) Stop(key StreamKey) {
	e.mu.Lock()
	delete(e.subs, key)
	e.mu.Unlock()

	e.lastSentMu.Lock()
	delete(e.lastSent, key)
	e.lastSentMu.Unlock()
}

// CancelPeer tears down every subscription belonging to peer. Called on
// disconnect; must complete before the Dispatcher processes anything else
// for a reused PeerID (PeerIDs are not reused within a process run, but the
// ordering guarantee holds regardless).
func (e *StreamEngine) CancelPeer(peer PeerID) {
	e.mu.Lock()
	var dead []StreamKey
	for k := range e.subs {
		if k.Peer == peer {
			dead = append(dead, k)
		}
	}
	for _, k := range dead {
		delete(e.subs, k)
	}
	e.mu.Unlock()

	e.lastSentMu.Lock()
	for _, k := range dead {
		delete(e.lastSent, k)
	}
	e.lastSentMu.Unlock()
}

// ActiveCount returns the number of active subscriptions.
func (e *StreamEngine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

// CacheStats returns the encode cache's current entry count and aggregate
// byte size, for metrics reporting.
func (e *StreamEngine) CacheStats() (int, int) {
	return e.cache.stats()
}

// Run drives the tick loop until ctx is canceled.
func (e *StreamEngine) Run(ctx context.Context) {
	ticker := time.NewTicker(baseTickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.tick(now)
		}
	}
}

func (e *StreamEngine) tick(now time.Time) {
	due := e.dueSubscriptions(now)
	for _, sub := range due {
		e.process(sub)
	}
}

// dueSubscriptions returns a stable-ordered snapshot of subscriptions whose
// period has elapsed, advancing their nextDue timestamps.
func (e *StreamEngine) dueSubscriptions(now time.Time) []subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	var due []subscription
	for _, s := range e.subs {
		if now.Before(s.nextDue) {
			continue
		}
		s.nextDue = now.Add(s.options.period())
		due = append(due, *s)
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].key.Peer != due[j].key.Peer {
			return due[i].key.Peer < due[j].key.Peer
		}
		return due[i].key.Identifier < due[j].key.Identifier
	})
	return due
}

func (e *StreamEngine) process(sub subscription) {
	pixels, err := e.source.Read(sub.key.Identifier)
	if err != nil {
		return // source unavailable this tick; not an error condition
	}

	hash := hashPixels(pixels)
	ck := encodeCacheKey{options: sub.options, hash: hash}

	data, ok := e.cache.get(ck)
	if !ok {
		data, err = encodeFrame(pixels, int(sub.options.Quality))
		if err != nil {
			log.Printf("[stream] encode %s: %v", sub.key.Identifier, err)
			return
		}
		e.cache.put(ck, data)
	}

	e.lastSentMu.Lock()
	last, sentBefore := e.lastSent[sub.key]
	e.lastSentMu.Unlock()
	if sentBefore && last == hash {
		return
	}

	if !e.shuttle.Enqueue(sub.key.Peer, sub.key.Identifier.Channel(), data) {
		return // queue full or shutting down; retry next tick
	}

	e.lastSentMu.Lock()
	e.lastSent[sub.key] = hash
	e.lastSentMu.Unlock()
}

// hashPixels computes a fast, non-cryptographic 64-bit hash of the raw
// pixel buffer. Collision resistance is not required, only speed.
func hashPixels(img *image.RGBA) uint64 {
	h := xxhash.New()
	_, _ = h.Write(img.Pix)
	return h.Sum64()
}

// encodeFrame converts pixels to 4:2:0 chroma-subsampled YCbCr and encodes
// it as a JPEG at the given quality. The conversion is explicit (rather
// than relying on the encoder's default behavior for arbitrary
// image.Image sources) so the subsampling ratio is guaranteed regardless
// of stdlib version.
func encodeFrame(pixels *image.RGBA, quality int) ([]byte, error) {
	bounds := pixels.Bounds()
	ycc := image.NewYCbCr(bounds, image.YCbCrSubsampleRatio420)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := pixels.At(x, y).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(b>>8))

			yi := ycc.YOffset(x, y)
			ci := ycc.COffset(x, y)
			ycc.Y[yi] = yy
			ycc.Cb[ci] = cb
			ycc.Cr[ci] = cr
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, ycc, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

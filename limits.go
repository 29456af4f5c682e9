package main

import "time"

// Operational limits — named constants for values that would otherwise be
// scattered across multiple source files.
const (
	// baseTickPeriod is the Stream Engine's scheduling granularity. Every
	// subscription's own refresh period is quantized against this tick.
	baseTickPeriod = 16 * time.Millisecond

	// serviceTimeout is the poll timeout passed to the Transport Host's
	// service call; the loop yields with a short sleep between polls.
	serviceTimeout = time.Millisecond
	serviceSleep   = time.Millisecond

	// shuttleDequeueWait is the nominal bound on the Packet Shuttle's wait
	// for a queued packet. PacketShuttle.Run does not use it: it waits on
	// its queue and its stop signal in one select, so it sees shutdown
	// without a timeout.
	shuttleDequeueWait = 5 * time.Millisecond

	// maxEncodeCacheBytes is the aggregate payload cap for the cross-peer
	// encode cache.
	maxEncodeCacheBytes = 2 * 1024 * 1024

	// maxDatagramSize bounds a single outbound frame payload.
	maxDatagramSize = 64 * 1024

	// broadcastIdlePoll is the read deadline for each read on the discovery
	// listener, so an idle listener checks for shutdown at this interval.
	broadcastIdlePoll = 100 * time.Millisecond

	// keyfilePollInterval is the Keyfile Watcher's authoritative cadence.
	// fsnotify events may trigger a check sooner, but this remains the
	// fallback that guarantees eventual detection.
	keyfilePollInterval = 5 * time.Second

	// focusSettleDelay is the pause after focusing the target window and
	// before the first scancode is emitted.
	focusSettleDelay = 15 * time.Millisecond

	// comboModifierDelay is the pause after pressing a combo's modifiers
	// and before its scancode click.
	comboModifierDelay = 10 * time.Millisecond

	// comboToPrimaryDelay is the pause after a combo completes and before
	// the primary scancode sequence begins.
	comboToPrimaryDelay = 30 * time.Millisecond

	// suggestionCount is how many nearest-match callback names are logged
	// when a resolve misses.
	suggestionCount = 3

	// Fixed hardware scancodes for modifier keys.
	scancodeLeftShift   uint16 = 0x2A
	scancodeLeftControl uint16 = 0x1D
	scancodeLeftAlt     uint16 = 0x38

	// defaultRefreshRateHz and defaultQuality are applied when a
	// StreamedTextureRequest omits them.
	defaultRefreshRateHz uint16 = 30
	defaultQuality       uint16 = 65
	minRefreshRateHz     uint16 = 1
	maxRefreshRateHz     uint16 = 120
	minQuality           uint16 = 1
	maxQuality           uint16 = 100
)

package main

import (
	"log"
	"sort"
	"sync/atomic"
	"time"
)

// Callback describes how to emit one named keybinding: a primary scancode
// sequence, and an optional combo (prefix chord) emitted before it.
type Callback struct {
	Name string

	Modifiers []uint16
	Primary   uint16
	Extended  bool

	HasCombo       bool
	ComboModifiers []uint16
	ComboPrimary   uint16
	ComboExtended  bool
}

// KeybindingTable is an immutable snapshot of every known callback,
// published wholesale on reload.
type KeybindingTable struct {
	Source  string
	Hash    uint64
	Entries map[string]Callback
}

func NewKeybindingTable(source string, hash uint64, entries map[string]Callback) *KeybindingTable {
	return &KeybindingTable{Source: source, Hash: hash, Entries: entries}
}

// KeystrokeSink performs the platform-level window focus and scancode
// emission. The real implementation is platform-specific (see
// keystroke_windows.go); keystroke_stub.go backs non-Windows builds and
// tests.
type KeystrokeSink interface {
	Focus() error
	Press(scancode uint16, extended bool) error
	Release(scancode uint16, extended bool) error
	Click(scancode uint16, extended bool) error
}

// KeybindingResolver maps callback names to scancode sequences, hot-reload
// aware via an atomically swapped table.
type KeybindingResolver struct {
	table atomic.Pointer[KeybindingTable]
	sink  KeystrokeSink
	sleep func(time.Duration)
}

func NewKeybindingResolver(sink KeystrokeSink) *KeybindingResolver {
	r := &KeybindingResolver{sink: sink, sleep: time.Sleep}
	r.table.Store(NewKeybindingTable("", 0, map[string]Callback{}))
	return r
}

// Publish replaces the active table. Called by the Keyfile Watcher on a
// successful parse; never mutates a table in place.
func (r *KeybindingResolver) Publish(t *KeybindingTable) {
	r.table.Store(t)
}

// Table returns the currently active snapshot.
func (r *KeybindingResolver) Table() *KeybindingTable {
	return r.table.Load()
}

// Resolve looks up name and, if found, focuses the target window and emits
// its scancode sequence (combo first, if any, then primary), returning true.
// If name is unknown, it logs the nearest-match suggestions and returns
// false without touching the keystroke sink.
func (r *KeybindingResolver) Resolve(name string) bool {
	table := r.table.Load()
	cb, ok := table.Entries[name]
	if !ok {
		log.Printf("[resolver] unknown callback %q; did you mean %v?", name, nearestNames(name, table, suggestionCount))
		return false
	}

	if err := r.sink.Focus(); err != nil {
		log.Printf("[resolver] focus target window: %v", err)
		return true
	}
	r.sleep(focusSettleDelay)

	if cb.HasCombo {
		r.emit(cb.ComboModifiers, cb.ComboPrimary, cb.ComboExtended)
		r.sleep(comboToPrimaryDelay)
	}
	r.emit(cb.Modifiers, cb.Primary, cb.Extended)
	return true
}

func (r *KeybindingResolver) emit(modifiers []uint16, scancode uint16, extended bool) {
	for _, m := range modifiers {
		if err := r.sink.Press(m, false); err != nil {
			log.Printf("[resolver] press modifier %#x: %v", m, err)
		}
	}
	r.sleep(comboModifierDelay)

	if err := r.sink.Click(scancode, extended); err != nil {
		log.Printf("[resolver] click %#x: %v", scancode, err)
	}

	for i := len(modifiers) - 1; i >= 0; i-- {
		if err := r.sink.Release(modifiers[i], false); err != nil {
			log.Printf("[resolver] release modifier %#x: %v", modifiers[i], err)
		}
	}
}

// nearestNames returns up to n callback names from the table ordered by
// Levenshtein distance to name, closest first.
func nearestNames(name string, table *KeybindingTable, n int) []string {
	type scored struct {
		name string
		dist int
	}
	candidates := make([]scored, 0, len(table.Entries))
	for candidate := range table.Entries {
		candidates = append(candidates, scored{candidate, levenshtein(name, candidate)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}

// levenshtein computes the classic edit distance between a and b. No
// third-party fuzzy-matching library appears anywhere in the reference
// corpus for this, so it's implemented directly: one small, self-contained
// algorithm against the standard library.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
)

// StringProvider reads string-valued data out of the simulator — here,
// specifically the advertised keybinding-file path. Modeled as an external
// collaborator per the bridge's scope (the simulator-side shared-memory
// reader lives outside this module).
type StringProvider interface {
	ReadString(key string) (string, error)
}

// keyfilePathKey is the simulator string-value key advertising the active
// keybinding file's path.
const keyfilePathKey = "keyfile_path"

// KeyfileParser turns raw file bytes into a callback table. The real
// parser is an external collaborator (the simulator's own keybinding file
// format); this module only needs its result.
type KeyfileParser interface {
	Parse(name string, data []byte) (map[string]Callback, error)
}

// KeyfileWatcher polls for the simulator's keybinding file, detects
// content changes by hash, and republishes a freshly parsed table to the
// Resolver on each change. fsnotify supplements the poll (faster
// detection) but the poll remains authoritative: a missed or unsupported
// fsnotify event is always caught by the next poll.
type KeyfileWatcher struct {
	provider StringProvider
	parser   KeyfileParser
	resolver *KeybindingResolver

	// OnReload, if set, is called after every successful table publish —
	// used to record the event in the audit ledger.
	OnReload func(source string, hash uint64, entries int)

	// PollInterval is the authoritative poll cadence. Defaults to
	// keyfilePollInterval; main.go overrides it from the configured
	// keyfile_poll_interval_ms.
	PollInterval time.Duration

	loaded   bool
	lastHash uint64
	lastPath string
}

func NewKeyfileWatcher(provider StringProvider, parser KeyfileParser, resolver *KeybindingResolver) *KeyfileWatcher {
	return &KeyfileWatcher{provider: provider, parser: parser, resolver: resolver, PollInterval: keyfilePollInterval}
}

// Run polls at PollInterval until ctx is canceled, checking sooner whenever
// fsnotify reports activity in the keyfile's directory.
func (w *KeyfileWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[watcher] fsnotify unavailable, falling back to poll-only: %v", err)
		notify = nil
	} else {
		defer notify.Close()
	}

	w.checkOnce(notify)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkOnce(notify)
		case <-fsnotifyEvents(notify):
			w.checkOnce(notify)
		}
	}
}

// fsnotifyEvents returns w's event channel, or a nil channel (which blocks
// forever in a select) if fsnotify failed to initialize.
func fsnotifyEvents(w *fsnotify.Watcher) chan fsnotify.Event {
	if w == nil {
		return nil
	}
	return w.Events
}

func (w *KeyfileWatcher) checkOnce(notify *fsnotify.Watcher) {
	path, err := w.provider.ReadString(keyfilePathKey)
	if err != nil || path == "" {
		return
	}

	if notify != nil && path != w.lastPath {
		if w.lastPath != "" {
			_ = notify.Remove(filepath.Dir(w.lastPath))
		}
		_ = notify.Add(filepath.Dir(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[watcher] read %s: %v", path, err)
		return
	}
	if len(data) == 0 {
		return
	}

	hash := xxhash.Sum64(data)
	if w.loaded && hash == w.lastHash && path == w.lastPath {
		return
	}

	entries, err := w.parser.Parse(filepath.Base(path), data)
	if err != nil {
		log.Printf("[watcher] parse %s: %v (keeping previous table)", path, err)
		return
	}

	w.resolver.Publish(NewKeybindingTable(path, hash, entries))
	w.loaded = true
	w.lastHash = hash
	w.lastPath = path
	log.Printf("[watcher] loaded %d callbacks from %s", len(entries), path)
	if w.OnReload != nil {
		w.OnReload(path, hash, len(entries))
	}
}

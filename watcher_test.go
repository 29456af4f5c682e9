package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempKeyfile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keyfile.ini")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp keyfile: %v", err)
	}
	return path
}

func overwriteTempKeyfile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("overwrite temp keyfile: %v", err)
	}
}

type fakeProvider struct {
	path string
}

func (p *fakeProvider) ReadString(key string) (string, error) {
	if key != keyfilePathKey {
		return "", errors.New("unknown key")
	}
	return p.path, nil
}

type countingParser struct {
	calls int
	table map[string]Callback
	err   error
}

func (p *countingParser) Parse(name string, data []byte) (map[string]Callback, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.table, nil
}

// Property 7: a content change triggers exactly one parse; unchanged
// contents across repeated checks trigger none after the first.
func TestKeyfileWatcherChangeDetection(t *testing.T) {
	path := writeTempKeyfile(t, "v1")
	provider := &fakeProvider{path: path}
	parser := &countingParser{table: map[string]Callback{"SimICPEnter": {Primary: 0x1C}}}
	resolver := NewKeybindingResolver(&NullKeystrokeSink{})
	w := NewKeyfileWatcher(provider, parser, resolver)

	w.checkOnce(nil)
	if parser.calls != 1 {
		t.Fatalf("expected 1 parse after initial load, got %d", parser.calls)
	}
	if resolver.Table().Hash == 0 {
		t.Fatalf("expected a published table with a nonzero hash")
	}

	for i := 0; i < 3; i++ {
		w.checkOnce(nil)
	}
	if parser.calls != 1 {
		t.Fatalf("expected no further parses for unchanged contents, got %d", parser.calls)
	}

	overwriteTempKeyfile(t, path, "v2")
	w.checkOnce(nil)
	if parser.calls != 2 {
		t.Fatalf("expected exactly one more parse after content change, got %d", parser.calls)
	}
}

func TestKeyfileWatcherParseFailureKeepsPreviousTable(t *testing.T) {
	path := writeTempKeyfile(t, "v1")
	provider := &fakeProvider{path: path}
	parser := &countingParser{table: map[string]Callback{"SimICPEnter": {Primary: 0x1C}}}
	resolver := NewKeybindingResolver(&NullKeystrokeSink{})
	w := NewKeyfileWatcher(provider, parser, resolver)

	w.checkOnce(nil)
	before := resolver.Table()

	parser.err = errors.New("malformed")
	overwriteTempKeyfile(t, path, "v2-broken")
	w.checkOnce(nil)

	if resolver.Table() != before {
		t.Fatalf("expected table to be unchanged after a parse failure")
	}
}

func TestKeyfileWatcherDefaultPollInterval(t *testing.T) {
	provider := &fakeProvider{}
	parser := &countingParser{}
	resolver := NewKeybindingResolver(&NullKeystrokeSink{})
	w := NewKeyfileWatcher(provider, parser, resolver)

	if w.PollInterval != keyfilePollInterval {
		t.Fatalf("expected default poll interval %v, got %v", keyfilePollInterval, w.PollInterval)
	}
}

func TestKeyfileWatcherRunStopsOnContextCancel(t *testing.T) {
	path := writeTempKeyfile(t, "v1")
	provider := &fakeProvider{path: path}
	parser := &countingParser{table: map[string]Callback{}}
	resolver := NewKeybindingResolver(&NullKeystrokeSink{})
	w := NewKeyfileWatcher(provider, parser, resolver)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

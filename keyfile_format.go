package main

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ConfigStringProvider answers StringProvider queries from the static
// configuration rather than simulator shared memory. Used whenever the real
// shared-memory reader isn't wired in (every build of this bridge, since
// that reader is an external collaborator outside this module's scope).
type ConfigStringProvider struct {
	values map[string]string
}

func NewConfigStringProvider(keyfilePath string) *ConfigStringProvider {
	return &ConfigStringProvider{values: map[string]string{
		keyfilePathKey: keyfilePath,
	}}
}

func (p *ConfigStringProvider) ReadString(key string) (string, error) {
	v, ok := p.values[key]
	if !ok {
		return "", fmt.Errorf("keyfile: no value configured for %q", key)
	}
	return v, nil
}

// DefaultKeyfileParser parses the bridge's own plain-text keybinding format:
// one callback per line, tab-separated —
//
//	Name  modifiers(csv hex)  primary(hex)  extended(0|1)  [combo-modifiers(csv hex)  combo-primary(hex)  combo-extended(0|1)]
//
// Blank lines and lines starting with '#' are skipped. This is a minimal
// built-in format, not the simulator's native keybinding file layout — that
// parser is a collaborator outside this module's scope.
type DefaultKeyfileParser struct{}

func (DefaultKeyfileParser) Parse(name string, data []byte) (map[string]Callback, error) {
	entries := make(map[string]Callback)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			return nil, fmt.Errorf("%s:%d: expected at least 4 tab-separated fields, got %d", name, lineNo, len(fields))
		}

		cb := Callback{Name: fields[0]}
		var err error
		cb.Modifiers, err = parseScancodeList(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: modifiers: %w", name, lineNo, err)
		}
		cb.Primary, err = parseScancode(fields[2])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: primary: %w", name, lineNo, err)
		}
		cb.Extended = fields[3] == "1"

		if len(fields) >= 7 {
			cb.HasCombo = true
			cb.ComboModifiers, err = parseScancodeList(fields[4])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: combo modifiers: %w", name, lineNo, err)
			}
			cb.ComboPrimary, err = parseScancode(fields[5])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: combo primary: %w", name, lineNo, err)
			}
			cb.ComboExtended = fields[6] == "1"
		}

		entries[cb.Name] = cb
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseScancode(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func parseScancodeList(s string) ([]uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint16, 0, len(parts))
	for _, p := range parts {
		v, err := parseScancode(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

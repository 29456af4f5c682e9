package main

import (
	"fmt"
	"os"
	"sort"

	"skyrelay/store"
)

// RunCLI handles subcommand execution. Returns true if a subcommand was handled.
func RunCLI(args []string, cfg Config) bool {
	if len(args) == 0 {
		return false
	}

	subcmd := args[0]
	switch subcmd {
	case "version":
		fmt.Printf("skyrelay %s\n", Version)
		return true
	case "status":
		return cliStatus(cfg)
	case "keybindings":
		return cliKeybindings(args[1:], cfg)
	default:
		return false
	}
}

func cliStatus(cfg Config) bool {
	st, err := store.New(cfg.AuditDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	fmt.Printf("Version: %s\n", Version)
	fmt.Printf("Database: %s\n", cfg.AuditDBPath)
	fmt.Printf("Listen: %s:%d\n", cfg.ListenAddress, cfg.ListenPort)
	fmt.Printf("Broadcast port: %d\n", cfg.BroadcastPort)

	if reload, err := st.LatestReload(); err == nil {
		fmt.Printf("Last keybinding reload: %s (%d entries, hash=%s)\n", reload.Source, reload.Entries, reload.Hash)
	} else {
		fmt.Println("Last keybinding reload: none recorded")
	}

	failures, err := st.ResolveFailureCount()
	if err == nil {
		fmt.Printf("Unresolved callback lookups: %d\n", failures)
	}
	return true
}

func cliKeybindings(args []string, cfg Config) bool {
	if len(args) == 0 || args[0] == "list" {
		table, err := loadKeybindingTableFromConfig(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading keyfile: %v\n", err)
			os.Exit(1)
		}
		if len(table.Entries) == 0 {
			fmt.Println("No callbacks loaded.")
			return true
		}
		names := make([]string, 0, len(table.Entries))
		for name := range table.Entries {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s\n", name)
		}
		return true
	}

	if args[0] == "test" && len(args) > 1 {
		name := args[1]
		table, err := loadKeybindingTableFromConfig(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading keyfile: %v\n", err)
			os.Exit(1)
		}
		if _, ok := table.Entries[name]; !ok {
			fmt.Printf("Unknown callback %q; nearest matches: %v\n", name, nearestNames(name, table, suggestionCount))
			os.Exit(1)
		}
		resolver := NewKeybindingResolver(&NullKeystrokeSink{})
		resolver.Publish(table)
		resolver.Resolve(name)
		fmt.Printf("Emitted %q\n", name)
		return true
	}

	fmt.Fprintf(os.Stderr, "Usage: skyrelay keybindings [list|test <name>]\n")
	os.Exit(1)
	return true
}

// loadKeybindingTableFromConfig reads and parses the configured keyfile
// directly, for one-shot CLI inspection (outside the running Keyfile
// Watcher's poll loop).
func loadKeybindingTableFromConfig(cfg Config) (*KeybindingTable, error) {
	if cfg.KeyfilePath == "" {
		return NewKeybindingTable("", 0, map[string]Callback{}), nil
	}
	provider := NewConfigStringProvider(cfg.KeyfilePath)
	path, err := provider.ReadString(keyfilePathKey)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries, err := (DefaultKeyfileParser{}).Parse(path, data)
	if err != nil {
		return nil, err
	}
	return NewKeybindingTable(path, 0, entries), nil
}
